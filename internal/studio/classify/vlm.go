package classify

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	apperrors "github.com/figdock/figdock/internal/platform/errors"
	"github.com/figdock/figdock/internal/studio/domain"
)

// vlmPrompt asks the provider for one of the coarse figure types plus a
// one-line layout description.
const vlmPrompt = "You are an expert document visual analyst. " +
	"Classify the given figure into one of the following types: " +
	"Bar Chart, Line Graph, Pie Chart, Timeline, Photograph, Table, Other Chart, Other Diagram. " +
	"Also describe the layout and visual structure in one line."

// vlmTimeout bounds a single provider request.
const vlmTimeout = 30 * time.Second

// VLMConfig configures the vision-LLM provider adapter.
type VLMConfig struct {
	// Endpoint accepts a JSON body {model, prompt, image} and answers
	// {text} or an OpenAI-style choices list.
	Endpoint string
	Model    string
	// APIKeys are tried in order; a quota-exhausted response rotates to
	// the next key.
	APIKeys    []string
	HTTPClient *http.Client
}

// VLMClassifier sends the figure to a vision-LLM provider and parses the
// response text into a taxonomy class. Responses are cached by image hash
// so repeated uploads of the same figure spend no quota.
type VLMClassifier struct {
	cfg VLMConfig

	mu    sync.Mutex
	cache map[string]string
}

// NewVLMClassifier builds a provider-backed classifier, or nil when no
// API keys are configured so the chain skips the stage entirely.
func NewVLMClassifier(cfg VLMConfig) *VLMClassifier {
	keys := make([]string, 0, len(cfg.APIKeys))
	for _, key := range cfg.APIKeys {
		if strings.TrimSpace(key) != "" {
			keys = append(keys, strings.TrimSpace(key))
		}
	}
	if len(keys) == 0 || strings.TrimSpace(cfg.Endpoint) == "" {
		return nil
	}
	cfg.APIKeys = keys
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: vlmTimeout}
	}
	return &VLMClassifier{cfg: cfg, cache: make(map[string]string)}
}

// Method implements Classifier.
func (v *VLMClassifier) Method() domain.Method { return domain.MethodVLM }

// Classify asks the provider about the figure, rotating API keys on
// quota exhaustion, and parses the answer into a class.
func (v *VLMClassifier) Classify(ctx context.Context, in *Input) (domain.Classification, error) {
	hash := ImageHash(in.Bytes)

	v.mu.Lock()
	text, cached := v.cache[hash]
	v.mu.Unlock()

	if !cached {
		var err error
		text, err = v.invoke(ctx, in.Bytes)
		if err != nil {
			return domain.Classification{}, err
		}
		v.mu.Lock()
		v.cache[hash] = text
		v.mu.Unlock()
	}

	return parseVLMResponse(text), nil
}

// invoke tries each API key in order. Only quota-exhausted responses
// rotate; any other failure surfaces immediately.
func (v *VLMClassifier) invoke(ctx context.Context, data []byte) (string, error) {
	var lastErr error
	for _, key := range v.cfg.APIKeys {
		text, err := v.request(ctx, key, data)
		if err == nil {
			return text, nil
		}
		lastErr = err
		if apperrors.CodeOf(err) == apperrors.CodeProviderQuotaExceeded {
			continue
		}
		return "", err
	}
	return "", apperrors.Wrap(apperrors.CodeProviderQuotaExceeded, "all provider keys exhausted", lastErr)
}

func (v *VLMClassifier) request(ctx context.Context, key string, data []byte) (string, error) {
	payload := struct {
		Model  string `json:"model"`
		Prompt string `json:"prompt"`
		Image  string `json:"image"`
	}{
		Model:  v.cfg.Model,
		Prompt: vlmPrompt,
		Image:  base64.StdEncoding.EncodeToString(data),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode provider request: %w", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, vlmTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, v.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build provider request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+key)

	res, err := v.cfg.HTTPClient.Do(req)
	if err != nil {
		return "", apperrors.Wrap(apperrors.CodeProviderResponse, "provider request failed", err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusTooManyRequests {
		return "", apperrors.New(apperrors.CodeProviderQuotaExceeded, "provider quota exhausted")
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		errBody, readErr := io.ReadAll(io.LimitReader(res.Body, 4096))
		if readErr != nil {
			return "", fmt.Errorf("read provider error body: %w", readErr)
		}
		return "", apperrors.WithMetadata(apperrors.CodeProviderResponse,
			fmt.Sprintf("provider status %d: %s", res.StatusCode, strings.TrimSpace(string(errBody))),
			map[string]string{"status": fmt.Sprintf("%d", res.StatusCode)})
	}

	var answer struct {
		Text    string `json:"text"`
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(res.Body).Decode(&answer); err != nil {
		return "", apperrors.Wrap(apperrors.CodeProviderResponse, "decode provider response", err)
	}
	text := strings.TrimSpace(answer.Text)
	if text == "" && len(answer.Choices) > 0 {
		text = strings.TrimSpace(answer.Choices[0].Message.Content)
	}
	if text == "" {
		return "", apperrors.New(apperrors.CodeProviderResponse, "provider response missing text")
	}
	return text, nil
}

// parseVLMResponse maps provider answer keywords to a class. Confidences
// mirror how reliably each phrase identifies the class in practice.
func parseVLMResponse(response string) domain.Classification {
	lower := strings.ToLower(response)

	var class domain.Class
	var confidence float64
	switch {
	case strings.Contains(lower, "bar chart"):
		class, confidence = domain.ClassBarChart, 0.9
	case strings.Contains(lower, "line graph"):
		class, confidence = domain.ClassLineGraph, 0.9
	case strings.Contains(lower, "pie chart"):
		class, confidence = domain.ClassPieChart, 0.9
	case strings.Contains(lower, "timeline"):
		class, confidence = domain.ClassTimeline, 0.6
	case strings.Contains(lower, "photograph"), strings.Contains(lower, "photo"):
		class, confidence = domain.ClassPhotograph, 0.4
	case strings.Contains(lower, "table"):
		class, confidence = domain.ClassTable, 0.7
	case strings.Contains(lower, "chart"):
		class, confidence = domain.ClassChartOther, 0.5
	default:
		class, confidence = domain.ClassDiagramOther, 0.4
	}

	result := domain.NewClassification(class, confidence, domain.MethodVLM)
	description := strings.TrimSpace(response)
	if idx := strings.Index(description, "."); idx > 0 {
		description = description[:idx]
	}
	result.Description = description
	result.Reasoning = strings.TrimSpace(response)
	result.VisualElements = elementsForClass(class, response)
	return result
}

// ImageHash returns the sha256 hex digest keying VLM response caching and
// storage-level dedupe.
func ImageHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
