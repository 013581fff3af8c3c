package classify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/figdock/figdock/internal/studio/domain"
)

// captionTimeout bounds the remote captioning request.
const captionTimeout = 10 * time.Second

// CaptionConfig configures the remote captioning endpoint.
type CaptionConfig struct {
	// Endpoint is a BLIP-style inference URL accepting raw image bytes
	// and answering [{"generated_text": "..."}]. Empty disables remote
	// captioning; classification proceeds from the local description.
	Endpoint   string
	HTTPClient *http.Client
}

// CaptionClassifier captions the figure and scores the caption against
// the class lexicons. When the remote endpoint fails or is unset, a local
// feature-derived description stands in.
type CaptionClassifier struct {
	cfg CaptionConfig
}

// NewCaptionClassifier builds a caption classifier.
func NewCaptionClassifier(cfg CaptionConfig) *CaptionClassifier {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: captionTimeout}
	}
	return &CaptionClassifier{cfg: cfg}
}

// Method implements Classifier.
func (c *CaptionClassifier) Method() domain.Method { return domain.MethodCaption }

// Classify captions the image and classifies from the caption. Results
// from a remote caption report MethodCaption; local descriptions report
// MethodLexicon.
func (c *CaptionClassifier) Classify(ctx context.Context, in *Input) (domain.Classification, error) {
	caption, err := c.caption(ctx, in.Bytes)
	method := domain.MethodCaption
	if err != nil || strings.TrimSpace(caption) == "" {
		caption = in.Features.Describe()
		method = domain.MethodLexicon
	}
	return classifyCaption(caption, in.Features, method), nil
}

func (c *CaptionClassifier) caption(ctx context.Context, data []byte) (string, error) {
	endpoint := strings.TrimSpace(c.cfg.Endpoint)
	if endpoint == "" {
		return "", fmt.Errorf("caption endpoint not configured")
	}

	reqCtx, cancel := context.WithTimeout(ctx, captionTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("build caption request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	res, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("caption request failed: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		body, readErr := io.ReadAll(io.LimitReader(res.Body, 4096))
		if readErr != nil {
			return "", fmt.Errorf("read caption error body: %w", readErr)
		}
		return "", fmt.Errorf("caption request status %d: %s", res.StatusCode, strings.TrimSpace(string(body)))
	}

	var payload []struct {
		GeneratedText string `json:"generated_text"`
	}
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decode caption response: %w", err)
	}
	if len(payload) == 0 {
		return "", fmt.Errorf("caption response is empty")
	}
	return payload[0].GeneratedText, nil
}
