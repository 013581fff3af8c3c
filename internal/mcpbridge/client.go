// Package mcpbridge exposes the studio classification service to MCP
// clients as typed tools and resources, bridged over the studio HTTP API.
package mcpbridge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/figdock/figdock/internal/platform/discovery"
)

// FigureRecord mirrors one classification result from the studio API.
type FigureRecord struct {
	ID             string   `json:"id"`
	Class          string   `json:"class"`
	Label          string   `json:"label"`
	Confidence     float64  `json:"confidence"`
	Description    string   `json:"description"`
	Reasoning      string   `json:"reasoning"`
	VisualElements []string `json:"visual_elements,omitempty"`
	Method         string   `json:"method"`
	ImageHash      string   `json:"image_hash"`
	SourceURL      string   `json:"source_url,omitempty"`
	Cached         bool     `json:"cached"`
	DurationMs     int64    `json:"duration_ms"`
}

// TaxonomyEntry mirrors one class definition from the studio taxonomy.
type TaxonomyEntry struct {
	Class    string   `json:"class"`
	Label    string   `json:"label"`
	Emoji    string   `json:"emoji"`
	Brief    string   `json:"brief"`
	Keywords []string `json:"keywords"`
}

// StudioClient talks to the studio HTTP API.
type StudioClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewStudioClient builds a client for the studio API. An empty base URL
// falls back to the in-network studio convention.
func NewStudioClient(baseURL string) *StudioClient {
	return &StudioClient{
		baseURL:    strings.TrimRight(discovery.OrDefaultHTTPBaseURL(baseURL, discovery.ServiceStudio), "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Classify uploads raw image bytes and returns the classification.
func (c *StudioClient) Classify(ctx context.Context, data []byte) (*FigureRecord, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("image", "figure")
	if err != nil {
		return nil, fmt.Errorf("build image upload: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, fmt.Errorf("build image upload: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("build image upload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/classify", &body)
	if err != nil {
		return nil, fmt.Errorf("build classify request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	record := &FigureRecord{}
	if err := c.do(req, record); err != nil {
		return nil, err
	}
	return record, nil
}

// ClassifyURL asks the studio to download and classify a remote image.
func (c *StudioClient) ClassifyURL(ctx context.Context, imageURL string) (*FigureRecord, error) {
	payload, err := json.Marshal(map[string]string{"url": imageURL})
	if err != nil {
		return nil, fmt.Errorf("build classify request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/classify", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build classify request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	record := &FigureRecord{}
	if err := c.do(req, record); err != nil {
		return nil, err
	}
	return record, nil
}

// History lists recent classifications, optionally filtered by class.
func (c *StudioClient) History(ctx context.Context, class string, limit int) ([]FigureRecord, error) {
	query := url.Values{}
	if class = strings.TrimSpace(class); class != "" {
		query.Set("class", class)
	}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	endpoint := c.baseURL + "/api/classifications"
	if encoded := query.Encode(); encoded != "" {
		endpoint += "?" + encoded
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build history request: %w", err)
	}

	var payload struct {
		Classifications []FigureRecord `json:"classifications"`
	}
	if err := c.do(req, &payload); err != nil {
		return nil, err
	}
	return payload.Classifications, nil
}

// Taxonomy lists the classes the studio can assign.
func (c *StudioClient) Taxonomy(ctx context.Context) ([]TaxonomyEntry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/taxonomy", nil)
	if err != nil {
		return nil, fmt.Errorf("build taxonomy request: %w", err)
	}

	var payload struct {
		Taxonomy []TaxonomyEntry `json:"taxonomy"`
	}
	if err := c.do(req, &payload); err != nil {
		return nil, err
	}
	return payload.Taxonomy, nil
}

// WaitReady polls the studio health endpoint until it responds or ctx ends.
func (c *StudioClient) WaitReady(ctx context.Context) error {
	backoff := 200 * time.Millisecond
	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/healthz", nil)
		if err != nil {
			return fmt.Errorf("build health request: %w", err)
		}
		resp, err := c.httpClient.Do(req)
		if err == nil {
			status := resp.StatusCode
			resp.Body.Close()
			if status == http.StatusOK {
				return nil
			}
			log.Printf("waiting for studio health: status %d", status)
		} else {
			log.Printf("waiting for studio health: %v", err)
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("wait for studio health: %w", ctx.Err())
		case <-time.After(backoff):
		}
		if backoff < time.Second {
			backoff *= 2
			if backoff > time.Second {
				backoff = time.Second
			}
		}
	}
}

func (c *StudioClient) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("studio request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("read studio response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Error string `json:"error"`
			Code  string `json:"code"`
		}
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error != "" {
			if apiErr.Code != "" {
				return fmt.Errorf("studio rejected request: %s (%s)", apiErr.Error, apiErr.Code)
			}
			return fmt.Errorf("studio rejected request: %s", apiErr.Error)
		}
		return fmt.Errorf("studio returned status %d", resp.StatusCode)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode studio response: %w", err)
	}
	return nil
}
