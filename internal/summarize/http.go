// Package summarize provides text summarization clients for the persistence
// pipeline.
package summarize

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPConfig controls the HTTP summarizer client.
type HTTPConfig struct {
	// Endpoint is the summarization service URL.
	Endpoint string
	// Timeout bounds one summarization call (default 30s).
	Timeout time.Duration
}

// HTTPClient calls an external summarization service over JSON.
type HTTPClient struct {
	endpoint string
	client   *http.Client
}

type summarizeRequest struct {
	Text      string `json:"text"`
	MaxLength int    `json:"max_length"`
}

type summarizeResponse struct {
	Summary string `json:"summary"`
}

// NewHTTPClient builds a summarizer backed by an HTTP service.
func NewHTTPClient(cfg HTTPConfig) (*HTTPClient, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("summarizer endpoint is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &HTTPClient{
		endpoint: cfg.Endpoint,
		client:   &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// GenerateSummary posts the text to the service and returns its summary.
func (c *HTTPClient) GenerateSummary(ctx context.Context, fullText string, maxLength int) (string, error) {
	body, err := json.Marshal(summarizeRequest{Text: fullText, MaxLength: maxLength})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("call summarizer: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("summarizer returned %d: %s", resp.StatusCode, string(data))
	}

	var parsed summarizeResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if parsed.Summary == "" {
		return "", fmt.Errorf("summarizer returned an empty summary")
	}
	return parsed.Summary, nil
}
