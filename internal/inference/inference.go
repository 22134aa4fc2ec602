// Package inference holds thin HTTP clients for the local model services.
// Each service runs on its own fixed port and speaks strict JSON; the
// clients are stateless and callers do the batching.
package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Default service endpoints.
const (
	DefaultFaceURL      = "http://localhost:8005"
	DefaultEmbeddingURL = "http://localhost:8006"
	DefaultCaptionURL   = "http://localhost:8007"
	DefaultLLMURL       = "http://localhost:8008"
	DefaultTagsURL      = "http://localhost:8011"
)

type httpClient struct {
	baseURL string
	client  *http.Client
}

func newHTTPClient(baseURL, defaultURL string) httpClient {
	if baseURL == "" {
		baseURL = defaultURL
	}
	return httpClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		// Model inference on a large photo can legitimately take minutes.
		client: &http.Client{Timeout: 10 * time.Minute},
	}
}

// postJSON sends the request body and decodes the response into out.
func (c *httpClient) postJSON(ctx context.Context, endpoint string, in, out any) error {
	reqBody, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(reqBody))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

func (c *httpClient) get(ctx context.Context, endpoint string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("API error (status %d)", resp.StatusCode)
	}
	return nil
}
