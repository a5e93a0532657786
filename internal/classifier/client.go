// Package classifier talks to the sidecar that serves the in-house news
// model. The sidecar answers POST /predict {"news": ...} with a plain-text
// label.
package classifier

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

const maxLabelBytes = 1 << 10

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

type predictRequest struct {
	News string `json:"news"`
}

func (c *Client) Classify(ctx context.Context, text string) (string, error) {
	body, err := json.Marshal(predictRequest{News: text})
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/predict", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/plain, application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxLabelBytes))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("classifier responded with status %d", resp.StatusCode)
	}
	return decodeLabel(raw), nil
}

// decodeLabel accepts a bare label, a JSON string, or {"label": ...}.
func decodeLabel(raw []byte) string {
	trimmed := bytes.TrimSpace(raw)
	var s string
	if json.Unmarshal(trimmed, &s) == nil {
		return strings.TrimSpace(s)
	}
	var obj struct {
		Label string `json:"label"`
	}
	if json.Unmarshal(trimmed, &obj) == nil && obj.Label != "" {
		return strings.TrimSpace(obj.Label)
	}
	return string(trimmed)
}
