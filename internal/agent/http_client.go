package agent

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

// HTTPClient talks to an agent service over JSON/HTTP.
type HTTPClient struct {
	endpoint string
	apiKey   string
	http     *http.Client
}

// NewHTTPClient targets endpoint. The request timeout is left to Service.
func NewHTTPClient(endpoint, apiKey string, httpClient *http.Client) *HTTPClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &HTTPClient{
		endpoint: strings.TrimSpace(endpoint),
		apiKey:   strings.TrimSpace(apiKey),
		http:     httpClient,
	}
}

type agentRequest struct {
	UserID  int64  `json:"user_id"`
	Message string `json:"message"`
}

type agentResponse struct {
	Reply string `json:"reply"`
	Error string `json:"error,omitempty"`
}

// Complete implements Client.
func (c *HTTPClient) Complete(ctx context.Context, userID int64, text string) (string, error) {
	if c.endpoint == "" {
		return "", fmt.Errorf("agent: endpoint not configured")
	}
	payload, err := json.Marshal(agentRequest{UserID: userID, Message: text})
	if err != nil {
		return "", fmt.Errorf("agent: marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("agent: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("agent: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return "", fmt.Errorf("agent: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("agent: unexpected status %d", resp.StatusCode)
	}

	var out agentResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("agent: decode response: %w", err)
	}
	if out.Error != "" {
		return "", fmt.Errorf("agent: %s", out.Error)
	}
	return out.Reply, nil
}
