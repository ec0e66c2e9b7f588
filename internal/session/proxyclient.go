package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bffagent/bffagent/internal/chat"
)

// ChatPath is the proxy route the client posts to.
const ChatPath = "/functions/v1/chat"

const defaultClientTimeout = 30 * time.Second

// ProxyClient is a Responder backed by the remote completion proxy.
type ProxyClient struct {
	BaseURL    string
	AccessKey  string
	HTTPClient *http.Client
}

// NewProxyClient returns a client for the proxy at baseURL.
func NewProxyClient(baseURL, accessKey string) *ProxyClient {
	return &ProxyClient{
		BaseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		AccessKey:  strings.TrimSpace(accessKey),
		HTTPClient: &http.Client{Timeout: defaultClientTimeout},
	}
}

// Reply posts the window and returns the proxy's response text.
func (c *ProxyClient) Reply(ctx context.Context, window []chat.Message) (string, error) {
	body, err := json.Marshal(chat.ChatRequest{Messages: chat.ToWire(window)})
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+ChatPath, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.AccessKey)
	req.Header.Set("Content-Type", "application/json")

	client := c.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close() // nolint:errcheck // best-effort cleanup

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		var failure chat.ErrorResponse
		if json.Unmarshal(respBody, &failure) == nil && failure.Error != "" {
			return "", fmt.Errorf("proxy returned status %d: %s: %s", resp.StatusCode, failure.Type, failure.Error)
		}
		return "", fmt.Errorf("proxy returned status %d", resp.StatusCode)
	}

	var parsed struct {
		Response *string `json:"response"`
	}
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if parsed.Response == nil {
		return "", fmt.Errorf("decode response: missing response field")
	}
	return *parsed.Response, nil
}
