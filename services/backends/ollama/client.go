// Package ollama implements the backends.Client contract for a local
// Ollama server. Besides chat completions (served over Ollama's
// OpenAI-compatible endpoint) it exposes the readiness probe and model
// listing used to enrich the catalog at startup.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/modelmux/modelmux/services/backends"
	"github.com/modelmux/modelmux/services/catalog"
)

const defaultBaseURL = "http://localhost:11434"

// Config holds the client configuration.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Client talks to a local Ollama server.
type Client struct {
	config     Config
	httpClient *http.Client
}

// New creates a Client.
func New(config Config) *Client {
	if config.BaseURL == "" {
		config.BaseURL = defaultBaseURL
	}
	if config.Timeout == 0 {
		config.Timeout = 120 * time.Second
	}
	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

// Name returns the backend tag.
func (c *Client) Name() string {
	return string(catalog.BackendOllama)
}

// Ready reports whether the local server answers its tags endpoint.
func (c *Client) Ready(ctx context.Context) bool {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL+"/api/tags", nil)
	if err != nil {
		return false
	}
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// Models lists the models the local server currently serves. The model
// name doubles as the display name; Ollama has no separate label.
func (c *Client) Models(ctx context.Context) ([]catalog.ModelEntry, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL+"/api/tags", nil)
	if err != nil {
		return nil, backends.NewBackendError(c.Name(), "REQUEST_ERROR", "failed to create request", 0, false, err)
	}
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, backends.NewBackendError(c.Name(), "HTTP_ERROR", "local server unreachable", 0, true, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, backends.NewBackendError(c.Name(), "UPSTREAM_ERROR", "tags endpoint returned non-200", resp.StatusCode, true, nil)
	}

	var tags tagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return nil, backends.NewBackendError(c.Name(), "UNMARSHAL_ERROR", "failed to parse tags response", resp.StatusCode, false, err)
	}

	entries := make([]catalog.ModelEntry, 0, len(tags.Models))
	for _, m := range tags.Models {
		entries = append(entries, catalog.ModelEntry{DisplayName: m.Name, ID: m.Name})
	}
	return entries, nil
}

// ChatCompletion performs a blocking chat completion.
func (c *Client) ChatCompletion(ctx context.Context, req *backends.ChatRequest) (string, error) {
	payload := map[string]any{
		"model":      req.Model,
		"messages":   req.Messages,
		"max_tokens": req.MaxTokens,
	}
	if req.Temperature != nil {
		payload["temperature"] = *req.Temperature
	}
	for k, v := range req.Extra {
		payload[k] = v
	}
	return c.complete(ctx, payload)
}

// ToolCompletion performs a chat completion with optional tools.
func (c *Client) ToolCompletion(ctx context.Context, req *backends.ToolRequest) (string, error) {
	payload := map[string]any{
		"model":      req.Model,
		"messages":   req.Messages,
		"max_tokens": req.MaxTokens,
	}
	if req.Tools != nil {
		payload["tools"] = req.Tools
	}
	if req.ToolChoice != nil {
		payload["tool_choice"] = *req.ToolChoice
	}
	return c.complete(ctx, payload)
}

func (c *Client) complete(ctx context.Context, payload map[string]any) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", backends.NewBackendError(c.Name(), "MARSHAL_ERROR", "failed to marshal request", 0, false, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", backends.NewBackendError(c.Name(), "REQUEST_ERROR", "failed to create request", 0, false, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", backends.NewBackendError(c.Name(), "HTTP_ERROR", "HTTP request failed", 0, true, err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return "", backends.NewBackendError(c.Name(), "READ_ERROR", "failed to read response", httpResp.StatusCode, false, err)
	}

	if httpResp.StatusCode != http.StatusOK {
		return "", backends.NewBackendError(c.Name(), "UPSTREAM_ERROR", string(respBody), httpResp.StatusCode, httpResp.StatusCode >= 500, nil)
	}

	var resp chatResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return "", backends.NewBackendError(c.Name(), "UNMARSHAL_ERROR", "failed to unmarshal response", httpResp.StatusCode, false, err)
	}
	if len(resp.Choices) == 0 {
		return "", backends.NewBackendError(c.Name(), "EMPTY_RESPONSE", "response contained no choices", 0, false, nil)
	}

	msg := resp.Choices[0].Message
	if msg.Content == "" && len(msg.ToolCalls) > 0 {
		raw, err := json.Marshal(msg.ToolCalls)
		if err != nil {
			return "", backends.NewBackendError(c.Name(), "MARSHAL_ERROR", "failed to marshal tool calls", 0, false, err)
		}
		return string(raw), nil
	}
	return msg.Content, nil
}

// Wire types.

type tagsResponse struct {
	Models []struct {
		Name       string `json:"name"`
		ModifiedAt string `json:"modified_at"`
		Size       int64  `json:"size"`
	} `json:"models"`
}

type chatResponse struct {
	ID      string   `json:"id"`
	Model   string   `json:"model"`
	Choices []choice `json:"choices"`
}

type choice struct {
	Index        int             `json:"index"`
	Message      responseMessage `json:"message"`
	FinishReason string          `json:"finish_reason"`
}

type responseMessage struct {
	Role      string          `json:"role"`
	Content   string          `json:"content"`
	ToolCalls json.RawMessage `json:"tool_calls,omitempty"`
}
