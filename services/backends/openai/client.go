// Package openai implements the backends.Client contract for any server
// speaking the OpenAI chat-completions protocol. The hosted OpenAI API
// and the local inference server both use this client, with different
// base URLs and backend names.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/modelmux/modelmux/services/backends"
)

const defaultBaseURL = "https://api.openai.com/v1"

// Config holds the client configuration.
type Config struct {
	// Name is the backend tag this client answers for.
	Name string

	// APIKey for bearer authentication. May be empty for local servers.
	APIKey string

	// BaseURL of the chat-completions API.
	BaseURL string

	// Timeout for HTTP requests.
	Timeout time.Duration

	// OrgID for organization-scoped accounts.
	OrgID string
}

// Client talks to an OpenAI-compatible chat-completions endpoint.
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
		config.Timeout = 60 * time.Second
	}
	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

// Name returns the configured backend tag.
func (c *Client) Name() string {
	return c.config.Name
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

	resp, err := c.post(ctx, payload)
	if err != nil {
		return "", err
	}
	return c.extractText(resp)
}

// ToolCompletion performs a chat completion with optional tools. Nil
// tools and tool choice are omitted from the wire body entirely.
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

	resp, err := c.post(ctx, payload)
	if err != nil {
		return "", err
	}
	return c.extractToolResult(resp)
}

// Ready reports whether the endpoint answers its model-listing route.
// Used by the local-server flavor of this client during startup.
func (c *Client) Ready(ctx context.Context) bool {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL+"/models", nil)
	if err != nil {
		return false
	}
	if c.config.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

func (c *Client) post(ctx context.Context, payload map[string]any) (*chatResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, backends.NewBackendError(c.Name(), "MARSHAL_ERROR", "failed to marshal request", 0, false, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, backends.NewBackendError(c.Name(), "REQUEST_ERROR", "failed to create request", 0, false, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.config.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}
	if c.config.OrgID != "" {
		httpReq.Header.Set("OpenAI-Organization", c.config.OrgID)
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, backends.NewBackendError(c.Name(), "HTTP_ERROR", "HTTP request failed", 0, true, err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, backends.NewBackendError(c.Name(), "READ_ERROR", "failed to read response", httpResp.StatusCode, false, err)
	}

	if httpResp.StatusCode != http.StatusOK {
		return nil, c.errorFromResponse(httpResp.StatusCode, respBody)
	}

	var resp chatResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, backends.NewBackendError(c.Name(), "UNMARSHAL_ERROR", "failed to unmarshal response", httpResp.StatusCode, false, err)
	}
	return &resp, nil
}

// extractText returns the first choice's message content.
func (c *Client) extractText(resp *chatResponse) (string, error) {
	if len(resp.Choices) == 0 {
		return "", backends.NewBackendError(c.Name(), "EMPTY_RESPONSE", "response contained no choices", 0, false, nil)
	}
	return resp.Choices[0].Message.Content, nil
}

// extractToolResult returns the message content when present, otherwise
// the raw tool calls marshaled as JSON so the caller sees exactly what
// the model requested.
func (c *Client) extractToolResult(resp *chatResponse) (string, error) {
	if len(resp.Choices) == 0 {
		return "", backends.NewBackendError(c.Name(), "EMPTY_RESPONSE", "response contained no choices", 0, false, nil)
	}
	msg := resp.Choices[0].Message
	if msg.Content != "" || len(msg.ToolCalls) == 0 {
		return msg.Content, nil
	}
	raw, err := json.Marshal(msg.ToolCalls)
	if err != nil {
		return "", backends.NewBackendError(c.Name(), "MARSHAL_ERROR", "failed to marshal tool calls", 0, false, err)
	}
	return string(raw), nil
}

func (c *Client) errorFromResponse(statusCode int, body []byte) error {
	var errResp errorResponse
	if err := json.Unmarshal(body, &errResp); err != nil || errResp.Error.Message == "" {
		return backends.NewBackendError(c.Name(), "UPSTREAM_ERROR", string(body), statusCode, statusCode >= 500, nil)
	}
	retryable := statusCode >= 500 || statusCode == http.StatusTooManyRequests
	code := errResp.Error.Type
	if code == "" {
		code = fmt.Sprintf("HTTP_%d", statusCode)
	}
	return backends.NewBackendError(c.Name(), code, errResp.Error.Message, statusCode, retryable, errors.New(errResp.Error.Message))
}

// Wire types.

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

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error"`
}
