// Package groq implements the backends.Client contract for the Groq
// cloud API.
package groq

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/modelmux/modelmux/services/backends"
	"github.com/modelmux/modelmux/services/catalog"
)

const defaultBaseURL = "https://api.groq.com/openai/v1"

// Config holds the client configuration.
type Config struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// Client talks to the Groq chat-completions API.
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

// Name returns the backend tag.
func (c *Client) Name() string {
	return string(catalog.BackendGroq)
}

// ChatCompletion performs a blocking chat completion.
func (c *Client) ChatCompletion(ctx context.Context, req *backends.ChatRequest) (string, error) {
	body := chatRequest{
		Model:     req.Model,
		Messages:  req.Messages,
		MaxTokens: req.MaxTokens,
	}
	if req.Temperature != nil {
		body.Temperature = req.Temperature
	}
	return c.complete(ctx, &body, req.Extra)
}

// ToolCompletion performs a chat completion with optional tools.
func (c *Client) ToolCompletion(ctx context.Context, req *backends.ToolRequest) (string, error) {
	body := chatRequest{
		Model:      req.Model,
		Messages:   req.Messages,
		MaxTokens:  req.MaxTokens,
		Tools:      req.Tools,
		ToolChoice: req.ToolChoice,
	}
	return c.complete(ctx, &body, nil)
}

func (c *Client) complete(ctx context.Context, body *chatRequest, extra map[string]any) (string, error) {
	payload, err := body.marshalWithExtra(extra)
	if err != nil {
		return "", backends.NewBackendError(c.Name(), "MARSHAL_ERROR", "failed to marshal request", 0, false, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", backends.NewBackendError(c.Name(), "REQUEST_ERROR", "failed to create request", 0, false, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.config.APIKey)

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
		return "", c.errorFromResponse(httpResp.StatusCode, respBody)
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

func (c *Client) errorFromResponse(statusCode int, body []byte) error {
	var errResp errorResponse
	if err := json.Unmarshal(body, &errResp); err != nil || errResp.Error.Message == "" {
		return backends.NewBackendError(c.Name(), "UPSTREAM_ERROR", string(body), statusCode, statusCode >= 500, nil)
	}
	retryable := statusCode >= 500 || statusCode == http.StatusTooManyRequests
	return backends.NewBackendError(c.Name(), errResp.Error.Type, errResp.Error.Message, statusCode, retryable, errors.New(errResp.Error.Message))
}

// Wire types. Groq speaks the OpenAI chat-completions dialect.

type chatRequest struct {
	Model       string                    `json:"model"`
	Messages    []backends.Message        `json:"messages"`
	MaxTokens   int                       `json:"max_tokens"`
	Temperature *float64                  `json:"temperature,omitempty"`
	Tools       []backends.ToolDescriptor `json:"tools,omitempty"`
	ToolChoice  *string                   `json:"tool_choice,omitempty"`
}

// marshalWithExtra marshals the request, merging any extra wire
// parameters over the typed fields.
func (r *chatRequest) marshalWithExtra(extra map[string]any) ([]byte, error) {
	if len(extra) == 0 {
		return json.Marshal(r)
	}
	base, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	var merged map[string]any
	if err := json.Unmarshal(base, &merged); err != nil {
		return nil, err
	}
	for k, v := range extra {
		merged[k] = v
	}
	return json.Marshal(merged)
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

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error"`
}
