// Package backends defines the contract every live backend client
// implements, plus the shared request/response types. Client instances
// are constructed once at process start and must be safe for concurrent
// use; connection pools and credentials live inside the client.
package backends

import (
	"context"
	"fmt"
)

// Client is the capability interface the dispatcher depends on. The
// sync and async call variants of the dispatch layer share one blocking
// transport method here; asynchrony is a caller concern and lives in the
// dispatch package's futures.
type Client interface {
	// Name returns the client's backend tag (e.g. "GROQ").
	Name() string

	// ChatCompletion performs a blocking chat completion and returns the
	// assistant's text.
	ChatCompletion(ctx context.Context, req *ChatRequest) (string, error)

	// ToolCompletion performs a chat completion with optional tool
	// descriptors. Nil tools and nil tool choice mean "none supplied" and
	// are forwarded to the wire unchanged; the backend interprets them.
	ToolCompletion(ctx context.Context, req *ToolRequest) (string, error)
}

// Message is a single chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the unified chat completion request.
type ChatRequest struct {
	// Model identifier, passed through verbatim.
	Model string

	// Messages in the conversation.
	Messages []Message

	// MaxTokens limits the response length.
	MaxTokens int

	// Temperature, nil when the caller did not set one.
	Temperature *float64

	// Extra holds additional wire parameters merged into the request
	// body as-is (top_p, stop, ...). May be nil.
	Extra map[string]any
}

// ToolDescriptor describes one tool offered to the model. The structure
// is opaque to this layer; it is marshaled into the request unchanged.
type ToolDescriptor map[string]any

// ToolRequest is a chat completion request carrying tool descriptors.
type ToolRequest struct {
	Model     string
	Messages  []Message
	MaxTokens int

	// Tools and ToolChoice default to nil ("none supplied") and are
	// passed through without validation.
	Tools      []ToolDescriptor
	ToolChoice *string
}

// BackendError is a failure raised by a backend client during the
// delegated call. The dispatcher propagates it unwrapped.
type BackendError struct {
	// Backend that generated the error.
	Backend string

	// Code is the backend's error classification.
	Code string

	// Message is the error message.
	Message string

	// StatusCode is the HTTP status code, when applicable.
	StatusCode int

	// Retryable indicates whether the caller may retry.
	Retryable bool

	// Cause is the underlying error.
	Cause error
}

func (e *BackendError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Backend, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Backend, e.Message)
}

func (e *BackendError) Unwrap() error {
	return e.Cause
}

// NewBackendError creates a BackendError.
func NewBackendError(backend, code, message string, statusCode int, retryable bool, cause error) *BackendError {
	return &BackendError{
		Backend:    backend,
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
		Retryable:  retryable,
		Cause:      cause,
	}
}

// IsRetryable reports whether err is a retryable backend error.
func IsRetryable(err error) bool {
	if be, ok := err.(*BackendError); ok {
		return be.Retryable
	}
	return false
}
