package dispatch

import (
	"context"

	"github.com/modelmux/modelmux/services/backends"
)

// Dispatcher routes calls for one model identifier. It holds only the
// identifier and a reference to the shared router; construct one per
// logical request and discard it.
type Dispatcher struct {
	modelID string
	router  *Router
}

// Model returns the bound model identifier.
func (d *Dispatcher) Model() string {
	return d.modelID
}

// Options are the caller-tunable call parameters. The zero value means
// "use defaults": MaxTokens 1024, no temperature for the blocking
// variant, temperature 0.1 for the asynchronous variant.
type Options struct {
	MaxTokens   int
	Temperature *float64
	Extra       map[string]any
}

func (o Options) maxTokens() int {
	if o.MaxTokens > 0 {
		return o.MaxTokens
	}
	return DefaultMaxTokens
}

// Complete performs a blocking chat completion against the backend that
// serves the bound model. Resolution failures are the only errors this
// layer adds; anything else is the client's failure, passed through
// unwrapped.
func (d *Dispatcher) Complete(ctx context.Context, messages []backends.Message, opts Options) (string, error) {
	_, client, err := d.router.resolve(d.modelID)
	if err != nil {
		return "", err
	}
	return client.ChatCompletion(ctx, &backends.ChatRequest{
		Model:       d.modelID,
		Messages:    messages,
		MaxTokens:   opts.maxTokens(),
		Temperature: opts.Temperature,
		Extra:       opts.Extra,
	})
}

// CompleteAsync starts a chat completion and returns a Call to wait on.
// Resolution errors are returned synchronously, before any work starts.
// When the caller did not set a temperature, a near-deterministic 0.1 is
// forwarded. Cancelling ctx cancels both the in-flight client call and
// any Wait on the returned Call.
func (d *Dispatcher) CompleteAsync(ctx context.Context, messages []backends.Message, opts Options) (*Call, error) {
	_, client, err := d.router.resolve(d.modelID)
	if err != nil {
		return nil, err
	}
	if opts.Temperature == nil {
		temp := DefaultTemperature
		opts.Temperature = &temp
	}
	req := &backends.ChatRequest{
		Model:       d.modelID,
		Messages:    messages,
		MaxTokens:   opts.maxTokens(),
		Temperature: opts.Temperature,
		Extra:       opts.Extra,
	}
	return start(func() (string, error) {
		return client.ChatCompletion(ctx, req)
	}), nil
}

// ToolCalls starts a tool-augmented chat completion. Tools and
// toolChoice may be nil; they are forwarded to the client exactly as
// given, with no default substitution. Resolution errors are returned
// synchronously like CompleteAsync.
func (d *Dispatcher) ToolCalls(ctx context.Context, messages []backends.Message, tools []backends.ToolDescriptor, toolChoice *string, opts Options) (*Call, error) {
	_, client, err := d.router.resolve(d.modelID)
	if err != nil {
		return nil, err
	}
	req := &backends.ToolRequest{
		Model:      d.modelID,
		Messages:   messages,
		MaxTokens:  opts.maxTokens(),
		Tools:      tools,
		ToolChoice: toolChoice,
	}
	return start(func() (string, error) {
		return client.ToolCompletion(ctx, req)
	}), nil
}
