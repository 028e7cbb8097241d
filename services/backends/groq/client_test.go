package groq

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/modelmux/modelmux/services/backends"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatCompletion(t *testing.T) {
	t.Run("successful completion", func(t *testing.T) {
		var captured map[string]any
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/chat/completions", r.URL.Path)
			assert.Equal(t, "Bearer gsk-test", r.Header.Get("Authorization"))
			require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

			_ = json.NewEncoder(w).Encode(map[string]any{
				"id":    "chatcmpl-groq-1",
				"model": "llama3-8b-8192",
				"choices": []map[string]any{
					{"index": 0, "message": map[string]any{"role": "assistant", "content": "fast answer"}, "finish_reason": "stop"},
				},
			})
		}))
		defer ts.Close()

		client := New(Config{APIKey: "gsk-test", BaseURL: ts.URL})

		result, err := client.ChatCompletion(context.Background(), &backends.ChatRequest{
			Model:     "llama3-8b-8192",
			Messages:  []backends.Message{{Role: "user", Content: "hello"}},
			MaxTokens: 1024,
		})
		require.NoError(t, err)
		assert.Equal(t, "fast answer", result)
		assert.Equal(t, "llama3-8b-8192", captured["model"])
		assert.Equal(t, float64(1024), captured["max_tokens"])
	})

	t.Run("extra parameters merged into wire body", func(t *testing.T) {
		var captured map[string]any
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
			_ = json.NewEncoder(w).Encode(map[string]any{
				"choices": []map[string]any{
					{"message": map[string]any{"role": "assistant", "content": "ok"}},
				},
			})
		}))
		defer ts.Close()

		client := New(Config{APIKey: "gsk-test", BaseURL: ts.URL})

		_, err := client.ChatCompletion(context.Background(), &backends.ChatRequest{
			Model:     "llama3-8b-8192",
			Messages:  []backends.Message{{Role: "user", Content: "hello"}},
			MaxTokens: 1024,
			Extra:     map[string]any{"top_p": 0.95, "seed": 42},
		})
		require.NoError(t, err)
		assert.Equal(t, 0.95, captured["top_p"])
		assert.Equal(t, float64(42), captured["seed"])
	})

	t.Run("server error mapped to retryable backend error", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"error": map[string]any{"message": "service overloaded", "type": "server_error"},
			})
		}))
		defer ts.Close()

		client := New(Config{APIKey: "gsk-test", BaseURL: ts.URL})

		_, err := client.ChatCompletion(context.Background(), &backends.ChatRequest{
			Model:     "llama3-8b-8192",
			Messages:  []backends.Message{{Role: "user", Content: "hello"}},
			MaxTokens: 1024,
		})
		require.Error(t, err)

		var backendErr *backends.BackendError
		require.ErrorAs(t, err, &backendErr)
		assert.Equal(t, "GROQ", backendErr.Backend)
		assert.Equal(t, "server_error", backendErr.Code)
		assert.True(t, backendErr.Retryable)
		assert.True(t, backends.IsRetryable(err))
	})
}

func TestToolCompletion(t *testing.T) {
	var captured map[string]any
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{
					"role": "assistant",
					"tool_calls": []map[string]any{
						{"id": "call_1", "type": "function", "function": map[string]any{"name": "lookup", "arguments": "{}"}},
					},
				}},
			},
		})
	}))
	defer ts.Close()

	client := New(Config{APIKey: "gsk-test", BaseURL: ts.URL})

	choice := "required"
	result, err := client.ToolCompletion(context.Background(), &backends.ToolRequest{
		Model:      "llama3-70b-8192",
		Messages:   []backends.Message{{Role: "user", Content: "look it up"}},
		MaxTokens:  1024,
		Tools:      []backends.ToolDescriptor{{"type": "function"}},
		ToolChoice: &choice,
	})
	require.NoError(t, err)
	assert.Contains(t, result, "lookup")
	assert.Contains(t, captured, "tools")
	assert.Equal(t, "required", captured["tool_choice"])
}

func TestMarshalWithExtra(t *testing.T) {
	req := &chatRequest{
		Model:     "llama3-8b-8192",
		Messages:  []backends.Message{{Role: "user", Content: "hi"}},
		MaxTokens: 64,
	}

	t.Run("no extra is a plain marshal", func(t *testing.T) {
		payload, err := req.marshalWithExtra(nil)
		require.NoError(t, err)

		var m map[string]any
		require.NoError(t, json.Unmarshal(payload, &m))
		assert.NotContains(t, m, "temperature")
	})

	t.Run("extra overrides typed fields", func(t *testing.T) {
		payload, err := req.marshalWithExtra(map[string]any{"max_tokens": 8})
		require.NoError(t, err)

		var m map[string]any
		require.NoError(t, json.Unmarshal(payload, &m))
		assert.Equal(t, float64(8), m["max_tokens"])
	})
}
