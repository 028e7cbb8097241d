package openai

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
			assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
			require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

			_ = json.NewEncoder(w).Encode(map[string]any{
				"id": "chatcmpl-1",
				"choices": []map[string]any{
					{"index": 0, "message": map[string]any{"role": "assistant", "content": "hello back"}},
				},
			})
		}))
		defer ts.Close()

		client := New(Config{Name: "OPENAI", APIKey: "test-key", BaseURL: ts.URL})

		temp := 0.5
		result, err := client.ChatCompletion(context.Background(), &backends.ChatRequest{
			Model:       "gpt-4o-mini",
			Messages:    []backends.Message{{Role: "user", Content: "hello"}},
			MaxTokens:   128,
			Temperature: &temp,
		})
		require.NoError(t, err)
		assert.Equal(t, "hello back", result)

		assert.Equal(t, "gpt-4o-mini", captured["model"])
		assert.Equal(t, float64(128), captured["max_tokens"])
		assert.Equal(t, 0.5, captured["temperature"])
	})

	t.Run("temperature omitted when unset", func(t *testing.T) {
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

		client := New(Config{Name: "OPENAI", BaseURL: ts.URL})

		_, err := client.ChatCompletion(context.Background(), &backends.ChatRequest{
			Model:     "gpt-4o-mini",
			Messages:  []backends.Message{{Role: "user", Content: "hello"}},
			MaxTokens: 1024,
		})
		require.NoError(t, err)
		assert.NotContains(t, captured, "temperature")
	})

	t.Run("api error mapped to backend error", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"error": map[string]any{"message": "rate limit exceeded", "type": "rate_limit_error"},
			})
		}))
		defer ts.Close()

		client := New(Config{Name: "OPENAI", BaseURL: ts.URL})

		_, err := client.ChatCompletion(context.Background(), &backends.ChatRequest{
			Model:     "gpt-4o-mini",
			Messages:  []backends.Message{{Role: "user", Content: "hello"}},
			MaxTokens: 1024,
		})
		require.Error(t, err)

		var backendErr *backends.BackendError
		require.ErrorAs(t, err, &backendErr)
		assert.Equal(t, "OPENAI", backendErr.Backend)
		assert.Equal(t, "rate_limit_error", backendErr.Code)
		assert.Equal(t, http.StatusTooManyRequests, backendErr.StatusCode)
		assert.True(t, backendErr.Retryable)
	})

	t.Run("empty choices", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]any{"choices": []any{}})
		}))
		defer ts.Close()

		client := New(Config{Name: "OPENAI", BaseURL: ts.URL})

		_, err := client.ChatCompletion(context.Background(), &backends.ChatRequest{
			Model:     "gpt-4o-mini",
			Messages:  []backends.Message{{Role: "user", Content: "hello"}},
			MaxTokens: 1024,
		})
		require.Error(t, err)

		var backendErr *backends.BackendError
		require.ErrorAs(t, err, &backendErr)
		assert.Equal(t, "EMPTY_RESPONSE", backendErr.Code)
	})
}

func TestToolCompletion(t *testing.T) {
	t.Run("returns marshaled tool calls when content empty", func(t *testing.T) {
		var captured map[string]any
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
			_ = json.NewEncoder(w).Encode(map[string]any{
				"choices": []map[string]any{
					{"message": map[string]any{
						"role": "assistant",
						"tool_calls": []map[string]any{
							{"id": "call_1", "type": "function", "function": map[string]any{"name": "get_weather", "arguments": `{"city":"Medellin"}`}},
						},
					}},
				},
			})
		}))
		defer ts.Close()

		client := New(Config{Name: "OPENAI", BaseURL: ts.URL})

		choice := "auto"
		result, err := client.ToolCompletion(context.Background(), &backends.ToolRequest{
			Model:      "gpt-4o-mini",
			Messages:   []backends.Message{{Role: "user", Content: "weather?"}},
			MaxTokens:  1024,
			Tools:      []backends.ToolDescriptor{{"type": "function"}},
			ToolChoice: &choice,
		})
		require.NoError(t, err)
		assert.Contains(t, result, "get_weather")

		assert.Contains(t, captured, "tools")
		assert.Equal(t, "auto", captured["tool_choice"])
	})

	t.Run("nil tools omitted from wire body", func(t *testing.T) {
		var captured map[string]any
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
			_ = json.NewEncoder(w).Encode(map[string]any{
				"choices": []map[string]any{
					{"message": map[string]any{"role": "assistant", "content": "plain answer"}},
				},
			})
		}))
		defer ts.Close()

		client := New(Config{Name: "OPENAI", BaseURL: ts.URL})

		result, err := client.ToolCompletion(context.Background(), &backends.ToolRequest{
			Model:     "gpt-4o-mini",
			Messages:  []backends.Message{{Role: "user", Content: "hi"}},
			MaxTokens: 1024,
		})
		require.NoError(t, err)
		assert.Equal(t, "plain answer", result)
		assert.NotContains(t, captured, "tools")
		assert.NotContains(t, captured, "tool_choice")
	})
}

func TestReady(t *testing.T) {
	t.Run("ready when models endpoint answers", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/models", r.URL.Path)
			_ = json.NewEncoder(w).Encode(map[string]any{"data": []any{}})
		}))
		defer ts.Close()

		client := New(Config{Name: "LOCAL_AI", BaseURL: ts.URL})
		assert.True(t, client.Ready(context.Background()))
	})

	t.Run("not ready when server is down", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		ts.Close()

		client := New(Config{Name: "LOCAL_AI", BaseURL: ts.URL})
		assert.False(t, client.Ready(context.Background()))
	})
}
