package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	cat := New()

	t.Run("resolves known model ids", func(t *testing.T) {
		testCases := []struct {
			modelID string
			backend Backend
		}{
			{"llama3-8b-8192", BackendGroq},
			{"mixtral-8x7b-32768", BackendGroq},
			{"gpt-4o-mini", BackendOpenAI},
			{"Qwen2.5-72B-Instruct-AWQ", BackendLocalAI},
		}

		for _, tc := range testCases {
			backend, ok := cat.Resolve(tc.modelID)
			require.True(t, ok, "model %s should resolve", tc.modelID)
			assert.Equal(t, tc.backend, backend)
		}
	})

	t.Run("unknown model does not resolve", func(t *testing.T) {
		_, ok := cat.Resolve("claude-sonnet-4")
		assert.False(t, ok)
	})

	t.Run("comparison is case-sensitive", func(t *testing.T) {
		_, ok := cat.Resolve("GPT-4O-MINI")
		assert.False(t, ok)

		_, ok = cat.Resolve("Llama3-8b-8192")
		assert.False(t, ok)
	})

	t.Run("empty model id does not resolve", func(t *testing.T) {
		_, ok := cat.Resolve("")
		assert.False(t, ok)
	})

	t.Run("display names never resolve", func(t *testing.T) {
		_, ok := cat.Resolve("LLAMA3 8B")
		assert.False(t, ok)
	})
}

func TestResolveFirstMatchWins(t *testing.T) {
	// A duplicate id across backends resolves to the earlier backend in
	// catalog order, on every call.
	cat := New()
	cat.SetBackendModels(BackendOllama, []ModelEntry{
		{DisplayName: "Shadowed", ID: "gpt-4o-mini"},
	})

	for i := 0; i < 50; i++ {
		backend, ok := cat.Resolve("gpt-4o-mini")
		require.True(t, ok)
		require.Equal(t, BackendOpenAI, backend)
	}
}

func TestBackendsOrder(t *testing.T) {
	assert.Equal(t, []Backend{BackendGroq, BackendOpenAI, BackendLocalAI, BackendOllama}, Backends())
}

func TestModels(t *testing.T) {
	cat := New()

	t.Run("all backends present", func(t *testing.T) {
		models := cat.Models()
		assert.Len(t, models, 4)
		for _, backend := range Backends() {
			assert.Contains(t, models, backend)
		}
	})

	t.Run("ollama starts empty", func(t *testing.T) {
		assert.Empty(t, cat.Entries(BackendOllama))
	})

	t.Run("returned map is a copy", func(t *testing.T) {
		models := cat.Models()
		delete(models, BackendGroq)
		assert.Contains(t, cat.Models(), BackendGroq)
	})
}

func TestSetBackendModels(t *testing.T) {
	cat := New()

	entries := []ModelEntry{
		{DisplayName: "llama3:latest", ID: "llama3:latest"},
		{DisplayName: "phi3:mini", ID: "phi3:mini"},
	}
	cat.SetBackendModels(BackendOllama, entries)

	assert.Equal(t, entries, cat.Entries(BackendOllama))

	backend, ok := cat.Resolve("phi3:mini")
	require.True(t, ok)
	assert.Equal(t, BackendOllama, backend)

	// Hosted entries are untouched by the enrichment
	backend, ok = cat.Resolve("gpt-4o-mini")
	require.True(t, ok)
	assert.Equal(t, BackendOpenAI, backend)
}
