// Package catalog holds the authoritative model catalog: which backend
// serves which model identifier. It is built once at process start and
// read-only afterwards, so concurrent readers need no locking.
package catalog

// Backend identifies one LLM-serving provider. The set of tags is closed;
// it is the join key between the catalog and the live-client table.
type Backend string

const (
	BackendGroq    Backend = "GROQ"
	BackendOpenAI  Backend = "OPENAI"
	BackendLocalAI Backend = "LOCAL_AI"
	BackendOllama  Backend = "OLLAMA"
)

// Backends lists all backend tags in catalog iteration order.
func Backends() []Backend {
	return []Backend{BackendGroq, BackendOpenAI, BackendLocalAI, BackendOllama}
}

// ModelEntry is an immutable (display name, model identifier) pair.
// Identifiers are unique within a backend; global uniqueness across
// backends is not enforced.
type ModelEntry struct {
	DisplayName string `json:"display_name"`
	ID          string `json:"id"`
}

// Catalog maps each backend to its ordered model entries. The explicit
// order slice is what makes Resolve deterministic: Go map iteration order
// is randomized, and "first match wins" must be stable within a run.
type Catalog struct {
	order  []Backend
	models map[Backend][]ModelEntry
}

// New builds the catalog with the curated entries for the hosted backends.
// The Ollama entry list starts empty; SetBackendModels fills it once at
// startup when the local server is reachable.
func New() *Catalog {
	return &Catalog{
		order: Backends(),
		models: map[Backend][]ModelEntry{
			BackendGroq: {
				{DisplayName: "LLAMA3 8B", ID: "llama3-8b-8192"},
				{DisplayName: "LLAMA3 70B", ID: "llama3-70b-8192"},
				{DisplayName: "LLAMA3.1 70B", ID: "llama-3.1-70b-versatile"},
				{DisplayName: "LLAMA3.1 8B", ID: "llama-3.1-8b-instant"},
				{DisplayName: "LLAMA3.3 70B", ID: "llama-3.3-70b-specdec"},
				{DisplayName: "LLAMA2 70B", ID: "llama2-70b-4096"},
				{DisplayName: "Mixtral", ID: "mixtral-8x7b-32768"},
				{DisplayName: "GEMMA 7B", ID: "gemma-7b-it"},
			},
			BackendOpenAI: {
				{DisplayName: "4O-MINI", ID: "gpt-4o-mini"},
			},
			BackendLocalAI: {
				{DisplayName: "QWEN2.5 3B GGUF", ID: "Qwen2.5-3B-Instruct-GGUF-Q6-K"},
				{DisplayName: "QWEN2.5 7B GGUF", ID: "Qwen2.5-7B-Instruct-GGUF-Q6-K"},
				{DisplayName: "Qwen2.5 72B GGUF", ID: "Qwen2.5-72B-Instruct-GGUF-Q5-K-M"},
				{DisplayName: "QWEN2.5 3B GPTQ", ID: "Qwen2.5-3B-Instruct-GPTQ-Int4"},
				{DisplayName: "QWEN2.5 7B GPTQ", ID: "Qwen2.5-7B-Instruct-GPTQ-Int4"},
				{DisplayName: "Qwen2.5 72B GPTQ", ID: "Qwen2.5-72B-Instruct-GPTQ-Int4"},
				{DisplayName: "Qwen2.5 72B AWQ", ID: "Qwen2.5-72B-Instruct-AWQ"},
			},
			BackendOllama: {},
		},
	}
}

// SetBackendModels replaces the entry list for a backend. Intended to be
// called exactly once, during startup enrichment, before the catalog is
// shared with concurrent readers. There is no background refresh.
func (c *Catalog) SetBackendModels(backend Backend, entries []ModelEntry) {
	c.models[backend] = entries
}

// Resolve maps a model identifier to the backend that declares it.
// Backends are scanned in catalog order, entries in listed order, and the
// comparison is exact (case-sensitive, no normalization). If the same
// identifier were registered under two backends the first backend in
// catalog order wins; the curated data never does this, so callers should
// not rely on the tie-break.
func (c *Catalog) Resolve(modelID string) (Backend, bool) {
	for _, backend := range c.order {
		for _, entry := range c.models[backend] {
			if entry.ID == modelID {
				return backend, true
			}
		}
	}
	return "", false
}

// Models returns the full backend-to-entries mapping. The map is a copy;
// the entry slices are shared and must be treated as read-only.
func (c *Catalog) Models() map[Backend][]ModelEntry {
	out := make(map[Backend][]ModelEntry, len(c.models))
	for backend, entries := range c.models {
		out[backend] = entries
	}
	return out
}

// Entries returns the ordered entry list for one backend.
func (c *Catalog) Entries(backend Backend) []ModelEntry {
	return c.models[backend]
}
