// Package dispatch routes a chat request for a given model identifier to
// the backend client that serves it. It performs exactly one
// deterministic catalog lookup and one delegated call per request; the
// only failures it introduces are the two resolution errors.
package dispatch

import (
	"github.com/modelmux/modelmux/services/backends"
	"github.com/modelmux/modelmux/services/catalog"
	"go.uber.org/zap"
)

// Default call parameters, applied when the caller leaves them unset.
const (
	DefaultMaxTokens   = 1024
	DefaultTemperature = 0.1
)

// Clients maps each backend tag to its singleton live client. Built once
// at process start; clients must be safe for concurrent use.
type Clients map[catalog.Backend]backends.Client

// Router is the process-wide dispatch configuration: the catalog, the
// live-client table and a logger. Immutable after construction, so it is
// shared freely across concurrent requests.
type Router struct {
	catalog *catalog.Catalog
	clients Clients
	logger  *zap.Logger
}

// NewRouter creates a Router.
func NewRouter(cat *catalog.Catalog, clients Clients, logger *zap.Logger) *Router {
	return &Router{
		catalog: cat,
		clients: clients,
		logger:  logger,
	}
}

// Catalog returns the model catalog backing this router.
func (r *Router) Catalog() *catalog.Catalog {
	return r.catalog
}

// Dispatcher returns a per-request dispatcher bound to one model
// identifier. Dispatchers are cheap and own no resources.
func (r *Router) Dispatcher(modelID string) *Dispatcher {
	return &Dispatcher{
		modelID: modelID,
		router:  r,
	}
}

// resolve maps the model identifier to its live client: catalog lookup
// first, then the defensive live-client table check. Logs the selected
// model and backend on success.
func (r *Router) resolve(modelID string) (catalog.Backend, backends.Client, error) {
	backend, ok := r.catalog.Resolve(modelID)
	if !ok {
		return "", nil, &UnresolvedModelError{Model: modelID}
	}
	client, ok := r.clients[backend]
	if !ok {
		return "", nil, &UnsupportedBackendError{Backend: backend}
	}
	r.logger.Info("model resolved",
		zap.String("model", modelID),
		zap.String("backend", string(backend)))
	return backend, client, nil
}

// Resolve exposes the catalog lookup plus live-client check without
// performing a call. Used by listing and readiness surfaces.
func (r *Router) Resolve(modelID string) (catalog.Backend, error) {
	backend, _, err := r.resolve(modelID)
	return backend, err
}
