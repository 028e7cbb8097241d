package handlers

import (
	"net/http"

	"github.com/modelmux/modelmux/services/catalog"
	"github.com/modelmux/modelmux/services/dispatch"
	"github.com/modelmux/modelmux/utils"
	"go.uber.org/zap"
)

// ModelEntry is a single model exposed by a backend
type ModelEntry struct {
	DisplayName string `json:"display_name"`
	ID          string `json:"id"`
}

// BackendModels groups the models of one backend
type BackendModels struct {
	Backend string       `json:"backend"`
	Models  []ModelEntry `json:"models"`
}

// ModelsResponse is the catalog listing response
type ModelsResponse struct {
	Backends []BackendModels `json:"backends"`
}

// ModelsHandler serves the model catalog
type ModelsHandler struct {
	router *dispatch.Router
	logger *zap.Logger
}

// NewModelsHandler creates a new ModelsHandler
func NewModelsHandler(router *dispatch.Router, logger *zap.Logger) *ModelsHandler {
	return &ModelsHandler{
		router: router,
		logger: logger,
	}
}

// HandleListModels handles GET /api/v1/models. Backends are listed in
// registry order so the response is stable across calls.
func (h *ModelsHandler) HandleListModels(w http.ResponseWriter, r *http.Request) {
	cat := h.router.Catalog()

	response := ModelsResponse{
		Backends: make([]BackendModels, 0, len(catalog.Backends())),
	}
	for _, backend := range catalog.Backends() {
		entries := cat.Entries(backend)
		models := make([]ModelEntry, 0, len(entries))
		for _, entry := range entries {
			models = append(models, ModelEntry{
				DisplayName: entry.DisplayName,
				ID:          entry.ID,
			})
		}
		response.Backends = append(response.Backends, BackendModels{
			Backend: string(backend),
			Models:  models,
		})
	}

	if err := utils.WriteOK(w, response); err != nil {
		h.logger.Error("failed to write models response", zap.Error(err))
	}
}
