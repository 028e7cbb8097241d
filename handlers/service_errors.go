package handlers

import (
	"errors"
	"net/http"

	"github.com/modelmux/modelmux/services/backends"
	"github.com/modelmux/modelmux/services/dispatch"
	"github.com/modelmux/modelmux/utils"
	"go.uber.org/zap"
)

// HandleDispatchError maps dispatch and backend errors to HTTP responses
func HandleDispatchError(w http.ResponseWriter, err error, logger *zap.Logger) {
	if err == nil {
		return
	}

	var backendErr *backends.BackendError

	switch {
	case dispatch.IsUnresolvedModel(err):
		if writeErr := utils.WriteNotFound(w, err.Error()); writeErr != nil {
			logger.Error("failed to write not found response", zap.Error(writeErr))
		}

	case dispatch.IsUnsupportedBackend(err):
		// A registry entry without a live client is a deployment fault,
		// not a caller fault
		logger.Error("backend misconfiguration", zap.Error(err))
		if writeErr := utils.WriteInternalServerError(w, err.Error()); writeErr != nil {
			logger.Error("failed to write internal error response", zap.Error(writeErr))
		}

	case errors.As(err, &backendErr):
		details := map[string]interface{}{
			"backend":   backendErr.Backend,
			"code":      backendErr.Code,
			"retryable": backendErr.Retryable,
		}
		if backendErr.StatusCode > 0 {
			details["status_code"] = backendErr.StatusCode
		}
		if writeErr := utils.WriteBadGateway(w, backendErr.Message, details); writeErr != nil {
			logger.Error("failed to write bad gateway response", zap.Error(writeErr))
		}

	default:
		logger.Error("unhandled dispatch error", zap.Error(err))
		if writeErr := utils.WriteInternalServerError(w, "An unexpected error occurred"); writeErr != nil {
			logger.Error("failed to write internal error response", zap.Error(writeErr))
		}
	}
}

// HandleValidationError handles validation errors from request parsing
func HandleValidationError(w http.ResponseWriter, err error, logger *zap.Logger) {
	if utils.IsValidationError(err) {
		fields := utils.GetValidationFields(err)
		details := make(map[string]interface{}, len(fields))
		for k, v := range fields {
			details[k] = v
		}
		if writeErr := utils.WriteBadRequest(w, "Validation failed", details); writeErr != nil {
			logger.Error("failed to write validation error response", zap.Error(writeErr))
		}
		return
	}

	if writeErr := utils.WriteBadRequest(w, err.Error(), nil); writeErr != nil {
		logger.Error("failed to write validation error response", zap.Error(writeErr))
	}
}
