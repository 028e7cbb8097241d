package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/modelmux/modelmux/middleware"
	"github.com/modelmux/modelmux/models"
	"github.com/modelmux/modelmux/services/audit"
	"github.com/modelmux/modelmux/services/backends"
	"github.com/modelmux/modelmux/services/dispatch"
	"github.com/modelmux/modelmux/utils"
	"go.uber.org/zap"
)

// ChatCompletionRequest represents a chat completion request
type ChatCompletionRequest struct {
	Model       string                    `json:"model" validate:"required"`
	Messages    []ChatMessage             `json:"messages" validate:"required,min=1,dive"`
	Temperature *float64                  `json:"temperature,omitempty" validate:"omitempty,gte=0,lte=2"`
	MaxTokens   int                       `json:"max_tokens,omitempty" validate:"omitempty,gt=0"`
	Tools       []backends.ToolDescriptor `json:"tools,omitempty"`
	ToolChoice  *string                   `json:"tool_choice,omitempty"`
}

// ChatMessage represents a single chat message
type ChatMessage struct {
	Role    string `json:"role" validate:"required,oneof=system user assistant tool"`
	Content string `json:"content" validate:"required"`
}

// ChatCompletionResponse represents a chat completion response
type ChatCompletionResponse struct {
	ID      string       `json:"id"`
	Object  string       `json:"object"`
	Created int64        `json:"created"`
	Model   string       `json:"model"`
	Backend string       `json:"backend"`
	Choices []ChatChoice `json:"choices"`
}

// ChatChoice represents a completion choice
type ChatChoice struct {
	Index   int         `json:"index"`
	Message ChatMessage `json:"message"`
}

// ChatHandler handles chat completion HTTP requests
type ChatHandler struct {
	router *dispatch.Router
	audit  *audit.Service
	logger *zap.Logger
}

// NewChatHandler creates a new ChatHandler. The audit service may be
// nil when dispatch logging is disabled.
func NewChatHandler(router *dispatch.Router, auditSvc *audit.Service, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{
		router: router,
		audit:  auditSvc,
		logger: logger,
	}
}

// HandleChatCompletion handles POST /api/v1/chat/completions. Requests
// carrying tool descriptors take the tool-call path; everything else is
// a plain completion.
func (h *ChatHandler) HandleChatCompletion(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestIDFromContext(ctx)

	var chatReq ChatCompletionRequest
	if err := json.NewDecoder(r.Body).Decode(&chatReq); err != nil {
		h.logger.Warn("failed to parse request body",
			zap.String("request_id", requestID),
			zap.Error(err))
		_ = utils.WriteBadRequest(w, "Invalid request body", nil)
		return
	}

	if err := utils.ValidateStruct(&chatReq); err != nil {
		h.logger.Warn("request validation failed",
			zap.String("request_id", requestID),
			zap.Error(err))
		HandleValidationError(w, err, h.logger)
		return
	}

	backend, err := h.router.Resolve(chatReq.Model)
	if err != nil {
		HandleDispatchError(w, err, h.logger)
		return
	}

	messages := make([]backends.Message, 0, len(chatReq.Messages))
	for _, m := range chatReq.Messages {
		messages = append(messages, backends.Message{Role: m.Role, Content: m.Content})
	}
	opts := dispatch.Options{
		MaxTokens:   chatReq.MaxTokens,
		Temperature: chatReq.Temperature,
	}

	variant := models.DispatchVariantSync
	if len(chatReq.Tools) > 0 {
		variant = models.DispatchVariantToolCall
	}
	record := models.NewDispatchRecord(chatReq.Model, string(backend), variant)

	start := time.Now()
	dispatcher := h.router.Dispatcher(chatReq.Model)

	var result string
	if variant == models.DispatchVariantToolCall {
		call, callErr := dispatcher.ToolCalls(ctx, messages, chatReq.Tools, chatReq.ToolChoice, opts)
		if callErr != nil {
			err = callErr
		} else {
			result, err = call.Wait(ctx)
		}
	} else {
		result, err = dispatcher.Complete(ctx, messages, opts)
	}
	latencyMs := int(time.Since(start).Milliseconds())

	if err != nil {
		record.MarkAsFailed(err.Error(), latencyMs)
		h.recordDispatch(record)
		h.logger.Error("chat completion failed",
			zap.String("request_id", requestID),
			zap.String("model", chatReq.Model),
			zap.String("backend", string(backend)),
			zap.Error(err))
		HandleDispatchError(w, err, h.logger)
		return
	}

	record.MarkAsCompleted(latencyMs)
	h.recordDispatch(record)

	h.logger.Info("chat completion successful",
		zap.String("request_id", requestID),
		zap.String("model", chatReq.Model),
		zap.String("backend", string(backend)),
		zap.String("variant", string(variant)),
		zap.Int("latency_ms", latencyMs))

	response := ChatCompletionResponse{
		ID:      record.ID.String(),
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   chatReq.Model,
		Backend: string(backend),
		Choices: []ChatChoice{
			{
				Index: 0,
				Message: ChatMessage{
					Role:    "assistant",
					Content: result,
				},
			},
		},
	}

	if writeErr := utils.WriteOK(w, response); writeErr != nil {
		h.logger.Error("failed to write response",
			zap.String("request_id", requestID),
			zap.Error(writeErr))
	}
}

func (h *ChatHandler) recordDispatch(record *models.DispatchRecord) {
	if h.audit == nil {
		return
	}
	if err := h.audit.Record(record); err != nil {
		h.logger.Warn("failed to enqueue dispatch record", zap.Error(err))
	}
}
