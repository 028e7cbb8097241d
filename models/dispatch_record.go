package models

import (
	"time"

	"github.com/google/uuid"
)

// DispatchStatus represents the outcome of a dispatched request
type DispatchStatus string

const (
	DispatchStatusPending   DispatchStatus = "pending"
	DispatchStatusCompleted DispatchStatus = "completed"
	DispatchStatusFailed    DispatchStatus = "failed"
)

// DispatchVariant names the call variant used
type DispatchVariant string

const (
	DispatchVariantSync     DispatchVariant = "sync"
	DispatchVariantAsync    DispatchVariant = "async"
	DispatchVariantToolCall DispatchVariant = "tool_call"
)

// DispatchRecord is the audit trail entry for one dispatched request:
// which model was asked for, which backend served it, and how it ended.
type DispatchRecord struct {
	ID      uuid.UUID       `json:"id" db:"id"`
	Model   string          `json:"model" db:"model"`
	Backend string          `json:"backend" db:"backend"`
	Variant DispatchVariant `json:"variant" db:"variant"`
	Status  DispatchStatus  `json:"status" db:"status"`

	LatencyMs int `json:"latency_ms" db:"latency_ms"`

	ErrorMessage *string `json:"error_message,omitempty" db:"error_message"`

	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty" db:"completed_at"`
}

// TableName returns the table name for the DispatchRecord model
func (DispatchRecord) TableName() string {
	return "dispatch_records"
}

// NewDispatchRecord creates a pending DispatchRecord
func NewDispatchRecord(model, backend string, variant DispatchVariant) *DispatchRecord {
	return &DispatchRecord{
		ID:        uuid.New(),
		Model:     model,
		Backend:   backend,
		Variant:   variant,
		Status:    DispatchStatusPending,
		CreatedAt: time.Now(),
	}
}

// MarkAsCompleted marks the dispatch as completed
func (r *DispatchRecord) MarkAsCompleted(latencyMs int) {
	r.Status = DispatchStatusCompleted
	r.LatencyMs = latencyMs
	now := time.Now()
	r.CompletedAt = &now
}

// MarkAsFailed marks the dispatch as failed
func (r *DispatchRecord) MarkAsFailed(errorMessage string, latencyMs int) {
	r.Status = DispatchStatusFailed
	r.ErrorMessage = &errorMessage
	r.LatencyMs = latencyMs
	now := time.Now()
	r.CompletedAt = &now
}
