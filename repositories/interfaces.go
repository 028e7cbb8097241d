package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/modelmux/modelmux/models"
)

// DispatchRepository handles dispatch audit records
type DispatchRepository interface {
	// Insert inserts a new dispatch record
	Insert(ctx context.Context, record *models.DispatchRecord) error

	// GetByID retrieves a dispatch record by ID
	GetByID(ctx context.Context, id uuid.UUID) (*models.DispatchRecord, error)

	// ListRecent retrieves the most recent dispatch records, newest first
	ListRecent(ctx context.Context, limit int) ([]*models.DispatchRecord, error)
}
