package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/modelmux/modelmux/models"
	"github.com/modelmux/modelmux/repositories"
	"go.uber.org/zap"
)

// ErrRecordNotFound is returned when a dispatch record does not exist
var ErrRecordNotFound = errors.New("dispatch record not found")

// DispatchRepository implements repositories.DispatchRepository on Postgres
type DispatchRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewDispatchRepository creates a new dispatch repository
func NewDispatchRepository(db *DB, logger *zap.Logger) repositories.DispatchRepository {
	return &DispatchRepository{
		db:     db,
		logger: logger,
	}
}

// Insert inserts a new dispatch record
func (r *DispatchRepository) Insert(ctx context.Context, record *models.DispatchRecord) error {
	query := `
		INSERT INTO dispatch_records (
			id, model, backend, variant, status, latency_ms,
			error_message, created_at, completed_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9
		)
	`

	_, err := r.db.ExecContext(ctx, query,
		record.ID,
		record.Model,
		record.Backend,
		record.Variant,
		record.Status,
		record.LatencyMs,
		record.ErrorMessage,
		record.CreatedAt,
		record.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert dispatch record: %w", err)
	}

	r.logger.Debug("dispatch record inserted",
		zap.String("id", record.ID.String()),
		zap.String("model", record.Model),
		zap.String("backend", record.Backend))
	return nil
}

// GetByID retrieves a dispatch record by ID
func (r *DispatchRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.DispatchRecord, error) {
	query := `
		SELECT id, model, backend, variant, status, latency_ms,
		       error_message, created_at, completed_at
		FROM dispatch_records
		WHERE id = $1
	`

	record := &models.DispatchRecord{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&record.ID,
		&record.Model,
		&record.Backend,
		&record.Variant,
		&record.Status,
		&record.LatencyMs,
		&record.ErrorMessage,
		&record.CreatedAt,
		&record.CompletedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("failed to get dispatch record: %w", err)
	}

	return record, nil
}

// ListRecent retrieves the most recent dispatch records, newest first
func (r *DispatchRepository) ListRecent(ctx context.Context, limit int) ([]*models.DispatchRecord, error) {
	query := `
		SELECT id, model, backend, variant, status, latency_ms,
		       error_message, created_at, completed_at
		FROM dispatch_records
		ORDER BY created_at DESC
		LIMIT $1
	`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list dispatch records: %w", err)
	}
	defer rows.Close()

	var records []*models.DispatchRecord
	for rows.Next() {
		record := &models.DispatchRecord{}
		if err := rows.Scan(
			&record.ID,
			&record.Model,
			&record.Backend,
			&record.Variant,
			&record.Status,
			&record.LatencyMs,
			&record.ErrorMessage,
			&record.CreatedAt,
			&record.CompletedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan dispatch record: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate dispatch records: %w", err)
	}

	return records, nil
}
