package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/modelmux/modelmux/models"
	"github.com/modelmux/modelmux/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newMockRepository(t *testing.T) (repositories.DispatchRepository, sqlmock.Sqlmock) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = mockDB.Close() })

	db := &DB{DB: mockDB, logger: zaptest.NewLogger(t)}
	return NewDispatchRepository(db, zaptest.NewLogger(t)), mock
}

func recordColumns() []string {
	return []string{"id", "model", "backend", "variant", "status", "latency_ms", "error_message", "created_at", "completed_at"}
}

func TestInsert(t *testing.T) {
	t.Run("inserts completed record", func(t *testing.T) {
		repo, mock := newMockRepository(t)

		record := models.NewDispatchRecord("llama3-8b-8192", "GROQ", models.DispatchVariantSync)
		record.MarkAsCompleted(85)

		mock.ExpectExec("INSERT INTO dispatch_records").
			WithArgs(
				record.ID,
				record.Model,
				record.Backend,
				record.Variant,
				record.Status,
				record.LatencyMs,
				record.ErrorMessage,
				record.CreatedAt,
				record.CompletedAt,
			).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, repo.Insert(context.Background(), record))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("propagates database errors", func(t *testing.T) {
		repo, mock := newMockRepository(t)

		record := models.NewDispatchRecord("gpt-4o-mini", "OPENAI", models.DispatchVariantAsync)

		mock.ExpectExec("INSERT INTO dispatch_records").
			WillReturnError(assert.AnError)

		err := repo.Insert(context.Background(), record)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to insert dispatch record")
	})
}

func TestGetByID(t *testing.T) {
	t.Run("returns record", func(t *testing.T) {
		repo, mock := newMockRepository(t)

		id := uuid.New()
		created := time.Now()
		completed := created.Add(100 * time.Millisecond)

		mock.ExpectQuery("FROM dispatch_records").
			WithArgs(id).
			WillReturnRows(sqlmock.NewRows(recordColumns()).
				AddRow(id, "gpt-4o-mini", "OPENAI", "sync", "completed", 100, nil, created, completed))

		record, err := repo.GetByID(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, id, record.ID)
		assert.Equal(t, "gpt-4o-mini", record.Model)
		assert.Equal(t, models.DispatchStatusCompleted, record.Status)
		assert.Equal(t, 100, record.LatencyMs)
	})

	t.Run("missing record", func(t *testing.T) {
		repo, mock := newMockRepository(t)

		id := uuid.New()
		mock.ExpectQuery("FROM dispatch_records").
			WithArgs(id).
			WillReturnRows(sqlmock.NewRows(recordColumns()))

		_, err := repo.GetByID(context.Background(), id)
		assert.ErrorIs(t, err, ErrRecordNotFound)
	})
}

func TestListRecent(t *testing.T) {
	repo, mock := newMockRepository(t)

	now := time.Now()
	errMsg := "upstream timeout"

	mock.ExpectQuery("ORDER BY created_at DESC").
		WithArgs(2).
		WillReturnRows(sqlmock.NewRows(recordColumns()).
			AddRow(uuid.New(), "llama3-8b-8192", "GROQ", "async", "completed", 60, nil, now, now).
			AddRow(uuid.New(), "gpt-4o-mini", "OPENAI", "tool_call", "failed", 5000, errMsg, now.Add(-time.Minute), now))

	records, err := repo.ListRecent(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, models.DispatchVariantAsync, records[0].Variant)
	assert.Equal(t, models.DispatchStatusFailed, records[1].Status)
	require.NotNil(t, records[1].ErrorMessage)
	assert.Equal(t, "upstream timeout", *records[1].ErrorMessage)
}
