package postgres

import (
	"context"

	"github.com/jmoiron/sqlx"

	"karakeep_sync/internal/domain"
)

// RunStore is the append-only log of finished sync runs.
type RunStore struct {
	db *sqlx.DB
}

func NewRunStore(db *sqlx.DB) *RunStore {
	return &RunStore{db: db}
}

func (s *RunStore) Insert(ctx context.Context, run *domain.RunRecord) error {
	query := `
		INSERT INTO sync_runs (
			id, source_id, started_at, finished_at, batches, processed,
			created, existing, early_stopped, error
		) VALUES (
			:id, :source_id, :started_at, :finished_at, :batches, :processed,
			:created, :existing, :early_stopped, :error
		)`

	_, err := sqlx.NamedExecContext(ctx, GetExecutor(ctx, s.db), query, run)
	return err
}

// Recent returns up to limit runs of sourceID, newest first.
func (s *RunStore) Recent(ctx context.Context, sourceID string, limit int) ([]domain.RunRecord, error) {
	query := `
		SELECT id, source_id, started_at, finished_at, batches, processed,
			created, existing, early_stopped, error
		FROM sync_runs
		WHERE source_id = $1
		ORDER BY started_at DESC
		LIMIT $2`

	var runs []domain.RunRecord
	if err := sqlx.SelectContext(ctx, GetExecutor(ctx, s.db), &runs, query, sourceID, limit); err != nil {
		return nil, err
	}
	return runs, nil
}
