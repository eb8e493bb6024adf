package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/openthesis/oracle/internal/contracts"
)

// RunRepository persists oracle run summaries for auditing.
type RunRepository struct {
	pool *pgxpool.Pool
}

// NewRunRepository creates a new run repository
func NewRunRepository(pool *pgxpool.Pool) *RunRepository {
	return &RunRepository{pool: pool}
}

// SaveRun inserts a run summary.
func (r *RunRepository) SaveRun(ctx context.Context, run *contracts.RunRecord) error {
	query := `
		INSERT INTO oracle_runs (
			run_id, started_at, duration_ms, success, error,
			posts_scored, posts_skipped, users_updated, users_skipped, posts_ranked
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.pool.Exec(ctx, query,
		run.RunID, run.StartedAt, run.Duration.Milliseconds(), run.Success, run.Error,
		run.PostsScored, run.PostsSkipped, run.UsersUpdated, run.UsersSkipped, run.PostsRanked,
	)
	if err != nil {
		return fmt.Errorf("failed to save run %s: %w", run.RunID, err)
	}

	return nil
}

// LastRun returns the most recent run summary, or nil when no run has
// been recorded yet.
func (r *RunRepository) LastRun(ctx context.Context) (*contracts.RunRecord, error) {
	query := `
		SELECT run_id, started_at, duration_ms, success, error,
		       posts_scored, posts_skipped, users_updated, users_skipped, posts_ranked
		FROM oracle_runs
		ORDER BY started_at DESC
		LIMIT 1
	`

	var run contracts.RunRecord
	var durationMs int64

	err := r.pool.QueryRow(ctx, query).Scan(
		&run.RunID, &run.StartedAt, &durationMs, &run.Success, &run.Error,
		&run.PostsScored, &run.PostsSkipped, &run.UsersUpdated, &run.UsersSkipped, &run.PostsRanked,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get last run: %w", err)
	}

	run.Duration = time.Duration(durationMs) * time.Millisecond
	return &run, nil
}
