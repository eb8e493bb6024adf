package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// UserRepository handles user persistence.
type UserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository creates a new user repository
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

// ListIDs returns every user id.
func (r *UserRepository) ListIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.pool.Query(ctx, `SELECT id FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query user ids: %w", err)
	}
	defer rows.Close()

	ids := make([]int64, 0)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan user id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating user rows: %w", err)
	}

	return ids, nil
}

// SetReputation overwrites a user's reputation score.
func (r *UserRepository) SetReputation(ctx context.Context, userID int64, score float64) error {
	query := `UPDATE users SET reputation_score = $2 WHERE id = $1`

	if _, err := r.pool.Exec(ctx, query, userID, score); err != nil {
		return fmt.Errorf("failed to set reputation for user %d: %w", userID, err)
	}

	return nil
}
