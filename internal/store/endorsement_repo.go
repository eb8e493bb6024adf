package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/openthesis/oracle/internal/contracts"
)

// EndorsementRepository reads the user <-> post like edges.
// The edges are written by the forum application; the oracle is a
// read-only consumer.
type EndorsementRepository struct {
	pool *pgxpool.Pool
}

// NewEndorsementRepository creates a new endorsement repository
func NewEndorsementRepository(pool *pgxpool.Pool) *EndorsementRepository {
	return &EndorsementRepository{pool: pool}
}

// OutcomesEndorsedBy returns, for every post the user endorsed, the
// post id and its performance outcome (nil while unresolved). The
// reputation phase filters nil outcomes itself, so no WHERE clause on
// the outcome here.
func (r *EndorsementRepository) OutcomesEndorsedBy(ctx context.Context, userID int64) ([]contracts.EndorsedOutcome, error) {
	query := `
		SELECT p.id, p.performance_outcome
		FROM endorsements e
		JOIN posts p ON p.id = e.post_id
		WHERE e.user_id = $1
	`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query endorsed outcomes for user %d: %w", userID, err)
	}
	defer rows.Close()

	outcomes := make([]contracts.EndorsedOutcome, 0)
	for rows.Next() {
		var eo contracts.EndorsedOutcome
		if err := rows.Scan(&eo.PostID, &eo.Outcome); err != nil {
			return nil, fmt.Errorf("failed to scan endorsed outcome: %w", err)
		}
		outcomes = append(outcomes, eo)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating endorsed outcomes: %w", err)
	}

	return outcomes, nil
}

// EndorsersOf returns, for every user who endorsed the post, the user
// id and their reputation score (nil when the user was never scored).
func (r *EndorsementRepository) EndorsersOf(ctx context.Context, postID int64) ([]contracts.EndorserReputation, error) {
	query := `
		SELECT u.id, u.reputation_score
		FROM endorsements e
		JOIN users u ON u.id = e.user_id
		WHERE e.post_id = $1
	`

	rows, err := r.pool.Query(ctx, query, postID)
	if err != nil {
		return nil, fmt.Errorf("failed to query endorsers of post %d: %w", postID, err)
	}
	defer rows.Close()

	endorsers := make([]contracts.EndorserReputation, 0)
	for rows.Next() {
		var er contracts.EndorserReputation
		if err := rows.Scan(&er.UserID, &er.Reputation); err != nil {
			return nil, fmt.Errorf("failed to scan endorser: %w", err)
		}
		endorsers = append(endorsers, er)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating endorsers: %w", err)
	}

	return endorsers, nil
}
