package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/openthesis/oracle/internal/contracts"
)

// PostRepository handles post persistence.
type PostRepository struct {
	pool *pgxpool.Pool
}

// NewPostRepository creates a new post repository
func NewPostRepository(pool *pgxpool.Pool) *PostRepository {
	return &PostRepository{pool: pool}
}

// ListScoreable returns unresolved posts eligible for outcome scoring:
// posting price recorded and positive, outcome still null, created
// before olderThan. Newest first, bounded by limit.
func (r *PostRepository) ListScoreable(ctx context.Context, olderThan time.Time, limit int) ([]*contracts.Post, error) {
	query := `
		SELECT id, ticker, sentiment, price_at_posting, performance_outcome, ranking_score, created_at
		FROM posts
		WHERE performance_outcome IS NULL
		  AND price_at_posting IS NOT NULL
		  AND price_at_posting > 0
		  AND created_at < $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, olderThan, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query scoreable posts: %w", err)
	}
	defer rows.Close()

	return scanPosts(rows)
}

// ListUnresolved returns posts whose outcome is still null and whose
// posting price is recorded.
func (r *PostRepository) ListUnresolved(ctx context.Context) ([]*contracts.Post, error) {
	query := `
		SELECT id, ticker, sentiment, price_at_posting, performance_outcome, ranking_score, created_at
		FROM posts
		WHERE performance_outcome IS NULL
		  AND price_at_posting IS NOT NULL
		ORDER BY created_at DESC
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query unresolved posts: %w", err)
	}
	defer rows.Close()

	return scanPosts(rows)
}

// SetOutcome writes the performance outcome for a post. The WHERE clause
// re-checks that the outcome is still null so a concurrent run can never
// overwrite a resolved post.
func (r *PostRepository) SetOutcome(ctx context.Context, postID int64, outcome float64) error {
	query := `
		UPDATE posts
		SET performance_outcome = $2
		WHERE id = $1 AND performance_outcome IS NULL
	`

	if _, err := r.pool.Exec(ctx, query, postID, outcome); err != nil {
		return fmt.Errorf("failed to set outcome for post %d: %w", postID, err)
	}

	return nil
}

// SetRankingScore writes the ranking score for a post. Resolved posts
// keep their last ranking.
func (r *PostRepository) SetRankingScore(ctx context.Context, postID int64, score float64) error {
	query := `
		UPDATE posts
		SET ranking_score = $2
		WHERE id = $1 AND performance_outcome IS NULL
	`

	if _, err := r.pool.Exec(ctx, query, postID, score); err != nil {
		return fmt.Errorf("failed to set ranking score for post %d: %w", postID, err)
	}

	return nil
}

// ListTopRanked returns unresolved posts ordered by ranking score.
func (r *PostRepository) ListTopRanked(ctx context.Context, limit int) ([]*contracts.Post, error) {
	query := `
		SELECT id, ticker, sentiment, price_at_posting, performance_outcome, ranking_score, created_at
		FROM posts
		WHERE performance_outcome IS NULL
		ORDER BY ranking_score DESC, created_at DESC
		LIMIT $1
	`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query top ranked posts: %w", err)
	}
	defer rows.Close()

	return scanPosts(rows)
}

func scanPosts(rows pgx.Rows) ([]*contracts.Post, error) {
	posts := make([]*contracts.Post, 0)

	for rows.Next() {
		var p contracts.Post
		var sentiment string

		err := rows.Scan(
			&p.ID, &p.Ticker, &sentiment,
			&p.PriceAtPosting, &p.PerformanceOutcome, &p.RankingScore, &p.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan post row: %w", err)
		}

		p.Sentiment = contracts.Sentiment(sentiment)
		posts = append(posts, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating post rows: %w", err)
	}

	return posts, nil
}
