package contracts

import (
	"context"
	"time"
)

// Store interfaces consumed by the pipeline phases. Implemented by
// internal/store against Postgres and by in-memory fakes in tests.

// PostStore manages thesis posts.
type PostStore interface {
	// ListScoreable returns unresolved posts with a usable posting price,
	// created before olderThan, newest first, at most limit rows.
	ListScoreable(ctx context.Context, olderThan time.Time, limit int) ([]*Post, error)

	// ListUnresolved returns posts whose outcome is still null and whose
	// posting price is recorded. These are the only ranking candidates.
	ListUnresolved(ctx context.Context) ([]*Post, error)

	SetOutcome(ctx context.Context, postID int64, outcome float64) error
	SetRankingScore(ctx context.Context, postID int64, score float64) error

	// ListTopRanked returns unresolved posts ordered by ranking score.
	ListTopRanked(ctx context.Context, limit int) ([]*Post, error)
}

// UserStore manages forum users.
type UserStore interface {
	ListIDs(ctx context.Context) ([]int64, error)
	SetReputation(ctx context.Context, userID int64, score float64) error
}

// EndorsementStore reads the user <-> post like edges. The edges are
// created by user actions elsewhere; the oracle only reads them.
type EndorsementStore interface {
	OutcomesEndorsedBy(ctx context.Context, userID int64) ([]EndorsedOutcome, error)
	EndorsersOf(ctx context.Context, postID int64) ([]EndorserReputation, error)
}

// RunStore persists pipeline run summaries.
type RunStore interface {
	SaveRun(ctx context.Context, run *RunRecord) error
	LastRun(ctx context.Context) (*RunRecord, error)
}

// QuoteSource resolves a ticker to its current market price.
// Implementations may fail or time out; callers treat every call as
// fallible and skip the affected post.
type QuoteSource interface {
	Price(ctx context.Context, ticker string) (float64, error)
}
