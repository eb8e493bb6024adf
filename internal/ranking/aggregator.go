package ranking

import (
	"context"
	"fmt"

	"github.com/openthesis/oracle/internal/contracts"
	"github.com/openthesis/oracle/pkg/logger"
)

// Aggregator scores unresolved posts by the aggregate credibility of
// their endorsers: the sum of endorser reputations, where a user never
// scored by the reputation phase counts as neutral rather than zero.
type Aggregator struct {
	posts        contracts.PostStore
	endorsements contracts.EndorsementStore
	neutral      float64
	logger       *logger.Logger
}

// NewAggregator creates a new ranking aggregator. neutral is the
// reputation credited for endorsers with no recorded score.
func NewAggregator(posts contracts.PostStore, endorsements contracts.EndorsementStore, neutral float64, log *logger.Logger) *Aggregator {
	return &Aggregator{
		posts:        posts,
		endorsements: endorsements,
		neutral:      neutral,
		logger:       log,
	}
}

// Rank recomputes the ranking score of every unresolved post. Per-post
// lookup or write failures skip that post; the post listing itself
// failing aborts the phase.
func (a *Aggregator) Rank(ctx context.Context) (ranked int, err error) {
	posts, err := a.posts.ListUnresolved(ctx)
	if err != nil {
		return 0, fmt.Errorf("list unresolved posts: %w", err)
	}

	for _, post := range posts {
		endorsers, err := a.endorsements.EndorsersOf(ctx, post.ID)
		if err != nil {
			a.logger.WithFields(map[string]interface{}{
				"post_id": post.ID,
				"error":   err.Error(),
			}).Warn("Endorser lookup failed, skipping post")
			continue
		}

		score := a.scoreFor(endorsers)

		if err := a.posts.SetRankingScore(ctx, post.ID, score); err != nil {
			a.logger.WithFields(map[string]interface{}{
				"post_id": post.ID,
				"error":   err.Error(),
			}).Warn("Ranking write failed, skipping post")
			continue
		}

		ranked++
	}

	a.logger.WithFields(map[string]interface{}{
		"posts":  len(posts),
		"ranked": ranked,
	}).Info("Ranking aggregation completed")

	return ranked, nil
}

// scoreFor sums endorser reputations. A post with no endorsers scores
// zero; an endorser without a recorded reputation contributes the
// neutral default, never zero.
func (a *Aggregator) scoreFor(endorsers []contracts.EndorserReputation) float64 {
	var sum float64

	for _, er := range endorsers {
		if er.Reputation != nil {
			sum += *er.Reputation
		} else {
			sum += a.neutral
		}
	}

	return sum
}
