package reputation

import (
	"context"
	"fmt"

	"github.com/openthesis/oracle/internal/contracts"
	"github.com/openthesis/oracle/pkg/logger"
)

// Aggregator recomputes each user's reputation from the outcomes of the
// posts the user endorsed. A full recomputation every run; no
// incremental state is carried between runs.
type Aggregator struct {
	users        contracts.UserStore
	endorsements contracts.EndorsementStore
	config       Config
	logger       *logger.Logger
}

// Config defines the reputation mapping parameters.
type Config struct {
	// Amplification scales the average outcome before centering.
	// Raw equity returns are single-digit percentages; without the
	// gain, reputation would barely leave neutral.
	Amplification float64

	// Neutral is the reputation of a user with no track record.
	Neutral float64
}

// DefaultConfig returns the default reputation mapping.
func DefaultConfig() Config {
	return Config{
		Amplification: 5.0,
		Neutral:       0.5,
	}
}

// NewAggregator creates a new reputation aggregator
func NewAggregator(users contracts.UserStore, endorsements contracts.EndorsementStore, cfg Config, log *logger.Logger) *Aggregator {
	return &Aggregator{
		users:        users,
		endorsements: endorsements,
		config:       cfg,
		logger:       log,
	}
}

// Aggregate recomputes reputation for every user. Users whose endorsed
// posts carry no resolved outcome are skipped and keep their previous
// score. Per-user read failures skip that user; the user listing itself
// failing aborts the phase.
func (a *Aggregator) Aggregate(ctx context.Context) (updated, skipped int, err error) {
	userIDs, err := a.users.ListIDs(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("list users: %w", err)
	}

	for _, userID := range userIDs {
		outcomes, err := a.endorsements.OutcomesEndorsedBy(ctx, userID)
		if err != nil {
			a.logger.WithFields(map[string]interface{}{
				"user_id": userID,
				"error":   err.Error(),
			}).Warn("Endorsement lookup failed, skipping user")
			skipped++
			continue
		}

		score, ok := a.scoreFor(outcomes)
		if !ok {
			skipped++
			continue
		}

		if err := a.users.SetReputation(ctx, userID, score); err != nil {
			a.logger.WithFields(map[string]interface{}{
				"user_id": userID,
				"error":   err.Error(),
			}).Warn("Reputation write failed, skipping user")
			skipped++
			continue
		}

		updated++
	}

	a.logger.WithFields(map[string]interface{}{
		"users":   len(userIDs),
		"updated": updated,
		"skipped": skipped,
	}).Info("Reputation aggregation completed")

	return updated, skipped, nil
}

// scoreFor maps a user's endorsed outcomes to a reputation score.
// Returns ok=false when no endorsed post has a resolved outcome.
func (a *Aggregator) scoreFor(outcomes []contracts.EndorsedOutcome) (float64, bool) {
	var sum float64
	var count int

	for _, eo := range outcomes {
		if eo.Outcome == nil {
			continue
		}
		sum += *eo.Outcome
		count++
	}

	if count == 0 {
		return 0, false
	}

	avg := sum / float64(count)
	return clamp(a.config.Neutral+avg*a.config.Amplification, 0, 1), true
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
