package oracle

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/openthesis/oracle/internal/contracts"
	"github.com/openthesis/oracle/internal/outcome"
	"github.com/openthesis/oracle/internal/ranking"
	"github.com/openthesis/oracle/internal/reputation"
	"github.com/openthesis/oracle/pkg/logger"
)

// Phase names as reported in run records.
const (
	PhaseOutcome    = "outcome"
	PhaseReputation = "reputation"
	PhaseRanking    = "ranking"
)

// ErrRunInProgress is returned when a run is requested while another is
// still executing.
var ErrRunInProgress = fmt.Errorf("oracle run already in progress")

// Orchestrator coordinates the three-phase reputation pipeline:
// outcome scoring, reputation aggregation, ranking aggregation. Phases
// run strictly in order; writes of phase N are committed before phase
// N+1 reads. The loop between ranking and reputation closes only across
// separate runs.
type Orchestrator struct {
	scorer     *outcome.Scorer
	reputation *reputation.Aggregator
	ranking    *ranking.Aggregator
	runs       contracts.RunStore
	logger     *logger.Logger

	mu      sync.Mutex
	running bool
	last    *contracts.RunRecord
}

// NewOrchestrator creates a new orchestrator. runs may be nil when run
// persistence is not wanted (tests).
func NewOrchestrator(
	scorer *outcome.Scorer,
	reputationAgg *reputation.Aggregator,
	rankingAgg *ranking.Aggregator,
	runs contracts.RunStore,
	log *logger.Logger,
) *Orchestrator {
	return &Orchestrator{
		scorer:     scorer,
		reputation: reputationAgg,
		ranking:    rankingAgg,
		runs:       runs,
		logger:     log,
	}
}

// Run executes the full pipeline once. A structural failure in any
// phase aborts the run; the returned record describes how far it got.
func (o *Orchestrator) Run(ctx context.Context) (*contracts.RunRecord, error) {
	o.mu.Lock()
	if o.running {
		o.mu.Unlock()
		return nil, ErrRunInProgress
	}
	o.running = true
	o.mu.Unlock()

	defer func() {
		o.mu.Lock()
		o.running = false
		o.mu.Unlock()
	}()

	startTime := time.Now()

	result := &contracts.RunRecord{
		RunID:           GenerateRunID(),
		StartedAt:       startTime,
		CompletedPhases: make([]string, 0, 3),
	}

	o.logger.WithFields(map[string]interface{}{
		"run_id": result.RunID,
	}).Info("Starting oracle run")

	err := o.runPhases(ctx, result)

	result.Duration = time.Since(startTime)
	result.Success = err == nil
	if err != nil {
		result.Error = err.Error()
	}

	o.finishRun(ctx, result)

	if err != nil {
		return result, err
	}

	o.logger.WithFields(map[string]interface{}{
		"run_id":        result.RunID,
		"duration":      result.Duration.Seconds(),
		"posts_scored":  result.PostsScored,
		"users_updated": result.UsersUpdated,
		"posts_ranked":  result.PostsRanked,
	}).Info("Oracle run completed successfully")

	return result, nil
}

// runPhases executes the three phases in order, stopping at the first
// structural failure.
func (o *Orchestrator) runPhases(ctx context.Context, result *contracts.RunRecord) error {
	// Phase 1: outcome scoring
	o.logger.Info("Running phase: outcome scoring")
	scored, skippedPosts, err := o.scorer.Score(ctx)
	if err != nil {
		return fmt.Errorf("%s phase: %w", PhaseOutcome, err)
	}
	result.PostsScored = scored
	result.PostsSkipped = skippedPosts
	result.CompletedPhases = append(result.CompletedPhases, PhaseOutcome)

	// Phase 2: reputation aggregation (reads outcomes written above)
	o.logger.Info("Running phase: reputation aggregation")
	updated, skippedUsers, err := o.reputation.Aggregate(ctx)
	if err != nil {
		return fmt.Errorf("%s phase: %w", PhaseReputation, err)
	}
	result.UsersUpdated = updated
	result.UsersSkipped = skippedUsers
	result.CompletedPhases = append(result.CompletedPhases, PhaseReputation)

	// Phase 3: ranking aggregation (reads reputations written above)
	o.logger.Info("Running phase: ranking aggregation")
	ranked, err := o.ranking.Rank(ctx)
	if err != nil {
		return fmt.Errorf("%s phase: %w", PhaseRanking, err)
	}
	result.PostsRanked = ranked
	result.CompletedPhases = append(result.CompletedPhases, PhaseRanking)

	return nil
}

// finishRun records the result in memory and, when a run store is
// configured, persists it. Persistence failure is logged, not fatal: a
// lost audit row must not fail an otherwise good run.
func (o *Orchestrator) finishRun(ctx context.Context, result *contracts.RunRecord) {
	o.mu.Lock()
	o.last = result
	o.mu.Unlock()

	if o.runs == nil {
		return
	}

	if err := o.runs.SaveRun(ctx, result); err != nil {
		o.logger.WithFields(map[string]interface{}{
			"run_id": result.RunID,
			"error":  err.Error(),
		}).Warn("Failed to persist run record")
	}
}

// LastRun returns the most recent run record held in memory, falling
// back to the run store when the process has not run yet.
func (o *Orchestrator) LastRun(ctx context.Context) (*contracts.RunRecord, error) {
	o.mu.Lock()
	last := o.last
	o.mu.Unlock()

	if last != nil {
		return last, nil
	}

	if o.runs == nil {
		return nil, nil
	}

	return o.runs.LastRun(ctx)
}

// Running reports whether a run is currently executing.
func (o *Orchestrator) Running() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.running
}

// GenerateRunID generates a unique run ID
func GenerateRunID() string {
	return fmt.Sprintf("run_%s", time.Now().Format("20060102_150405"))
}
