package jobs

import (
	"context"
	"errors"
	"fmt"

	"github.com/openthesis/oracle/internal/oracle"
	"github.com/openthesis/oracle/pkg/logger"
)

// OracleJob runs the full reputation pipeline on schedule, once per
// trading day after the close.
type OracleJob struct {
	orchestrator *oracle.Orchestrator
	schedule     string
	logger       *logger.Logger
}

// NewOracleJob creates a new oracle pipeline job
func NewOracleJob(orchestrator *oracle.Orchestrator, schedule string, log *logger.Logger) *OracleJob {
	return &OracleJob{
		orchestrator: orchestrator,
		schedule:     schedule,
		logger:       log,
	}
}

// Name returns the job name
func (j *OracleJob) Name() string {
	return "oracle_pipeline"
}

// Schedule returns the cron schedule (with seconds) from config.
func (j *OracleJob) Schedule() string {
	return j.schedule
}

// Run executes the pipeline. An already-running pipeline is treated as
// success so the scheduler does not retry into the live run.
func (j *OracleJob) Run(ctx context.Context) error {
	result, err := j.orchestrator.Run(ctx)
	if err != nil {
		if errors.Is(err, oracle.ErrRunInProgress) {
			j.logger.Warn("Oracle run already in progress, skipping scheduled run")
			return nil
		}
		return fmt.Errorf("oracle run: %w", err)
	}

	j.logger.WithFields(map[string]interface{}{
		"run_id":        result.RunID,
		"posts_scored":  result.PostsScored,
		"users_updated": result.UsersUpdated,
		"posts_ranked":  result.PostsRanked,
	}).Info("Scheduled oracle run finished")

	return nil
}
