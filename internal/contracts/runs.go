package contracts

import "time"

// RunRecord summarizes one oracle pipeline invocation.
type RunRecord struct {
	RunID           string        `json:"run_id"`
	StartedAt       time.Time     `json:"started_at"`
	Duration        time.Duration `json:"duration"`
	Success         bool          `json:"success"`
	Error           string        `json:"error,omitempty"`
	CompletedPhases []string      `json:"completed_phases"`

	// Per-phase counters
	PostsScored  int `json:"posts_scored"`
	PostsSkipped int `json:"posts_skipped"`
	UsersUpdated int `json:"users_updated"`
	UsersSkipped int `json:"users_skipped"`
	PostsRanked  int `json:"posts_ranked"`
}
