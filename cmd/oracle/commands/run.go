package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/openthesis/oracle/internal/contracts"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full oracle pipeline once",
	Long: `Runs the three pipeline phases in order:

  1. Outcome scoring       - resolve eligible posts against current prices
  2. Reputation aggregation - recompute user reputation from endorsed outcomes
  3. Ranking aggregation    - rank open theses by endorser credibility

The command exits non-zero when a phase fails structurally. Per-post
and per-user failures are logged and skipped.

Example:
  go run ./cmd/oracle run`,
	RunE: runPipeline,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runPipeline(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Oracle Pipeline ===")

	d, err := initDeps()
	if err != nil {
		return fmt.Errorf("init: %w", err)
	}
	defer d.Close()

	result, err := d.orchestrator.Run(cmd.Context())
	if err != nil {
		if result != nil {
			printRunResult(result)
		}
		return fmt.Errorf("pipeline run failed: %w", err)
	}

	printRunResult(result)
	return nil
}

func printRunResult(result *contracts.RunRecord) {
	fmt.Println()
	fmt.Printf("Run ID: %s\n", result.RunID)
	fmt.Printf("Started: %s\n", result.StartedAt.Format("2006-01-02 15:04:05"))
	fmt.Printf("Duration: %.2fs\n", result.Duration.Seconds())
	fmt.Printf("Success: %v\n", result.Success)
	if result.Error != "" {
		fmt.Printf("Error: %s\n", result.Error)
	}
	fmt.Println()

	fmt.Println("Completed phases:")
	for _, phase := range result.CompletedPhases {
		fmt.Printf("  - %s\n", phase)
	}
	fmt.Println()

	fmt.Printf("Posts scored: %d (skipped %d)\n", result.PostsScored, result.PostsSkipped)
	fmt.Printf("Users updated: %d (skipped %d)\n", result.UsersUpdated, result.UsersSkipped)
	fmt.Printf("Posts ranked: %d\n", result.PostsRanked)
}
