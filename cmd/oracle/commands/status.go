package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show database health and the last pipeline run",
	RunE:  showStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func showStatus(cmd *cobra.Command, args []string) error {
	d, err := initDeps()
	if err != nil {
		return fmt.Errorf("init: %w", err)
	}
	defer d.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
	defer cancel()

	health, err := d.db.HealthCheck(ctx)
	if err != nil {
		return fmt.Errorf("database health check: %w", err)
	}

	fmt.Println("Database:")
	fmt.Printf("  Healthy: %v\n", health.Healthy)
	fmt.Printf("  Response time: %s\n", health.ResponseTime)
	fmt.Printf("  Connections: %d/%d (idle %d)\n",
		health.Stats.TotalConns, health.Stats.MaxConns, health.Stats.IdleConns)

	last, err := d.orchestrator.LastRun(ctx)
	if err != nil {
		return fmt.Errorf("load last run: %w", err)
	}

	fmt.Println()
	if last == nil {
		fmt.Println("No oracle run recorded yet")
		return nil
	}

	fmt.Println("Last run:")
	printRunResult(last)

	return nil
}
