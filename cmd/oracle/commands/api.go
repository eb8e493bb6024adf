package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/openthesis/oracle/internal/api"
	"github.com/openthesis/oracle/internal/api/handlers"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Start the HTTP API server",
	Long: `Starts the REST API server.

Endpoints:
  GET  /health             - Health check
  GET  /api/oracle/status  - Last pipeline run
  POST /api/oracle/run     - Trigger a pipeline run
  GET  /api/posts/top      - Ranked feed of open theses

Example:
  go run ./cmd/oracle api
  go run ./cmd/oracle api --port 8080`,
	RunE: runAPIServer,
}

var apiPort string

func init() {
	rootCmd.AddCommand(apiCmd)

	apiCmd.Flags().StringVar(&apiPort, "port", "", "API server port (overrides PORT)")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Oracle API Server ===")

	d, err := initDeps()
	if err != nil {
		return fmt.Errorf("init: %w", err)
	}
	defer d.Close()

	if apiPort != "" {
		d.cfg.Port = apiPort
	}

	oracleHandler := handlers.NewOracleHandler(d.orchestrator, d.log)
	postsHandler := handlers.NewPostsHandler(d.postRepo, d.log)

	router := api.NewRouter(oracleHandler, postsHandler, d.log)
	server := api.New(d.cfg, d.log, router)

	go func() {
		if err := server.Start(); err != nil {
			d.log.WithError(err).Fatal("Failed to start server")
		}
	}()

	fmt.Printf("\nServer running on http://localhost:%s\n", d.cfg.Port)
	fmt.Println("Press Ctrl+C to stop")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	d.log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	d.log.Info("Server stopped")
	return nil
}
