package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	verbose bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "oracle",
	Short: "Oracle - reputation and ranking pipeline for the thesis forum",
	Long: `Oracle batch service.

Scores resolved thesis posts against market prices, derives user
reputation from endorsed outcomes, and ranks open theses by the
credibility of their endorsers.

Usage:
  go run ./cmd/oracle [command]

Examples:
  go run ./cmd/oracle run
  go run ./cmd/oracle api
  go run ./cmd/oracle scheduler start
  go run ./cmd/oracle status`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
