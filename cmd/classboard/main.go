package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap/zapcore"

	"github.com/classboard/classboard/cmd/classboard/commands"
	"github.com/classboard/classboard/logger"
)

var rootCmd = &cobra.Command{
	Use:   "classboard",
	Short: "Classboard - education platform background job scheduler",
	Long: `Classboard background job scheduler and maintenance tooling.

Available commands:
  daemon  - Run the background job scheduler daemon
  jobs    - Inspect and control background jobs
  version - Show version information

Examples:
  classboard daemon start            # Run the scheduler in the foreground
  classboard jobs ls                 # Summarize recorded executions per job
  classboard jobs history cache.sweep --limit 20
  classboard jobs disable cache_sweep`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		verbose, _ := cmd.Flags().GetBool("verbose")
		level := zapcore.InfoLevel
		if verbose {
			level = zapcore.DebugLevel
		}
		if err := logger.InitializeWithLevel(false, level); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(commands.DaemonCmd)
	rootCmd.AddCommand(commands.JobsCmd)
	rootCmd.AddCommand(commands.VersionCmd)
}

func main() {
	defer logger.Cleanup()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
