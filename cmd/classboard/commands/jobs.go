package commands

import (
	"database/sql"
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/classboard/classboard/config"
	"github.com/classboard/classboard/db"
	"github.com/classboard/classboard/logger"
	"github.com/classboard/classboard/scheduler"
)

// JobsCmd represents the jobs command
var JobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Inspect and control background jobs",
	Long: `Inspect recorded job executions and toggle jobs on or off.

Job management commands:
  classboard jobs ls                      # Summarize executions per job
  classboard jobs history <job-id>        # Show a job's execution records
  classboard jobs enable <job-key>        # Persist enabled=true to the config
  classboard jobs disable <job-key>       # Persist enabled=false to the config

Job keys for enable/disable are the config keys under [jobs]:
  leaderboard, cache_sweep, session_prune, message_reanalysis, fee_automation

Enable/disable writes the project config file; a running daemon started with
--config picks the change up without a restart.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// JobsLsCmd summarizes recorded executions per job
var JobsLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "Summarize recorded executions per job",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runJobsLs()
	},
}

// JobsHistoryCmd shows a job's execution records
var JobsHistoryCmd = &cobra.Command{
	Use:   "history <job-id>",
	Short: "Show a job's execution records, newest first",
	Long: `Show a job's persisted execution records, newest first.

Examples:
  classboard jobs history cache.sweep
  classboard jobs history cache.sweep --status failed --limit 50`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		statusFilter, _ := cmd.Flags().GetString("status")
		return runJobsHistory(args[0], limit, statusFilter)
	},
}

// JobsEnableCmd persists a job's enabled intent
var JobsEnableCmd = &cobra.Command{
	Use:   "enable <job-key>",
	Short: "Enable a job in the config file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		return runJobsToggle(configPath, args[0], true)
	},
}

// JobsDisableCmd persists a job's disabled intent
var JobsDisableCmd = &cobra.Command{
	Use:   "disable <job-key>",
	Short: "Disable a job in the config file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		return runJobsToggle(configPath, args[0], false)
	},
}

// JobsCleanupCmd prunes old execution records immediately
var JobsCleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Delete execution records past the retention period",
	Long: `Delete persisted execution records older than the configured retention
period. The daemon runs this daily on its own; the command exists for
one-off pruning.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		days, _ := cmd.Flags().GetInt("days")
		return runJobsCleanup(days)
	},
}

func init() {
	JobsCleanupCmd.Flags().Int("days", 0, "Retention in days (defaults to scheduler.execution_retention_days)")
	JobsHistoryCmd.Flags().Int("limit", 20, "Maximum number of records to display")
	JobsHistoryCmd.Flags().String("status", "", "Filter by status (completed, failed)")
	JobsEnableCmd.Flags().String("config", "", "Config file to modify (defaults to the user config)")
	JobsDisableCmd.Flags().String("config", "", "Config file to modify (defaults to the user config)")

	JobsCmd.AddCommand(JobsLsCmd)
	JobsCmd.AddCommand(JobsHistoryCmd)
	JobsCmd.AddCommand(JobsCleanupCmd)
	JobsCmd.AddCommand(JobsEnableCmd)
	JobsCmd.AddCommand(JobsDisableCmd)
}

func openExecutionLog() (*scheduler.ExecutionLog, *sql.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	database, err := db.Open(cfg.Database.Path, logger.Logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	return scheduler.NewExecutionLog(database), database, nil
}

func runJobsLs() error {
	execLog, database, err := openExecutionLog()
	if err != nil {
		return err
	}
	defer database.Close()

	summaries, err := execLog.Summaries()
	if err != nil {
		return fmt.Errorf("failed to summarize executions: %w", err)
	}
	if len(summaries) == 0 {
		pterm.Info.Println("No recorded executions yet")
		return nil
	}

	rows := pterm.TableData{{"JOB", "RUNS", "FAILED", "LAST STATUS", "LAST STARTED"}}
	for _, s := range summaries {
		rows = append(rows, []string{
			s.JobID,
			fmt.Sprintf("%d", s.Total),
			fmt.Sprintf("%d", s.Failed),
			s.LastStatus,
			s.LastStarted,
		})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(rows).Render()
}

func runJobsHistory(jobID string, limit int, statusFilter string) error {
	execLog, database, err := openExecutionLog()
	if err != nil {
		return err
	}
	defer database.Close()

	records, total, err := execLog.ListByJob(jobID, limit, 0, statusFilter)
	if err != nil {
		return fmt.Errorf("failed to list executions: %w", err)
	}
	if len(records) == 0 {
		pterm.Info.Printf("No recorded executions for %s\n", jobID)
		return nil
	}

	rows := pterm.TableData{{"STARTED", "STATUS", "DURATION", "DETAIL"}}
	for _, rec := range records {
		duration := "-"
		if rec.DurationMs != nil {
			duration = fmt.Sprintf("%dms", *rec.DurationMs)
		}
		detail := ""
		if rec.ErrorMessage != nil {
			detail = truncate(*rec.ErrorMessage, 60)
		} else if rec.Result != nil {
			detail = truncate(*rec.Result, 60)
		}
		rows = append(rows, []string{rec.StartedAt, rec.Status, duration, detail})
	}
	if err := pterm.DefaultTable.WithHasHeader().WithData(rows).Render(); err != nil {
		return err
	}

	fmt.Printf("\nShowing %d of %d record(s)\n", len(records), total)
	return nil
}

func runJobsCleanup(days int) error {
	if days <= 0 {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		days = cfg.Scheduler.ExecutionRetentionDays
	}

	execLog, database, err := openExecutionLog()
	if err != nil {
		return err
	}
	defer database.Close()

	deleted, err := execLog.Cleanup(days)
	if err != nil {
		return fmt.Errorf("failed to cleanup executions: %w", err)
	}

	pterm.Success.Printf("Deleted %d record(s) older than %d day(s)\n", deleted, days)
	return nil
}

func runJobsToggle(configPath, jobKey string, enabled bool) error {
	if configPath == "" {
		configPath = config.UserConfigPath()
		if configPath == "" {
			return fmt.Errorf("no config file given and no user config directory available")
		}
	}

	if err := config.SetJobEnabled(configPath, jobKey, enabled); err != nil {
		return fmt.Errorf("failed to update config: %w", err)
	}

	state := "disabled"
	if enabled {
		state = "enabled"
	}
	pterm.Success.Printf("Job %s %s in %s\n", jobKey, state, configPath)
	return nil
}

// truncate shortens a string for table display
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
