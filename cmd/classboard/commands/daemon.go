package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/classboard/classboard/config"
	"github.com/classboard/classboard/db"
	"github.com/classboard/classboard/jobs"
	"github.com/classboard/classboard/logger"
	"github.com/classboard/classboard/platform"
	"github.com/classboard/classboard/scheduler"
)

// DaemonCmd represents the daemon command
var DaemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run the background job scheduler daemon",
	Long: `The Classboard daemon runs the background job scheduler:

- Registers the platform's maintenance jobs (leaderboards, cache sweep,
  session pruning, message re-analysis, fee automation)
- Triggers each enabled job on its interval
- Guards against overlapping runs, enforces per-job timeouts, retries
  failures after a delay
- Records finalized executions to the database for 'classboard jobs'
- Watches the config file and re-arms jobs when it changes

Example:
  classboard daemon start
  classboard daemon start --config /etc/classboard/config.toml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// DaemonStartCmd starts the daemon in the foreground
var DaemonStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the scheduler daemon in the foreground",
	Long: `Start the scheduler daemon in foreground mode.

The daemon runs until interrupted (Ctrl+C or SIGTERM), then shuts down
gracefully: timers stop, pending retries are cancelled, and in-flight
executions run to completion.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		return runDaemon(configPath)
	},
}

func init() {
	DaemonStartCmd.Flags().String("config", "", "Config file to load and watch (defaults to the merged config search path)")
	DaemonCmd.AddCommand(DaemonStartCmd)
}

func runDaemon(configPath string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	database, err := db.Open(cfg.Database.Path, logger.Logger)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer database.Close()

	if err := db.Migrate(database, logger.Logger); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	execLog := scheduler.NewExecutionLog(database)
	sched := scheduler.New(scheduler.Config{
		MaxHistoryPerJob: cfg.Scheduler.MaxHistoryPerJob,
	}, execLog, logger.Logger)

	services := jobs.Services{
		Rewards:  platform.NewRewards(database),
		Cache:    platform.NewCache(database),
		Sessions: platform.NewSessions(database),
		Messages: platform.NewMessages(database),
		Fees:     platform.NewFees(database),
	}
	if err := jobs.RegisterAll(sched, cfg, services); err != nil {
		return fmt.Errorf("failed to register jobs: %w", err)
	}
	if err := sched.RegisterJob(jobs.ExecutionLogCleanupJob(execLog, cfg.Scheduler.ExecutionRetentionDays)); err != nil {
		return fmt.Errorf("failed to register cleanup job: %w", err)
	}

	// Watch the config file so operators can enable/disable jobs without a
	// restart. Only available when an explicit file was given; the merged
	// search path has no single file to watch.
	var watcher *config.ConfigWatcher
	if configPath != "" {
		watcher, err = config.NewConfigWatcher(configPath)
		if err != nil {
			return fmt.Errorf("failed to watch config: %w", err)
		}
		watcher.OnReload(func(next *config.Config) error {
			applyJobToggles(sched, next)
			return nil
		})
		watcher.Start()
		defer watcher.Stop()
	}

	printStartupBanner(cfg, sched)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	pterm.Info.Println("Shutting down...")
	sched.Shutdown()
	pterm.Success.Println("Scheduler stopped")
	return nil
}

func loadConfig(configPath string) (*config.Config, error) {
	if configPath != "" {
		cfg, err := config.LoadFromFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		return cfg, nil
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// applyJobToggles reconciles registered jobs against a freshly loaded config
func applyJobToggles(sched *scheduler.Scheduler, cfg *config.Config) {
	toggles := map[string]bool{
		"rewards.leaderboard-rebuild": cfg.Jobs.Leaderboard.Enabled,
		"cache.sweep":                 cfg.Jobs.CacheSweep.Enabled,
		"sessions.prune":              cfg.Jobs.SessionPrune.Enabled,
		"messaging.reanalysis":        cfg.Jobs.MessageReanalysis.Enabled,
		"fees.automation":             cfg.Jobs.FeeAutomation.Enabled,
	}
	for jobID, enabled := range toggles {
		def := sched.GetJob(jobID)
		if def == nil || def.Enabled == enabled {
			continue
		}
		if enabled {
			sched.EnableJob(jobID)
		} else {
			sched.DisableJob(jobID)
		}
		logger.Infow("Job toggled by config reload", "job_id", jobID, "enabled", enabled)
	}
}
