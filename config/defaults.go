package config

import (
	"github.com/spf13/viper"
)

// Default scheduler tuning values
const (
	DefaultMaxHistoryPerJob       = 10
	DefaultExecutionRetentionDays = 90
)

// SetDefaults configures default values for all configuration options
func SetDefaults(v *viper.Viper) {
	// Database defaults
	v.SetDefault("database.path", "classboard.db")

	// Scheduler defaults
	v.SetDefault("scheduler.max_history_per_job", DefaultMaxHistoryPerJob)
	v.SetDefault("scheduler.execution_retention_days", DefaultExecutionRetentionDays)

	// Background job defaults: everything on, manager-default cadence
	v.SetDefault("jobs.leaderboard.enabled", true)
	v.SetDefault("jobs.cache_sweep.enabled", true)
	v.SetDefault("jobs.session_prune.enabled", true)
	v.SetDefault("jobs.message_reanalysis.enabled", true)
	v.SetDefault("jobs.fee_automation.enabled", true)
}
