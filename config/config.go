// Package config loads and persists Classboard configuration.
//
// Configuration is merged from, in precedence order (lowest to highest):
// system config, user config (~/.classboard/classboard.toml), a project
// classboard.toml found by walking up from the working directory, and
// CLASSBOARD_-prefixed environment variables.
package config

// Config represents the core Classboard configuration
type Config struct {
	Database  DatabaseConfig  `mapstructure:"database"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Jobs      JobsConfig      `mapstructure:"jobs"`
}

// DatabaseConfig configures the SQLite database
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// SchedulerConfig configures the background job scheduler
type SchedulerConfig struct {
	// MaxHistoryPerJob caps the in-memory execution history per job
	MaxHistoryPerJob int `mapstructure:"max_history_per_job"`

	// ExecutionRetentionDays is the TTL for persisted execution records
	ExecutionRetentionDays int `mapstructure:"execution_retention_days"`
}

// JobConfig configures one registered background job. IntervalSeconds of 0
// keeps the job manager's default cadence; a positive value overrides it
// with a custom interval.
type JobConfig struct {
	Enabled         bool `mapstructure:"enabled"`
	IntervalSeconds int  `mapstructure:"interval_seconds"`
}

// JobsConfig carries per-job overrides for the platform's maintenance jobs
type JobsConfig struct {
	Leaderboard       JobConfig `mapstructure:"leaderboard"`
	CacheSweep        JobConfig `mapstructure:"cache_sweep"`
	SessionPrune      JobConfig `mapstructure:"session_prune"`
	MessageReanalysis JobConfig `mapstructure:"message_reanalysis"`
	FeeAutomation     JobConfig `mapstructure:"fee_automation"`
}
