// Package jobs defines Classboard's built-in background jobs and wires them
// into the scheduler. Each job wraps a platform service behind a small
// interface so the managers stay testable without real storage.
package jobs

import (
	"time"

	"github.com/classboard/classboard/config"
	"github.com/classboard/classboard/scheduler"
)

// Services carries the platform services the built-in jobs depend on.
// A nil service skips registration of the corresponding job.
type Services struct {
	Rewards  RewardService
	Cache    CacheService
	Sessions SessionStore
	Messages MessageAnalyzer
	Fees     FeeService
}

// RegisterAll registers every built-in job whose service is present,
// applying per-job config overrides first
func RegisterAll(s *scheduler.Scheduler, cfg *config.Config, svcs Services) error {
	type entry struct {
		def      *scheduler.JobDefinition
		override config.JobConfig
	}

	var entries []entry
	if svcs.Rewards != nil {
		entries = append(entries, entry{LeaderboardJob(svcs.Rewards), cfg.Jobs.Leaderboard})
	}
	if svcs.Cache != nil {
		entries = append(entries, entry{CacheSweepJob(svcs.Cache), cfg.Jobs.CacheSweep})
	}
	if svcs.Sessions != nil {
		entries = append(entries, entry{SessionPruneJob(svcs.Sessions), cfg.Jobs.SessionPrune})
	}
	if svcs.Messages != nil {
		entries = append(entries, entry{MessageReanalysisJob(svcs.Messages), cfg.Jobs.MessageReanalysis})
	}
	if svcs.Fees != nil {
		entries = append(entries, entry{FeeAutomationJob(svcs.Fees), cfg.Jobs.FeeAutomation})
	}

	for _, e := range entries {
		applyOverride(e.def, e.override)
		if err := s.RegisterJob(e.def); err != nil {
			return err
		}
	}
	return nil
}

// applyOverride folds a config.JobConfig into a job definition.
// IntervalSeconds > 0 replaces the manager's default cadence with a custom
// interval; Enabled controls whether the job is armed at registration.
func applyOverride(def *scheduler.JobDefinition, override config.JobConfig) {
	def.Enabled = override.Enabled
	if override.IntervalSeconds > 0 {
		def.Frequency = scheduler.FrequencyCustom
		def.CustomInterval = time.Duration(override.IntervalSeconds) * time.Second
	}
}
