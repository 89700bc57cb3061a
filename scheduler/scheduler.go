package scheduler

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/classboard/classboard/errors"
)

// Config holds scheduler tuning knobs
type Config struct {
	// MaxHistoryPerJob caps the in-memory execution history per job.
	// <= 0 uses DefaultMaxHistoryPerJob.
	MaxHistoryPerJob int
}

// Scheduler composes the registry, trigger timers, execution engine, and
// history ledger behind the operational API the rest of Classboard uses.
//
// A process owns exactly one Scheduler, created by the composition root in
// cmd and injected into the job managers. There is no package-level
// singleton and no init flag; New is the single construction point.
type Scheduler struct {
	registry *Registry
	history  *History
	engine   *Engine
	triggers *Triggers
	logger   *zap.SugaredLogger

	cancel context.CancelFunc

	mu       sync.Mutex
	shutdown bool
}

// New creates a scheduler. execLog may be nil to run without persistent
// execution records.
func New(cfg Config, execLog *ExecutionLog, log *zap.SugaredLogger) *Scheduler {
	return NewWithContext(context.Background(), cfg, execLog, log)
}

// NewWithContext creates a scheduler whose timers stop when the parent
// context is cancelled. Useful for tests and daemon lifecycle control.
func NewWithContext(ctx context.Context, cfg Config, execLog *ExecutionLog, log *zap.SugaredLogger) *Scheduler {
	schedCtx, cancel := context.WithCancel(ctx)

	registry := NewRegistry()
	history := NewHistory(cfg.MaxHistoryPerJob)
	engine := NewEngine(registry, history, execLog, log)

	return &Scheduler{
		registry: registry,
		history:  history,
		engine:   engine,
		triggers: NewTriggers(schedCtx, engine, log),
		logger:   log,
		cancel:   cancel,
	}
}

// RegisterJob inserts or replaces a job definition by id. Replacement tears
// down the previous definition's timer first; the job's history and any
// in-flight run are untouched. If the definition is enabled its trigger is
// armed as a side effect.
func (s *Scheduler) RegisterJob(def *JobDefinition) error {
	if err := def.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	if s.shutdown {
		s.mu.Unlock()
		return errors.Newf("scheduler is shut down, cannot register job %q", def.ID)
	}
	s.mu.Unlock()

	s.triggers.Disarm(def.ID)
	replaced := s.registry.Put(def)
	if def.Enabled {
		s.triggers.Arm(def)
	}

	s.logger.Infow("Job registered",
		"job_id", def.ID,
		"name", def.Name,
		"frequency", def.Frequency,
		"interval", def.Interval(),
		"priority", def.Priority,
		"enabled", def.Enabled,
		"replaced", replaced)
	return nil
}

// UnregisterJob removes a job and disarms its timer. History for the id is
// deliberately retained. Returns false if the id was unknown.
func (s *Scheduler) UnregisterJob(jobID string) bool {
	s.triggers.Disarm(jobID)
	removed := s.registry.Remove(jobID)
	if removed {
		s.logger.Infow("Job unregistered", "job_id", jobID)
	}
	return removed
}

// EnableJob arms the job's trigger and marks it enabled.
// Returns false if the id is unknown.
func (s *Scheduler) EnableJob(jobID string) bool {
	if !s.registry.SetEnabled(jobID, true) {
		return false
	}
	s.triggers.Arm(s.registry.Get(jobID))
	return true
}

// DisableJob disarms the job's trigger and marks it disabled, without
// touching history or any in-flight run. Returns false if the id is unknown.
func (s *Scheduler) DisableJob(jobID string) bool {
	if !s.registry.SetEnabled(jobID, false) {
		return false
	}
	s.triggers.Disarm(jobID)
	return true
}

// ExecuteNow runs a job immediately, subject to the engine's overlap guard
func (s *Scheduler) ExecuteNow(jobID string) *ExecutionResult {
	return s.engine.ExecuteNow(jobID)
}

// ExecuteAll runs every registered job once, highest priority first,
// skipping jobs that are already running. Used by operator tooling.
func (s *Scheduler) ExecuteAll() []*ExecutionResult {
	defs := s.registry.ByPriority()
	results := make([]*ExecutionResult, 0, len(defs))
	for _, def := range defs {
		results = append(results, s.engine.ExecuteNow(def.ID))
	}
	return results
}

// GetJob returns a registered definition, or nil
func (s *Scheduler) GetJob(jobID string) *JobDefinition {
	return s.registry.Get(jobID)
}

// GetAllJobs returns a snapshot of all registered definitions keyed by id
func (s *Scheduler) GetAllJobs() map[string]*JobDefinition {
	return s.registry.All()
}

// JobStatus is the operator view of one job
type JobStatus struct {
	Job        *JobDefinition   `json:"job"`
	IsRunning  bool             `json:"is_running"`
	LastResult *ExecutionResult `json:"last_result,omitempty"`
}

// GetJobStatus reports a job's definition, whether it is currently running
// (read from the running-set, which is authoritative), and its most recent
// execution result from the history ledger.
func (s *Scheduler) GetJobStatus(jobID string) (*JobStatus, error) {
	def := s.registry.Get(jobID)
	if def == nil {
		return nil, errors.NewJobNotFound(jobID)
	}
	return &JobStatus{
		Job:        def,
		IsRunning:  s.engine.IsRunning(jobID),
		LastResult: s.history.Latest(jobID),
	}, nil
}

// GetRunningJobs returns a snapshot of in-flight executions
func (s *Scheduler) GetRunningJobs() []RunningJob {
	return s.engine.RunningJobs()
}

// History returns the bounded execution history for a job, newest first
func (s *Scheduler) History(jobID string) []*ExecutionResult {
	return s.history.Get(jobID)
}

// AllHistory returns every job's bounded history keyed by job id
func (s *Scheduler) AllHistory() map[string][]*ExecutionResult {
	return s.history.All()
}

// JobStats summarizes the scheduler for dashboards
type JobStats struct {
	TotalJobs     int `json:"total_jobs"`
	RunningJobs   int `json:"running_jobs"`
	CompletedJobs int `json:"completed_jobs"`
	FailedJobs    int `json:"failed_jobs"`
}

// GetJobStats scans each job's latest history entry plus the live
// running-set. Completed/failed counts reflect the most recent outcome per
// job, not lifetime totals.
func (s *Scheduler) GetJobStats() JobStats {
	stats := JobStats{
		TotalJobs:   s.registry.Len(),
		RunningJobs: s.engine.RunningCount(),
	}
	for jobID := range s.registry.All() {
		latest := s.history.Latest(jobID)
		if latest == nil {
			continue
		}
		switch latest.Status {
		case ExecutionStatusCompleted:
			stats.CompletedJobs++
		case ExecutionStatusFailed:
			stats.FailedJobs++
		}
	}
	return stats
}

// StopAllJobs disarms every timer without touching enabled flags.
// In-flight executions run to completion.
func (s *Scheduler) StopAllJobs() {
	s.triggers.DisarmAll()
	s.logger.Infow("All jobs stopped")
}

// StartAllJobs re-arms the timer of every enabled job
func (s *Scheduler) StartAllJobs() {
	count := 0
	for _, def := range s.registry.All() {
		if def.Enabled {
			s.triggers.Arm(def)
			count++
		}
	}
	s.logger.Infow("All jobs started", "count", count)
}

// Shutdown stops all timers, cancels pending retries, and rejects further
// executions. Called from the process termination path; safe to call more
// than once.
func (s *Scheduler) Shutdown() {
	s.mu.Lock()
	if s.shutdown {
		s.mu.Unlock()
		return
	}
	s.shutdown = true
	s.mu.Unlock()

	s.triggers.DisarmAll()
	s.cancel()
	s.engine.Close()
	s.logger.Infow("Scheduler shut down")
}
