// Package scheduler provides Classboard's in-process background job
// scheduler: periodic maintenance and processing tasks registered at startup,
// triggered on fixed intervals, guarded against overlapping execution, raced
// against timeouts, retried with a delay on failure, and recorded in a
// bounded per-job execution history.
//
// The scheduler is single-process and in-memory. It has no leader election,
// no cross-instance locking, and no durable queue; on restart the job
// managers re-register every job from scratch.
package scheduler

import (
	"context"
	"time"

	"github.com/classboard/classboard/errors"
)

// Frequency is the trigger cadence category for a job
type Frequency string

const (
	FrequencyMinutely Frequency = "minutely"
	FrequencyHourly   Frequency = "hourly"
	FrequencyDaily    Frequency = "daily"
	FrequencyWeekly   Frequency = "weekly"
	FrequencyMonthly  Frequency = "monthly"
	FrequencyCustom   Frequency = "custom"
)

// IsValidFrequency returns true if the string is a known Frequency
func IsValidFrequency(s string) bool {
	switch Frequency(s) {
	case FrequencyMinutely, FrequencyHourly, FrequencyDaily,
		FrequencyWeekly, FrequencyMonthly, FrequencyCustom:
		return true
	default:
		return false
	}
}

// Interval maps a frequency to its fixed trigger interval.
// These are fixed durations, not calendar-aware cron semantics: monthly is a
// fixed 30-day approximation, documented rather than silently "fixed".
// For FrequencyCustom the provided custom interval is used; if unset it
// falls back to the hourly interval.
func (f Frequency) Interval(custom time.Duration) time.Duration {
	switch f {
	case FrequencyMinutely:
		return time.Minute
	case FrequencyHourly:
		return time.Hour
	case FrequencyDaily:
		return 24 * time.Hour
	case FrequencyWeekly:
		return 7 * 24 * time.Hour
	case FrequencyMonthly:
		return 30 * 24 * time.Hour // fixed 30-day month
	case FrequencyCustom:
		if custom > 0 {
			return custom
		}
		return time.Hour
	default:
		return time.Hour
	}
}

// Priority bounds. Priority is advisory only: the scheduler does not preempt,
// it only orders manual "run all" batches.
const (
	MinPriority     = 1
	MaxPriority     = 10
	DefaultPriority = 5
)

// Handler is the asynchronous work function a job executes.
// The returned value is opaque to the scheduler and stored verbatim in
// history. The context carries the job's timeout when one is configured;
// handlers are not required to honor it, the engine stops waiting either way.
type Handler func(ctx context.Context) (any, error)

// JobDefinition describes one recurring task. Definitions are owned by the
// registry once registered and are immutable except for Enabled, which is
// flipped through the scheduler's Enable/Disable operations.
type JobDefinition struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Frequency   Frequency `json:"frequency"`

	// CustomInterval applies only to FrequencyCustom
	CustomInterval time.Duration `json:"custom_interval,omitempty"`

	// Priority 1 (lowest) to 10 (highest), advisory
	Priority int `json:"priority"`

	// Timeout bounds a single handler invocation; 0 means unbounded
	Timeout time.Duration `json:"timeout,omitempty"`

	// RetryCount is the number of delayed retries attempted after a
	// failure; RetryDelay is the delay before each retry fires.
	RetryCount int           `json:"retry_count,omitempty"`
	RetryDelay time.Duration `json:"retry_delay,omitempty"`

	Enabled bool    `json:"enabled"`
	Handler Handler `json:"-"`
}

// Interval returns the trigger interval for this job
func (d *JobDefinition) Interval() time.Duration {
	return d.Frequency.Interval(d.CustomInterval)
}

// Validate checks the definition before registration.
// A zero Priority is normalized to DefaultPriority.
func (d *JobDefinition) Validate() error {
	if d == nil {
		return errors.Wrap(errors.ErrInvalidJob, "definition is nil")
	}
	if d.ID == "" {
		return errors.Wrap(errors.ErrInvalidJob, "id is required")
	}
	if d.Handler == nil {
		return errors.Wrapf(errors.ErrInvalidJob, "job %q has no handler", d.ID)
	}
	if !IsValidFrequency(string(d.Frequency)) {
		return errors.Wrapf(errors.ErrInvalidJob, "job %q has unknown frequency %q", d.ID, d.Frequency)
	}
	if d.Priority == 0 {
		d.Priority = DefaultPriority
	}
	if d.Priority < MinPriority || d.Priority > MaxPriority {
		return errors.Wrapf(errors.ErrInvalidJob, "job %q priority %d outside %d..%d",
			d.ID, d.Priority, MinPriority, MaxPriority)
	}
	if d.RetryCount < 0 {
		return errors.Wrapf(errors.ErrInvalidJob, "job %q has negative retry count", d.ID)
	}
	return nil
}
