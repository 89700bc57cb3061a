package scheduler

import (
	"time"

	"github.com/google/uuid"
)

// ExecutionStatus represents the state of a single job execution
type ExecutionStatus string

const (
	// ExecutionStatusPending is returned to callers whose execution request
	// was rejected because the job was already running. No work was started.
	ExecutionStatusPending   ExecutionStatus = "pending"
	ExecutionStatusRunning   ExecutionStatus = "running"
	ExecutionStatusCompleted ExecutionStatus = "completed"
	ExecutionStatusFailed    ExecutionStatus = "failed"
)

// ExecutionResult records the outcome of one job execution. Results are
// created by the execution engine and never mutated after completion.
type ExecutionResult struct {
	ID          string          `json:"id"`
	JobID       string          `json:"job_id"`
	Status      ExecutionStatus `json:"status"`
	StartedAt   time.Time       `json:"started_at"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
	Duration    time.Duration   `json:"duration,omitempty"`

	// Result is the handler's opaque return value, stored verbatim
	Result any   `json:"result,omitempty"`
	Err    error `json:"-"`
}

func newExecutionResult(jobID string) *ExecutionResult {
	return &ExecutionResult{
		ID:    uuid.NewString(),
		JobID: jobID,
	}
}

// complete finalizes the result as successful
func (r *ExecutionResult) complete(result any) {
	now := time.Now()
	r.Status = ExecutionStatusCompleted
	r.CompletedAt = &now
	r.Duration = now.Sub(r.StartedAt)
	r.Result = result
}

// fail finalizes the result as failed
func (r *ExecutionResult) fail(err error) {
	now := time.Now()
	r.Status = ExecutionStatusFailed
	r.CompletedAt = &now
	if !r.StartedAt.IsZero() {
		r.Duration = now.Sub(r.StartedAt)
	}
	r.Err = err
}

// ErrorMessage returns the error text, or empty string for successful runs
func (r *ExecutionResult) ErrorMessage() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}
