package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/classboard/classboard/errors"
)

// inflight is the running-set entry for a job currently executing
type inflight struct {
	startedAt time.Time
}

// Engine executes jobs: it guarantees at most one concurrent execution per
// job id, races handlers against their timeout, normalizes failures, appends
// results to the history ledger, and schedules delayed retries.
//
// The running-set owned here is the authoritative answer to "is job X
// running". The trigger layer also checks it before requesting execution,
// but that check is only a fast path; the test-and-set in execute() is the
// linearization point for overlap prevention.
type Engine struct {
	registry *Registry
	history  *History
	log      *ExecutionLog // optional persistent record, may be nil
	logger   *zap.SugaredLogger

	mu          sync.Mutex
	running     map[string]*inflight
	retryTimers map[*time.Timer]struct{}
	closed      bool
}

// NewEngine creates an execution engine. execLog may be nil to disable
// persistent execution records.
func NewEngine(registry *Registry, history *History, execLog *ExecutionLog, log *zap.SugaredLogger) *Engine {
	return &Engine{
		registry:    registry,
		history:     history,
		log:         execLog,
		logger:      log,
		running:     make(map[string]*inflight),
		retryTimers: make(map[*time.Timer]struct{}),
	}
}

// ExecuteNow runs a job immediately. It is the sole entry point for both
// timer-triggered and manual runs and is safe to call concurrently for the
// same job id: exactly one caller proceeds, the rest receive a pending
// result carrying ErrAlreadyRunning without blocking.
//
// The call blocks until the execution completes, fails, or times out.
func (e *Engine) ExecuteNow(jobID string) *ExecutionResult {
	return e.execute(jobID, 0)
}

// execute runs one attempt. attempt counts how many retries preceded this
// run; retries are scheduled only while attempt < RetryCount, so a job with
// RetryCount=1 that always fails produces exactly two history entries.
func (e *Engine) execute(jobID string, attempt int) *ExecutionResult {
	def := e.registry.Get(jobID)
	if def == nil {
		// A missing job is a programming error in the caller, reported
		// and never retried.
		res := newExecutionResult(jobID)
		res.fail(errors.NewJobNotFound(jobID))
		e.logger.Errorw("Execution requested for unknown job", "job_id", jobID)
		return res
	}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		res := newExecutionResult(jobID)
		res.fail(errors.Newf("scheduler is shut down, job %q not executed", jobID))
		return res
	}
	if inf, ok := e.running[jobID]; ok {
		e.mu.Unlock()
		res := newExecutionResult(jobID)
		res.Status = ExecutionStatusPending
		res.Err = errors.Wrapf(errors.ErrAlreadyRunning,
			"job %q has been running since %s", jobID, inf.startedAt.Format(time.RFC3339))
		return res
	}
	startedAt := time.Now()
	e.running[jobID] = &inflight{startedAt: startedAt}
	e.mu.Unlock()

	// Backstop: the explicit clear below handles every normal path, this
	// covers anything unexpected between test-and-set and finalization.
	// Guarded so it can never remove a newer run's entry once this one
	// has already been cleared.
	cleared := false
	release := func() {
		if !cleared {
			cleared = true
			e.clearRunning(jobID)
		}
	}
	defer release()

	res := newExecutionResult(jobID)
	res.Status = ExecutionStatusRunning
	res.StartedAt = startedAt

	e.logger.Debugw("Job starting",
		"job_id", jobID,
		"execution_id", res.ID,
		"attempt", attempt,
		"timeout", def.Timeout)

	result, err := e.invoke(def)

	// Clear the running-set entry before finalizing so a late completion of
	// a timed-out handler can never be confused with a live run.
	release()

	if err != nil {
		res.fail(err)
		e.logger.Errorw("Job failed",
			"job_id", jobID,
			"execution_id", res.ID,
			"attempt", attempt,
			"duration_ms", res.Duration.Milliseconds(),
			"timeout", errors.IsTimeout(err),
			"error", err)
	} else {
		res.complete(result)
		e.logger.Infow("Job completed",
			"job_id", jobID,
			"execution_id", res.ID,
			"attempt", attempt,
			"duration_ms", res.Duration.Milliseconds())
	}

	e.history.Append(res)
	e.record(res)

	if res.Status == ExecutionStatusFailed && attempt < def.RetryCount {
		e.scheduleRetry(def, attempt+1)
	}

	return res
}

// handlerOutcome carries a handler's return across the timeout race
type handlerOutcome struct {
	result any
	err    error
}

// invoke runs the handler, racing it against the job's timeout when one is
// set. The race is not cooperative cancellation: a timed-out handler keeps
// running in the background, the engine just stops waiting. The outcome
// channel is buffered so the loser's late send is a no-op that cannot touch
// engine state.
func (e *Engine) invoke(def *JobDefinition) (any, error) {
	ctx := context.Background()
	if def.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, def.Timeout)
		defer cancel()
	}

	done := make(chan handlerOutcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- handlerOutcome{err: errors.Newf("handler panic: %v", r)}
			}
		}()
		result, err := def.Handler(ctx)
		done <- handlerOutcome{result: result, err: err}
	}()

	if def.Timeout > 0 {
		timer := time.NewTimer(def.Timeout)
		defer timer.Stop()
		select {
		case out := <-done:
			return out.result, out.err
		case <-timer.C:
			return nil, errors.Wrapf(errors.ErrTimeout, "job %q exceeded %s", def.ID, def.Timeout)
		}
	}

	out := <-done
	return out.result, out.err
}

// scheduleRetry arms a one-shot delayed re-execution after a failure
func (e *Engine) scheduleRetry(def *JobDefinition, attempt int) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	var timer *time.Timer
	timer = time.AfterFunc(def.RetryDelay, func() {
		e.mu.Lock()
		delete(e.retryTimers, timer)
		closed := e.closed
		e.mu.Unlock()
		if closed {
			return
		}
		e.execute(def.ID, attempt)
	})
	e.retryTimers[timer] = struct{}{}
	e.mu.Unlock()

	e.logger.Warnw("Job retry scheduled",
		"job_id", def.ID,
		"attempt", attempt,
		"retry_count", def.RetryCount,
		"delay", def.RetryDelay)
}

func (e *Engine) clearRunning(jobID string) {
	e.mu.Lock()
	delete(e.running, jobID)
	e.mu.Unlock()
}

// record persists a finalized result to the execution log, best effort.
// A write failure never fails the execution.
func (e *Engine) record(res *ExecutionResult) {
	if e.log == nil {
		return
	}
	if err := e.log.Record(res); err != nil {
		e.logger.Warnw("Failed to record execution",
			"job_id", res.JobID,
			"execution_id", res.ID,
			"error", err)
	}
}

// IsRunning reports whether the job currently has an execution in flight
func (e *Engine) IsRunning(jobID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.running[jobID]
	return ok
}

// RunningJob describes one in-flight execution
type RunningJob struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	StartedAt time.Time `json:"started_at"`
}

// RunningJobs returns a snapshot of all in-flight executions
func (e *Engine) RunningJobs() []RunningJob {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]RunningJob, 0, len(e.running))
	for jobID, inf := range e.running {
		name := jobID
		if def := e.registry.Get(jobID); def != nil && def.Name != "" {
			name = def.Name
		}
		out = append(out, RunningJob{ID: jobID, Name: name, StartedAt: inf.startedAt})
	}
	return out
}

// RunningCount returns the size of the running-set
func (e *Engine) RunningCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.running)
}

// Close cancels pending retry timers and rejects new executions.
// In-flight executions are left to finish; their handlers are not
// cooperatively cancellable.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return
	}
	e.closed = true
	for timer := range e.retryTimers {
		timer.Stop()
	}
	e.retryTimers = make(map[*time.Timer]struct{})
}
