package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// skipLogInterval throttles the "still running, skipping tick" diagnostic
// so a long-running job on a short interval cannot flood the log
const skipLogInterval = 30 * time.Second

// trigger is one armed recurring timer for a job
type trigger struct {
	jobID    string
	interval time.Duration
	cancel   context.CancelFunc
	done     chan struct{}
}

// Triggers owns the per-job recurring timers. Each enabled job gets a
// goroutine with a time.Ticker at the job's interval; each tick requests
// execution through the engine. Handler failures never unwind a timer, it
// keeps firing on schedule. Disarming cancels the goroutine; re-arming
// creates a fresh ticker with a fresh phase.
type Triggers struct {
	ctx    context.Context
	engine *Engine
	logger *zap.SugaredLogger

	mu     sync.Mutex
	active map[string]*trigger
}

// NewTriggers creates the trigger set. ctx is the scheduler's root context;
// cancelling it stops every armed timer.
func NewTriggers(ctx context.Context, engine *Engine, log *zap.SugaredLogger) *Triggers {
	return &Triggers{
		ctx:    ctx,
		engine: engine,
		logger: log,
		active: make(map[string]*trigger),
	}
}

// Arm starts a recurring timer for the job, replacing any existing one
func (t *Triggers) Arm(def *JobDefinition) {
	interval := def.Interval()

	t.mu.Lock()
	if old, ok := t.active[def.ID]; ok {
		old.cancel()
	}
	ctx, cancel := context.WithCancel(t.ctx)
	trg := &trigger{
		jobID:    def.ID,
		interval: interval,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	t.active[def.ID] = trg
	t.mu.Unlock()

	go t.run(ctx, trg)

	t.logger.Infow("Job trigger armed",
		"job_id", def.ID,
		"frequency", def.Frequency,
		"interval", interval)
}

// Disarm cancels the job's timer. Returns false if none was armed.
func (t *Triggers) Disarm(jobID string) bool {
	t.mu.Lock()
	trg, ok := t.active[jobID]
	if ok {
		trg.cancel()
		delete(t.active, jobID)
	}
	t.mu.Unlock()

	if ok {
		t.logger.Infow("Job trigger disarmed", "job_id", jobID)
	}
	return ok
}

// DisarmAll cancels every armed timer
func (t *Triggers) DisarmAll() {
	t.mu.Lock()
	count := len(t.active)
	for _, trg := range t.active {
		trg.cancel()
	}
	t.active = make(map[string]*trigger)
	t.mu.Unlock()

	if count > 0 {
		t.logger.Infow("All job triggers disarmed", "count", count)
	}
}

// IsArmed reports whether the job currently has a live timer
func (t *Triggers) IsArmed(jobID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.active[jobID]
	return ok
}

// ArmedCount returns the number of live timers
func (t *Triggers) ArmedCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.active)
}

// run is one job's timer loop
func (t *Triggers) run(ctx context.Context, trg *trigger) {
	defer close(trg.done)

	ticker := time.NewTicker(trg.interval)
	defer ticker.Stop()

	skipLog := rate.NewLimiter(rate.Every(skipLogInterval), 1)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// Fast path only: the engine's own test-and-set is the
			// authoritative overlap guard. This check just avoids
			// spawning an execution goroutine that would be rejected.
			if t.engine.IsRunning(trg.jobID) {
				if skipLog.Allow() {
					t.logger.Debugw("Skipping tick, previous run still in flight",
						"job_id", trg.jobID)
				}
				continue
			}
			// Execute off the timer goroutine so a slow handler cannot
			// delay subsequent ticks. The result is already captured in
			// history; any failure is handled inside the engine.
			go t.engine.ExecuteNow(trg.jobID)
		}
	}
}
