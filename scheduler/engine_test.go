package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/classboard/classboard/errors"
)

func newTestEngine(t *testing.T) (*Engine, *Registry, *History) {
	t.Helper()
	registry := NewRegistry()
	history := NewHistory(DefaultMaxHistoryPerJob)
	engine := NewEngine(registry, history, nil, zap.NewNop().Sugar())
	t.Cleanup(engine.Close)
	return engine, registry, history
}

func TestExecuteNowSuccess(t *testing.T) {
	engine, registry, history := newTestEngine(t)
	registry.Put(&JobDefinition{
		ID:        "a",
		Frequency: FrequencyHourly,
		Handler: func(ctx context.Context) (any, error) {
			return "done", nil
		},
	})

	res := engine.ExecuteNow("a")
	require.NotNil(t, res)
	assert.Equal(t, ExecutionStatusCompleted, res.Status)
	assert.Equal(t, "done", res.Result)
	assert.NotEmpty(t, res.ID)
	require.NotNil(t, res.CompletedAt)
	assert.False(t, res.StartedAt.IsZero())
	assert.NoError(t, res.Err)

	require.Len(t, history.Get("a"), 1)
	assert.False(t, engine.IsRunning("a"))
}

func TestExecuteNowHandlerError(t *testing.T) {
	engine, registry, history := newTestEngine(t)
	registry.Put(&JobDefinition{
		ID:        "a",
		Frequency: FrequencyHourly,
		Handler: func(ctx context.Context) (any, error) {
			return nil, errors.New("upstream unavailable")
		},
	})

	res := engine.ExecuteNow("a")
	assert.Equal(t, ExecutionStatusFailed, res.Status)
	assert.Equal(t, "upstream unavailable", res.ErrorMessage())
	require.Len(t, history.Get("a"), 1)
	assert.False(t, engine.IsRunning("a"))
}

func TestExecuteNowUnknownJob(t *testing.T) {
	engine, _, history := newTestEngine(t)

	res := engine.ExecuteNow("ghost")
	assert.Equal(t, ExecutionStatusFailed, res.Status)
	assert.True(t, errors.IsJobNotFound(res.Err))
	// Unknown ids never pollute the ledger
	assert.Empty(t, history.Get("ghost"))
}

func TestExecuteNowOverlapGuard(t *testing.T) {
	engine, registry, history := newTestEngine(t)

	started := make(chan struct{})
	finish := make(chan struct{})
	registry.Put(&JobDefinition{
		ID:        "a",
		Frequency: FrequencyHourly,
		Handler: func(ctx context.Context) (any, error) {
			close(started)
			<-finish
			return nil, nil
		},
	})

	firstDone := make(chan *ExecutionResult, 1)
	go func() { firstDone <- engine.ExecuteNow("a") }()
	<-started
	assert.True(t, engine.IsRunning("a"))

	// Concurrent requests while in flight are all rejected without blocking
	const concurrent = 8
	var wg sync.WaitGroup
	rejected := make([]*ExecutionResult, concurrent)
	for i := 0; i < concurrent; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rejected[i] = engine.ExecuteNow("a")
		}(i)
	}
	wg.Wait()

	for _, res := range rejected {
		assert.Equal(t, ExecutionStatusPending, res.Status)
		assert.True(t, errors.IsAlreadyRunning(res.Err))
	}

	close(finish)
	first := <-firstDone
	assert.Equal(t, ExecutionStatusCompleted, first.Status)

	// Only the winner reached the ledger
	assert.Len(t, history.Get("a"), 1)
	assert.False(t, engine.IsRunning("a"))
}

func TestExecuteNowTimeout(t *testing.T) {
	engine, registry, history := newTestEngine(t)

	handlerDone := make(chan struct{})
	registry.Put(&JobDefinition{
		ID:        "slow",
		Frequency: FrequencyHourly,
		Timeout:   50 * time.Millisecond,
		Handler: func(ctx context.Context) (any, error) {
			defer close(handlerDone)
			time.Sleep(200 * time.Millisecond)
			return "late", nil
		},
	})

	start := time.Now()
	res := engine.ExecuteNow("slow")
	elapsed := time.Since(start)

	assert.Equal(t, ExecutionStatusFailed, res.Status)
	assert.True(t, errors.IsTimeout(res.Err))
	// The call returns at the timeout, not the handler's duration
	assert.Less(t, elapsed, 150*time.Millisecond)
	assert.False(t, engine.IsRunning("slow"))

	// The abandoned handler finishing later is a no-op
	<-handlerDone
	time.Sleep(20 * time.Millisecond)
	got := history.Get("slow")
	require.Len(t, got, 1)
	assert.Equal(t, ExecutionStatusFailed, got[0].Status)
}

func TestExecuteNowCanRerunAfterTimeout(t *testing.T) {
	engine, registry, _ := newTestEngine(t)

	var slow atomic.Bool
	slow.Store(true)
	registry.Put(&JobDefinition{
		ID:        "slow",
		Frequency: FrequencyHourly,
		Timeout:   50 * time.Millisecond,
		Handler: func(ctx context.Context) (any, error) {
			if slow.Load() {
				time.Sleep(200 * time.Millisecond)
			}
			return "ok", nil
		},
	})

	first := engine.ExecuteNow("slow")
	assert.Equal(t, ExecutionStatusFailed, first.Status)

	// The job is immediately eligible again even though the abandoned
	// handler is still sleeping
	slow.Store(false)
	second := engine.ExecuteNow("slow")
	assert.Equal(t, ExecutionStatusCompleted, second.Status)
}

func TestExecuteNowPanicRecovery(t *testing.T) {
	engine, registry, history := newTestEngine(t)
	registry.Put(&JobDefinition{
		ID:        "a",
		Frequency: FrequencyHourly,
		Handler: func(ctx context.Context) (any, error) {
			panic("index out of range")
		},
	})

	res := engine.ExecuteNow("a")
	assert.Equal(t, ExecutionStatusFailed, res.Status)
	assert.Contains(t, res.ErrorMessage(), "handler panic")
	assert.Contains(t, res.ErrorMessage(), "index out of range")
	assert.Len(t, history.Get("a"), 1)
	assert.False(t, engine.IsRunning("a"))
}

func TestRetryRunsOnceAfterDelay(t *testing.T) {
	engine, registry, history := newTestEngine(t)

	var mu sync.Mutex
	var runTimes []time.Time
	registry.Put(&JobDefinition{
		ID:         "flaky",
		Frequency:  FrequencyHourly,
		RetryCount: 1,
		RetryDelay: 50 * time.Millisecond,
		Handler: func(ctx context.Context) (any, error) {
			mu.Lock()
			runTimes = append(runTimes, time.Now())
			mu.Unlock()
			return nil, errors.New("still broken")
		},
	})

	res := engine.ExecuteNow("flaky")
	firstCompleted := *res.CompletedAt
	assert.Equal(t, ExecutionStatusFailed, res.Status)

	// Wait past the retry, plus slack to catch any extra attempts
	time.Sleep(250 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, runTimes, 2, "retry_count=1 means exactly two attempts")
	assert.GreaterOrEqual(t, runTimes[1].Sub(firstCompleted), 50*time.Millisecond,
		"retry delay counts from the failed attempt's completion")

	got := history.Get("flaky")
	require.Len(t, got, 2)
	assert.Equal(t, ExecutionStatusFailed, got[0].Status)
	assert.Equal(t, ExecutionStatusFailed, got[1].Status)
}

func TestRetrySucceedsOnSecondAttempt(t *testing.T) {
	engine, registry, history := newTestEngine(t)

	var attempts atomic.Int32
	registry.Put(&JobDefinition{
		ID:         "flaky",
		Frequency:  FrequencyHourly,
		RetryCount: 3,
		RetryDelay: 20 * time.Millisecond,
		Handler: func(ctx context.Context) (any, error) {
			if attempts.Add(1) == 1 {
				return nil, errors.New("transient")
			}
			return "recovered", nil
		},
	})

	engine.ExecuteNow("flaky")
	time.Sleep(150 * time.Millisecond)

	// Success stops the retry chain short of retry_count
	got := history.Get("flaky")
	require.Len(t, got, 2)
	assert.Equal(t, ExecutionStatusCompleted, got[0].Status)
	assert.Equal(t, "recovered", got[0].Result)
	assert.Equal(t, ExecutionStatusFailed, got[1].Status)
}

func TestNoRetryWithoutRetryCount(t *testing.T) {
	engine, registry, history := newTestEngine(t)
	registry.Put(&JobDefinition{
		ID:         "once",
		Frequency:  FrequencyHourly,
		RetryDelay: 10 * time.Millisecond,
		Handler: func(ctx context.Context) (any, error) {
			return nil, errors.New("broken")
		},
	})

	engine.ExecuteNow("once")
	time.Sleep(100 * time.Millisecond)
	assert.Len(t, history.Get("once"), 1)
}

func TestCloseCancelsPendingRetry(t *testing.T) {
	engine, registry, history := newTestEngine(t)
	registry.Put(&JobDefinition{
		ID:         "flaky",
		Frequency:  FrequencyHourly,
		RetryCount: 1,
		RetryDelay: 50 * time.Millisecond,
		Handler: func(ctx context.Context) (any, error) {
			return nil, errors.New("broken")
		},
	})

	engine.ExecuteNow("flaky")
	engine.Close()

	time.Sleep(150 * time.Millisecond)
	assert.Len(t, history.Get("flaky"), 1, "retry must not fire after close")
}

func TestExecuteAfterCloseIsRejected(t *testing.T) {
	engine, registry, history := newTestEngine(t)
	registry.Put(&JobDefinition{
		ID:        "a",
		Frequency: FrequencyHourly,
		Handler:   noopHandler,
	})

	engine.Close()
	res := engine.ExecuteNow("a")
	assert.Equal(t, ExecutionStatusFailed, res.Status)
	assert.Empty(t, history.Get("a"))
}

func TestRunningJobsSnapshot(t *testing.T) {
	engine, registry, _ := newTestEngine(t)

	started := make(chan struct{})
	finish := make(chan struct{})
	registry.Put(&JobDefinition{
		ID:        "a",
		Name:      "Job A",
		Frequency: FrequencyHourly,
		Handler: func(ctx context.Context) (any, error) {
			close(started)
			<-finish
			return nil, nil
		},
	})

	done := make(chan struct{})
	go func() {
		engine.ExecuteNow("a")
		close(done)
	}()
	<-started

	running := engine.RunningJobs()
	require.Len(t, running, 1)
	assert.Equal(t, "a", running[0].ID)
	assert.Equal(t, "Job A", running[0].Name)
	assert.False(t, running[0].StartedAt.IsZero())
	assert.Equal(t, 1, engine.RunningCount())

	close(finish)
	<-done
	assert.Empty(t, engine.RunningJobs())
	assert.Zero(t, engine.RunningCount())
}
