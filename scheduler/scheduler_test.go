package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/classboard/classboard/errors"
)

func newTestScheduler(t *testing.T) *Scheduler {
	t.Helper()
	s := New(Config{}, nil, zap.NewNop().Sugar())
	t.Cleanup(s.Shutdown)
	return s
}

func manualDef(id string) *JobDefinition {
	return &JobDefinition{
		ID:        id,
		Name:      id,
		Frequency: FrequencyHourly,
		Handler:   noopHandler,
	}
}

func TestRegisterJobValidates(t *testing.T) {
	s := newTestScheduler(t)

	err := s.RegisterJob(&JobDefinition{Frequency: FrequencyHourly, Handler: noopHandler})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidJob))
	assert.Empty(t, s.GetAllJobs())
}

func TestRegisterJobArmsEnabledOnly(t *testing.T) {
	s := newTestScheduler(t)

	enabled := manualDef("on")
	enabled.Enabled = true
	require.NoError(t, s.RegisterJob(enabled))

	disabled := manualDef("off")
	require.NoError(t, s.RegisterJob(disabled))

	assert.True(t, s.triggers.IsArmed("on"))
	assert.False(t, s.triggers.IsArmed("off"))
}

func TestRegisterJobReplaceTearsDownOldTimer(t *testing.T) {
	s := newTestScheduler(t)

	var runs atomic.Int32
	first := &JobDefinition{
		ID:             "tick",
		Frequency:      FrequencyCustom,
		CustomInterval: 20 * time.Millisecond,
		Enabled:        true,
		Handler: func(ctx context.Context) (any, error) {
			runs.Add(1)
			return nil, nil
		},
	}
	require.NoError(t, s.RegisterJob(first))
	require.Eventually(t, func() bool { return runs.Load() >= 1 },
		time.Second, 5*time.Millisecond)

	// Replacement is disabled; the old fast timer must not survive
	replacement := manualDef("tick")
	require.NoError(t, s.RegisterJob(replacement))

	time.Sleep(50 * time.Millisecond)
	settled := runs.Load()
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, settled, runs.Load())
	assert.False(t, s.triggers.IsArmed("tick"))
}

func TestEnableDisableJob(t *testing.T) {
	s := newTestScheduler(t)
	require.NoError(t, s.RegisterJob(manualDef("a")))

	assert.True(t, s.EnableJob("a"))
	assert.True(t, s.GetJob("a").Enabled)
	assert.True(t, s.triggers.IsArmed("a"))

	assert.True(t, s.DisableJob("a"))
	assert.False(t, s.GetJob("a").Enabled)
	assert.False(t, s.triggers.IsArmed("a"))

	assert.False(t, s.EnableJob("missing"))
	assert.False(t, s.DisableJob("missing"))
}

func TestDisableStopsTicksEnableResumes(t *testing.T) {
	s := newTestScheduler(t)

	var runs atomic.Int32
	def := &JobDefinition{
		ID:             "tick",
		Frequency:      FrequencyCustom,
		CustomInterval: 20 * time.Millisecond,
		Enabled:        true,
		Handler: func(ctx context.Context) (any, error) {
			runs.Add(1)
			return nil, nil
		},
	}
	require.NoError(t, s.RegisterJob(def))
	require.Eventually(t, func() bool { return runs.Load() >= 1 },
		time.Second, 5*time.Millisecond)

	require.True(t, s.DisableJob("tick"))
	time.Sleep(50 * time.Millisecond)
	settled := runs.Load()
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, settled, runs.Load(), "intervals elapsing while disabled produce no runs")

	require.True(t, s.EnableJob("tick"))
	assert.Eventually(t, func() bool { return runs.Load() > settled },
		time.Second, 5*time.Millisecond)
}

func TestUnregisterJobRetainsHistory(t *testing.T) {
	s := newTestScheduler(t)
	require.NoError(t, s.RegisterJob(manualDef("a")))

	res := s.ExecuteNow("a")
	require.Equal(t, ExecutionStatusCompleted, res.Status)

	assert.True(t, s.UnregisterJob("a"))
	assert.False(t, s.UnregisterJob("a"))
	assert.Nil(t, s.GetJob("a"))

	// The ledger outlives the registration
	assert.Len(t, s.History("a"), 1)
}

func TestGetJobStatus(t *testing.T) {
	s := newTestScheduler(t)
	require.NoError(t, s.RegisterJob(manualDef("a")))

	status, err := s.GetJobStatus("a")
	require.NoError(t, err)
	assert.Equal(t, "a", status.Job.ID)
	assert.False(t, status.IsRunning)
	assert.Nil(t, status.LastResult)

	s.ExecuteNow("a")
	status, err = s.GetJobStatus("a")
	require.NoError(t, err)
	require.NotNil(t, status.LastResult)
	assert.Equal(t, ExecutionStatusCompleted, status.LastResult.Status)

	_, err = s.GetJobStatus("missing")
	require.Error(t, err)
	assert.True(t, errors.IsJobNotFound(err))
}

func TestExecuteAllOrdersByPriority(t *testing.T) {
	s := newTestScheduler(t)

	var order []string
	mk := func(id string, priority int) *JobDefinition {
		return &JobDefinition{
			ID:        id,
			Frequency: FrequencyHourly,
			Priority:  priority,
			Handler: func(ctx context.Context) (any, error) {
				order = append(order, id)
				return nil, nil
			},
		}
	}
	require.NoError(t, s.RegisterJob(mk("low", 1)))
	require.NoError(t, s.RegisterJob(mk("high", 10)))
	require.NoError(t, s.RegisterJob(mk("mid", 5)))

	results := s.ExecuteAll()
	require.Len(t, results, 3)
	assert.Equal(t, []string{"high", "mid", "low"}, order)
}

func TestGetJobStats(t *testing.T) {
	s := newTestScheduler(t)

	ok := manualDef("ok")
	require.NoError(t, s.RegisterJob(ok))

	bad := manualDef("bad")
	bad.Handler = func(ctx context.Context) (any, error) {
		return nil, errors.New("broken")
	}
	require.NoError(t, s.RegisterJob(bad))

	idle := manualDef("idle")
	require.NoError(t, s.RegisterJob(idle))

	s.ExecuteNow("ok")
	s.ExecuteNow("bad")

	stats := s.GetJobStats()
	assert.Equal(t, 3, stats.TotalJobs)
	assert.Zero(t, stats.RunningJobs)
	assert.Equal(t, 1, stats.CompletedJobs)
	assert.Equal(t, 1, stats.FailedJobs)
}

func TestStopStartAllJobs(t *testing.T) {
	s := newTestScheduler(t)

	armed := manualDef("armed")
	armed.Enabled = true
	require.NoError(t, s.RegisterJob(armed))

	dormant := manualDef("dormant")
	require.NoError(t, s.RegisterJob(dormant))

	s.StopAllJobs()
	assert.Zero(t, s.triggers.ArmedCount())
	// Enabled flags are untouched by a stop
	assert.True(t, s.GetJob("armed").Enabled)

	s.StartAllJobs()
	assert.Equal(t, 1, s.triggers.ArmedCount())
	assert.True(t, s.triggers.IsArmed("armed"))
}

func TestShutdown(t *testing.T) {
	s := New(Config{}, nil, zap.NewNop().Sugar())

	armed := manualDef("a")
	armed.Enabled = true
	require.NoError(t, s.RegisterJob(armed))

	s.Shutdown()
	s.Shutdown() // idempotent

	assert.Zero(t, s.triggers.ArmedCount())

	err := s.RegisterJob(manualDef("late"))
	require.Error(t, err)

	res := s.ExecuteNow("a")
	assert.Equal(t, ExecutionStatusFailed, res.Status)
}

func TestHistoryCapFromConfig(t *testing.T) {
	s := New(Config{MaxHistoryPerJob: 2}, nil, zap.NewNop().Sugar())
	t.Cleanup(s.Shutdown)

	require.NoError(t, s.RegisterJob(manualDef("a")))
	for i := 0; i < 4; i++ {
		s.ExecuteNow("a")
	}
	assert.Len(t, s.History("a"), 2)
}
