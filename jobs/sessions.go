package jobs

import (
	"context"
	"time"

	"github.com/classboard/classboard/scheduler"
)

// SessionStore prunes authentication sessions past their expiry
type SessionStore interface {
	PruneExpired(ctx context.Context) (int, error)
}

// SessionPruneJob returns the session cleanup job. Stale sessions only
// matter for storage growth, so hourly is plenty.
func SessionPruneJob(sessions SessionStore) *scheduler.JobDefinition {
	return &scheduler.JobDefinition{
		ID:          "sessions.prune",
		Name:        "Session prune",
		Description: "Delete expired authentication sessions",
		Frequency:   scheduler.FrequencyHourly,
		Priority:    scheduler.DefaultPriority,
		Timeout:     time.Minute,
		RetryCount:  1,
		RetryDelay:  time.Minute,
		Enabled:     true,
		Handler: func(ctx context.Context) (any, error) {
			pruned, err := sessions.PruneExpired(ctx)
			if err != nil {
				return nil, err
			}
			return map[string]any{"sessions_pruned": pruned}, nil
		},
	}
}
