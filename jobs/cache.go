package jobs

import (
	"context"
	"time"

	"github.com/classboard/classboard/scheduler"
)

// CacheService evicts expired entries from the application cache
type CacheService interface {
	EvictExpired(ctx context.Context) (int, error)
}

// CacheSweepJob returns the cache eviction job. Expired entries are harmless
// until read but waste memory, so the sweep runs on a short custom interval.
func CacheSweepJob(cache CacheService) *scheduler.JobDefinition {
	return &scheduler.JobDefinition{
		ID:             "cache.sweep",
		Name:           "Cache sweep",
		Description:    "Evict expired entries from the application cache",
		Frequency:      scheduler.FrequencyCustom,
		CustomInterval: 5 * time.Minute,
		Priority:       scheduler.MinPriority,
		Timeout:        30 * time.Second,
		RetryCount:     1,
		RetryDelay:     30 * time.Second,
		Enabled:        true,
		Handler: func(ctx context.Context) (any, error) {
			evicted, err := cache.EvictExpired(ctx)
			if err != nil {
				return nil, err
			}
			return map[string]any{"entries_evicted": evicted}, nil
		},
	}
}
