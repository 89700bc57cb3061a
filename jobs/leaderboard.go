package jobs

import (
	"context"
	"time"

	"github.com/classboard/classboard/scheduler"
)

// RewardService recomputes student reward standings. The leaderboard job is
// the only caller that rebuilds all scopes at once; interactive requests
// read the precomputed standings.
type RewardService interface {
	RebuildLeaderboards(ctx context.Context) (int, error)
}

// LeaderboardJob returns the periodic leaderboard aggregation job.
// Standings drift as points are awarded throughout the day, so the rebuild
// runs hourly by default.
func LeaderboardJob(rewards RewardService) *scheduler.JobDefinition {
	return &scheduler.JobDefinition{
		ID:          "rewards.leaderboard-rebuild",
		Name:        "Leaderboard rebuild",
		Description: "Recompute reward leaderboards across all class and school scopes",
		Frequency:   scheduler.FrequencyHourly,
		Priority:    scheduler.DefaultPriority,
		Timeout:     5 * time.Minute,
		RetryCount:  1,
		RetryDelay:  time.Minute,
		Enabled:     true,
		Handler: func(ctx context.Context) (any, error) {
			rebuilt, err := rewards.RebuildLeaderboards(ctx)
			if err != nil {
				return nil, err
			}
			return map[string]any{"leaderboards_rebuilt": rebuilt}, nil
		},
	}
}
