package jobs

import (
	"context"
	"time"

	"github.com/classboard/classboard/scheduler"
)

// MessageAnalyzer re-runs content analysis over flagged messages.
// Analysis models improve over time, so messages flagged by an older model
// are periodically re-scored.
type MessageAnalyzer interface {
	ReanalyzeFlagged(ctx context.Context) (int, error)
}

// MessageReanalysisJob returns the daily flagged-message re-analysis job
func MessageReanalysisJob(analyzer MessageAnalyzer) *scheduler.JobDefinition {
	return &scheduler.JobDefinition{
		ID:          "messaging.reanalysis",
		Name:        "Message re-analysis",
		Description: "Re-run content analysis over flagged messages",
		Frequency:   scheduler.FrequencyDaily,
		Priority:    scheduler.DefaultPriority,
		Timeout:     30 * time.Minute,
		RetryCount:  2,
		RetryDelay:  5 * time.Minute,
		Enabled:     true,
		Handler: func(ctx context.Context) (any, error) {
			reanalyzed, err := analyzer.ReanalyzeFlagged(ctx)
			if err != nil {
				return nil, err
			}
			return map[string]any{"messages_reanalyzed": reanalyzed}, nil
		},
	}
}
