package jobs

import (
	"context"
	"time"

	"github.com/classboard/classboard/scheduler"
)

// ExecutionLogCleanupJob returns the daily job that prunes persisted
// execution records past the retention period. The scheduler records its own
// runs in the same table, so without this the record table grows forever.
func ExecutionLogCleanupJob(execLog *scheduler.ExecutionLog, retentionDays int) *scheduler.JobDefinition {
	return &scheduler.JobDefinition{
		ID:          "maintenance.execution-log-cleanup",
		Name:        "Execution log cleanup",
		Description: "Delete persisted execution records past the retention period",
		Frequency:   scheduler.FrequencyDaily,
		Priority:    scheduler.MinPriority,
		Timeout:     time.Minute,
		RetryCount:  1,
		RetryDelay:  time.Minute,
		Enabled:     true,
		Handler: func(ctx context.Context) (any, error) {
			deleted, err := execLog.Cleanup(retentionDays)
			if err != nil {
				return nil, err
			}
			return map[string]any{"records_deleted": deleted, "retention_days": retentionDays}, nil
		},
	}
}
