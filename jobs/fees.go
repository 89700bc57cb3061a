package jobs

import (
	"context"
	"time"

	"github.com/classboard/classboard/scheduler"
)

// FeeService applies late charges to overdue invoices
type FeeService interface {
	ApplyLateCharges(ctx context.Context) (int, error)
}

// FeeAutomationJob returns the daily fee automation job. It runs at the
// highest priority so manual run-all sweeps settle billing before the
// housekeeping jobs.
func FeeAutomationJob(fees FeeService) *scheduler.JobDefinition {
	return &scheduler.JobDefinition{
		ID:          "fees.automation",
		Name:        "Fee automation",
		Description: "Apply late charges to overdue invoices",
		Frequency:   scheduler.FrequencyDaily,
		Priority:    scheduler.MaxPriority,
		Timeout:     10 * time.Minute,
		RetryCount:  2,
		RetryDelay:  10 * time.Minute,
		Enabled:     true,
		Handler: func(ctx context.Context) (any, error) {
			charged, err := fees.ApplyLateCharges(ctx)
			if err != nil {
				return nil, err
			}
			return map[string]any{"invoices_charged": charged}, nil
		},
	}
}
