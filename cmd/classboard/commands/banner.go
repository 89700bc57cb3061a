package commands

import (
	"fmt"
	"sort"

	"github.com/pterm/pterm"

	"github.com/classboard/classboard/config"
	"github.com/classboard/classboard/scheduler"
	"github.com/classboard/classboard/version"
)

// printStartupBanner prints the daemon's startup summary
func printStartupBanner(cfg *config.Config, sched *scheduler.Scheduler) {
	info := version.Get()
	metrics := sched.GetSystemMetrics()

	pterm.DefaultHeader.WithFullWidth().Println("Classboard Scheduler")

	pterm.Printf("Version:   %s (commit %s)\n", info.Version, info.Short())
	pterm.Printf("Database:  %s\n", cfg.Database.Path)
	pterm.Printf("History:   %d entries per job\n", cfg.Scheduler.MaxHistoryPerJob)
	pterm.Printf("Retention: %d days of execution records\n", cfg.Scheduler.ExecutionRetentionDays)
	if metrics.MemoryTotalGB > 0 {
		pterm.Printf("Memory:    %.1f/%.1f GB (%.0f%%)\n",
			metrics.MemoryUsedGB, metrics.MemoryTotalGB, metrics.MemoryPercent)
	}
	pterm.Println()

	defs := sched.GetAllJobs()
	ids := make([]string, 0, len(defs))
	for id := range defs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	rows := pterm.TableData{{"JOB", "FREQUENCY", "INTERVAL", "ENABLED"}}
	for _, id := range ids {
		def := defs[id]
		rows = append(rows, []string{
			def.ID,
			string(def.Frequency),
			def.Interval().String(),
			fmt.Sprintf("%t", def.Enabled),
		})
	}
	pterm.DefaultTable.WithHasHeader().WithData(rows).Render()

	pterm.Println()
	pterm.Success.Printf("Scheduler running with %d job(s), %d armed\n",
		metrics.JobsTotal, metrics.TriggersArmed)
	pterm.Info.Println("Press Ctrl+C to stop")
}
