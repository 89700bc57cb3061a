package scheduler

import (
	"github.com/shirou/gopsutil/v3/mem"
)

// SystemMetrics pairs scheduler activity with host memory figures for the
// daemon's status output
type SystemMetrics struct {
	JobsTotal     int     `json:"jobs_total"`
	JobsRunning   int     `json:"jobs_running"`
	TriggersArmed int     `json:"triggers_armed"`
	MemoryUsedGB  float64 `json:"memory_used_gb"`
	MemoryTotalGB float64 `json:"memory_total_gb"`
	MemoryPercent float64 `json:"memory_percent"`
}

// GetSystemMetrics returns current scheduler activity and host memory usage.
// Memory figures degrade to zero if the host query fails.
func (s *Scheduler) GetSystemMetrics() SystemMetrics {
	metrics := SystemMetrics{
		JobsTotal:     s.registry.Len(),
		JobsRunning:   s.engine.RunningCount(),
		TriggersArmed: s.triggers.ArmedCount(),
	}

	v, err := mem.VirtualMemory()
	if err == nil && v.Total > 0 {
		metrics.MemoryTotalGB = float64(v.Total) / 1024 / 1024 / 1024
		metrics.MemoryUsedGB = float64(v.Total-v.Available) / 1024 / 1024 / 1024
		metrics.MemoryPercent = (metrics.MemoryUsedGB / metrics.MemoryTotalGB) * 100
	}

	return metrics
}
