package scheduler

import (
	"sync"
)

// DefaultMaxHistoryPerJob caps the per-job execution history
const DefaultMaxHistoryPerJob = 10

// History is the bounded in-memory ledger of past execution results,
// newest first, capped per job. It is appended to only by the execution
// engine; every other component reads it. Entries are evicted oldest-first
// when the cap is exceeded and are never otherwise deleted, so a job's
// history survives its unregistration.
type History struct {
	mu        sync.RWMutex
	maxPerJob int
	entries   map[string][]*ExecutionResult
}

// NewHistory creates a ledger capped at maxPerJob entries per job.
// Values <= 0 use DefaultMaxHistoryPerJob.
func NewHistory(maxPerJob int) *History {
	if maxPerJob <= 0 {
		maxPerJob = DefaultMaxHistoryPerJob
	}
	return &History{
		maxPerJob: maxPerJob,
		entries:   make(map[string][]*ExecutionResult),
	}
}

// Append prepends a result to the job's history, truncating the oldest
// entry once the cap is exceeded.
func (h *History) Append(result *ExecutionResult) {
	h.mu.Lock()
	defer h.mu.Unlock()

	seq := append([]*ExecutionResult{result}, h.entries[result.JobID]...)
	if len(seq) > h.maxPerJob {
		seq = seq[:h.maxPerJob]
	}
	h.entries[result.JobID] = seq
}

// Get returns the job's execution history, newest first.
// The returned slice is a copy; callers may not mutate ledger state.
func (h *History) Get(jobID string) []*ExecutionResult {
	h.mu.RLock()
	defer h.mu.RUnlock()

	seq := h.entries[jobID]
	out := make([]*ExecutionResult, len(seq))
	copy(out, seq)
	return out
}

// All returns every job's history keyed by job id, newest first
func (h *History) All() map[string][]*ExecutionResult {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make(map[string][]*ExecutionResult, len(h.entries))
	for jobID, seq := range h.entries {
		cp := make([]*ExecutionResult, len(seq))
		copy(cp, seq)
		out[jobID] = cp
	}
	return out
}

// Latest returns the most recent result for a job, or nil if it has
// never executed
func (h *History) Latest(jobID string) *ExecutionResult {
	h.mu.RLock()
	defer h.mu.RUnlock()

	seq := h.entries[jobID]
	if len(seq) == 0 {
		return nil
	}
	return seq[0]
}

// MaxPerJob returns the configured cap
func (h *History) MaxPerJob() int {
	return h.maxPerJob
}
