package scheduler

import (
	"sort"
	"sync"
)

// Registry owns the set of registered job definitions, keyed by id.
// Registration is an explicit upsert: re-registering an id fully replaces
// the previous definition. Timer arm/disarm side effects live in the
// Scheduler facade, not here; the registry is pure definition state.
type Registry struct {
	mu   sync.RWMutex
	jobs map[string]*JobDefinition
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{jobs: make(map[string]*JobDefinition)}
}

// Put inserts or replaces a definition by id.
// Returns true if an existing definition was replaced.
func (r *Registry) Put(def *JobDefinition) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, replaced := r.jobs[def.ID]
	r.jobs[def.ID] = def
	return replaced
}

// Remove deletes a definition. Returns false if the id was unknown.
func (r *Registry) Remove(jobID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.jobs[jobID]; !ok {
		return false
	}
	delete(r.jobs, jobID)
	return true
}

// Get returns the definition for an id, or nil
func (r *Registry) Get(jobID string) *JobDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.jobs[jobID]
}

// All returns a snapshot of every registered definition keyed by id
func (r *Registry) All() map[string]*JobDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]*JobDefinition, len(r.jobs))
	for id, def := range r.jobs {
		out[id] = def
	}
	return out
}

// SetEnabled flips a job's enabled flag.
// Returns false if the id was unknown.
func (r *Registry) SetEnabled(jobID string, enabled bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	def, ok := r.jobs[jobID]
	if !ok {
		return false
	}
	def.Enabled = enabled
	return true
}

// Len returns the number of registered jobs
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.jobs)
}

// ByPriority returns all definitions ordered highest priority first,
// ties broken by id for stable batch ordering.
func (r *Registry) ByPriority() []*JobDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*JobDefinition, 0, len(r.jobs))
	for _, def := range r.jobs {
		out = append(out, def)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority > out[j].Priority
		}
		return out[i].ID < out[j].ID
	})
	return out
}
