package progress

import (
	"sync"
)

// Callback receives progress percentages in [0,100].
type Callback func(pct int)

// Tracker maps job identifiers to progress callbacks. Registrations are
// request-scoped: entries are removed on completion or explicit cleanup, and
// nothing is persisted.
type Tracker struct {
	mu        sync.Mutex
	callbacks map[string]Callback
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{
		callbacks: make(map[string]Callback),
	}
}

// Track registers a callback for the job. Registering a second callback for
// the same id replaces the first.
func (t *Tracker) Track(jobID string, fn Callback) {
	if fn == nil {
		return
	}
	t.mu.Lock()
	t.callbacks[jobID] = fn
	t.mu.Unlock()
}

// Update clamps pct to [0,100] and invokes the registered callback, if any.
// An unknown job id is a silent no-op.
func (t *Tracker) Update(jobID string, pct int) {
	if pct < 0 {
		pct = 0
	} else if pct > 100 {
		pct = 100
	}

	t.mu.Lock()
	fn := t.callbacks[jobID]
	t.mu.Unlock()

	if fn != nil {
		fn(pct)
	}
}

// Complete emits a final 100 and deregisters the job.
func (t *Tracker) Complete(jobID string) {
	t.Update(jobID, 100)
	t.Remove(jobID)
}

// Remove deregisters the job without emitting a final value. Used on error
// and cancellation paths.
func (t *Tracker) Remove(jobID string) {
	t.mu.Lock()
	delete(t.callbacks, jobID)
	t.mu.Unlock()
}
