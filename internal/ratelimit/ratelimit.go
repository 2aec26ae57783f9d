package ratelimit

import (
	"sync"
	"time"
)

// Limiter is a sliding-window request counter keyed by client identifier.
// A rejected attempt is not recorded, so hammering past the cap cannot burn
// slots that would otherwise free up.
type Limiter struct {
	mu          sync.Mutex
	window      time.Duration
	maxRequests int
	requests    map[string][]time.Time
	now         func() time.Time
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithClock overrides the time source. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		l.now = now
	}
}

// NewLimiter creates a limiter allowing maxRequests per identifier within a
// trailing window.
func NewLimiter(window time.Duration, maxRequests int, opts ...Option) *Limiter {
	l := &Limiter{
		window:      window,
		maxRequests: maxRequests,
		requests:    make(map[string][]time.Time),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Allow reports whether the identifier may submit another request, recording
// the attempt if so. Expired entries are pruned on every call.
func (l *Limiter) Allow(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	recent := l.prune(id, now)
	if len(recent) >= l.maxRequests {
		l.requests[id] = recent
		return false
	}

	l.requests[id] = append(recent, now)
	return true
}

// Remaining returns how many requests the identifier has left in the window.
func (l *Limiter) Remaining(id string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	recent := l.prune(id, l.now())
	l.requests[id] = recent
	if n := l.maxRequests - len(recent); n > 0 {
		return n
	}
	return 0
}

// ResetTime returns when the oldest retained entry falls out of the window,
// or the zero time if the identifier has no recorded requests.
func (l *Limiter) ResetTime(id string) time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()

	recent := l.prune(id, l.now())
	l.requests[id] = recent
	if len(recent) == 0 {
		return time.Time{}
	}
	return recent[0].Add(l.window)
}

// prune drops entries older than now-window. Caller holds the lock.
func (l *Limiter) prune(id string, now time.Time) []time.Time {
	cutoff := now.Add(-l.window)
	entries := l.requests[id]
	kept := entries[:0]
	for _, t := range entries {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	return kept
}
