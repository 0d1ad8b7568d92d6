package api

import (
	"sync"
	"time"
)

// SlidingWindowLimiter bounds assistant invocations per session. State is
// process-local and resets on restart: this is a cost guard, not a security
// control, and a multi-instance deployment would move the counters to redis.
type SlidingWindowLimiter struct {
	mu     sync.Mutex
	limit  int
	window time.Duration
	hits   map[string][]time.Time

	now func() time.Time
}

// NewSlidingWindowLimiter allows up to limit invocations per session within
// the trailing window. A non-positive limit disables the guard.
func NewSlidingWindowLimiter(limit int, window time.Duration) *SlidingWindowLimiter {
	return &SlidingWindowLimiter{
		limit:  limit,
		window: window,
		hits:   make(map[string][]time.Time),
		now:    time.Now,
	}
}

// Allow records an invocation unless the session has spent its window budget.
// The check and the record happen under one lock so two concurrent requests
// cannot both observe spare capacity.
func (l *SlidingWindowLimiter) Allow(sessionID string) bool {
	if l.limit <= 0 {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-l.window)

	prev := l.hits[sessionID]
	kept := prev[:0]
	for _, t := range prev {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}

	if len(kept) >= l.limit {
		l.hits[sessionID] = kept
		return false
	}

	l.hits[sessionID] = append(kept, now)
	return true
}
