// Package ratelimit implements a fixed-window request throttle keyed by
// API name. Admit never blocks; it reports how long the caller would have
// to wait, and the caller decides whether to wait, notify, or abandon.
package ratelimit

import (
	"sync"
	"time"
)

type window struct {
	start time.Time
	count int
}

// Limiter tracks request counts per API name.
type Limiter struct {
	mu      sync.Mutex
	windows map[string]*window
	now     func() time.Time
}

// New creates an empty Limiter.
func New() *Limiter {
	return &Limiter{
		windows: make(map[string]*window),
		now:     time.Now,
	}
}

// NewWithClock creates a Limiter with a custom clock (useful for testing).
func NewWithClock(now func() time.Time) *Limiter {
	return &Limiter{
		windows: make(map[string]*window),
		now:     now,
	}
}

// Admit records a request against the named API's current window. It
// returns zero if the request is admitted, or the remaining time until
// the window resets if the cap has been reached.
func (l *Limiter) Admit(apiName string, maxRequests int, windowSize time.Duration) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.windows[apiName]
	if !ok || now.Sub(w.start) >= windowSize {
		l.windows[apiName] = &window{start: now, count: 1}
		return 0
	}

	if w.count < maxRequests {
		w.count++
		return 0
	}

	return w.start.Add(windowSize).Sub(now)
}
