package ratelimit

import (
	"sync"
	"time"
)

const (
	// DefaultWindow is the length of one quota window.
	DefaultWindow = 10 * time.Second
	// DefaultMax is the number of calls accepted per window.
	DefaultMax = 50
)

type entry struct {
	count       int
	windowStart time.Time
}

// Limiter is a fixed-window per-connection quota. It is a courtesy control
// against runaway clients: nothing is persisted and entries vanish on Forget.
type Limiter struct {
	mu      sync.Mutex
	clock   Clock
	window  time.Duration
	max     int
	entries map[string]*entry
}

// New builds a limiter. Non-positive window or max fall back to the defaults.
func New(window time.Duration, max int, clock Clock) *Limiter {
	if window <= 0 {
		window = DefaultWindow
	}
	if max <= 0 {
		max = DefaultMax
	}
	if clock == nil {
		clock = RealClock{}
	}
	return &Limiter{
		clock:   clock,
		window:  window,
		max:     max,
		entries: make(map[string]*entry),
	}
}

// Allow records a call for id and reports whether it fits the current window.
// Rejected calls are not counted.
func (l *Limiter) Allow(id string) bool {
	now := l.clock.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[id]
	if !ok || now.Sub(e.windowStart) > l.window {
		l.entries[id] = &entry{count: 1, windowStart: now}
		return true
	}
	if e.count >= l.max {
		return false
	}
	e.count++
	return true
}

// Forget drops the entry for id, e.g. on disconnect.
func (l *Limiter) Forget(id string) {
	l.mu.Lock()
	delete(l.entries, id)
	l.mu.Unlock()
}

// Sweep removes entries whose window started more than two windows before now
// and returns how many were removed.
func (l *Limiter) Sweep(now time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for id, e := range l.entries {
		if now.Sub(e.windowStart) > 2*l.window {
			delete(l.entries, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked connections.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Window returns the configured window length.
func (l *Limiter) Window() time.Duration {
	return l.window
}
