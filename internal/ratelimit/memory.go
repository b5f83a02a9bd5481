package ratelimit

import (
	"context"
	"sync"
	"time"
)

// entry is the counter for one key's current window.
type entry struct {
	count   int
	resetAt time.Time
}

// MemoryOption configures a MemoryLimiter.
type MemoryOption func(*MemoryLimiter)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) MemoryOption {
	return func(m *MemoryLimiter) { m.now = now }
}

// MemoryLimiter is a process-local fixed window limiter. Counters do not survive
// a restart and are not shared between instances. A background goroutine sweeps
// expired windows every cleanup interval.
type MemoryLimiter struct {
	cleanupInterval time.Duration
	now             func() time.Time

	mu      sync.Mutex
	entries map[string]*entry
	done    chan struct{}
	closed  bool
}

// NewMemoryLimiter creates a limiter and starts its sweeper. A non-positive
// cleanupInterval disables the background sweep; Sweep can still be called directly.
func NewMemoryLimiter(cleanupInterval time.Duration, opts ...MemoryOption) *MemoryLimiter {
	m := &MemoryLimiter{
		cleanupInterval: cleanupInterval,
		now:             time.Now,
		entries:         make(map[string]*entry),
		done:            make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	if cleanupInterval > 0 {
		go m.cleanup()
	}
	return m
}

// Check counts a request against key's window.
func (m *MemoryLimiter) Check(_ context.Context, key string, opts Options) Result {
	opts = opts.withDefaults()
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok || !now.Before(e.resetAt) {
		e = &entry{count: 1, resetAt: now.Add(opts.Window)}
		m.entries[key] = e
		return Result{Success: true, Remaining: opts.MaxRequests - 1, ResetAt: e.resetAt, Limit: opts.MaxRequests}
	}

	if e.count >= opts.MaxRequests {
		return Result{Success: false, Remaining: 0, ResetAt: e.resetAt, Limit: opts.MaxRequests}
	}

	e.count++
	return Result{Success: true, Remaining: opts.MaxRequests - e.count, ResetAt: e.resetAt, Limit: opts.MaxRequests}
}

// Sweep deletes every entry whose window has expired and returns how many were removed.
// Entries still inside their window are never touched.
func (m *MemoryLimiter) Sweep() int {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for key, e := range m.entries {
		if !e.resetAt.After(now) {
			delete(m.entries, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked keys.
func (m *MemoryLimiter) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Close stops the background cleanup goroutine. It is safe to call more than once.
func (m *MemoryLimiter) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.closed {
		m.closed = true
		close(m.done)
	}
}

func (m *MemoryLimiter) cleanup() {
	ticker := time.NewTicker(m.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			m.Sweep()
		}
	}
}
