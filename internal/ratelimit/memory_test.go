package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock is a manually advanced clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestLimiter(t *testing.T) (*MemoryLimiter, *fakeClock) {
	t.Helper()
	clock := newFakeClock()
	limiter := NewMemoryLimiter(0, WithClock(clock.Now))
	t.Cleanup(limiter.Close)
	return limiter, clock
}

func TestMemoryLimiter_Defaults(t *testing.T) {
	limiter, clock := newTestLimiter(t)

	res := limiter.Check(context.Background(), "10.0.0.1", Options{})
	assert.True(t, res.Success)
	assert.Equal(t, DefaultMaxRequests, res.Limit)
	assert.Equal(t, DefaultMaxRequests-1, res.Remaining)
	assert.Equal(t, clock.Now().Add(DefaultWindow), res.ResetAt)
}

func TestMemoryLimiter_CountsDownWithinWindow(t *testing.T) {
	limiter, clock := newTestLimiter(t)
	opts := Options{MaxRequests: 5, Window: time.Minute}
	ctx := context.Background()

	first := limiter.Check(ctx, "10.0.0.1", opts)
	for n := 2; n <= opts.MaxRequests; n++ {
		clock.Advance(time.Second)
		res := limiter.Check(ctx, "10.0.0.1", opts)
		require.True(t, res.Success, "call %d should succeed", n)
		assert.Equal(t, opts.MaxRequests-n, res.Remaining, "call %d", n)
		assert.Equal(t, first.ResetAt, res.ResetAt, "window must not slide")
	}

	denied := limiter.Check(ctx, "10.0.0.1", opts)
	assert.False(t, denied.Success)
	assert.Equal(t, 0, denied.Remaining)
	assert.Equal(t, first.ResetAt, denied.ResetAt)

	// rejected calls are not counted and do not extend the window
	again := limiter.Check(ctx, "10.0.0.1", opts)
	assert.False(t, again.Success)
	assert.Equal(t, first.ResetAt, again.ResetAt)
}

func TestMemoryLimiter_ResetsAfterWindow(t *testing.T) {
	limiter, clock := newTestLimiter(t)
	opts := Options{MaxRequests: 3, Window: time.Minute}
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		limiter.Check(ctx, "client", opts)
	}
	require.False(t, limiter.Check(ctx, "client", opts).Success)

	clock.Advance(time.Minute)
	res := limiter.Check(ctx, "client", opts)
	assert.True(t, res.Success)
	assert.Equal(t, opts.MaxRequests-1, res.Remaining, "count restarts at 1")
	assert.Equal(t, clock.Now().Add(time.Minute), res.ResetAt)
}

func TestMemoryLimiter_DifferentKeys(t *testing.T) {
	limiter, _ := newTestLimiter(t)
	opts := Options{MaxRequests: 2, Window: time.Minute}
	ctx := context.Background()

	limiter.Check(ctx, "key1", opts)
	limiter.Check(ctx, "key1", opts)
	assert.False(t, limiter.Check(ctx, "key1", opts).Success, "key1 should be denied")
	assert.True(t, limiter.Check(ctx, "key2", opts).Success, "key2 should be allowed")
}

func TestMemoryLimiter_SweepKeepsLiveEntries(t *testing.T) {
	limiter, clock := newTestLimiter(t)
	ctx := context.Background()

	limiter.Check(ctx, "short", Options{MaxRequests: 5, Window: 10 * time.Second})
	limiter.Check(ctx, "long", Options{MaxRequests: 5, Window: time.Hour})
	limiter.Check(ctx, "exact", Options{MaxRequests: 5, Window: 30 * time.Second})

	clock.Advance(30 * time.Second)
	removed := limiter.Sweep()

	assert.Equal(t, 2, removed)
	assert.Equal(t, 1, limiter.Len())

	now := clock.Now()
	limiter.mu.Lock()
	defer limiter.mu.Unlock()
	for key, e := range limiter.entries {
		assert.True(t, e.resetAt.After(now), "entry %s survived with an expired window", key)
	}
}

func TestMemoryLimiter_SweepDoesNotResetInWindowCount(t *testing.T) {
	limiter, clock := newTestLimiter(t)
	opts := Options{MaxRequests: 2, Window: time.Minute}
	ctx := context.Background()

	limiter.Check(ctx, "client", opts)
	limiter.Check(ctx, "client", opts)
	clock.Advance(30 * time.Second)
	limiter.Sweep()

	assert.False(t, limiter.Check(ctx, "client", opts).Success)
}

func TestMemoryLimiter_ConcurrentAccess(t *testing.T) {
	limiter := NewMemoryLimiter(time.Millisecond)
	defer limiter.Close()
	opts := Options{MaxRequests: 1000, Window: time.Minute}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed = map[string]int{}
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			key := fmt.Sprintf("client-%d", id%5)
			for j := 0; j < 20; j++ {
				if limiter.Check(context.Background(), key, opts).Success {
					mu.Lock()
					allowed[key]++
					mu.Unlock()
				}
			}
		}(i)
	}
	wg.Wait()

	for key, n := range allowed {
		assert.Equal(t, 200, n, key)
	}
}

func TestMemoryLimiter_StrictUnderConcurrency(t *testing.T) {
	limiter, _ := newTestLimiter(t)
	opts := Options{MaxRequests: 5, Window: time.Minute}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		granted int
	)
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if limiter.Check(context.Background(), "hot", opts).Success {
				mu.Lock()
				granted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, opts.MaxRequests, granted)
}

func TestMemoryLimiter_Close(t *testing.T) {
	limiter := NewMemoryLimiter(100 * time.Millisecond)
	limiter.Close()
	// Should not panic on double close
	limiter.Close()
}

func TestMemoryLimiter_BackgroundSweep(t *testing.T) {
	limiter := NewMemoryLimiter(20 * time.Millisecond)
	defer limiter.Close()

	limiter.Check(context.Background(), "ephemeral-key", Options{MaxRequests: 1, Window: 10 * time.Millisecond})
	require.Equal(t, 1, limiter.Len())

	assert.Eventually(t, func() bool { return limiter.Len() == 0 }, time.Second, 10*time.Millisecond)
}

func TestResult_RetryAfter(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, 30*time.Second, Result{ResetAt: now.Add(30 * time.Second)}.RetryAfter(now))
	assert.Equal(t, time.Second, Result{ResetAt: now.Add(200 * time.Millisecond)}.RetryAfter(now))
	assert.Equal(t, time.Second, Result{ResetAt: now.Add(-time.Minute)}.RetryAfter(now))
}
