// Package ratelimit bounds the request rate per client identity with a fixed
// window counter. A window starts at the first request for a key and resets
// entirely once it expires; requests past the limit are rejected without being
// counted. It includes HTTP middleware that sets standard rate limit response
// headers and answers 429 with a Retry-After hint.
package ratelimit

import (
	"context"
	"time"
)

// Default window parameters used when Options leaves them unset.
const (
	DefaultMaxRequests = 5
	DefaultWindow      = 60 * time.Second
)

// Options configures a single check. Zero values fall back to the defaults.
type Options struct {
	MaxRequests int
	Window      time.Duration
}

func (o Options) withDefaults() Options {
	if o.MaxRequests <= 0 {
		o.MaxRequests = DefaultMaxRequests
	}
	if o.Window <= 0 {
		o.Window = DefaultWindow
	}
	return o
}

// Result is the outcome of a check.
type Result struct {
	Success   bool      // false means the caller should reject the request
	Remaining int       // requests left in the current window
	ResetAt   time.Time // when the current window expires
	Limit     int       // MaxRequests the check ran against
}

// RetryAfter returns the time from now until the window resets, at least one second.
func (r Result) RetryAfter(now time.Time) time.Duration {
	d := r.ResetAt.Sub(now)
	if d < time.Second {
		return time.Second
	}
	return d
}

// Limiter defines the rate limiting contract. Implementations must be safe for
// concurrent use. Check has no error path; backends that can fail decide on
// their own whether to allow.
type Limiter interface {
	Check(ctx context.Context, key string, opts Options) Result

	// Close stops background goroutines and releases resources.
	Close()
}
