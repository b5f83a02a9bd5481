package ratelimit

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// fixedWindowScript rejects without incrementing once the limit is reached, so a
// client hammering a closed window cannot extend it. The window TTL is set only
// on the first hit. Returns {allowed, count, pttl}.
var fixedWindowScript = redis.NewScript(`
local current = tonumber(redis.call("GET", KEYS[1]) or "0")
if current >= tonumber(ARGV[1]) then
  return {0, current, redis.call("PTTL", KEYS[1])}
end
current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return {1, current, redis.call("PTTL", KEYS[1])}
`)

// RedisLimiter keeps fixed window counters in Redis so that every instance of
// the service shares one budget per key.
type RedisLimiter struct {
	rdb    redis.UniversalClient
	prefix string
	now    func() time.Time
}

// NewRedisLimiter wraps an existing client. prefix namespaces the counter keys.
func NewRedisLimiter(rdb redis.UniversalClient, prefix string) *RedisLimiter {
	prefix = strings.Trim(prefix, ":")
	if prefix == "" {
		prefix = "ratelimit"
	}
	return &RedisLimiter{rdb: rdb, prefix: prefix, now: time.Now}
}

// Check runs the fixed window script for key. When Redis is unreachable the
// request is allowed and the failure logged.
func (l *RedisLimiter) Check(ctx context.Context, key string, opts Options) Result {
	opts = opts.withDefaults()
	now := l.now()

	res, err := fixedWindowScript.Run(ctx, l.rdb,
		[]string{l.prefix + ":" + key},
		opts.MaxRequests, opts.Window.Milliseconds(),
	).Int64Slice()
	if err != nil || len(res) != 3 {
		slog.Error("Rate limit backend unavailable, allowing request", "key", key, "error", err)
		return Result{Success: true, Remaining: opts.MaxRequests - 1, ResetAt: now.Add(opts.Window), Limit: opts.MaxRequests}
	}

	allowed, count, pttl := res[0] == 1, int(res[1]), res[2]
	if pttl < 0 {
		pttl = opts.Window.Milliseconds()
	}
	remaining := opts.MaxRequests - count
	if remaining < 0 || !allowed {
		remaining = 0
	}

	return Result{
		Success:   allowed,
		Remaining: remaining,
		ResetAt:   now.Add(time.Duration(pttl) * time.Millisecond),
		Limit:     opts.MaxRequests,
	}
}

// Close closes the underlying client.
func (l *RedisLimiter) Close() {
	if err := l.rdb.Close(); err != nil {
		slog.Warn("Failed to close rate limit redis client", "error", err)
	}
}
