package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Lua script for an atomic sliding-window check. Uses the two-bucket
// approximation: the previous window's count is weighted by how much of it
// still overlaps the sliding window. Checks BEFORE incrementing so a denied
// request never consumes quota.
const slidingWindowLuaScript = `
local curKey = KEYS[1]
local prevKey = KEYS[2]
local limit = tonumber(ARGV[1])
local windowMs = tonumber(ARGV[2])
local elapsedMs = tonumber(ARGV[3])

local cur = tonumber(redis.call("GET", curKey) or "0")
local prev = tonumber(redis.call("GET", prevKey) or "0")

local weighted = cur + prev * ((windowMs - elapsedMs) / windowMs)
if weighted >= limit then
    return {0, cur}
end

local newCur = redis.call("INCR", curKey)
if newCur == 1 then
    redis.call("PEXPIRE", curKey, windowMs * 2)
end
return {1, newCur}
`

// RedisLimiter is the authoritative sliding-window limiter. Safe for
// concurrent use; all state lives in Redis.
type RedisLimiter struct {
	redis  *redis.Client
	prefix string
	limit  int
	window time.Duration

	script *redis.Script

	// now is injectable for tests.
	now func() time.Time
}

// NewRedisLimiter creates a limiter named by prefix (e.g. "waitlist") that
// allows limit requests per window per key.
func NewRedisLimiter(client *redis.Client, prefix string, limit int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{
		redis:  client,
		prefix: prefix,
		limit:  limit,
		window: window,
		script: redis.NewScript(slidingWindowLuaScript),
		now:    time.Now,
	}
}

// Allow checks and consumes one unit for key. Errors from Redis are returned
// as-is; the caller decides whether to fail open or closed.
func (l *RedisLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	windowMs := l.window.Milliseconds()
	nowMs := l.now().UnixMilli()
	windowIdx := nowMs / windowMs
	elapsedMs := nowMs % windowMs

	curKey := fmt.Sprintf("ratelimit:%s:%s:%d", l.prefix, key, windowIdx)
	prevKey := fmt.Sprintf("ratelimit:%s:%s:%d", l.prefix, key, windowIdx-1)

	res, err := l.script.Run(ctx, l.redis,
		[]string{curKey, prevKey},
		l.limit, windowMs, elapsedMs,
	).Int64Slice()
	if err != nil {
		return Decision{}, fmt.Errorf("rate limit check for %s: %w", l.prefix, err)
	}
	if len(res) != 2 {
		return Decision{}, fmt.Errorf("rate limit script returned %d values", len(res))
	}

	allowed := res[0] == 1
	used := int(res[1])
	d := Decision{
		Allowed: allowed,
		Limit:   l.limit,
	}
	if remaining := l.limit - used; remaining > 0 {
		d.Remaining = remaining
	}
	if !allowed {
		d.RetryAfter = time.Duration(windowMs-elapsedMs) * time.Millisecond
	}
	return d, nil
}
