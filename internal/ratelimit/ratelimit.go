// Package ratelimit provides per-IP sliding-window rate limiting for the
// public endpoints.
//
// The authoritative limiter runs in Redis with a pre-compiled Lua script so
// the check-and-increment is atomic across instances. When Redis is not
// configured the edge falls back to a per-instance in-memory limiter; that
// fallback is explicitly non-authoritative (reset on restart, not shared
// across instances). Callers own the degradation policy: a limiter error
// means "decide for yourself", and the admission path fails open.
package ratelimit

import (
	"context"
	"time"
)

// Decision is the outcome of a rate-limit check, with window metadata.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	// RetryAfter is a hint for denied callers; zero when allowed.
	RetryAfter time.Duration
}

// Limiter is an allow/deny gate keyed by caller identity (IP). Allow both
// checks and consumes one unit when the check passes.
type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
}
