package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryLimiter is the per-instance edge fallback used when Redis is not
// configured. It keeps an exact sliding window of request timestamps per key.
// State is lost on restart and never shared across instances, so it is not
// authoritative; it only takes the worst of the abuse off the backends.
type MemoryLimiter struct {
	limit  int
	window time.Duration

	mu   sync.Mutex
	seen map[string][]time.Time

	now func() time.Time
}

// maxKeys caps the tracked-key map so a spray of spoofed IPs cannot grow it
// without bound. On overflow the map is reset; losing edge counts is
// acceptable for a non-authoritative limiter.
const maxKeys = 10000

// NewMemoryLimiter creates an in-process sliding-window limiter.
func NewMemoryLimiter(limit int, window time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		limit:  limit,
		window: window,
		seen:   make(map[string][]time.Time),
		now:    time.Now,
	}
}

// Allow checks and consumes one unit for key. Never returns an error.
func (l *MemoryLimiter) Allow(_ context.Context, key string) (Decision, error) {
	now := l.now()
	cutoff := now.Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.seen) > maxKeys {
		l.seen = make(map[string][]time.Time)
	}

	stamps := l.seen[key]
	live := stamps[:0]
	for _, ts := range stamps {
		if ts.After(cutoff) {
			live = append(live, ts)
		}
	}

	d := Decision{Limit: l.limit}
	if len(live) >= l.limit {
		l.seen[key] = live
		d.RetryAfter = live[0].Add(l.window).Sub(now)
		return d, nil
	}

	live = append(live, now)
	l.seen[key] = live
	d.Allowed = true
	d.Remaining = l.limit - len(live)
	return d, nil
}
