package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func setupTestRedis(t *testing.T) (*redis.Client, func()) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	return client, func() {
		client.Close()
		mr.Close()
	}
}

func TestRedisLimiterAllowsUpToLimit(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	l := NewRedisLimiter(client, "waitlist", 5, time.Minute)
	// Pin the clock so the test never straddles a window boundary.
	fixed := time.Now().Truncate(time.Minute).Add(5 * time.Second)
	l.now = func() time.Time { return fixed }

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		d, err := l.Allow(ctx, "203.0.113.7")
		if err != nil {
			t.Fatalf("allow %d: %v", i, err)
		}
		if !d.Allowed {
			t.Fatalf("request %d denied, want allowed", i)
		}
	}

	d, err := l.Allow(ctx, "203.0.113.7")
	if err != nil {
		t.Fatalf("allow over limit: %v", err)
	}
	if d.Allowed {
		t.Fatal("sixth request allowed, want denied")
	}
	if d.RetryAfter <= 0 {
		t.Fatalf("denied decision has no retry hint: %v", d.RetryAfter)
	}
}

func TestRedisLimiterKeysAreIndependent(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	l := NewRedisLimiter(client, "waitlist", 1, time.Minute)
	fixed := time.Now().Truncate(time.Minute).Add(time.Second)
	l.now = func() time.Time { return fixed }

	ctx := context.Background()
	if d, _ := l.Allow(ctx, "10.0.0.1"); !d.Allowed {
		t.Fatal("first key denied")
	}
	if d, _ := l.Allow(ctx, "10.0.0.1"); d.Allowed {
		t.Fatal("first key not exhausted")
	}
	if d, _ := l.Allow(ctx, "10.0.0.2"); !d.Allowed {
		t.Fatal("second key denied, limits leaked across keys")
	}
}

func TestRedisLimiterDeniedDoesNotConsume(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	l := NewRedisLimiter(client, "waitlist", 2, time.Minute)
	base := time.Now().Truncate(time.Minute)
	current := base.Add(time.Second)
	l.now = func() time.Time { return current }

	ctx := context.Background()
	l.Allow(ctx, "k")
	l.Allow(ctx, "k")
	for i := 0; i < 10; i++ {
		if d, _ := l.Allow(ctx, "k"); d.Allowed {
			t.Fatal("over-limit request allowed")
		}
	}

	// Full window later the quota must be completely free again; denied
	// attempts above must not have counted.
	current = base.Add(2*time.Minute + time.Second)
	if d, _ := l.Allow(ctx, "k"); !d.Allowed {
		t.Fatal("fresh window denied, denied requests consumed quota")
	}
}

func TestRedisLimiterBackendDownReturnsError(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	cleanup() // kill the backend immediately

	l := NewRedisLimiter(client, "waitlist", 5, time.Minute)
	_, err := l.Allow(context.Background(), "k")
	if err == nil {
		t.Fatal("expected error from dead backend")
	}
}

func TestMemoryLimiterSlidingWindow(t *testing.T) {
	l := NewMemoryLimiter(2, time.Minute)
	current := time.Unix(1000, 0)
	l.now = func() time.Time { return current }

	ctx := context.Background()
	if d, _ := l.Allow(ctx, "k"); !d.Allowed {
		t.Fatal("first denied")
	}
	if d, _ := l.Allow(ctx, "k"); !d.Allowed {
		t.Fatal("second denied")
	}
	if d, _ := l.Allow(ctx, "k"); d.Allowed {
		t.Fatal("third allowed")
	}

	// After the window slides past the first request, one slot frees up.
	current = current.Add(61 * time.Second)
	if d, _ := l.Allow(ctx, "k"); !d.Allowed {
		t.Fatal("slot did not free after window slid")
	}
}
