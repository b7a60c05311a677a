package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func setupLimiter(t *testing.T) (*RedisLimiter, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisLimiter(client, "test:ratelimit"), mr
}

func TestAllowWithinLimit(t *testing.T) {
	limiter, _ := setupLimiter(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		res, err := limiter.Allow(ctx, "user:1", 3, time.Minute)
		if err != nil {
			t.Fatalf("allow %d: %v", i, err)
		}
		if !res.Allowed {
			t.Fatalf("request %d should be allowed", i)
		}
		if res.Remaining != 3-(i+1) {
			t.Fatalf("unexpected remaining after %d: %d", i, res.Remaining)
		}
	}
}

func TestAllowBlocksOverLimit(t *testing.T) {
	limiter, _ := setupLimiter(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := limiter.Allow(ctx, "user:2", 2, time.Minute); err != nil {
			t.Fatalf("seed %d: %v", i, err)
		}
	}

	res, err := limiter.Allow(ctx, "user:2", 2, time.Minute)
	if err != nil {
		t.Fatalf("allow: %v", err)
	}
	if res.Allowed {
		t.Fatalf("request over the limit should be blocked")
	}
	if res.RetryAfter <= 0 {
		t.Fatalf("blocked request should carry a retry hint: %v", res.RetryAfter)
	}
}

func TestAllowWindowExpiryResetsCounter(t *testing.T) {
	limiter, mr := setupLimiter(t)
	ctx := context.Background()

	if _, err := limiter.Allow(ctx, "user:3", 1, time.Minute); err != nil {
		t.Fatalf("seed: %v", err)
	}
	res, err := limiter.Allow(ctx, "user:3", 1, time.Minute)
	if err != nil {
		t.Fatalf("allow: %v", err)
	}
	if res.Allowed {
		t.Fatalf("second request should be blocked")
	}

	mr.FastForward(time.Minute + time.Second)

	res, err = limiter.Allow(ctx, "user:3", 1, time.Minute)
	if err != nil {
		t.Fatalf("allow after expiry: %v", err)
	}
	if !res.Allowed {
		t.Fatalf("window expiry should reset the counter")
	}
}

func TestAllowKeysAreIndependent(t *testing.T) {
	limiter, _ := setupLimiter(t)
	ctx := context.Background()

	if _, err := limiter.Allow(ctx, "user:a", 1, time.Minute); err != nil {
		t.Fatalf("seed a: %v", err)
	}
	res, err := limiter.Allow(ctx, "user:b", 1, time.Minute)
	if err != nil {
		t.Fatalf("allow b: %v", err)
	}
	if !res.Allowed {
		t.Fatalf("separate keys should not share counters")
	}
}

func TestAllowZeroLimitPassesThrough(t *testing.T) {
	limiter, _ := setupLimiter(t)
	res, err := limiter.Allow(context.Background(), "user:z", 0, time.Minute)
	if err != nil {
		t.Fatalf("allow: %v", err)
	}
	if !res.Allowed {
		t.Fatalf("limit<=0 should pass through")
	}
}

func TestNilClientPassesThrough(t *testing.T) {
	limiter := NewRedisLimiter(nil, "")
	res, err := limiter.Allow(context.Background(), "user:n", 5, time.Minute)
	if err != nil {
		t.Fatalf("allow: %v", err)
	}
	if !res.Allowed {
		t.Fatalf("nil client should pass through")
	}
}
