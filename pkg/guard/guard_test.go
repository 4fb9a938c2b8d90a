package guard

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
)

func TestLocalExclusive(t *testing.T) {
	g := NewLocal()
	ctx := context.Background()
	release, err := g.Acquire(ctx, "u1")
	if err != nil {
		t.Fatalf("first acquire: %v", err)
	}
	if _, err := g.Acquire(ctx, "u1"); !errors.Is(err, ErrHeld) {
		t.Fatalf("expected ErrHeld got %v", err)
	}
	if r2, err := g.Acquire(ctx, "u2"); err != nil {
		t.Fatalf("other key must be free: %v", err)
	} else {
		r2()
	}
	release()
	release() // idempotent
	r3, err := g.Acquire(ctx, "u1")
	if err != nil {
		t.Fatalf("acquire after release: %v", err)
	}
	r3()
}

func TestLocalExpiry(t *testing.T) {
	g := NewLocal()
	now := time.Now()
	g.now = func() time.Time { return now }
	stale, err := g.Acquire(context.Background(), "u1")
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	now = now.Add(LockTimeout + time.Second)
	fresh, err := g.Acquire(context.Background(), "u1")
	if err != nil {
		t.Fatalf("expired lock should be reclaimable: %v", err)
	}
	stale()
	if _, err := g.Acquire(context.Background(), "u1"); !errors.Is(err, ErrHeld) {
		t.Fatalf("stale release freed the new holder: %v", err)
	}
	fresh()
}

// Opt-in: set REDIS_ADDR_TEST=host:port to run against a real Redis.
func TestRedisExclusive(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR_TEST")
	if addr == "" {
		t.Skip("redis tests are disabled; set REDIS_ADDR_TEST to enable")
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	defer rdb.Close()
	g := NewRedis(rdb)
	ctx := context.Background()
	key := "test-" + time.Now().Format("150405.000000")
	release, err := g.Acquire(ctx, key)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if _, err := g.Acquire(ctx, key); !errors.Is(err, ErrHeld) {
		t.Fatalf("expected ErrHeld got %v", err)
	}
	release()
	r2, err := g.Acquire(ctx, key)
	if err != nil {
		t.Fatalf("acquire after release: %v", err)
	}
	r2()
}
