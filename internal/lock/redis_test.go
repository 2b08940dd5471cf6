package lock

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func setupRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	m := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	t.Cleanup(func() { client.Close() })
	return m, client
}

func TestRedisLock(t *testing.T) {
	ctx := context.Background()

	t.Run("second holder waits for release", func(t *testing.T) {
		_, client := setupRedis(t)
		l := NewRedis(client, time.Second)

		unlock, err := l.Lock(ctx, "group:1")
		if err != nil {
			t.Fatalf("Lock failed: %v", err)
		}

		tctx, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
		defer cancel()
		if _, err := l.Lock(tctx, "group:1"); !errors.Is(err, ErrNotAcquired) {
			t.Fatalf("expected ErrNotAcquired while held, got %v", err)
		}

		unlock()
		unlock() // idempotent

		again, err := l.Lock(ctx, "group:1")
		if err != nil {
			t.Fatalf("Lock after release failed: %v", err)
		}
		again()
	})

	t.Run("held lock is refreshed past its ttl", func(t *testing.T) {
		m, client := setupRedis(t)
		ttl := 300 * time.Millisecond
		l := NewRedis(client, ttl)

		unlock, err := l.Lock(ctx, "group:2")
		if err != nil {
			t.Fatalf("Lock failed: %v", err)
		}
		defer unlock()

		key := "tripmatch:lock:group:2"
		m.FastForward(200 * time.Millisecond)
		if left := m.TTL(key); left > 150*time.Millisecond {
			t.Fatalf("TTL after fast-forward = %v, want about 100ms", left)
		}

		deadline := time.Now().Add(2 * time.Second)
		for m.TTL(key) <= 200*time.Millisecond {
			if time.Now().After(deadline) {
				t.Fatalf("lock was not refreshed, TTL = %v", m.TTL(key))
			}
			time.Sleep(10 * time.Millisecond)
		}

		// Well past the original ttl, the key is still ours
		m.FastForward(250 * time.Millisecond)
		if !m.Exists(key) {
			t.Error("refreshed lock expired")
		}
	})

	t.Run("release leaves another holder's key alone", func(t *testing.T) {
		m, client := setupRedis(t)
		l := NewRedis(client, time.Second)

		unlock, err := l.Lock(ctx, "group:3")
		if err != nil {
			t.Fatalf("Lock failed: %v", err)
		}

		key := "tripmatch:lock:group:3"
		m.Set(key, "someone-else")
		unlock()

		if got, _ := m.Get(key); got != "someone-else" {
			t.Errorf("key = %q, want it untouched", got)
		}
	})
}
