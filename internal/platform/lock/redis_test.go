package lock

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestLocker(t *testing.T) (*RedisLocker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	locker, err := NewRedisLocker(client, WithPrefix("test:"))
	if err != nil {
		t.Fatalf("NewRedisLocker: %v", err)
	}
	return locker, mr
}

func TestAcquireIsExclusive(t *testing.T) {
	ctx := context.Background()
	locker, mr := newTestLocker(t)

	release, ok, err := locker.Acquire(ctx, "export:u1", time.Minute)
	if err != nil || !ok {
		t.Fatalf("expected first acquire to succeed, ok=%v err=%v", ok, err)
	}
	if !mr.Exists("test:export:u1") {
		t.Fatalf("expected key to be set")
	}
	if ttl := mr.TTL("test:export:u1"); ttl != time.Minute {
		t.Fatalf("expected ttl 1m, got %v", ttl)
	}

	if _, ok, err := locker.Acquire(ctx, "export:u1", time.Minute); err != nil || ok {
		t.Fatalf("expected second acquire to be refused, ok=%v err=%v", ok, err)
	}
	if _, ok, err := locker.Acquire(ctx, "export:u2", time.Minute); err != nil || !ok {
		t.Fatalf("expected other key to be free, ok=%v err=%v", ok, err)
	}

	if err := release(ctx); err != nil {
		t.Fatalf("release: %v", err)
	}
	if mr.Exists("test:export:u1") {
		t.Fatalf("expected key to be removed on release")
	}
	if _, ok, err := locker.Acquire(ctx, "export:u1", time.Minute); err != nil || !ok {
		t.Fatalf("expected reacquire after release, ok=%v err=%v", ok, err)
	}
}

func TestReleaseAfterExpiryDoesNotDropNewHolder(t *testing.T) {
	ctx := context.Background()
	locker, mr := newTestLocker(t)

	release, ok, err := locker.Acquire(ctx, "k", time.Second)
	if err != nil || !ok {
		t.Fatalf("acquire: ok=%v err=%v", ok, err)
	}
	mr.FastForward(2 * time.Second)

	if _, ok, err := locker.Acquire(ctx, "k", time.Minute); err != nil || !ok {
		t.Fatalf("expected acquire after expiry, ok=%v err=%v", ok, err)
	}
	if err := release(ctx); !errors.Is(err, ErrNotHeld) {
		t.Fatalf("expected ErrNotHeld, got %v", err)
	}
	if !mr.Exists("test:k") {
		t.Fatalf("stale release removed the new holder's key")
	}
}

func TestAcquireRejectsEmptyKey(t *testing.T) {
	locker, _ := newTestLocker(t)
	if _, _, err := locker.Acquire(context.Background(), "  ", time.Second); err == nil {
		t.Fatalf("expected error for empty key")
	}
}

func TestAcquireReportsConnectionErrors(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer client.Close()
	locker, err := NewRedisLocker(client)
	if err != nil {
		t.Fatalf("NewRedisLocker: %v", err)
	}
	mr.Close()

	if _, ok, err := locker.Acquire(context.Background(), "k", time.Second); err == nil || ok {
		t.Fatalf("expected connection error, ok=%v err=%v", ok, err)
	}
}
