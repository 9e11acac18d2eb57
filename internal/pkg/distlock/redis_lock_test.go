package distlock

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func testRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	return redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

func TestRedisLockAcquireRelease(t *testing.T) {
	client := testRedis(t)
	ctx := context.Background()

	lock := NewRedisLock(client, "sync-run", time.Minute)
	ok, err := lock.Acquire(ctx)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if !ok {
		t.Fatal("first acquire should succeed")
	}

	// A second holder is refused while the first owns the key.
	other := NewRedisLock(client, "sync-run", time.Minute)
	ok, err = other.Acquire(ctx)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if ok {
		t.Fatal("second acquire should be refused")
	}

	if err := lock.Release(ctx); err != nil {
		t.Fatalf("Release: %v", err)
	}

	ok, err = other.Acquire(ctx)
	if err != nil {
		t.Fatalf("Acquire after release: %v", err)
	}
	if !ok {
		t.Fatal("acquire after release should succeed")
	}
}

func TestRedisLockReleaseOnlyByOwner(t *testing.T) {
	client := testRedis(t)
	ctx := context.Background()

	owner := NewRedisLock(client, "sync-run", time.Minute)
	if ok, _ := owner.Acquire(ctx); !ok {
		t.Fatal("acquire failed")
	}

	// A non-owner release must not free the key.
	stranger := NewRedisLock(client, "sync-run", time.Minute)
	if err := stranger.Release(ctx); err != nil {
		t.Fatalf("Release: %v", err)
	}

	if ok, _ := stranger.Acquire(ctx); ok {
		t.Fatal("lock must survive a non-owner release")
	}
}
