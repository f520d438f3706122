package attempt

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestTracker(t *testing.T, threshold int, window time.Duration) (*Tracker, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	return New(rdb, threshold, window), mr
}

func TestLockoutThreshold(t *testing.T) {
	tr, _ := newTestTracker(t, 5, 15*time.Minute)
	ctx := context.Background()
	key := "203.0.113.7"

	for i := 1; i <= 4; i++ {
		if _, err := tr.RecordFailure(ctx, key); err != nil {
			t.Fatalf("failure %d: %v", i, err)
		}
		locked, _, err := tr.IsLocked(ctx, key)
		if err != nil {
			t.Fatalf("IsLocked after %d failures: %v", i, err)
		}
		if locked {
			t.Fatalf("locked after only %d failures", i)
		}
	}

	if _, err := tr.RecordFailure(ctx, key); err != nil {
		t.Fatalf("fifth failure: %v", err)
	}
	locked, retryAfter, err := tr.IsLocked(ctx, key)
	if err != nil {
		t.Fatalf("IsLocked: %v", err)
	}
	if !locked {
		t.Fatal("expected lock after 5 failures")
	}
	if retryAfter <= 0 || retryAfter > 15*time.Minute {
		t.Fatalf("retryAfter = %v, want (0, 15m]", retryAfter)
	}
}

func TestSuccessClearsCounterImmediately(t *testing.T) {
	tr, _ := newTestTracker(t, 5, 15*time.Minute)
	ctx := context.Background()
	key := "203.0.113.8"

	for i := 0; i < 7; i++ {
		if _, err := tr.RecordFailure(ctx, key); err != nil {
			t.Fatalf("failure: %v", err)
		}
	}
	if locked, _, _ := tr.IsLocked(ctx, key); !locked {
		t.Fatal("expected lock before success")
	}

	if err := tr.RecordSuccess(ctx, key); err != nil {
		t.Fatalf("RecordSuccess: %v", err)
	}
	if locked, _, _ := tr.IsLocked(ctx, key); locked {
		t.Fatal("expected unlock immediately after success")
	}
	if n, _ := tr.FailureCount(ctx, key); n != 0 {
		t.Fatalf("count = %d after success, want absent/0", n)
	}
}

func TestSlidingWindowExtendsOnEachFailure(t *testing.T) {
	tr, mr := newTestTracker(t, 5, 900*time.Second)
	ctx := context.Background()
	key := "203.0.113.9"

	for i := 0; i < 5; i++ {
		if _, err := tr.RecordFailure(ctx, key); err != nil {
			t.Fatalf("failure: %v", err)
		}
	}

	// 899s after the 5th failure the window has not lapsed.
	mr.FastForward(899 * time.Second)
	locked, _, err := tr.IsLocked(ctx, key)
	if err != nil {
		t.Fatalf("IsLocked: %v", err)
	}
	if !locked {
		t.Fatal("expected lock 899s after last failure")
	}

	// A 6th failure pushes the horizon a full window forward again.
	if _, err := tr.RecordFailure(ctx, key); err != nil {
		t.Fatalf("sixth failure: %v", err)
	}
	mr.FastForward(899 * time.Second)
	if locked, _, _ := tr.IsLocked(ctx, key); !locked {
		t.Fatal("expected lock 899s after sixth failure: window must slide")
	}

	// Once a full window passes with no new failure the key expires.
	mr.FastForward(2 * time.Second)
	if locked, _, _ := tr.IsLocked(ctx, key); locked {
		t.Fatal("expected unlock after a quiet full window")
	}
	if n, _ := tr.FailureCount(ctx, key); n != 0 {
		t.Fatalf("count = %d after window expiry, want absent/0", n)
	}
}

func TestConcurrentFailuresLoseNoIncrements(t *testing.T) {
	tr, _ := newTestTracker(t, 100, 15*time.Minute)
	ctx := context.Background()
	key := "198.51.100.1"

	const workers = 20
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			if _, err := tr.RecordFailure(ctx, key); err != nil {
				t.Errorf("RecordFailure: %v", err)
			}
		}()
	}
	wg.Wait()

	n, err := tr.FailureCount(ctx, key)
	if err != nil {
		t.Fatalf("FailureCount: %v", err)
	}
	if n != workers {
		t.Fatalf("count = %d, want %d", n, workers)
	}
}

func TestKeysAreIndependent(t *testing.T) {
	tr, _ := newTestTracker(t, 5, 15*time.Minute)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if _, err := tr.RecordFailure(ctx, "10.0.0.1"); err != nil {
			t.Fatalf("failure: %v", err)
		}
	}
	if locked, _, _ := tr.IsLocked(ctx, "10.0.0.1"); !locked {
		t.Fatal("expected 10.0.0.1 locked")
	}
	if locked, _, _ := tr.IsLocked(ctx, "10.0.0.2"); locked {
		t.Fatal("10.0.0.2 must be unaffected")
	}
}

func TestUnavailableBackendSurfacesDistinctError(t *testing.T) {
	tr, mr := newTestTracker(t, 5, 15*time.Minute)
	ctx := context.Background()
	mr.Close()

	if _, err := tr.RecordFailure(ctx, "k"); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("RecordFailure: got %v, want ErrUnavailable", err)
	}
	if _, _, err := tr.IsLocked(ctx, "k"); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("IsLocked: got %v, want ErrUnavailable", err)
	}
}
