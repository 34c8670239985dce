package memory

import (
	"context"
	"testing"
	"time"
)

func newTestStore() (*Store, *time.Time) {
	now := time.Unix(1_700_000_000, 0)
	s := New()
	s.now = func() time.Time { return now }
	return s, &now
}

func TestIncrement_CountsWithinWindow(t *testing.T) {
	s, _ := newTestStore()
	ctx := context.Background()

	for i := int64(1); i <= 3; i++ {
		count, retryAfter, err := s.Increment(ctx, "k", time.Minute)
		if err != nil {
			t.Fatalf("increment %d: %v", i, err)
		}
		if count != i {
			t.Fatalf("count = %d, want %d", count, i)
		}
		if retryAfter != time.Minute {
			t.Fatalf("retry-after = %s, want 1m", retryAfter)
		}
	}
}

func TestIncrement_WindowExpires(t *testing.T) {
	s, now := newTestStore()
	ctx := context.Background()

	if _, _, err := s.Increment(ctx, "k", time.Minute); err != nil {
		t.Fatal(err)
	}
	*now = now.Add(time.Minute) // expiry boundary counts as expired

	count, retryAfter, err := s.Increment(ctx, "k", time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Fatalf("count after expiry = %d, want 1", count)
	}
	if retryAfter != time.Minute {
		t.Fatalf("retry-after = %s, want a fresh window", retryAfter)
	}
}

func TestIncrement_RetryAfterShrinks(t *testing.T) {
	s, now := newTestStore()
	ctx := context.Background()

	if _, _, err := s.Increment(ctx, "k", time.Minute); err != nil {
		t.Fatal(err)
	}
	*now = now.Add(40 * time.Second)

	_, retryAfter, err := s.Increment(ctx, "k", time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if retryAfter != 20*time.Second {
		t.Fatalf("retry-after = %s, want 20s left of the original window", retryAfter)
	}
}

func TestPeek(t *testing.T) {
	s, now := newTestStore()
	ctx := context.Background()

	count, retryAfter, err := s.Peek(ctx, "missing")
	if err != nil || count != 0 || retryAfter != 0 {
		t.Fatalf("missing key: count=%d retry=%s err=%v, want zeros", count, retryAfter, err)
	}

	if _, _, err := s.Increment(ctx, "k", time.Minute); err != nil {
		t.Fatal(err)
	}
	if _, _, err := s.Increment(ctx, "k", time.Minute); err != nil {
		t.Fatal(err)
	}

	count, _, err = s.Peek(ctx, "k")
	if err != nil {
		t.Fatal(err)
	}
	if count != 2 {
		t.Fatalf("peek count = %d, want 2", count)
	}

	// peeking never increments
	count, _, _ = s.Peek(ctx, "k")
	if count != 2 {
		t.Fatalf("second peek count = %d, want 2", count)
	}

	*now = now.Add(2 * time.Minute)
	count, _, _ = s.Peek(ctx, "k")
	if count != 0 {
		t.Fatalf("expired peek count = %d, want 0", count)
	}
}

func TestReset(t *testing.T) {
	s, _ := newTestStore()
	ctx := context.Background()

	if _, _, err := s.Increment(ctx, "k", time.Minute); err != nil {
		t.Fatal(err)
	}
	if err := s.Reset(ctx, "k"); err != nil {
		t.Fatal(err)
	}

	count, _, err := s.Increment(ctx, "k", time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Fatalf("count after reset = %d, want 1", count)
	}
}

func TestConcurrentIncrements(t *testing.T) {
	s := New()
	ctx := context.Background()

	const workers = 8
	const perWorker = 50
	done := make(chan struct{})
	for i := 0; i < workers; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			for j := 0; j < perWorker; j++ {
				if _, _, err := s.Increment(ctx, "shared", time.Hour); err != nil {
					t.Errorf("increment: %v", err)
					return
				}
			}
		}()
	}
	for i := 0; i < workers; i++ {
		<-done
	}

	count, _, err := s.Peek(ctx, "shared")
	if err != nil {
		t.Fatal(err)
	}
	if count != workers*perWorker {
		t.Fatalf("count = %d, want %d", count, workers*perWorker)
	}
}
