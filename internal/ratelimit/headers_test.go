package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestHeaders_NonMutating(t *testing.T) {
	store := newFakeStore()
	eng := newTestEngine(t, Config{Scope: "api", MaxAttempts: 10, Window: time.Minute, Adaptive: false}, store, nil)
	eng.now = func() time.Time { return store.now }
	ctx := context.Background()
	sub := Subject{UserID: "carol"}

	for i := 0; i < 4; i++ {
		if err := eng.Allow(ctx, sub, "login", Options{}); err != nil {
			t.Fatalf("warmup %d: %v", i+1, err)
		}
	}

	h1, err := eng.Headers(ctx, sub, "login", Options{})
	if err != nil {
		t.Fatalf("headers: %v", err)
	}
	h2, err := eng.Headers(ctx, sub, "login", Options{})
	if err != nil {
		t.Fatalf("headers: %v", err)
	}

	if h1.Remaining != h2.Remaining {
		t.Fatalf("headers must not consume attempts: %d then %d", h1.Remaining, h2.Remaining)
	}
	if h1.Limit != 10 {
		t.Fatalf("limit = %d, want 10", h1.Limit)
	}
	if h1.Remaining != 6 {
		t.Fatalf("remaining = %d, want 6 after 4 attempts", h1.Remaining)
	}
	if h1.Policy != "10;w=60" {
		t.Fatalf("policy = %q, want \"10;w=60\"", h1.Policy)
	}
	if want := store.now.Add(time.Minute).Unix(); h1.ResetEpoch != want {
		t.Fatalf("reset epoch = %d, want %d", h1.ResetEpoch, want)
	}
}

func TestHeaders_FreshKey(t *testing.T) {
	store := newFakeStore()
	eng := newTestEngine(t, Config{Scope: "api", MaxAttempts: 10, Window: time.Minute}, store, nil)
	eng.now = func() time.Time { return store.now }

	h, err := eng.Headers(context.Background(), Subject{UserID: "carol"}, "login", Options{})
	if err != nil {
		t.Fatalf("headers: %v", err)
	}
	if h.Remaining != 10 {
		t.Fatalf("fresh key remaining = %d, want full limit", h.Remaining)
	}
	if h.ResetEpoch != store.now.Unix() {
		t.Fatalf("fresh key reset epoch = %d, want now (%d)", h.ResetEpoch, store.now.Unix())
	}
}
