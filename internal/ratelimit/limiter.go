package ratelimit

import (
	"context"
	"time"
)

// Window is a fixed-size time bucket of permitted attempts.
type Window struct {
	MaxAttempts int
	Window      time.Duration
}

// Result reports one evaluation of a key against a Window.
type Result struct {
	Allowed    bool
	Limit      int           // max attempts for the evaluated window
	Remaining  int           // attempts left after this one (min 0)
	RetryAfter time.Duration // time left in the key's current window
}

// CounterStore is the shared counting backend. Implementations must provide
// atomic increment-and-expire semantics; the engine holds no locks of its
// own and never assumes single-threaded access to a key.
type CounterStore interface {
	// Increment bumps the counter for key, starting a window of the given
	// length if none is active, and returns the new count plus the time
	// left in the active window.
	Increment(ctx context.Context, key string, window time.Duration) (count int64, retryAfter time.Duration, err error)

	// Peek reads the current count and remaining window without
	// incrementing. Missing or expired keys return (0, 0, nil).
	Peek(ctx context.Context, key string) (count int64, retryAfter time.Duration, err error)

	// Reset removes the counter for key.
	Reset(ctx context.Context, key string) error

	Close() error
}

// BehaviorScorer rates how abusive recent traffic for a key looks,
// from 0.0 (safe) to 1.0 (hostile).
type BehaviorScorer interface {
	Score(ctx context.Context, key string, meta map[string]string) (float64, error)
}

// Authorizer answers permission checks for administrative operations.
// Permission evaluation itself lives outside this package.
type Authorizer interface {
	Can(ctx context.Context, sub Subject, permission string) bool
}

// AuditEvent records an administrative action against a counter key.
type AuditEvent struct {
	Actor  string
	Action string
	Key    string
	Meta   map[string]string
}

// AuditSink receives audit events.
type AuditSink interface {
	Record(ctx context.Context, event AuditEvent)
}
