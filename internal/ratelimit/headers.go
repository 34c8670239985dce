package ratelimit

import (
	"context"
	"fmt"
)

// Headers is the rate-limit state reported to HTTP clients.
type Headers struct {
	Limit      int
	Remaining  int
	ResetEpoch int64  // unix seconds when the current window expires
	Policy     string // "<limit>;w=<window seconds>"
}

// Headers reports the current state of the caller's bucket for action
// without consuming an attempt. Two consecutive calls see the same
// remaining count.
func (e *Engine) Headers(ctx context.Context, sub Subject, action string, opts Options) (Headers, error) {
	w := e.resolveWindow(opts, e.cfg.Scope, "", "")
	key := Key(e.cfg.Scope, action, sub)
	count, retryAfter, err := e.store.Peek(ctx, key)
	if err != nil {
		return Headers{}, fmt.Errorf("counter store peek %s: %w", key, err)
	}
	remaining := w.MaxAttempts - int(count)
	if remaining < 0 {
		remaining = 0
	}
	reset := e.now().Unix()
	if retryAfter > 0 {
		reset = e.now().Add(retryAfter).Unix()
	}
	return Headers{
		Limit:      w.MaxAttempts,
		Remaining:  remaining,
		ResetEpoch: reset,
		Policy:     fmt.Sprintf("%d;w=%d", w.MaxAttempts, int(w.Window.Seconds())),
	}, nil
}
