// Package score estimates how abusive an actor's recent traffic looks.
//
// Scores range from 0.0 (safe) to 1.0 (hostile) and feed the rate limit
// engine's adaptive mode, which denies above its abuse threshold regardless
// of remaining counter capacity.
package score

import (
	"context"
	"strconv"

	"github.com/AlexKimmel/LimitGate/internal/ratelimit"
)

// Factor weights. Velocity dominates; reported failures sharpen the score
// for actors that are also getting things wrong.
const (
	velocityWeight = 0.7
	failureWeight  = 0.3
)

// Velocity scores actors by how hard they are hitting a bucket right now.
// It only ever reads the counter store, so scoring never consumes an
// attempt.
type Velocity struct {
	store ratelimit.CounterStore

	// hostileRate is the observed count at which the velocity factor
	// saturates at 1.0.
	hostileRate float64
}

var _ ratelimit.BehaviorScorer = (*Velocity)(nil)

func NewVelocity(store ratelimit.CounterStore, hostileRate int) *Velocity {
	if hostileRate <= 0 {
		hostileRate = 300
	}
	return &Velocity{store: store, hostileRate: float64(hostileRate)}
}

func (v *Velocity) Score(ctx context.Context, key string, meta map[string]string) (float64, error) {
	count, _, err := v.store.Peek(ctx, key)
	if err != nil {
		return 0, err
	}

	velocity := float64(count) / v.hostileRate
	if velocity > 1 {
		velocity = 1
	}

	var failures float64
	if raw, ok := meta["failed_attempts"]; ok {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			failures = float64(n) / 10
			if failures > 1 {
				failures = 1
			}
		}
	}

	s := velocityWeight*velocity + failureWeight*failures
	if s > 1 {
		s = 1
	}
	return s, nil
}

// Static always returns the same score. Useful for wiring checks and
// environments without traffic history.
type Static float64

func (s Static) Score(context.Context, string, map[string]string) (float64, error) {
	return float64(s), nil
}
