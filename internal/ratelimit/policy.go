package ratelimit

import (
	"context"
	"fmt"
	"time"
)

// Allow applies the standard per-action limit for sub. Missing options fall
// back to the configured defaults.
func (e *Engine) Allow(ctx context.Context, sub Subject, action string, opts Options) error {
	w := e.resolveWindow(opts, e.cfg.Scope, "", "")
	key := Key(e.cfg.Scope, action, sub)
	res, err := e.evaluateWith(ctx, key, w, e.resolveAdaptive(opts), nil)
	if err != nil {
		return err
	}
	if !res.Allowed {
		return denial(key, res)
	}
	return nil
}

// AllowMethod limits a named controller method. The window comes from the
// per-method override table when one exists, else from the HTTP verb's
// default, else from the global default; opts beats all three.
func (e *Engine) AllowMethod(ctx context.Context, sub Subject, scope, method, verb string, opts Options) error {
	if scope == "" {
		scope = e.cfg.Scope
	}
	w := e.resolveWindow(opts, scope, method, verb)
	key := Key(scope, method, sub)
	res, err := e.evaluateWith(ctx, key, w, e.resolveAdaptive(opts), nil)
	if err != nil {
		return err
	}
	if !res.Allowed {
		return denial(key, res)
	}
	return nil
}

// AllowResource limits an operation class (read, write, delete, export,
// bulk) against a resource. Unknown operations get the global default.
func (e *Engine) AllowResource(ctx context.Context, sub Subject, resource, operation string, opts Options) error {
	w := Window{MaxAttempts: e.cfg.MaxAttempts, Window: e.cfg.Window}
	if rw, ok := e.cfg.ResourceLimits[operation]; ok {
		w = rw
	}
	if opts.MaxAttempts != nil {
		w.MaxAttempts = *opts.MaxAttempts
	}
	if opts.Window != nil {
		w.Window = *opts.Window
	}
	key := Key(e.cfg.Scope, resource+":"+operation, sub)
	res, err := e.evaluateWith(ctx, key, w, e.resolveAdaptive(opts), nil)
	if err != nil {
		return err
	}
	if !res.Allowed {
		return denial(key, res)
	}
	return nil
}

// Level is one rung of a multi-level policy. Name selects the key
// derivation rule: "ip" counts per client address, "user" per user
// identity, "endpoint" per action across all callers, "global" across
// everything. Any other name counts per subject under that name.
type Level struct {
	Name     string
	Window   Window
	Adaptive bool
}

// AllowMultiLevel evaluates levels in declared order; every level must
// pass. The first denial short-circuits; counters already incremented by
// earlier levels stay incremented, fixed windows have nothing to roll back.
func (e *Engine) AllowMultiLevel(ctx context.Context, sub Subject, action string, levels []Level) error {
	for _, lvl := range levels {
		key := e.levelKey(lvl.Name, action, sub)
		res, err := e.evaluateWith(ctx, key, lvl.Window, lvl.Adaptive, nil)
		if err != nil {
			return err
		}
		if !res.Allowed {
			return denial(key, res)
		}
	}
	return nil
}

func (e *Engine) levelKey(level, action string, sub Subject) string {
	switch level {
	case "ip":
		addr := "unknown"
		if sub.RemoteAddr != "" {
			addr = hostOnly(sub.RemoteAddr)
		}
		return e.cfg.Scope + ":" + action + ":ip:" + addr
	case "user":
		return e.cfg.Scope + ":" + action + ":user:" + sub.ID()
	case "endpoint":
		return e.cfg.Scope + ":" + action + ":endpoint"
	case "global":
		return e.cfg.Scope + ":global"
	default:
		return e.cfg.Scope + ":" + action + ":" + level + ":" + sub.ID()
	}
}

// TierFor returns the conditional tier that would apply to sub. Exactly one
// tier applies, the first predicate that matches.
func (e *Engine) TierFor(sub Subject) (string, TierLimit) {
	tier := "anonymous"
	switch {
	case sub.Tier == TierAdmin:
		tier = TierAdmin
	case sub.Tier == TierPremium:
		tier = TierPremium
	case sub.Authenticated():
		tier = "authenticated"
	}
	tl, ok := e.cfg.Tiers[tier]
	if !ok {
		tl = TierLimit{Window: Window{MaxAttempts: e.cfg.MaxAttempts, Window: e.cfg.Window}, Adaptive: true}
	}
	return tier, tl
}

// AllowConditional picks the window by caller privilege tier.
func (e *Engine) AllowConditional(ctx context.Context, sub Subject, action string) error {
	tier, tl := e.TierFor(sub)
	key := Key(e.cfg.Scope, action, sub)
	res, err := e.evaluateWith(ctx, key, tl.Window, tl.Adaptive, map[string]string{"tier": tier})
	if err != nil {
		return err
	}
	if !res.Allowed {
		return denial(key, res)
	}
	return nil
}

// AllowBurst permits short spikes while bounding the long-run rate. The
// tight burst bucket is tried first; only when it denies does the call fall
// through to the sustained bucket, so in the common allowed case a single
// counter increments. The two buckets are independent keys.
func (e *Engine) AllowBurst(ctx context.Context, sub Subject, action string, burstSize, sustainedRate int, window time.Duration) error {
	burstKey := Key(e.cfg.Scope, action+":burst", sub)
	res, err := e.Evaluate(ctx, burstKey, Window{MaxAttempts: burstSize, Window: 10 * time.Second})
	if err != nil {
		return err
	}
	if res.Allowed {
		return nil
	}

	sustainedKey := Key(e.cfg.Scope, action+":sustained", sub)
	res, err = e.EvaluateAdaptive(ctx, sustainedKey, Window{MaxAttempts: sustainedRate, Window: window}, nil)
	if err != nil {
		return err
	}
	if !res.Allowed {
		return denial(sustainedKey, res)
	}
	return nil
}

// RequireLowRisk gates a sensitive operation on the subject's behavior
// score alone, independent of call frequency. The scorer is consulted
// directly; no counter bucket is touched or consumed.
func (e *Engine) RequireLowRisk(ctx context.Context, sub Subject, maxScore float64, operation string) error {
	if !sub.Authenticated() {
		return ErrUnauthorized
	}
	key := Key(e.cfg.Scope, operation, sub)
	score, err := e.scorer.Score(ctx, key, map[string]string{"operation": operation})
	if err != nil {
		return fmt.Errorf("behavior scorer %s: %w", key, err)
	}
	if score > maxScore {
		e.log.Warn().
			Str("key", key).
			Str("operation", operation).
			Float64("score", score).
			Float64("max_score", maxScore).
			Msg("sensitive operation blocked on behavior score")
		return &RiskTooHighError{Operation: operation, Score: score, MaxScore: maxScore}
	}
	return nil
}
