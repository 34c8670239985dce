package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Config is the engine's read-only policy configuration. Zero fields are
// filled with defaults by New.
type Config struct {
	// Scope prefixes every derived key, usually the service or controller
	// identity.
	Scope string

	// Global fallback window.
	MaxAttempts int
	Window      time.Duration

	// Adaptive enables behavior scoring for evaluations that don't say
	// otherwise.
	Adaptive bool

	// AbuseThreshold is the behavior score above which adaptive evaluation
	// denies outright; AbuseBackoff is the retry-after reported on those
	// denials.
	AbuseThreshold float64
	AbuseBackoff   time.Duration

	// MethodLimits maps "scope.method" to an override window.
	MethodLimits map[string]Window

	// VerbLimits maps HTTP verbs to default windows.
	VerbLimits map[string]Window

	// ResourceLimits maps operation classes (read, write, delete, export,
	// bulk) to default windows.
	ResourceLimits map[string]Window

	// Tiers maps conditional tier names (admin, premium, authenticated,
	// anonymous) to their windows.
	Tiers map[string]TierLimit
}

// TierLimit is one rung of the conditional policy ladder.
type TierLimit struct {
	Window   Window
	Adaptive bool
}

// Deps are the engine's external collaborators.
type Deps struct {
	Store      CounterStore   // required
	Scorer     BehaviorScorer // required
	Authorizer Authorizer     // optional; Reset denies everything without it
	Audit      AuditSink      // optional
	Logger     zerolog.Logger
}

// Engine decides whether a given action by a given subject is allowed right
// now, and if not, how long the caller must wait. It keeps no counter state
// of its own; all counting lives in the CounterStore.
type Engine struct {
	store  CounterStore
	scorer BehaviorScorer
	authz  Authorizer
	audit  AuditSink
	cfg    Config
	log    zerolog.Logger
	now    func() time.Time
}

// New validates the collaborators and fills config defaults.
func New(cfg Config, deps Deps) (*Engine, error) {
	if deps.Store == nil {
		return nil, errors.New("counter store is required")
	}
	if deps.Scorer == nil {
		return nil, errors.New("behavior scorer is required")
	}
	return &Engine{
		store:  deps.Store,
		scorer: deps.Scorer,
		authz:  deps.Authorizer,
		audit:  deps.Audit,
		cfg:    withDefaults(cfg),
		log:    deps.Logger,
		now:    time.Now,
	}, nil
}

func withDefaults(cfg Config) Config {
	if cfg.Scope == "" {
		cfg.Scope = "api"
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 60
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}
	if cfg.AbuseThreshold <= 0 {
		cfg.AbuseThreshold = 0.8
	}
	if cfg.AbuseBackoff <= 0 {
		cfg.AbuseBackoff = 5 * time.Minute
	}
	if cfg.VerbLimits == nil {
		cfg.VerbLimits = DefaultVerbLimits()
	}
	if cfg.ResourceLimits == nil {
		cfg.ResourceLimits = DefaultResourceLimits()
	}
	if cfg.Tiers == nil {
		cfg.Tiers = DefaultTiers()
	}
	return cfg
}

// DefaultVerbLimits maps HTTP verbs to windows by how destructive they are.
func DefaultVerbLimits() map[string]Window {
	return map[string]Window{
		"GET":    {MaxAttempts: 100, Window: time.Minute},
		"HEAD":   {MaxAttempts: 100, Window: time.Minute},
		"POST":   {MaxAttempts: 30, Window: time.Minute},
		"PUT":    {MaxAttempts: 30, Window: time.Minute},
		"PATCH":  {MaxAttempts: 30, Window: time.Minute},
		"DELETE": {MaxAttempts: 10, Window: time.Minute},
	}
}

// DefaultResourceLimits maps operation classes to windows.
func DefaultResourceLimits() map[string]Window {
	return map[string]Window{
		"read":   {MaxAttempts: 100, Window: time.Minute},
		"write":  {MaxAttempts: 30, Window: time.Minute},
		"delete": {MaxAttempts: 10, Window: time.Minute},
		"export": {MaxAttempts: 5, Window: 5 * time.Minute},
		"bulk":   {MaxAttempts: 3, Window: 10 * time.Minute},
	}
}

// DefaultTiers is the conditional policy ladder. Admin traffic skips
// behavior scoring; everything else is scored.
func DefaultTiers() map[string]TierLimit {
	return map[string]TierLimit{
		TierAdmin:       {Window: Window{MaxAttempts: 1000, Window: time.Minute}},
		TierPremium:     {Window: Window{MaxAttempts: 200, Window: time.Minute}, Adaptive: true},
		"authenticated": {Window: Window{MaxAttempts: 100, Window: time.Minute}, Adaptive: true},
		"anonymous":     {Window: Window{MaxAttempts: 30, Window: time.Minute}, Adaptive: true},
	}
}

// Evaluate increments the counter for key and decides against w. The
// increment-and-compare is a single store operation, so concurrent callers
// sharing a key cannot race past the limit.
func (e *Engine) Evaluate(ctx context.Context, key string, w Window) (Result, error) {
	count, retryAfter, err := e.store.Increment(ctx, key, w.Window)
	if err != nil {
		return Result{}, fmt.Errorf("counter store increment %s: %w", key, err)
	}
	remaining := w.MaxAttempts - int(count)
	if remaining < 0 {
		remaining = 0
	}
	res := Result{
		Allowed:    count <= int64(w.MaxAttempts),
		Limit:      w.MaxAttempts,
		Remaining:  remaining,
		RetryAfter: retryAfter,
	}
	if !res.Allowed {
		e.log.Debug().
			Str("key", key).
			Int("limit", w.MaxAttempts).
			Dur("retry_after", retryAfter).
			Msg("rate limit exceeded")
	}
	return res, nil
}

// EvaluateAdaptive consults the behavior scorer before counting. Scores over
// the abuse threshold deny outright with the configured backoff; anything
// else falls through to Evaluate. Adaptive mode is therefore never more
// permissive than standard mode.
func (e *Engine) EvaluateAdaptive(ctx context.Context, key string, w Window, meta map[string]string) (Result, error) {
	score, err := e.scorer.Score(ctx, key, meta)
	if err != nil {
		return Result{}, fmt.Errorf("behavior scorer %s: %w", key, err)
	}
	if score > e.cfg.AbuseThreshold {
		e.log.Warn().
			Str("key", key).
			Float64("score", score).
			Float64("threshold", e.cfg.AbuseThreshold).
			Msg("behavior score over abuse threshold")
		return Result{Allowed: false, Limit: w.MaxAttempts, RetryAfter: e.cfg.AbuseBackoff}, nil
	}
	return e.Evaluate(ctx, key, w)
}

func (e *Engine) evaluateWith(ctx context.Context, key string, w Window, adaptive bool, meta map[string]string) (Result, error) {
	if adaptive {
		return e.EvaluateAdaptive(ctx, key, w, meta)
	}
	return e.Evaluate(ctx, key, w)
}

// Reset clears the counter for the given identifier, or for the caller's
// own bucket under action when identifier is empty. Requires
// PermissionReset; every reset is audited.
func (e *Engine) Reset(ctx context.Context, sub Subject, action, identifier string) error {
	if e.authz == nil || !e.authz.Can(ctx, sub, PermissionReset) {
		return ErrUnauthorized
	}
	key := identifier
	if key == "" {
		key = Key(e.cfg.Scope, action, sub)
	}
	if err := e.store.Reset(ctx, key); err != nil {
		return fmt.Errorf("counter store reset %s: %w", key, err)
	}
	if e.audit != nil {
		e.audit.Record(ctx, AuditEvent{
			Actor:  sub.ID(),
			Action: "ratelimit.reset",
			Key:    key,
		})
	}
	e.log.Info().Str("actor", sub.ID()).Str("key", key).Msg("rate limit reset")
	return nil
}

func denial(key string, res Result) error {
	return &LimitExceededError{Key: key, Limit: res.Limit, RetryAfter: res.RetryAfter}
}
