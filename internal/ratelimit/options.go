package ratelimit

import "time"

// Options overrides configured defaults for a single evaluation. Nil fields
// fall back in order: explicit value, per-method override, HTTP-verb
// default, global default.
type Options struct {
	MaxAttempts *int
	Window      *time.Duration
	Adaptive    *bool
}

// Attempts returns an Options with only the attempt count set.
func Attempts(n int) Options { return Options{MaxAttempts: &n} }

// Limit returns an Options with both window fields set.
func Limit(attempts int, window time.Duration) Options {
	return Options{MaxAttempts: &attempts, Window: &window}
}

// NonAdaptive returns a copy of o with adaptive scoring disabled.
func (o Options) NonAdaptive() Options {
	f := false
	o.Adaptive = &f
	return o
}

// resolveWindow applies the default-resolution ladder. method and verb may
// be empty; the matching rungs are skipped.
func (e *Engine) resolveWindow(opts Options, scope, method, verb string) Window {
	w := Window{MaxAttempts: e.cfg.MaxAttempts, Window: e.cfg.Window}
	if verb != "" {
		if vw, ok := e.cfg.VerbLimits[verb]; ok {
			w = vw
		}
	}
	if method != "" {
		if mw, ok := e.cfg.MethodLimits[scope+"."+method]; ok {
			w = mw
		}
	}
	if opts.MaxAttempts != nil {
		w.MaxAttempts = *opts.MaxAttempts
	}
	if opts.Window != nil {
		w.Window = *opts.Window
	}
	return w
}

func (e *Engine) resolveAdaptive(opts Options) bool {
	if opts.Adaptive != nil {
		return *opts.Adaptive
	}
	return e.cfg.Adaptive
}
