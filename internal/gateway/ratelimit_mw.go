package gateway

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/AlexKimmel/LimitGate/internal/auth"
	"github.com/AlexKimmel/LimitGate/internal/ratelimit"
)

// RateLimit applies the tiered conditional policy to every request and
// decorates responses with X-RateLimit headers. action names the bucket;
// per-endpoint policies run inside the handlers themselves.
func RateLimit(
	eng *ratelimit.Engine,
	action string,
	skipPaths map[string]struct{},
	onLimited func(action string),
	onError func(action string),
) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// allow ops endpoints without limits
			if _, ok := skipPaths[r.URL.Path]; ok {
				next.ServeHTTP(w, r)
				return
			}

			sub, ok := auth.SubjectFrom(r.Context())
			if !ok {
				sub = ratelimit.Subject{RemoteAddr: r.RemoteAddr}
			}

			err := eng.AllowConditional(r.Context(), sub, action)
			if err != nil && !ratelimit.IsLimitExceeded(err) {
				if onError != nil {
					onError(action)
				}
				writeJSON(w, http.StatusInternalServerError, "rate_limiter_error", "internal rate limiter error")
				return
			}

			// headers for good DX; a Peek, never an increment
			_, tl := eng.TierFor(sub)
			opts := ratelimit.Limit(tl.Window.MaxAttempts, tl.Window.Window)
			if hdrs, herr := eng.Headers(r.Context(), sub, action, opts); herr == nil {
				w.Header().Set("X-RateLimit-Limit", strconv.Itoa(hdrs.Limit))
				w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(hdrs.Remaining))
				w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(hdrs.ResetEpoch, 10))
				w.Header().Set("X-RateLimit-Policy", hdrs.Policy)
			}

			if err != nil {
				if onLimited != nil {
					onLimited(action)
				}
				WriteError(w, err)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// WriteError translates engine errors to HTTP responses. Denials become
// 429 with Retry-After, missing identity 401, behavior-score blocks 403,
// anything else (store or scorer failure) 500 — never a silent allow.
func WriteError(w http.ResponseWriter, err error) {
	var le *ratelimit.LimitExceededError
	if errors.As(err, &le) {
		w.Header().Set("Retry-After", strconv.Itoa(int(le.RetryAfter.Seconds())))
		writeJSON(w, http.StatusTooManyRequests, "rate_limited", "Too many requests")
		return
	}
	if errors.Is(err, ratelimit.ErrUnauthorized) {
		writeJSON(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
		return
	}
	if ratelimit.IsRiskTooHigh(err) {
		writeJSON(w, http.StatusForbidden, "behavior_blocked", "Operation blocked for this account")
		return
	}
	writeJSON(w, http.StatusInternalServerError, "rate_limiter_error", "internal rate limiter error")
}

// local tiny JSON helper to avoid coupling to auth package
func writeJSON(w http.ResponseWriter, code int, errCode, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write([]byte(`{"error":{"code":"` + errCode + `","message":"` + msg + `"}}`))
}
