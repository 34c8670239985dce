package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/AlexKimmel/LimitGate/internal/ratelimit"
)

type ctxKey int

const keySubject ctxKey = 0

// Principal is the identity behind one API key.
type Principal struct {
	ID   string
	Tier string // "", "premium", or "admin"
}

// Store is a static in-memory key store: secret -> principal.
type Store struct {
	header   string
	bySecret map[string]Principal
}

// NewStatic creates a new static key store.
// header: HTTP header to read the key from (e.g., "X-API-Key")
func NewStatic(header string, pairs map[string]Principal) *Store {
	h := header
	if h == "" {
		h = "X-API-Key"
	}
	return &Store{header: h, bySecret: pairs}
}

// WithSubject injects the resolved subject into context.
func WithSubject(ctx context.Context, sub ratelimit.Subject) context.Context {
	return context.WithValue(ctx, keySubject, sub)
}

// SubjectFrom extracts the subject from context (if present).
func SubjectFrom(ctx context.Context) (ratelimit.Subject, bool) {
	v := ctx.Value(keySubject)
	if v == nil {
		return ratelimit.Subject{}, false
	}
	sub, ok := v.(ratelimit.Subject)
	return sub, ok
}

// Middleware resolves the caller's subject. Requests without a key proceed
// as anonymous (limited per-IP by downstream policies); requests with an
// unrecognized key are rejected.
func (s *Store) Middleware(skipPaths map[string]struct{}) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		hname := s.header

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := skipPaths[r.URL.Path]; ok {
				next.ServeHTTP(w, r)
				return
			}

			sub := ratelimit.Subject{RemoteAddr: r.RemoteAddr}

			secret := strings.TrimSpace(r.Header.Get(hname))
			if secret != "" {
				p, ok := s.bySecret[secret]
				if !ok {
					writeJSON(w, http.StatusUnauthorized, "invalid_api_key", "API key not recognized")
					return
				}
				sub.UserID = p.ID
				sub.Tier = p.Tier
			}

			ctx := WithSubject(r.Context(), sub)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// TierAuthorizer grants administrative permissions to admin-tier subjects.
type TierAuthorizer struct{}

func (TierAuthorizer) Can(_ context.Context, sub ratelimit.Subject, _ string) bool {
	return sub.Tier == ratelimit.TierAdmin
}

func writeJSON(w http.ResponseWriter, code int, errCode, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write([]byte(`{"error":{"code":"` + errCode + `","message":"` + msg + `"}}`))
}
