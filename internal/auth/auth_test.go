package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/AlexKimmel/LimitGate/internal/ratelimit"
)

func subjectCapture(got *ratelimit.Subject) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if sub, ok := SubjectFrom(r.Context()); ok {
			*got = sub
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestMiddleware_ResolvesKeyToSubject(t *testing.T) {
	store := NewStatic("X-API-Key", map[string]Principal{
		"s3cret": {ID: "alice", Tier: ratelimit.TierAdmin},
	})

	var got ratelimit.Subject
	h := store.Middleware(nil)(subjectCapture(&got))

	req := httptest.NewRequest(http.MethodGet, "/api/items", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	req.Header.Set("X-API-Key", "s3cret")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got.UserID != "alice" || got.Tier != ratelimit.TierAdmin {
		t.Fatalf("subject = %+v", got)
	}
	if got.RemoteAddr != "10.0.0.1:1234" {
		t.Fatalf("remote addr = %q", got.RemoteAddr)
	}
}

func TestMiddleware_MissingKeyIsAnonymous(t *testing.T) {
	store := NewStatic("", nil)

	var got ratelimit.Subject
	h := store.Middleware(nil)(subjectCapture(&got))

	req := httptest.NewRequest(http.MethodGet, "/api/items", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, anonymous traffic must pass through", rec.Code)
	}
	if got.Authenticated() {
		t.Fatalf("subject should be anonymous, got %+v", got)
	}
	if got.ID() != "10.0.0.1" {
		t.Fatalf("anonymous identity = %q, want client IP", got.ID())
	}
}

func TestMiddleware_UnknownKeyRejected(t *testing.T) {
	store := NewStatic("X-API-Key", map[string]Principal{"s3cret": {ID: "alice"}})
	h := store.Middleware(nil)(subjectCapture(&ratelimit.Subject{}))

	req := httptest.NewRequest(http.MethodGet, "/api/items", nil)
	req.Header.Set("X-API-Key", "wrong")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestMiddleware_SkipPaths(t *testing.T) {
	store := NewStatic("X-API-Key", map[string]Principal{"s3cret": {ID: "alice"}})
	skip := map[string]struct{}{"/health": {}}
	h := store.Middleware(skip)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-API-Key", "wrong")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, skip paths must bypass auth", rec.Code)
	}
}

func TestTierAuthorizer(t *testing.T) {
	authz := TierAuthorizer{}
	ctx := context.Background()

	if !authz.Can(ctx, ratelimit.Subject{UserID: "root", Tier: ratelimit.TierAdmin}, ratelimit.PermissionReset) {
		t.Fatal("admin should hold reset permission")
	}
	if authz.Can(ctx, ratelimit.Subject{UserID: "bob", Tier: ratelimit.TierPremium}, ratelimit.PermissionReset) {
		t.Fatal("premium must not hold reset permission")
	}
	if authz.Can(ctx, ratelimit.Subject{}, ratelimit.PermissionReset) {
		t.Fatal("anonymous must not hold reset permission")
	}
}
