package main

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/AlexKimmel/LimitGate/internal/auth"
	"github.com/AlexKimmel/LimitGate/internal/gateway"
	"github.com/AlexKimmel/LimitGate/internal/obs"
	"github.com/AlexKimmel/LimitGate/internal/ratelimit"
)

// apiHandlers are demo endpoints; each one drives a different engine
// policy. The conditional tier policy already ran in the middleware.
type apiHandlers struct {
	eng     *ratelimit.Engine
	metrics *obs.Metrics
}

func (h *apiHandlers) subject(r *http.Request) ratelimit.Subject {
	if sub, ok := auth.SubjectFrom(r.Context()); ok {
		return sub
	}
	return ratelimit.Subject{RemoteAddr: r.RemoteAddr}
}

// allow runs a policy call and writes the error response on denial.
func (h *apiHandlers) allow(w http.ResponseWriter, action string, err error) bool {
	if err != nil {
		if ratelimit.IsLimitExceeded(err) {
			h.metrics.OnLimited(action)
		} else if !ratelimit.IsRiskTooHigh(err) && !errors.Is(err, ratelimit.ErrUnauthorized) {
			h.metrics.OnError(action)
		}
		gateway.WriteError(w, err)
		return false
	}
	h.metrics.OnAllowed(action)
	return true
}

func (h *apiHandlers) listItems(w http.ResponseWriter, r *http.Request) {
	sub := h.subject(r)
	if !h.allow(w, "items:read", h.eng.AllowResource(r.Context(), sub, "items", "read", ratelimit.Options{})) {
		return
	}
	ok(w)
}

func (h *apiHandlers) createItem(w http.ResponseWriter, r *http.Request) {
	sub := h.subject(r)
	if !h.allow(w, "items:write", h.eng.AllowResource(r.Context(), sub, "items", "write", ratelimit.Options{})) {
		return
	}
	ok(w)
}

func (h *apiHandlers) deleteItem(w http.ResponseWriter, r *http.Request) {
	sub := h.subject(r)
	// irreversible: gate on behavior first, then the delete budget
	if !h.allow(w, "items:delete", h.eng.RequireLowRisk(r.Context(), sub, 0.6, "items.delete")) {
		return
	}
	if !h.allow(w, "items:delete", h.eng.AllowResource(r.Context(), sub, "items", "delete", ratelimit.Options{})) {
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"ok":true,"deleted":"` + chi.URLParam(r, "id") + `"}`))
}

func (h *apiHandlers) exportItems(w http.ResponseWriter, r *http.Request) {
	sub := h.subject(r)
	if !h.allow(w, "items:export", h.eng.AllowResource(r.Context(), sub, "items", "export", ratelimit.Options{})) {
		return
	}
	ok(w)
}

func (h *apiHandlers) search(w http.ResponseWriter, r *http.Request) {
	sub := h.subject(r)
	if !h.allow(w, "search", h.eng.AllowBurst(r.Context(), sub, "search", 10, 60, time.Minute)) {
		return
	}
	ok(w)
}

func (h *apiHandlers) bulkImport(w http.ResponseWriter, r *http.Request) {
	sub := h.subject(r)
	levels := []ratelimit.Level{
		{Name: "ip", Window: ratelimit.Window{MaxAttempts: 5, Window: 10 * time.Minute}},
		{Name: "user", Window: ratelimit.Window{MaxAttempts: 3, Window: 10 * time.Minute}, Adaptive: true},
		{Name: "global", Window: ratelimit.Window{MaxAttempts: 100, Window: 10 * time.Minute}},
	}
	if !h.allow(w, "bulk", h.eng.AllowMultiLevel(r.Context(), sub, "bulk", levels)) {
		return
	}
	ok(w)
}

func (h *apiHandlers) resetLimits(w http.ResponseWriter, r *http.Request) {
	sub := h.subject(r)
	key := r.URL.Query().Get("key")
	action := r.URL.Query().Get("action")
	if err := h.eng.Reset(r.Context(), sub, action, key); err != nil {
		gateway.WriteError(w, err)
		return
	}
	ok(w)
}

func ok(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"ok":true}`))
}
