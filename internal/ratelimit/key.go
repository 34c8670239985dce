package ratelimit

import "net"

// Subject tiers recognized by the conditional policy. A subject with an
// empty tier is "authenticated" when it has a user ID and "anonymous"
// otherwise.
const (
	TierAdmin   = "admin"
	TierPremium = "premium"
)

// Subject identifies who is performing an action.
type Subject struct {
	UserID     string
	RemoteAddr string
	Tier       string
}

// Authenticated reports whether the subject carries a user identity.
func (s Subject) Authenticated() bool { return s.UserID != "" }

// ID is the identity used in counting buckets: the user ID when
// authenticated, else the client address, else "anon". Separating the two
// keeps anonymous traffic limited per-IP and signed-in traffic per-user.
func (s Subject) ID() string {
	if s.UserID != "" {
		return s.UserID
	}
	if s.RemoteAddr != "" {
		return hostOnly(s.RemoteAddr)
	}
	return "anon"
}

// Key derives the counting bucket for one action by one subject. Two calls
// with the same key share counter state; distinct actions never collide.
func Key(scope, action string, sub Subject) string {
	return scope + ":" + action + ":" + sub.ID()
}

func hostOnly(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}
