package ratelimit

import (
	"errors"
	"fmt"
	"time"
)

// PermissionReset must be granted by the Authorizer before Reset clears a
// counter.
const PermissionReset = "ratelimit.reset"

// ErrUnauthorized indicates a missing authenticated subject, or a subject
// without the permission an administrative operation requires.
var ErrUnauthorized = errors.New("unauthorized")

// LimitExceededError is returned when a policy denies a call. RetryAfter
// tells the caller how long to back off.
type LimitExceededError struct {
	Key        string
	Limit      int
	RetryAfter time.Duration
}

func (e *LimitExceededError) Error() string {
	return fmt.Sprintf("rate limit exceeded for %s (limit %d): retry after %s", e.Key, e.Limit, e.RetryAfter)
}

// IsLimitExceeded reports whether err is a rate limit denial.
func IsLimitExceeded(err error) bool {
	var le *LimitExceededError
	return errors.As(err, &le)
}

// RiskTooHighError is returned when a subject's behavior score exceeds the
// ceiling for a sensitive operation.
type RiskTooHighError struct {
	Operation string
	Score     float64
	MaxScore  float64
}

func (e *RiskTooHighError) Error() string {
	return fmt.Sprintf("behavior score %.2f exceeds %.2f for %s", e.Score, e.MaxScore, e.Operation)
}

// IsRiskTooHigh reports whether err is a behavior-score denial.
func IsRiskTooHigh(err error) bool {
	var re *RiskTooHighError
	return errors.As(err, &re)
}
