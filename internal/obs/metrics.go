package obs

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/AlexKimmel/LimitGate/internal/ratelimit"
)

type Metrics struct {
	DecisionsTotal *prometheus.CounterVec
	RateLimited    *prometheus.CounterVec
	LimiterErrors  *prometheus.CounterVec
	BehaviorScore  prometheus.Histogram
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		DecisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "limitgate_decisions_total",
				Help: "Rate limit decisions by action and outcome",
			},
			[]string{"action", "outcome"},
		),
		RateLimited: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "limitgate_rate_limited_total",
				Help: "Total requests rejected due to rate limiting",
			},
			[]string{"action"},
		),
		LimiterErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "limitgate_limiter_errors_total",
				Help: "Total rate limiter infrastructure errors",
			},
			[]string{"action"},
		),
		BehaviorScore: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "limitgate_behavior_score",
				Help:    "Behavior scores observed by adaptive evaluations",
				Buckets: prometheus.LinearBuckets(0, 0.1, 11),
			},
		),
	}

	reg.MustRegister(m.DecisionsTotal, m.RateLimited, m.LimiterErrors, m.BehaviorScore)
	return m
}

// OnLimited and OnError adapt the counters to the gateway middleware's
// callback hooks.
func (m *Metrics) OnLimited(action string) {
	m.RateLimited.WithLabelValues(action).Inc()
	m.DecisionsTotal.WithLabelValues(action, "denied").Inc()
}

func (m *Metrics) OnError(action string) {
	m.LimiterErrors.WithLabelValues(action).Inc()
}

func (m *Metrics) OnAllowed(action string) {
	m.DecisionsTotal.WithLabelValues(action, "allowed").Inc()
}

// ObserveScorer wraps a scorer so every score lands in the histogram.
func (m *Metrics) ObserveScorer(inner ratelimit.BehaviorScorer) ratelimit.BehaviorScorer {
	return &observedScorer{inner: inner, hist: m.BehaviorScore}
}

type observedScorer struct {
	inner ratelimit.BehaviorScorer
	hist  prometheus.Histogram
}

func (s *observedScorer) Score(ctx context.Context, key string, meta map[string]string) (float64, error) {
	v, err := s.inner.Score(ctx, key, meta)
	if err == nil {
		s.hist.Observe(v)
	}
	return v, err
}
