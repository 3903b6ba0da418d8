package llm

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics records completion attempts per provider.
type Metrics struct {
	// Attempts counts provider attempts by outcome ("success" or a Classification).
	Attempts *prometheus.CounterVec

	// AttemptDuration measures single provider attempts.
	AttemptDuration *prometheus.HistogramVec

	// Exhausted counts calls that failed on every provider or found none configured.
	Exhausted *prometheus.CounterVec
}

// NewMetrics registers completion metrics with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Attempts: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "semcoach",
				Subsystem: "llm",
				Name:      "attempts_total",
				Help:      "Completion attempts by provider and outcome",
			},
			[]string{"provider", "outcome"},
		),
		AttemptDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "semcoach",
				Subsystem: "llm",
				Name:      "attempt_duration_seconds",
				Help:      "Duration of single provider attempts in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"provider"},
		),
		Exhausted: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "semcoach",
				Subsystem: "llm",
				Name:      "exhausted_total",
				Help:      "Completions that no provider could serve",
			},
			[]string{"reason"},
		),
	}
}

func (m *Metrics) recordAttempt(provider ProviderID, outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.Attempts.WithLabelValues(string(provider), outcome).Inc()
	m.AttemptDuration.WithLabelValues(string(provider)).Observe(seconds)
}

func (m *Metrics) recordExhausted(reason string) {
	if m == nil {
		return
	}
	m.Exhausted.WithLabelValues(reason).Inc()
}
