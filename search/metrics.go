package search

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics records source requests.
type Metrics struct {
	// Requests counts source lookups by outcome: "success", "error" or "cache_hit".
	Requests *prometheus.CounterVec

	// Results counts candidates returned per source.
	Results *prometheus.CounterVec
}

// NewMetrics registers search metrics with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Requests: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "semcoach",
				Subsystem: "search",
				Name:      "requests_total",
				Help:      "Search source lookups by source and outcome",
			},
			[]string{"source", "outcome"},
		),
		Results: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "semcoach",
				Subsystem: "search",
				Name:      "results_total",
				Help:      "Candidates returned by source",
			},
			[]string{"source"},
		),
	}
}

func (m *Metrics) record(source, outcome string, results int) {
	if m == nil {
		return
	}
	m.Requests.WithLabelValues(source, outcome).Inc()
	if results > 0 {
		m.Results.WithLabelValues(source).Add(float64(results))
	}
}
