// Package metrics expõe os coletores Prometheus do gatekeeper.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	OutcomeExempt        = "exempt"
	OutcomeAllowed       = "allowed"
	OutcomeBlockedClient = "blocked_client"
	OutcomeInvalidOrigin = "invalid_origin"
	OutcomeRateLimited   = "rate_limited"
	OutcomeInternalError = "internal_error"
)

type Metrics struct {
	Decisions       *prometheus.CounterVec
	RequestCount    *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

func New() *Metrics {
	return &Metrics{
		Decisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "coachgate",
				Name:      "gatekeeper_decisions_total",
				Help:      "Gatekeeper decisions by outcome.",
			},
			[]string{"outcome"},
		),
		RequestCount: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests.",
			},
			[]string{"method", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "status"},
		),
	}
}

func (m *Metrics) Register(registry prometheus.Registerer) {
	registry.MustRegister(m.Decisions, m.RequestCount, m.RequestDuration)
}

// ObserveDecision aceita receiver nil para que o middleware funcione sem métricas.
func (m *Metrics) ObserveDecision(outcome string) {
	if m == nil {
		return
	}
	m.Decisions.WithLabelValues(outcome).Inc()
}

func Handler(registry *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
