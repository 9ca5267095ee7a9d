package http

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus instruments exposed on /metrics. Each
// server instance carries its own registry.
type Metrics struct {
	registry *prometheus.Registry

	gateDecisions *prometheus.CounterVec
	httpRequests  *prometheus.CounterVec
}

// NewMetrics creates the server's metric set on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		gateDecisions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sessiond_gate_decisions_total",
			Help: "Tool gate decisions served over the API, by outcome and reason.",
		}, []string{"outcome", "reason"}),
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sessiond_http_requests_total",
			Help: "HTTP requests, by method, endpoint and status code.",
		}, []string{"method", "endpoint", "status"}),
	}
}

// Registry exposes the underlying registry for the /metrics handler.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// RecordDecision counts one gate decision.
func (m *Metrics) RecordDecision(outcome, reason string) {
	if reason == "" {
		reason = "none"
	}
	m.gateDecisions.WithLabelValues(outcome, reason).Inc()
}

// RecordRequest counts one served HTTP request.
func (m *Metrics) RecordRequest(method, endpoint, status string) {
	m.httpRequests.WithLabelValues(method, endpoint, status).Inc()
}
