// Package metrics holds the prometheus collectors of the gateway.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Sign-in outcomes
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeError   = "error"
)

// Metrics owns a dedicated registry so tests and multiple gateways in one
// process never collide on the default one.
type Metrics struct {
	registry         *prometheus.Registry
	signIns          *prometheus.CounterVec
	upstreamRequests *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
}

// New creates and registers the gateway collectors
func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		signIns: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_signin_total",
			Help: "Sign-in attempts by strategy and outcome",
		}, []string{"strategy", "outcome"}),
		upstreamRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_upstream_requests_total",
			Help: "Requests sent to the upstream API by operation and status",
		}, []string{"operation", "status"}),
		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gateway_http_request_duration_seconds",
			Help:    "Latency of gateway HTTP requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

// ObserveSignIn counts a sign-in attempt
func (m *Metrics) ObserveSignIn(strategy, outcome string) {
	m.signIns.WithLabelValues(strategy, outcome).Inc()
}

// ObserveUpstream counts an upstream round trip; status 0 is a transport error
func (m *Metrics) ObserveUpstream(operation string, status int) {
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	m.upstreamRequests.WithLabelValues(operation, label).Inc()
}

// ObserveRequest records the latency of a request to a route pattern
func (m *Metrics) ObserveRequest(method, route string, d time.Duration) {
	m.requestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// Handler serves the registry in the prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
