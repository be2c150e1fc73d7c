// Package metrics defines the Prometheus metric collectors used by the
// compiler service and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the service.
type Metrics struct {
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge
	CompilesTotal        *prometheus.CounterVec
	CompileLatency       *prometheus.HistogramVec
	CompileErrorsTotal   *prometheus.CounterVec
	AdvisoriesTotal      prometheus.Counter
	CacheHitsTotal       prometheus.Counter
	CacheMissesTotal     prometheus.Counter
	AuditEventsTotal     *prometheus.CounterVec
	FieldsConfigured     prometheus.Gauge
	CircuitBreakerState  *prometheus.GaugeVec

	gatherer prometheus.Gatherer
}

// New creates the collectors and registers them on reg. A nil reg uses the
// default registry.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed.",
			},
		),
		CompilesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "brs_compiles_total",
				Help: "Total criteria compilations by mode (criteria, proximity, contains, grouped) and result (ok, error, cached).",
			},
			[]string{"mode", "result"},
		),
		CompileLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "brs_compile_latency_seconds",
				Help:    "Criteria compilation latency in seconds.",
				Buckets: []float64{0.00005, 0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.05},
			},
			[]string{"endpoint"},
		),
		CompileErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "brs_compile_errors_total",
				Help: "Rejected criteria by error kind.",
			},
			[]string{"kind"},
		),
		AdvisoriesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "brs_advisories_total",
				Help: "Advisories returned with successful compilations.",
			},
		),
		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cache_hits_total",
				Help: "Total number of cache hits.",
			},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cache_misses_total",
				Help: "Total number of cache misses.",
			},
		),
		AuditEventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "brs_audit_events_total",
				Help: "Compile audit events by status (published, dropped, failed).",
			},
			[]string{"status"},
		),
		FieldsConfigured: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "brs_fields_configured",
				Help: "Number of fields accepted by grouped criteria.",
			},
		),
		CircuitBreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "circuit_breaker_state",
				Help: "Circuit breaker state (0=closed, 1=open, 2=half-open).",
			},
			[]string{"name"},
		),
		gatherer: prometheus.DefaultGatherer,
	}

	if reg == nil {
		reg = prometheus.DefaultRegisterer
	} else if g, ok := reg.(prometheus.Gatherer); ok {
		m.gatherer = g
	}
	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.CompilesTotal,
		m.CompileLatency,
		m.CompileErrorsTotal,
		m.AdvisoriesTotal,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.AuditEventsTotal,
		m.FieldsConfigured,
		m.CircuitBreakerState,
	)

	return m
}

// Handler returns the Prometheus scrape HTTP handler for the registry the
// metrics were registered on.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
