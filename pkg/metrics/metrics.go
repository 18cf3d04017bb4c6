// Package metrics exposes Prometheus collectors for the identification and
// recommendation pipeline. A nil *Metrics is valid and records nothing so
// components can be used without a registry in tests and in the CLI.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels shared by the counters.
const (
	OutcomeMatch    = "match"
	OutcomeNoMatch  = "no_match"
	OutcomeTooLong  = "too_long"
	OutcomeError    = "error"
	OutcomeOK       = "ok"
	OutcomeNotFound = "not_found"
)

// Metrics bundles the collectors registered by New.
type Metrics struct {
	Identify        *prometheus.CounterVec
	CatalogRequests *prometheus.CounterVec
	Upstream        *prometheus.HistogramVec
	SessionsActive  prometheus.Gauge

	gatherer prometheus.Gatherer
}

// New creates the collectors and registers them with reg. Passing a fresh
// prometheus.NewRegistry keeps tests isolated from the global registry.
func New(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		Identify: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "songrec_identify_total",
			Help: "Identification requests by outcome.",
		}, []string{"outcome"}),
		CatalogRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "songrec_catalog_requests_total",
			Help: "Catalog API calls by operation and outcome.",
		}, []string{"op", "outcome"}),
		Upstream: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "songrec_upstream_duration_seconds",
			Help:    "Latency of calls to upstream services.",
			Buckets: prometheus.DefBuckets,
		}, []string{"service"}),
		SessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "songrec_sessions_active",
			Help: "Recording sessions currently tracked by the server.",
		}),
		gatherer: reg,
	}
	reg.MustRegister(m.Identify, m.CatalogRequests, m.Upstream, m.SessionsActive)
	return m
}

// ObserveIdentify counts one identification with the given outcome.
func (m *Metrics) ObserveIdentify(outcome string) {
	if m == nil {
		return
	}
	m.Identify.WithLabelValues(outcome).Inc()
}

// ObserveCatalog counts one catalog call.
func (m *Metrics) ObserveCatalog(op, outcome string) {
	if m == nil {
		return
	}
	m.CatalogRequests.WithLabelValues(op, outcome).Inc()
}

// Since records the time elapsed since start for service.
func (m *Metrics) Since(service string, start time.Time) {
	if m == nil {
		return
	}
	m.Upstream.WithLabelValues(service).Observe(time.Since(start).Seconds())
}

// SessionOpened and SessionClosed track the active session gauge.
func (m *Metrics) SessionOpened() {
	if m != nil {
		m.SessionsActive.Inc()
	}
}

func (m *Metrics) SessionClosed() {
	if m != nil {
		m.SessionsActive.Dec()
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil || m.gatherer == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
