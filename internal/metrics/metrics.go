// Package metrics exposes Prometheus collectors for the dashboard backend.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Fetch outcomes.
const (
	OutcomeOK        = "ok"
	OutcomeNetwork   = "network_error"
	OutcomeMalformed = "malformed"
	OutcomeCache     = "cache_hit"
)

// Metrics groups the collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry      *prometheus.Registry
	fetches       *prometheus.CounterVec
	fetchDuration prometheus.Histogram
	records       prometheus.Gauge
	overrides     *prometheus.CounterVec
	gridSessions  prometheus.Gauge
}

// New creates and registers the collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "carrierdash",
			Name:      "source_fetches_total",
			Help:      "Upstream record fetches by outcome.",
		}, []string{"outcome"}),
		fetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "carrierdash",
			Name:      "source_fetch_duration_seconds",
			Help:      "Duration of upstream record fetches.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
		records: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "carrierdash",
			Name:      "source_records",
			Help:      "Records in the most recent snapshot.",
		}),
		overrides: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "carrierdash",
			Name:      "chart_override_operations_total",
			Help:      "Manual chart override operations.",
		}, []string{"op"}),
		gridSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "carrierdash",
			Name:      "grid_sessions",
			Help:      "Open grid view sessions.",
		}),
	}
	reg.MustRegister(
		m.fetches,
		m.fetchDuration,
		m.records,
		m.overrides,
		m.gridSessions,
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveFetch records one upstream fetch.
func (m *Metrics) ObserveFetch(outcome string, d time.Duration, records int) {
	if m == nil {
		return
	}
	m.fetches.WithLabelValues(outcome).Inc()
	if outcome != OutcomeCache {
		m.fetchDuration.Observe(d.Seconds())
	}
	m.records.Set(float64(records))
}

// OverrideOp counts an override operation ("set", "clear", "clear_all").
func (m *Metrics) OverrideOp(op string) {
	if m == nil {
		return
	}
	m.overrides.WithLabelValues(op).Inc()
}

// SetGridSessions reports the number of open grid sessions.
func (m *Metrics) SetGridSessions(n int) {
	if m == nil {
		return
	}
	m.gridSessions.Set(float64(n))
}

// Registry returns the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
