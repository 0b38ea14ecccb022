// v1
// internal/metrics/metrics.go
// Package metrics exposes Prometheus instrumentation for the calculation
// pipeline.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nksrentas/ecotrace/internal/breaker"
)

type Metrics struct {
	registry *prometheus.Registry

	calculations       *prometheus.CounterVec
	calcLatency        prometheus.Histogram
	sourceUnavailable  *prometheus.CounterVec
	breakerTransitions *prometheus.CounterVec
	cacheHits          *prometheus.CounterVec
	cacheMisses        *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		calculations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ecotrace_calculations_total",
			Help: "Completed calculations by activity type and confidence grade.",
		}, []string{"activity_type", "confidence"}),
		calcLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "ecotrace_calculation_duration_seconds",
			Help:    "End-to-end calculation latency.",
			Buckets: prometheus.DefBuckets,
		}),
		sourceUnavailable: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ecotrace_source_unavailable_total",
			Help: "Factor requests that found a source unavailable.",
		}, []string{"source"}),
		breakerTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ecotrace_breaker_transitions_total",
			Help: "Circuit breaker state transitions.",
		}, []string{"name", "state"}),
		cacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ecotrace_cache_hit_total",
			Help: "Cache hits per cache.",
		}, []string{"cache"}),
		cacheMisses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ecotrace_cache_miss_total",
			Help: "Cache misses per cache.",
		}, []string{"cache"}),
	}
	reg.MustRegister(m.calculations, m.calcLatency, m.sourceUnavailable,
		m.breakerTransitions, m.cacheHits, m.cacheMisses)
	return m
}

// Handler serves the exposition endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// CalculationDone implements engine.Observer.
func (m *Metrics) CalculationDone(activityType, confidence string, d time.Duration) {
	m.calculations.WithLabelValues(activityType, confidence).Inc()
	m.calcLatency.Observe(d.Seconds())
}

// SourceUnavailable implements engine.Observer.
func (m *Metrics) SourceUnavailable(name string) {
	m.sourceUnavailable.WithLabelValues(name).Inc()
}

// BreakerTransition is wired into each breaker's OnTransition hook.
func (m *Metrics) BreakerTransition(name string, to breaker.State) {
	m.breakerTransitions.WithLabelValues(name, to.String()).Inc()
}

// CacheHit implements cache.Observer.
func (m *Metrics) CacheHit(name string) { m.cacheHits.WithLabelValues(name).Inc() }

// CacheMiss implements cache.Observer.
func (m *Metrics) CacheMiss(name string) { m.cacheMisses.WithLabelValues(name).Inc() }
