package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusMetrics implements the Metrics interface using Prometheus.
type PrometheusMetrics struct {
	registry *prometheus.Registry

	// Transition metrics
	transitionsExecuted *prometheus.CounterVec
	transitionsFailed   *prometheus.CounterVec
	transitionDuration  *prometheus.HistogramVec

	// Record metrics
	recordsCreated prometheus.Counter
	recordsSpent   prometheus.Counter

	// Finalize metrics
	finalizeApplied  *prometheus.CounterVec
	finalizeFailed   *prometheus.CounterVec
	finalizeDuration *prometheus.HistogramVec

	// Mapping state metrics
	mappingVersion prometheus.Gauge
}

// NewPrometheusMetrics creates a new PrometheusMetrics instance.
func NewPrometheusMetrics(namespace string) *PrometheusMetrics {
	registry := prometheus.NewRegistry()

	m := &PrometheusMetrics{
		registry: registry,

		transitionsExecuted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "transitions_executed_total",
				Help:      "Total number of successfully executed transitions",
			},
			[]string{"program", "transition"},
		),
		transitionsFailed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "transitions_failed_total",
				Help:      "Total number of failed transitions by error kind",
			},
			[]string{"program", "transition", "error_kind"},
		),
		transitionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "transition_duration_seconds",
				Help:      "Transition execution duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"program", "transition"},
		),
		recordsCreated: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "records_created_total",
				Help:      "Total number of records created",
			},
		),
		recordsSpent: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "records_spent_total",
				Help:      "Total number of records spent",
			},
		),
		finalizeApplied: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "finalize_applied_total",
				Help:      "Total number of finalize calls applied",
			},
			[]string{"program"},
		),
		finalizeFailed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "finalize_failed_total",
				Help:      "Total number of failed finalize calls by error kind",
			},
			[]string{"program", "error_kind"},
		),
		finalizeDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "finalize_duration_seconds",
				Help:      "Finalize execution duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"program"},
		),
		mappingVersion: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "mapping_state_version",
				Help:      "Latest committed mapping state version",
			},
		),
	}

	registry.MustRegister(
		m.transitionsExecuted,
		m.transitionsFailed,
		m.transitionDuration,
		m.recordsCreated,
		m.recordsSpent,
		m.finalizeApplied,
		m.finalizeFailed,
		m.finalizeDuration,
		m.mappingVersion,
	)

	return m
}

var _ Metrics = (*PrometheusMetrics)(nil)

// Handler returns an HTTP handler for the metrics endpoint.
func (m *PrometheusMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying Prometheus registry.
func (m *PrometheusMetrics) Registry() *prometheus.Registry {
	return m.registry
}

// Transition metrics

func (m *PrometheusMetrics) IncTransitionsExecuted(program, transition string) {
	m.transitionsExecuted.WithLabelValues(program, transition).Inc()
}

func (m *PrometheusMetrics) IncTransitionsFailed(program, transition, errorKind string) {
	m.transitionsFailed.WithLabelValues(program, transition, errorKind).Inc()
}

func (m *PrometheusMetrics) ObserveTransitionDuration(program, transition string, d time.Duration) {
	m.transitionDuration.WithLabelValues(program, transition).Observe(d.Seconds())
}

// Record metrics

func (m *PrometheusMetrics) IncRecordsCreated(count int) {
	m.recordsCreated.Add(float64(count))
}

func (m *PrometheusMetrics) IncRecordsSpent(count int) {
	m.recordsSpent.Add(float64(count))
}

// Finalize metrics

func (m *PrometheusMetrics) IncFinalizeApplied(program string) {
	m.finalizeApplied.WithLabelValues(program).Inc()
}

func (m *PrometheusMetrics) IncFinalizeFailed(program, errorKind string) {
	m.finalizeFailed.WithLabelValues(program, errorKind).Inc()
}

func (m *PrometheusMetrics) ObserveFinalizeDuration(program string, d time.Duration) {
	m.finalizeDuration.WithLabelValues(program).Observe(d.Seconds())
}

// Mapping state metrics

func (m *PrometheusMetrics) SetMappingVersion(version int64) {
	m.mappingVersion.Set(float64(version))
}
