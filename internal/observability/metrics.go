package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"plotrisk/internal/types"
)

const namespace = "plotrisk"

// Metrics holds the Prometheus collectors for evaluation, ingestion and HTTP.
type Metrics struct {
	Evaluations    *prometheus.CounterVec // labels: mode, status
	RiskEvents     *prometheus.CounterVec // labels: disease, level
	IngestAttempts *prometheus.CounterVec // labels: outcome={ok,error}
	WeatherCache   *prometheus.CounterVec // labels: provider, result={hit,miss}

	BatchRuns     *prometheus.CounterVec // labels: task
	BatchDuration *prometheus.HistogramVec
	BatchErrors   *prometheus.CounterVec

	HTTPRequests *prometheus.CounterVec   // labels: method, route, status
	HTTPDuration *prometheus.HistogramVec // labels: route
}

func newMetrics() *Metrics {
	return &Metrics{
		Evaluations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "evaluations_total",
			Help:      "Plot evaluations by mode and terminal status.",
		}, []string{"mode", "status"}),
		RiskEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "risk_events_written_total",
			Help:      "Risk events upserted by disease and severity.",
		}, []string{"disease", "level"}),
		IngestAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_attempts_total",
			Help:      "On-demand forecast ingestions triggered by evaluation.",
		}, []string{"outcome"}),
		WeatherCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "weather_cache_lookups_total",
			Help:      "Weather provider cache lookups by result.",
		}, []string{"provider", "result"}),
		BatchRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batch_runs_total",
			Help:      "Completed batch runs by task.",
		}, []string{"task"}),
		BatchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_duration_seconds",
			Help:      "Wall time of a batch run.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
		}, []string{"task"}),
		BatchErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batch_plot_errors_total",
			Help:      "Plots that failed inside a batch run.",
		}, []string{"task"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route pattern and status.",
		}, []string{"method", "route", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route pattern.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.Evaluations,
		m.RiskEvents,
		m.IngestAttempts,
		m.WeatherCache,
		m.BatchRuns,
		m.BatchDuration,
		m.BatchErrors,
		m.HTTPRequests,
		m.HTTPDuration,
	}
}

// NewMetrics creates the collectors and registers them with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(m.collectors()...)
	return m
}

// NewMetricsForTesting creates Metrics that are not registered anywhere, so
// tests can build as many as they like.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

// EvaluationCompleted counts one finished plot evaluation.
func (m *Metrics) EvaluationCompleted(mode types.Mode, status string) {
	m.Evaluations.WithLabelValues(string(mode), status).Inc()
}

// RiskEventWritten counts one persisted risk event.
func (m *Metrics) RiskEventWritten(disease types.Disease, level types.Severity) {
	m.RiskEvents.WithLabelValues(string(disease), string(level)).Inc()
}

// IngestAttempted counts one on-demand ingestion.
func (m *Metrics) IngestAttempted(outcome string) {
	m.IngestAttempts.WithLabelValues(outcome).Inc()
}

// CacheLookup counts one weather cache lookup.
func (m *Metrics) CacheLookup(provider string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.WeatherCache.WithLabelValues(provider, result).Inc()
}

// BatchFinished records a completed batch run.
func (m *Metrics) BatchFinished(task string, d time.Duration, plotErrors int) {
	m.BatchRuns.WithLabelValues(task).Inc()
	m.BatchDuration.WithLabelValues(task).Observe(d.Seconds())
	if plotErrors > 0 {
		m.BatchErrors.WithLabelValues(task).Add(float64(plotErrors))
	}
}

// ObserveHTTP records a served request. route is the chi route pattern, not
// the raw path, to keep label cardinality bounded.
func (m *Metrics) ObserveHTTP(method, route string, status int, d time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabelValues(route).Observe(d.Seconds())
}
