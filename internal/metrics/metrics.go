// Package metrics defines the Prometheus collectors exported on /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Generation metrics
	GenerationDuration *prometheus.HistogramVec
	GeneratedItems     *prometheus.CounterVec

	// HTTP metrics
	HTTPRequestsTotal *prometheus.CounterVec

	// LLM metrics
	LLMRequestsTotal *prometheus.CounterVec
	LLMFallbackTotal *prometheus.CounterVec

	// Rate limiter metrics
	RateLimiterDropped *prometheus.CounterVec
	RateLimiterActive  *prometheus.GaugeVec

	// Snapshot metrics
	SnapshotTotal *prometheus.CounterVec

	// Singleflight metrics
	SingleflightDedupTotal *prometheus.CounterVec
}

// New creates a new Metrics instance with all metrics registered
func New(registry *prometheus.Registry) *Metrics {
	factory := promauto.With(registry)

	return &Metrics{
		GenerationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "classroom_generation_duration_seconds",
				Help:    "Duration of period and session generation by operation",
				Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2},
			},
			[]string{"operation"}, // operation: periods, custom_periods, week, school_year
		),

		GeneratedItems: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "classroom_generated_items_total",
				Help: "Total number of generated items by kind",
			},
			[]string{"kind"}, // kind: period, session
		),

		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "classroom_http_requests_total",
				Help: "Total API requests by route template and status code",
			},
			[]string{"route", "status"},
		),

		LLMRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "classroom_llm_requests_total",
				Help: "Total appreciation generation calls by provider and status",
			},
			[]string{"provider", "status"}, // status: success, error
		),

		LLMFallbackTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "classroom_llm_fallback_total",
				Help: "Total provider fallbacks",
			},
			[]string{"from", "to"},
		),

		RateLimiterDropped: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "classroom_rate_limiter_dropped_total",
				Help: "Total number of requests dropped by rate limiter",
			},
			[]string{"limiter"}, // limiter: llm
		),

		RateLimiterActive: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "classroom_rate_limiter_active_keys",
				Help: "Number of keys currently tracked by a rate limiter",
			},
			[]string{"limiter"},
		),

		SnapshotTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "classroom_snapshot_total",
				Help: "Total snapshot and export operations by status",
			},
			[]string{"operation", "status"}, // operation: upload, restore, export
		),

		SingleflightDedupTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "classroom_singleflight_dedup_total",
				Help: "Total number of deduplicated calls (callers that waited instead of executing)",
			},
			[]string{"operation"},
		),
	}
}

// RecordGeneration records one generation run and the number of items it produced.
func (m *Metrics) RecordGeneration(operation, kind string, items int, duration time.Duration) {
	if m == nil {
		return
	}
	m.GenerationDuration.WithLabelValues(operation).Observe(duration.Seconds())
	m.GeneratedItems.WithLabelValues(kind).Add(float64(items))
}

// RecordHTTPRequest records a served API request
func (m *Metrics) RecordHTTPRequest(route, status string) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(route, status).Inc()
}

// RecordLLMRequest records an LLM call outcome
func (m *Metrics) RecordLLMRequest(provider, status string) {
	if m == nil {
		return
	}
	m.LLMRequestsTotal.WithLabelValues(provider, status).Inc()
}

// RecordLLMFallback records a switch from one provider to the next
func (m *Metrics) RecordLLMFallback(from, to string) {
	if m == nil {
		return
	}
	m.LLMFallbackTotal.WithLabelValues(from, to).Inc()
}

// RecordRateLimiterDrop records a request dropped by rate limiter
func (m *Metrics) RecordRateLimiterDrop(limiter string) {
	if m == nil {
		return
	}
	m.RateLimiterDropped.WithLabelValues(limiter).Inc()
}

// SetRateLimiterActive sets the tracked key count of limiter.
func (m *Metrics) SetRateLimiterActive(limiter string, keys int) {
	if m == nil {
		return
	}
	m.RateLimiterActive.WithLabelValues(limiter).Set(float64(keys))
}

// RecordSnapshot records a snapshot/export operation
func (m *Metrics) RecordSnapshot(operation, status string) {
	if m == nil {
		return
	}
	m.SnapshotTotal.WithLabelValues(operation, status).Inc()
}

// RecordSingleflightDedup records a deduplicated request
func (m *Metrics) RecordSingleflightDedup(operation string) {
	if m == nil {
		return
	}
	m.SingleflightDedupTotal.WithLabelValues(operation).Inc()
}
