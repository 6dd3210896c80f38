package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Backend metrics
	BackendRequestsTotal   *prometheus.CounterVec
	BackendDurationSeconds *prometheus.HistogramVec

	// Cache metrics
	CacheHitsTotal   *prometheus.CounterVec
	CacheMissesTotal *prometheus.CounterVec

	// Singleflight metrics
	SingleflightDedupTotal *prometheus.CounterVec

	// Session metrics
	StaleResponsesTotal *prometheus.CounterVec
	LoadingOperations   prometheus.Gauge
	ActiveSessions      prometheus.Gauge

	// Export metrics
	ExportsTotal          *prometheus.CounterVec
	ExportDurationSeconds *prometheus.HistogramVec

	// HTTP metrics
	HTTPErrorsTotal  *prometheus.CounterVec
	RateLimitedTotal *prometheus.CounterVec
}

// New creates a new Metrics instance with all metrics registered
func New(registry *prometheus.Registry) *Metrics {
	factory := promauto.With(registry)

	return &Metrics{
		BackendRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "portal_backend_requests_total",
				Help: "Total number of backend requests by endpoint and status",
			},
			[]string{"endpoint", "status"}, // status: success, error, timeout, not_found
		),

		BackendDurationSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "portal_backend_duration_seconds",
				Help:    "Backend request duration in seconds by endpoint",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60, 600},
			},
			[]string{"endpoint"}, // endpoint: search, years, colleges, courses, students, student
		),

		CacheHitsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "portal_cache_hits_total",
				Help: "Total number of result cache hits by mode",
			},
			[]string{"mode"}, // mode: search, guided
		),

		CacheMissesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "portal_cache_misses_total",
				Help: "Total number of result cache misses by mode",
			},
			[]string{"mode"},
		),

		SingleflightDedupTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "portal_singleflight_dedup_total",
				Help: "Total number of deduplicated requests (requests that waited instead of executing)",
			},
			[]string{"mode"},
		),

		StaleResponsesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "portal_stale_responses_total",
				Help: "Total number of responses discarded because a newer request superseded them",
			},
			[]string{"role"},
		),

		LoadingOperations: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "portal_loading_operations",
				Help: "Number of in-flight session operations",
			},
		),

		ActiveSessions: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "portal_active_sessions",
				Help: "Number of live portal sessions",
			},
		),

		ExportsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "portal_exports_total",
				Help: "Total number of report exports by format and status",
			},
			[]string{"format", "status"}, // format: jpg, pdf
		),

		ExportDurationSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "portal_export_duration_seconds",
				Help:    "Report export duration in seconds by format",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"format"},
		),

		HTTPErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "portal_http_errors_total",
				Help: "Total HTTP API errors by type and route",
			},
			[]string{"error_type", "route"},
		),

		RateLimitedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "portal_rate_limited_total",
				Help: "Total requests rejected by a rate limiter",
			},
			[]string{"limiter"},
		),
	}
}

// RecordBackendRequest records a backend request with status
func (m *Metrics) RecordBackendRequest(endpoint, status string, duration float64) {
	m.BackendRequestsTotal.WithLabelValues(endpoint, status).Inc()
	m.BackendDurationSeconds.WithLabelValues(endpoint).Observe(duration)
}

// RecordCacheHit records a cache hit
func (m *Metrics) RecordCacheHit(mode string) {
	m.CacheHitsTotal.WithLabelValues(mode).Inc()
}

// RecordCacheMiss records a cache miss
func (m *Metrics) RecordCacheMiss(mode string) {
	m.CacheMissesTotal.WithLabelValues(mode).Inc()
}

// RecordSingleflightDedup records a deduplicated request
func (m *Metrics) RecordSingleflightDedup(mode string) {
	m.SingleflightDedupTotal.WithLabelValues(mode).Inc()
}

// RecordStaleResponse records a discarded response
func (m *Metrics) RecordStaleResponse(role string) {
	m.StaleResponsesTotal.WithLabelValues(role).Inc()
}

// SetLoadingOperations sets the in-flight operation count
func (m *Metrics) SetLoadingOperations(n int) {
	m.LoadingOperations.Set(float64(n))
}

// SetActiveSessions sets the live session count
func (m *Metrics) SetActiveSessions(n int) {
	m.ActiveSessions.Set(float64(n))
}

// RecordExport records a finished export
func (m *Metrics) RecordExport(format, status string, duration float64) {
	m.ExportsTotal.WithLabelValues(format, status).Inc()
	m.ExportDurationSeconds.WithLabelValues(format).Observe(duration)
}

// RecordHTTPError records HTTP error metrics
func (m *Metrics) RecordHTTPError(errorType, route string) {
	m.HTTPErrorsTotal.WithLabelValues(errorType, route).Inc()
}

// RecordRateLimited records a request rejected by a rate limiter
func (m *Metrics) RecordRateLimited(limiter string) {
	m.RateLimitedTotal.WithLabelValues(limiter).Inc()
}
