// Package metrics provides Prometheus metrics for the cvec client.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the client.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Transport
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpRetries         *prometheus.CounterVec
	tokenRefreshes      *prometheus.CounterVec

	// Spans
	spansBuilt         prometheus.Counter
	contractViolations prometheus.Counter
	spanBuildLatency   prometheus.Histogram

	// Ingest
	pointsUploaded *prometheus.CounterVec
	csvRowsSkipped prometheus.Counter
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "cvec",
		subsystem:        "client",
		histogramBuckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		constLabels:      prometheus.Labels{},
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) initializeMetrics() { //nolint:funlen // metric declarations
	auto := promauto.With(m.registry)

	m.httpRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "http_requests_total",
			Help:        "Total number of HTTP requests sent to the store by endpoint, method and status",
			ConstLabels: m.constLabels,
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.httpRequestDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "http_request_duration_milliseconds",
			Help:        "HTTP round trip duration in milliseconds",
			Buckets:     m.histogramBuckets,
			ConstLabels: m.constLabels,
		},
		[]string{"endpoint", "method"},
	)

	m.httpRetries = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "http_retries_total",
			Help:        "Total number of transport retries after transient failures",
			ConstLabels: m.constLabels,
		},
		[]string{"endpoint"},
	)

	m.tokenRefreshes = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "token_refreshes_total",
			Help:        "Access token refresh attempts by outcome",
			ConstLabels: m.constLabels,
		},
		[]string{"outcome"},
	)

	m.spansBuilt = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "spans_built_total",
		Help:        "Total number of spans derived from value-change events",
		ConstLabels: m.constLabels,
	})

	m.contractViolations = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "span_contract_violations_total",
		Help:        "Event lists rejected by the span builder (unsorted or outside the window)",
		ConstLabels: m.constLabels,
	})

	m.spanBuildLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "span_query_latency_milliseconds",
		Help:        "End-to-end latency of span queries (fetch + build) in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	})

	m.pointsUploaded = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "points_uploaded_total",
			Help:        "Metric data points uploaded by encoding",
			ConstLabels: m.constLabels,
		},
		[]string{"encoding"},
	)

	m.csvRowsSkipped = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "csv_rows_skipped_total",
		Help:        "CSV rows skipped during import because of unparsable timestamps",
		ConstLabels: m.constLabels,
	})
}

// RecordHTTPRequest records a completed HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP round trip duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method string, durationMs float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method).Observe(durationMs)
}

// RecordHTTPRetry increments the retry counter for an endpoint.
func RecordHTTPRetry(endpoint string) {
	globalManager.httpRetries.WithLabelValues(endpoint).Inc()
}

// RecordTokenRefresh records a token refresh attempt; outcome is "ok" or "failed".
func RecordTokenRefresh(outcome string) {
	globalManager.tokenRefreshes.WithLabelValues(outcome).Inc()
}

// RecordSpansBuilt adds n to the spans built counter.
func RecordSpansBuilt(n int) {
	globalManager.spansBuilt.Add(float64(n))
}

// RecordContractViolation increments the span contract violation counter.
func RecordContractViolation() {
	globalManager.contractViolations.Inc()
}

// RecordSpanQueryLatency records span query latency in milliseconds.
func RecordSpanQueryLatency(latencyMs float64) {
	globalManager.spanBuildLatency.Observe(latencyMs)
}

// RecordPointsUploaded adds n uploaded points for the given encoding ("json" or "arrow").
func RecordPointsUploaded(encoding string, n int) {
	globalManager.pointsUploaded.WithLabelValues(encoding).Add(float64(n))
}

// RecordCSVRowSkipped increments the skipped CSV row counter.
func RecordCSVRowSkipped() {
	globalManager.csvRowsSkipped.Inc()
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
// Programs embedding the client serve it with promhttp.HandlerFor.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// WriteTextfile writes the current values of the registry to path in the
// text exposition format read by the node exporter textfile collector.
func WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, customRegistry); err != nil {
		return fmt.Errorf("write metrics to %s: %w", path, err)
	}
	return nil
}
