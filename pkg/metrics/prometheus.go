package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var ratioBuckets = []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1}

// Manager owns every Prometheus collector exported by the service.
type Manager struct {
	namespace      string
	subsystem      string
	latencyBuckets []float64
	constLabels    prometheus.Labels
	registry       prometheus.Registerer

	// Verdicts
	verdicts          *prometheus.CounterVec
	primaryLabels     *prometheus.CounterVec
	complexity        prometheus.Histogram
	classifierLatency prometheus.Histogram
	classifierErrors  *prometheus.CounterVec
	breakerState      *prometheus.GaugeVec
	explainDegraded   prometheus.Counter
	batchSize         prometheus.Histogram

	// Matching and history
	matches    prometheus.Counter
	noMatches  prometheus.Counter
	matchScore prometheus.Histogram
	feedback   *prometheus.CounterVec
	insights   *prometheus.CounterVec
	duplicates prometheus.Counter

	// Storage
	storeLatency *prometheus.HistogramVec
	storeErrors  *prometheus.CounterVec

	// Worker pool
	workerActive     prometheus.Gauge
	workerQueueSize  prometheus.Gauge
	workerJobLatency prometheus.Histogram
	workerErrors     prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	errorsByEndpoint    *prometheus.CounterVec
	errorsByComponent   *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:      "moodtune",
		subsystem:      "core",
		latencyBuckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		registry:       prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: name, Help: help, ConstLabels: m.constLabels,
	}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: name, Help: help, ConstLabels: m.constLabels,
	}
}

func (m *Manager) histogramOpts(name, help string, buckets []float64) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: name, Help: help, ConstLabels: m.constLabels, Buckets: buckets,
	}
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	auto := promauto.With(m.registry)

	m.verdicts = auto.NewCounterVec(m.counterOpts("verdicts_total", "Verdicts built, by confidence tier"), []string{"tier"})
	m.primaryLabels = auto.NewCounterVec(m.counterOpts("primary_label_total", "Verdicts by primary label"), []string{"label"})
	m.complexity = auto.NewHistogram(m.histogramOpts("verdict_complexity", "Normalized entropy of verdict scores", ratioBuckets))
	m.classifierLatency = auto.NewHistogram(m.histogramOpts(
		"classifier_latency_milliseconds", "Classifier round trip latency in milliseconds", m.latencyBuckets))
	m.classifierErrors = auto.NewCounterVec(m.counterOpts("classifier_errors_total", "Classifier failures by reason"), []string{"reason"})
	m.breakerState = auto.NewGaugeVec(m.gaugeOpts(
		"circuit_breaker_state", "Circuit breaker state (0 closed, 1 half-open, 2 open)"), []string{"name"})
	m.explainDegraded = auto.NewCounter(m.counterOpts("explain_degraded_total", "Explanations served from the templated fallback"))
	m.batchSize = auto.NewHistogram(m.histogramOpts("batch_size", "Texts per batch analysis request", []float64{1, 2, 3, 5, 8, 10, 20, 50}))

	m.matches = auto.NewCounter(m.counterOpts("matches_total", "Recommendations produced"))
	m.noMatches = auto.NewCounter(m.counterOpts("no_match_total", "Recommendation requests against an empty catalog"))
	m.matchScore = auto.NewHistogram(m.histogramOpts("match_score", "Coverage score of produced matches", ratioBuckets))
	m.feedback = auto.NewCounterVec(m.counterOpts("feedback_total", "Feedback received, by rating"), []string{"rating"})
	m.insights = auto.NewCounterVec(m.counterOpts("insights_total", "Insights surfaced, by type"), []string{"type"})
	m.duplicates = auto.NewCounter(m.counterOpts("duplicate_requests_total", "Requests rejected for a reused idempotency key"))

	m.storeLatency = auto.NewHistogramVec(m.histogramOpts(
		"store_latency_milliseconds", "Storage operation latency in milliseconds", m.latencyBuckets), []string{"op"})
	m.storeErrors = auto.NewCounterVec(m.counterOpts("store_errors_total", "Storage operation failures"), []string{"op"})

	m.workerActive = auto.NewGauge(m.gaugeOpts("worker_active_count", "Workers running in the batch pool"))
	m.workerQueueSize = auto.NewGauge(m.gaugeOpts("worker_queue_size", "Jobs waiting in the batch pool queue"))
	m.workerJobLatency = auto.NewHistogram(m.histogramOpts(
		"worker_job_latency_milliseconds", "Batch job latency in milliseconds", m.latencyBuckets))
	m.workerErrors = auto.NewCounter(m.counterOpts("worker_errors_total", "Batch jobs that returned an error"))

	m.httpRequests = auto.NewCounterVec(m.counterOpts(
		"http_requests_total", "HTTP requests by endpoint, method and status"), []string{"endpoint", "method", "status_code"})
	m.httpRequestDuration = auto.NewHistogramVec(m.histogramOpts(
		"http_request_duration_milliseconds", "HTTP request duration in milliseconds", m.latencyBuckets),
		[]string{"endpoint", "method", "status_code"})
	m.errorsByEndpoint = auto.NewCounterVec(m.counterOpts(
		"errors_by_endpoint_total", "HTTP errors by endpoint"), []string{"endpoint", "method", "error_type"})
	m.errorsByComponent = auto.NewCounterVec(m.counterOpts(
		"errors_by_component_total", "Errors by component and type"), []string{"component", "error_type"})

	m.systemMemoryUsage = auto.NewGauge(m.gaugeOpts("system_memory_usage_bytes", "Heap memory in use in bytes"))
	m.systemGoroutineCount = auto.NewGauge(m.gaugeOpts("system_goroutine_count", "Number of goroutines"))
}

// RecordVerdict counts a verdict by tier and primary label and observes its complexity.
func RecordVerdict(tier, primary string, complexity float64) {
	globalManager.verdicts.WithLabelValues(tier).Inc()
	globalManager.primaryLabels.WithLabelValues(primary).Inc()
	globalManager.complexity.Observe(complexity)
}

// RecordClassifierLatency records a classifier call in milliseconds.
func RecordClassifierLatency(latencyMs float64) {
	globalManager.classifierLatency.Observe(latencyMs)
}

// RecordClassifierError counts a failed classifier call.
func RecordClassifierError(reason string) {
	globalManager.classifierErrors.WithLabelValues(reason).Inc()
}

// UpdateBreakerState publishes a circuit breaker state transition.
func UpdateBreakerState(name string, state int) {
	globalManager.breakerState.WithLabelValues(name).Set(float64(state))
}

// RecordExplainDegraded counts an explanation served from the fallback.
func RecordExplainDegraded() {
	globalManager.explainDegraded.Inc()
}

// RecordBatchSize observes the number of texts in a batch request.
func RecordBatchSize(n int) {
	globalManager.batchSize.Observe(float64(n))
}

// RecordMatch counts a produced recommendation and observes its score.
func RecordMatch(score float64) {
	globalManager.matches.Inc()
	globalManager.matchScore.Observe(score)
}

// RecordNoMatch counts a recommendation request that found an empty catalog.
func RecordNoMatch() {
	globalManager.noMatches.Inc()
}

// RecordFeedback counts feedback by rating.
func RecordFeedback(rating int) {
	globalManager.feedback.WithLabelValues(strconv.Itoa(rating)).Inc()
}

// RecordInsight counts a surfaced insight.
func RecordInsight(kind string) {
	globalManager.insights.WithLabelValues(kind).Inc()
}

// RecordDuplicate counts a request rejected for a reused idempotency key.
func RecordDuplicate() {
	globalManager.duplicates.Inc()
}

// RecordStoreLatency records a storage operation in milliseconds.
func RecordStoreLatency(op string, latencyMs float64) {
	globalManager.storeLatency.WithLabelValues(op).Observe(latencyMs)
}

// RecordStoreError counts a failed storage operation.
func RecordStoreError(op string) {
	globalManager.storeErrors.WithLabelValues(op).Inc()
}

// UpdateWorkerActiveCount sets the number of running workers.
func UpdateWorkerActiveCount(count int) {
	globalManager.workerActive.Set(float64(count))
}

// UpdateWorkerQueueSize sets the number of queued jobs.
func UpdateWorkerQueueSize(size int) {
	globalManager.workerQueueSize.Set(float64(size))
}

// RecordWorkerJobLatency records one job in milliseconds.
func RecordWorkerJobLatency(latencyMs float64) {
	globalManager.workerJobLatency.Observe(latencyMs)
}

// RecordWorkerError counts a failed job.
func RecordWorkerError() {
	globalManager.workerErrors.Inc()
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorsByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// UpdateSystemMemoryUsage sets the memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
