// Package metrics provides Prometheus metrics for the valuation engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every metric the engine exports.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Run metrics
	runsTotal    *prometheus.CounterVec
	runDuration  prometheus.Histogram
	runPlayers   prometheus.Gauge
	runLastUnix  prometheus.Gauge
	runIssues    *prometheus.CounterVec
	modelDegrade *prometheus.CounterVec

	// Per-player metrics
	playersProcessed *prometheus.CounterVec
	stageLatency     *prometheus.HistogramVec
	lowConfidence    *prometheus.CounterVec
	clamps           *prometheus.CounterVec

	// Queue metrics
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueEnqueueTotal  prometheus.Counter
	queueDequeueTotal  prometheus.Counter
	queueEnqueueErrors prometheus.Counter

	// Worker metrics
	workerActive  prometheus.Gauge
	workerTimeout prometheus.Counter

	// Repository metrics
	repositoryPublishLatency prometheus.Histogram
	repositoryQueryLatency   prometheus.Histogram
	repositoryRecords        prometheus.Gauge

	errorsByComponent *prometheus.CounterVec
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
		namespace:        "valuator",
		subsystem:        "engine",
		histogramBuckets: []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 1000},
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      name,
		Help:      help,
	}, labels)
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      name,
		Help:      help,
	})
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      name,
		Help:      help,
	})
}

func (m *Manager) histogram(name, help string) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      name,
		Help:      help,
		Buckets:   m.histogramBuckets,
	})
}

func (m *Manager) initializeMetrics() {
	m.runsTotal = m.counterVec("runs_total", "Inference runs by final status", "status")
	m.runDuration = promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "run_duration_seconds",
		Help:      "Wall time of a complete inference run",
		Buckets:   prometheus.DefBuckets,
	})
	m.runPlayers = m.gauge("run_players", "Player keys evaluated in the last run")
	m.runLastUnix = m.gauge("run_last_published_unix", "Unix time of the last published run")
	m.runIssues = m.counterVec("player_issues_total", "Per-player issues by kind", "kind")
	m.modelDegrade = m.counterVec("model_degraded_total",
		"Model families that fell back to Marcel-only output", "family", "domain")

	m.playersProcessed = m.counterVec("players_processed_total",
		"Player keys processed by domain and outcome", "domain", "outcome")
	m.stageLatency = promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "stage_latency_milliseconds",
		Help:      "Per-player pipeline stage latency in milliseconds",
		Buckets:   m.histogramBuckets,
	}, []string{"stage"})
	m.lowConfidence = m.counterVec("low_confidence_total",
		"Scores emitted with confidence forced to zero", "model")
	m.clamps = m.counterVec("clamps_total", "Values clamped to their declared range",
		"component", "field")

	m.queueSize = m.gauge("queue_size", "Current number of queued player jobs")
	m.queueCapacity = m.gauge("queue_capacity", "Maximum queue capacity")
	m.queueEnqueueTotal = m.counter("queue_enqueue_total", "Player jobs enqueued")
	m.queueDequeueTotal = m.counter("queue_dequeue_total", "Player jobs dequeued")
	m.queueEnqueueErrors = m.counter("queue_enqueue_errors_total", "Rejected enqueue attempts")

	m.workerActive = m.gauge("worker_active_count", "Workers currently running")
	m.workerTimeout = m.counter("worker_timeouts_total", "Player jobs that hit the per-player timeout")

	m.repositoryPublishLatency = m.histogram("repository_publish_latency_milliseconds",
		"Latency of publishing a complete run")
	m.repositoryQueryLatency = m.histogram("repository_query_latency_milliseconds",
		"Latency of repository reads")
	m.repositoryRecords = m.gauge("repository_records_total", "Records in the latest published run")

	m.errorsByComponent = m.counterVec("errors_by_component_total",
		"Errors by component and type", "component", "error_type")
}

// RecordRun increments the run counter for a final status.
func RecordRun(status string) {
	globalManager.runsTotal.WithLabelValues(status).Inc()
}

// RecordRunDuration observes the duration of a run in seconds.
func RecordRunDuration(seconds float64) {
	globalManager.runDuration.Observe(seconds)
}

// UpdateRunPlayers sets the size of the last run's population.
func UpdateRunPlayers(n int) {
	globalManager.runPlayers.Set(float64(n))
}

// UpdateRunLastPublished sets the unix time of the last publish.
func UpdateRunLastPublished(unix float64) {
	globalManager.runLastUnix.Set(unix)
}

// RecordPlayerIssue counts a per-player issue.
func RecordPlayerIssue(kind string) {
	globalManager.runIssues.WithLabelValues(kind).Inc()
}

// RecordModelDegraded counts a model family that fell back to Marcel-only output.
func RecordModelDegraded(family, domain string) {
	globalManager.modelDegrade.WithLabelValues(family, domain).Inc()
}

// RecordPlayerProcessed counts a processed player key.
func RecordPlayerProcessed(domain, outcome string) {
	globalManager.playersProcessed.WithLabelValues(domain, outcome).Inc()
}

// RecordStageLatency observes the latency of one pipeline stage.
func RecordStageLatency(stage string, latencyMs float64) {
	globalManager.stageLatency.WithLabelValues(stage).Observe(latencyMs)
}

// RecordLowConfidence counts a score emitted with zero confidence.
func RecordLowConfidence(model string) {
	globalManager.lowConfidence.WithLabelValues(model).Inc()
}

// RecordClamps adds n clamp events for a component field.
func RecordClamps(component, field string, n int) {
	globalManager.clamps.WithLabelValues(component, field).Add(float64(n))
}

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	globalManager.queueEnqueueTotal.Inc()
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	globalManager.queueDequeueTotal.Inc()
}

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() {
	globalManager.queueEnqueueErrors.Inc()
}

// UpdateWorkerActiveCount sets the number of running workers.
func UpdateWorkerActiveCount(count int) {
	globalManager.workerActive.Set(float64(count))
}

// RecordWorkerTimeout counts a per-player timeout.
func RecordWorkerTimeout() {
	globalManager.workerTimeout.Inc()
}

// RecordRepositoryPublishLatency records run publication latency.
func RecordRepositoryPublishLatency(latencyMs float64) {
	globalManager.repositoryPublishLatency.Observe(latencyMs)
}

// RecordRepositoryQueryLatency records repository read latency.
func RecordRepositoryQueryLatency(latencyMs float64) {
	globalManager.repositoryQueryLatency.Observe(latencyMs)
}

// UpdateRepositoryRecords sets the record count of the latest run.
func UpdateRepositoryRecords(count int) {
	globalManager.repositoryRecords.Set(float64(count))
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
