// Package metrics provides Prometheus metrics for the SSN scoring engine.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultNamespace = "nexus"
	defaultSubsystem = "ssn"
)

// Score-shaped buckets (0-100).
var scoreBuckets = []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100} //nolint:gochecknoglobals // constant bucket layout

// Manager holds every metric of the engine.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Scoring
	ssnComputed       *prometheus.CounterVec
	ssnSkipped        prometheus.Counter
	ssnDuration       prometheus.Histogram
	progressionPoints prometheus.Counter
	batchRescored     *prometheus.CounterVec

	// Cohorts
	cohortRecomputes *prometheus.CounterVec
	cohortSampleSize *prometheus.GaugeVec
	cohortLowSample  *prometheus.GaugeVec

	// Projection and stage
	projections         prometheus.Counter
	projectionConfident prometheus.Histogram
	stageScored         prometheus.Counter
	stageFragileFlags   prometheus.Counter

	// Queue and workers
	queueEnqueued prometheus.Counter
	queueRejected *prometheus.CounterVec
	queueDepth    prometheus.Gauge
	queueCapacity prometheus.Gauge
	workerCount   prometheus.Gauge
	jobsInFlight  prometheus.Gauge
	jobsProcessed *prometheus.CounterVec
	jobDuration   prometheus.Histogram

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its series.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        defaultNamespace,
		subsystem:        defaultSubsystem,
		histogramBuckets: prometheus.DefBuckets,
		constLabels:      prometheus.Labels{},
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) gaugeVec(name, help string, labels ...string) *prometheus.GaugeVec {
	return promauto.With(m.registry).NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, Buckets: buckets, ConstLabels: m.constLabels,
	})
}

func (m *Manager) initializeMetrics() {
	m.ssnComputed = m.counterVec("ssn_computed_total", "Standardized scores computed, by tier", "tier")
	m.ssnSkipped = m.counter("ssn_skipped_total", "Scoring requests for missing or ungraded assessments")
	m.ssnDuration = m.histogram("ssn_compute_duration_seconds", "Duration of one SSN computation including persistence", m.histogramBuckets)
	m.progressionPoints = m.counter("progression_points_total", "Progression points appended")
	m.batchRescored = m.counterVec("batch_rescored_total", "Assessments re-normalized by batch recomputation", "type")

	m.cohortRecomputes = m.counterVec("cohort_recomputes_total", "Cohort statistics computations", "type")
	m.cohortSampleSize = m.gaugeVec("cohort_sample_size", "Sample size of the latest cohort snapshot", "type")
	m.cohortLowSample = m.gaugeVec("cohort_low_sample", "1 when the latest cohort snapshot is below the sample threshold", "type")

	m.projections = m.counter("projections_total", "Projections computed and persisted")
	m.projectionConfident = m.histogram("projection_confidence", "Confidence of computed projections", scoreBuckets)
	m.stageScored = m.counter("stage_scored_total", "Diagnostic quizzes scored")
	m.stageFragileFlags = m.counter("stage_fragile_flags_total", "Fragile-basics flags raised")

	m.queueEnqueued = m.counter("queue_jobs_enqueued_total", "Scoring jobs accepted by the queue")
	m.queueRejected = m.counterVec("queue_jobs_rejected_total", "Scoring jobs rejected", "reason")
	m.queueDepth = m.gauge("queue_depth", "Scoring jobs waiting in the queue")
	m.queueCapacity = m.gauge("queue_capacity", "Maximum scoring jobs the queue holds")
	m.workerCount = m.gauge("worker_count", "Scoring workers running")
	m.jobsInFlight = m.gauge("jobs_in_flight", "Scoring jobs accepted and not yet finished")
	m.jobsProcessed = m.counterVec("worker_jobs_processed_total", "Scoring jobs processed, by outcome", "outcome")
	m.jobDuration = m.histogram("worker_job_duration_seconds", "Duration of one scoring job", m.histogramBuckets)

	m.httpRequests = m.counterVec("http_requests_total", "HTTP requests", "method", "route", "status")
	m.httpRequestDuration = promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: m.constLabels,
		Name: "http_request_duration_seconds", Help: "HTTP request duration", Buckets: m.histogramBuckets,
	}, []string{"method", "route"})

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "Heap memory in use")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
}

// RecordSSNComputed counts one computed score and its duration.
func RecordSSNComputed(tier string, d time.Duration) {
	globalManager.ssnComputed.WithLabelValues(tier).Inc()
	globalManager.ssnDuration.Observe(d.Seconds())
}

// RecordSSNSkipped counts a request that produced no score.
func RecordSSNSkipped() {
	globalManager.ssnSkipped.Inc()
}

// RecordProgressionPoint counts an appended progression point.
func RecordProgressionPoint() {
	globalManager.progressionPoints.Inc()
}

// RecordBatchRescored counts assessments re-normalized for a type.
func RecordBatchRescored(assessmentType string, n int) {
	globalManager.batchRescored.WithLabelValues(assessmentType).Add(float64(n))
}

// RecordCohortRecompute records a cohort computation and its outcome.
func RecordCohortRecompute(assessmentType string, sampleSize int, lowSample bool) {
	globalManager.cohortRecomputes.WithLabelValues(assessmentType).Inc()
	globalManager.cohortSampleSize.WithLabelValues(assessmentType).Set(float64(sampleSize))
	low := 0.0
	if lowSample {
		low = 1
	}
	globalManager.cohortLowSample.WithLabelValues(assessmentType).Set(low)
}

// RecordProjection counts a projection and observes its confidence.
func RecordProjection(confidence int) {
	globalManager.projections.Inc()
	globalManager.projectionConfident.Observe(float64(confidence))
}

// RecordStageScored counts a scored quiz and its fragile-basics flags.
func RecordStageScored(fragileFlags int) {
	globalManager.stageScored.Inc()
	globalManager.stageFragileFlags.Add(float64(fragileFlags))
}

// RecordJobEnqueued counts an accepted job.
func RecordJobEnqueued() {
	globalManager.queueEnqueued.Inc()
}

// RecordJobRejected counts a rejected job.
func RecordJobRejected(reason string) {
	globalManager.queueRejected.WithLabelValues(reason).Inc()
}

// RecordJobProcessed counts a finished job.
func RecordJobProcessed(outcome string, d time.Duration) {
	globalManager.jobsProcessed.WithLabelValues(outcome).Inc()
	globalManager.jobDuration.Observe(d.Seconds())
}

// UpdateQueueDepth sets the number of waiting jobs.
func UpdateQueueDepth(n int) {
	globalManager.queueDepth.Set(float64(n))
}

// UpdateQueueCapacity sets the queue capacity.
func UpdateQueueCapacity(n int) {
	globalManager.queueCapacity.Set(float64(n))
}

// UpdateWorkerCount sets the number of running workers.
func UpdateWorkerCount(n int) {
	globalManager.workerCount.Set(float64(n))
}

// UpdateJobsInFlight sets the number of accepted, unfinished jobs.
func UpdateJobsInFlight(n int64) {
	globalManager.jobsInFlight.Set(float64(n))
}

// RecordHTTPRequest records one served request.
func RecordHTTPRequest(method, route string, status int, d time.Duration) {
	globalManager.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	globalManager.httpRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// UpdateSystemMemoryUsage sets the heap memory in use.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// GetRegistry returns the registry holding the engine's metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
