// Package metrics provides Prometheus metrics for the trace tracker and the
// development collector.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every Prometheus collector the module exposes.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      map[string]string
	registry         prometheus.Registerer

	// Trace intake
	tracesEnqueued *prometheus.CounterVec
	tracesRejected *prometheus.CounterVec
	queueSize      prometheus.Gauge

	// Delivery
	batchesSent    prometheus.Counter
	batchesFailed  prometheus.Counter
	batchEvents    prometheus.Histogram
	sendLatency    prometheus.Histogram
	pendingBatches prometheus.Gauge
	unloggedEvents prometheus.Gauge
	backupAppends  *prometheus.CounterVec
	handshakes     *prometheus.CounterVec

	// Collector HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	collectedPayloads   *prometheus.CounterVec
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "gametrace",
		subsystem:        "tracker",
		histogramBuckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		constLabels:      map[string]string{},
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	}
}

func (m *Manager) histogramOpts(name, help string, buckets []float64) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		Buckets:     buckets,
		ConstLabels: m.constLabels,
	}
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.tracesEnqueued = auto.NewCounterVec(
		m.counterOpts("traces_enqueued_total", "Traces accepted into the queue by verb"),
		[]string{"verb"},
	)
	m.tracesRejected = auto.NewCounterVec(
		m.counterOpts("traces_rejected_total", "Trace calls rejected or dropped by error kind"),
		[]string{"kind"},
	)
	m.queueSize = auto.NewGauge(m.gaugeOpts("queue_size", "Events waiting for the next flush"))

	m.batchesSent = auto.NewCounter(m.counterOpts("batches_sent_total", "Batches accepted by the collector"))
	m.batchesFailed = auto.NewCounter(m.counterOpts("batches_failed_total", "Batches the collector did not accept"))
	m.batchEvents = auto.NewHistogram(m.histogramOpts(
		"batch_events", "Events per flushed batch",
		prometheus.ExponentialBuckets(1, 2, 10),
	))
	m.sendLatency = auto.NewHistogram(m.histogramOpts(
		"send_latency_milliseconds", "Collector round-trip latency in milliseconds",
		m.histogramBuckets,
	))
	m.pendingBatches = auto.NewGauge(m.gaugeOpts("pending_batches", "Encoded batches awaiting retry"))
	m.unloggedEvents = auto.NewGauge(m.gaugeOpts("unlogged_events", "Events held while no session is active"))
	m.backupAppends = auto.NewCounterVec(
		m.counterOpts("backup_appends_total", "Backup and local log writes by outcome"),
		[]string{"outcome"},
	)
	m.handshakes = auto.NewCounterVec(
		m.counterOpts("handshakes_total", "Login and start handshakes by step and outcome"),
		[]string{"step", "outcome"},
	)

	m.httpRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   "collector",
			Name:        "http_requests_total",
			Help:        "Collector HTTP requests by endpoint, method and status",
			ConstLabels: m.constLabels,
		},
		[]string{"endpoint", "method", "status_code"},
	)
	m.httpRequestDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   m.namespace,
			Subsystem:   "collector",
			Name:        "http_request_duration_milliseconds",
			Help:        "Collector HTTP request duration in milliseconds",
			Buckets:     m.histogramBuckets,
			ConstLabels: m.constLabels,
		},
		[]string{"endpoint", "method", "status_code"},
	)
	m.collectedPayloads = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   "collector",
			Name:        "payloads_total",
			Help:        "Track payloads received by the collector by content type",
			ConstLabels: m.constLabels,
		},
		[]string{"content_type"},
	)
}

// RecordTraceEnqueued counts an accepted trace.
func RecordTraceEnqueued(verb string) {
	globalManager.tracesEnqueued.WithLabelValues(verb).Inc()
}

// RecordTraceRejected counts a trace that failed validation or was dropped.
func RecordTraceRejected(kind string) {
	globalManager.tracesRejected.WithLabelValues(kind).Inc()
}

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// RecordBatchSent counts an accepted batch of n events.
func RecordBatchSent(n int) {
	globalManager.batchesSent.Inc()
	globalManager.batchEvents.Observe(float64(n))
}

// RecordBatchFailed counts a batch the collector refused or never saw.
func RecordBatchFailed() {
	globalManager.batchesFailed.Inc()
}

// RecordSendLatency records a collector round trip in milliseconds.
func RecordSendLatency(latencyMs float64) {
	globalManager.sendLatency.Observe(latencyMs)
}

// UpdatePendingBatches sets the retry backlog size.
func UpdatePendingBatches(n int) {
	globalManager.pendingBatches.Set(float64(n))
}

// UpdateUnloggedEvents sets the number of events held before activation.
func UpdateUnloggedEvents(n int) {
	globalManager.unloggedEvents.Set(float64(n))
}

// RecordBackupAppend counts a backup or local log write.
func RecordBackupAppend(ok bool) {
	globalManager.backupAppends.WithLabelValues(outcome(ok)).Inc()
}

// RecordHandshake counts a login or start attempt.
func RecordHandshake(step string, ok bool) {
	globalManager.handshakes.WithLabelValues(step, outcome(ok)).Inc()
}

// RecordHTTPRequest records a collector HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records collector HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordCollectedPayload counts a track payload stored by the collector.
func RecordCollectedPayload(contentType string) {
	globalManager.collectedPayloads.WithLabelValues(contentType).Inc()
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

func outcome(ok bool) string {
	if ok {
		return "ok"
	}
	return "error"
}
