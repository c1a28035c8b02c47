package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the ledger
type Metrics struct {
	// Operation metrics
	SubmissionsTotal     prometheus.Counter
	ResponsesTotal       prometheus.Counter
	ResponseBatchesTotal prometheus.Counter
	BatchItemsApplied    prometheus.Counter
	BatchItemsSkipped    prometheus.Counter
	SessionsCreatedTotal prometheus.Counter
	SessionAppendsTotal  prometheus.Counter
	PauseTogglesTotal    prometheus.Counter
	OperationDuration    prometheus.HistogramVec
	ErrorsTotal          prometheus.CounterVec

	// State gauges
	RequestsTotal  prometheus.Gauge
	SessionsTotal  prometheus.Gauge
	PausedState    prometheus.Gauge
	SequenceMarker prometheus.Gauge

	// Event log metrics
	EventsEmittedTotal prometheus.Counter
	EventSubscribers   prometheus.Gauge

	// Journal metrics
	JournalAppendsTotal   prometheus.Counter
	JournalAppendDuration prometheus.Histogram
	JournalSizeBytes      prometheus.Gauge
	JournalReplayedTotal  prometheus.Counter

	// Runtime metrics
	Goroutines     prometheus.Gauge
	HeapAllocBytes prometheus.Gauge
}

// NewMetrics creates and registers all Prometheus metrics. Tests pass their
// own registry to avoid duplicate registration on the default one.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		SubmissionsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "promptledger",
			Subsystem: "ledger",
			Name:      "submissions_total",
			Help:      "Total number of accepted prompt submissions",
		}),
		ResponsesTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "promptledger",
			Subsystem: "ledger",
			Name:      "responses_total",
			Help:      "Total number of accepted single response writes",
		}),
		ResponseBatchesTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "promptledger",
			Subsystem: "ledger",
			Name:      "response_batches_total",
			Help:      "Total number of accepted response batch calls",
		}),
		BatchItemsApplied: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "promptledger",
			Subsystem: "ledger",
			Name:      "batch_items_applied_total",
			Help:      "Total batch items that wrote a response",
		}),
		BatchItemsSkipped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "promptledger",
			Subsystem: "ledger",
			Name:      "batch_items_skipped_total",
			Help:      "Total batch items skipped for zero id or already set response",
		}),
		SessionsCreatedTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "promptledger",
			Subsystem: "ledger",
			Name:      "sessions_created_total",
			Help:      "Total number of sessions created",
		}),
		SessionAppendsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "promptledger",
			Subsystem: "ledger",
			Name:      "session_appends_total",
			Help:      "Total number of request ids appended to sessions",
		}),
		PauseTogglesTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "promptledger",
			Subsystem: "ledger",
			Name:      "pause_toggles_total",
			Help:      "Total number of pause flag writes",
		}),
		OperationDuration: *factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "promptledger",
			Subsystem: "ledger",
			Name:      "operation_duration_seconds",
			Help:      "Histogram of mutating operation durations",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
		ErrorsTotal: *factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "promptledger",
			Subsystem: "ledger",
			Name:      "errors_total",
			Help:      "Total number of rejected calls by error code",
		}, []string{"code"}),

		RequestsTotal: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "promptledger",
			Subsystem: "ledger",
			Name:      "requests",
			Help:      "Current number of recorded prompt submissions",
		}),
		SessionsTotal: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "promptledger",
			Subsystem: "ledger",
			Name:      "sessions",
			Help:      "Current number of created sessions",
		}),
		PausedState: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "promptledger",
			Subsystem: "ledger",
			Name:      "paused",
			Help:      "Whether the ledger is paused (1) or accepting submissions (0)",
		}),
		SequenceMarker: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "promptledger",
			Subsystem: "ledger",
			Name:      "sequence_marker",
			Help:      "Current sequence marker",
		}),

		EventsEmittedTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "promptledger",
			Subsystem: "events",
			Name:      "emitted_total",
			Help:      "Total number of events appended to the notification log",
		}),
		EventSubscribers: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "promptledger",
			Subsystem: "events",
			Name:      "subscribers",
			Help:      "Current number of event log subscribers",
		}),

		JournalAppendsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "promptledger",
			Subsystem: "journal",
			Name:      "appends_total",
			Help:      "Total number of journal appends",
		}),
		JournalAppendDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "promptledger",
			Subsystem: "journal",
			Name:      "append_duration_seconds",
			Help:      "Histogram of journal append durations",
			Buckets:   prometheus.DefBuckets,
		}),
		JournalSizeBytes: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "promptledger",
			Subsystem: "journal",
			Name:      "size_bytes",
			Help:      "Current journal size in bytes",
		}),
		JournalReplayedTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "promptledger",
			Subsystem: "journal",
			Name:      "replayed_total",
			Help:      "Total number of commands replayed during recovery",
		}),

		Goroutines: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "promptledger",
			Subsystem: "runtime",
			Name:      "goroutines",
			Help:      "Current number of goroutines",
		}),
		HeapAllocBytes: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "promptledger",
			Subsystem: "runtime",
			Name:      "heap_alloc_bytes",
			Help:      "Current heap allocation in bytes",
		}),
	}
}

// UpdateRuntimeStats updates the runtime gauges
func (m *Metrics) UpdateRuntimeStats(heapAlloc int64, goroutines int) {
	m.HeapAllocBytes.Set(float64(heapAlloc))
	m.Goroutines.Set(float64(goroutines))
}

// RecordOperation records a successful mutating operation duration
func (m *Metrics) RecordOperation(op string, seconds float64) {
	m.OperationDuration.WithLabelValues(op).Observe(seconds)
}

// RecordError records a rejected call by wire-level error code
func (m *Metrics) RecordError(code string) {
	m.ErrorsTotal.WithLabelValues(code).Inc()
}

// RecordBatch records the outcome of a response batch call
func (m *Metrics) RecordBatch(size, applied int) {
	m.ResponseBatchesTotal.Inc()
	m.BatchItemsApplied.Add(float64(applied))
	m.BatchItemsSkipped.Add(float64(size - applied))
}

// UpdateState updates the state gauges after a successful mutation
func (m *Metrics) UpdateState(requests, sessions int, paused bool, seq uint64) {
	m.RequestsTotal.Set(float64(requests))
	m.SessionsTotal.Set(float64(sessions))
	if paused {
		m.PausedState.Set(1)
	} else {
		m.PausedState.Set(0)
	}
	m.SequenceMarker.Set(float64(seq))
}

// RecordJournalAppend records a journal append
func (m *Metrics) RecordJournalAppend(seconds float64, sizeBytes int64) {
	m.JournalAppendsTotal.Inc()
	m.JournalAppendDuration.Observe(seconds)
	if sizeBytes >= 0 {
		m.JournalSizeBytes.Set(float64(sizeBytes))
	}
}
