package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// StorePersistDuration times PersistPack calls by app namespace.
	StorePersistDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "trailbase_store_persist_duration_seconds",
			Help:    "Time taken to persist an operation pack",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"app"},
	)

	// StoreLoadDuration times LoadEntity calls by app namespace.
	StoreLoadDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "trailbase_store_load_duration_seconds",
			Help:    "Time taken to load an entity snapshot",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"app"},
	)

	// StoreOperationsTotal counts store-level operations by app and result.
	StoreOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trailbase_store_operations_total",
			Help: "Total number of store operations by app, kind, and result",
		},
		[]string{"app", "kind", "result"},
	)

	// SyncWorkerQueueDepth reports the current depth of the background sync
	// worker's delta queue, labeled by namespace.
	SyncWorkerQueueDepth = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "trailbase_syncworker_queue_depth",
			Help: "Current depth of the background sync worker's delta queue",
		},
		[]string{"namespace"},
	)

	// SyncWorkerDeltasTotal counts processed deltas by namespace and outcome.
	SyncWorkerDeltasTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trailbase_syncworker_deltas_total",
			Help: "Total number of index deltas processed by namespace and outcome",
		},
		[]string{"namespace", "outcome"},
	)
)

func init() {
	prometheus.MustRegister(StorePersistDuration)
	prometheus.MustRegister(StoreLoadDuration)
	prometheus.MustRegister(StoreOperationsTotal)
	prometheus.MustRegister(SyncWorkerQueueDepth)
	prometheus.MustRegister(SyncWorkerDeltasTotal)
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the duration to a histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	duration := time.Since(t.start).Seconds()
	histogram.Observe(duration)
}

// ObserveDurationVec records the duration to a histogram vec with labels.
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	duration := time.Since(t.start).Seconds()
	histogram.WithLabelValues(labels...).Observe(duration)
}

// Duration returns the elapsed time since timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
