/*
Package metrics provides Prometheus metrics collection and exposition for
the entity store and its background workers.

The metrics package registers a small, fixed set of collectors at package
init via prometheus.MustRegister, and exposes them over HTTP for scraping.

# Architecture

	┌──────────────────── METRICS SYSTEM ──────────────────────┐
	│                                                            │
	│  ┌────────────────────────────────────────────┐          │
	│  │          Prometheus Registry                │          │
	│  │  - Global DefaultRegistry                   │          │
	│  │  - MustRegister at package init             │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │           Metric Categories                 │          │
	│  │                                              │          │
	│  │  Store: persist/load duration, op counts    │          │
	│  │  Sync worker: queue depth, delta outcomes   │          │
	│  └────────────────────────────────────────────┘           │
	└────────────────────────────────────────────────────────┘

Note: pkg/cache keeps its own private prometheus.Registry per Cache
instance (see cache.Cache.Registry) rather than registering against this
package's default registry — multiple caches in one process would
otherwise collide on metric names. A caller that wants cache metrics on
the same /metrics endpoint as these merges the two registries itself.

# Core Components

StorePersistDuration / StoreLoadDuration:
  - Histograms labeled by app, observed via metrics.NewTimer() around
    gitstore.Store.PersistPack / LoadEntity.

StoreOperationsTotal:
  - Counter vec labeled by app, kind, and result ("ok", "error"). The
    kinds recorded are "persist" (by cmd/storectl around PersistPack) and
    "load" (inside LoadEntity); resolve, list and gc are not counted.

SyncWorkerQueueDepth:
  - Gauge vec labeled by namespace, updated on every EnqueueDelta and on
    dequeue.

SyncWorkerDeltasTotal:
  - Counter vec labeled by namespace and outcome ("applied", "failed").

Timer:
  - NewTimer() / ObserveDuration(histogram) / ObserveDurationVec(vec,
    labels...) / Duration() — unchanged helper shape, reused verbatim
    across every timed call site.

# Usage

Timing a store operation:

	timer := metrics.NewTimer()
	snap, err := store.LoadEntity(family, entityID)
	timer.ObserveDurationVec(metrics.StoreLoadDuration, appName)
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	metrics.StoreOperationsTotal.WithLabelValues(appName, "load", outcome).Inc()

Serving metrics:

	http.Handle("/metrics", metrics.Handler())

# Troubleshooting

Metric Not Appearing:
  - Check the collector is registered in this package's init().
  - Check the label combination was actually observed — vecs only expose
    series for label tuples that have been written to at least once.

Duplicate Registration Panic:
  - Only pkg/cache constructs its own private registry; every other
    collector in this repo lives in this package's single init() and
    must not be re-registered elsewhere.
*/
package metrics
