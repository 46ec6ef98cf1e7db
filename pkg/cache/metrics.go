package cache

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// NamespaceCounts is the point-in-time copy of one namespace's counters
// returned by Cache.Metrics.
type NamespaceCounts struct {
	Hits      uint64
	Misses    uint64
	Stores    uint64
	Evictions uint64
	Rebuilds  uint64
}

// metrics holds the required hit/miss/store/eviction/rebuild counters,
// both registered with Prometheus and mirrored in-memory so Snapshot can
// return a point-in-time copy without scraping the registry.
type metrics struct {
	hits       *prometheus.CounterVec
	misses     *prometheus.CounterVec
	stores     *prometheus.CounterVec
	evictions  *prometheus.CounterVec
	rebuilds   *prometheus.CounterVec
	generation *prometheus.GaugeVec

	mu     sync.Mutex
	counts map[string]*NamespaceCounts
}

func newMetrics() *metrics {
	return &metrics{
		hits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trailbase_cache_hits_total", Help: "Cache hits by namespace.",
		}, []string{"namespace"}),
		misses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trailbase_cache_misses_total", Help: "Cache misses by namespace.",
		}, []string{"namespace"}),
		stores: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trailbase_cache_stores_total", Help: "Cache stores by namespace.",
		}, []string{"namespace"}),
		evictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trailbase_cache_evictions_total", Help: "Cache evictions/invalidations by namespace.",
		}, []string{"namespace"}),
		rebuilds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trailbase_cache_rebuilds_total", Help: "Stale observations that forced a rebuild, by namespace.",
		}, []string{"namespace"}),
		generation: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "trailbase_cache_generation", Help: "Current generation counter by namespace.",
		}, []string{"namespace"}),
		counts: make(map[string]*NamespaceCounts),
	}
}

func (m *metrics) register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{m.hits, m.misses, m.stores, m.evictions, m.rebuilds, m.generation} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

func (m *metrics) bump(ns string, f func(c *NamespaceCounts)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.counts[ns]
	if !ok {
		c = &NamespaceCounts{}
		m.counts[ns] = c
	}
	f(c)
}

func (m *metrics) incHit(ns string) {
	m.hits.WithLabelValues(ns).Inc()
	m.bump(ns, func(c *NamespaceCounts) { c.Hits++ })
}

func (m *metrics) incMiss(ns string) {
	m.misses.WithLabelValues(ns).Inc()
	m.bump(ns, func(c *NamespaceCounts) { c.Misses++ })
}

func (m *metrics) incStore(ns string) {
	m.stores.WithLabelValues(ns).Inc()
	m.bump(ns, func(c *NamespaceCounts) { c.Stores++ })
}

func (m *metrics) incEviction(ns string) {
	m.evictions.WithLabelValues(ns).Inc()
	m.bump(ns, func(c *NamespaceCounts) { c.Evictions++ })
}

func (m *metrics) incRebuild(ns string) {
	m.rebuilds.WithLabelValues(ns).Inc()
	m.bump(ns, func(c *NamespaceCounts) { c.Rebuilds++ })
}

func (m *metrics) setGeneration(ns string, gen uint64) {
	m.generation.WithLabelValues(ns).Set(float64(gen))
}

// Snapshot returns a point-in-time copy of every namespace's counters.
func (m *metrics) Snapshot() map[string]NamespaceCounts {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]NamespaceCounts, len(m.counts))
	for ns, c := range m.counts {
		out[ns] = *c
	}
	return out
}
