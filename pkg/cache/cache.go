// Package cache implements the persistent snapshot cache that sits in
// front of the Git-backed entity store: per-namespace generations, TTL,
// CRC32-checked entries, a journal, and the HookSurface the store uses to
// populate and invalidate it.
package cache

import (
	"encoding/json"
	"fmt"
	"hash/crc32"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	bolt "go.etcd.io/bbolt"

	"github.com/trailbase/core/pkg/coreerr"
	"github.com/trailbase/core/pkg/ids"
	"github.com/trailbase/core/pkg/log"
	"github.com/trailbase/core/pkg/snapshot"
)

var (
	metaBucket    = []byte("meta")
	journalBucket = []byte("journal")
)

// Policy configures one namespace's time-to-live.
type Policy struct {
	TTL time.Duration
}

// Config controls how a Cache opens its backing directory and database.
type Config struct {
	Path                string
	Version             uint32
	MaintenanceInterval time.Duration
	Policies            map[string]Policy
	DefaultTTL          time.Duration
}

// Result classifies a Get outcome.
type Result int

const (
	Miss Result = iota
	Stale
	Hit
)

func (r Result) String() string {
	switch r {
	case Hit:
		return "hit"
	case Stale:
		return "stale"
	default:
		return "miss"
	}
}

// entry is one cached row, keyed by entityId within a namespace bucket.
type entry struct {
	Version    uint32
	EntityID   string
	Clock      ids.LamportTimestamp
	Generation uint64
	StoredAt   int64
	ExpiresAt  int64
	Checksum   uint32
	Payload    []byte
}

// metaRecord is the per-namespace bookkeeping row in the meta bucket.
type metaRecord struct {
	Version      uint32
	Generation   uint64
	CreatedAt    int64
	HasBaseClock bool
	BaseClock    ids.LamportTimestamp
}

// journalRecord is one append-only row in the journal bucket, keyed
// "<namespace>:<entityId>:<20-digit generation>".
type journalRecord struct {
	Namespace   string
	EntityID    string
	Generation  uint64
	InsertedOps []ids.OperationId
	PersistedAt int64
	BaseClock   ids.LamportTimestamp
}

// Cache is safe for concurrent use; bbolt serializes writers internally
// and the generation bookkeeping for a namespace is updated inside the
// same transaction as its journal append and entry deletion.
type Cache struct {
	db       *bolt.DB
	cfg      Config
	metrics  *metrics
	registry *prometheus.Registry

	done chan struct{}
	wg   sync.WaitGroup
}

// Open reads <path>/VERSION; if absent or mismatched with cfg.Version the
// entire directory is wiped and recreated, per §4.7's directory
// versioning rule.
func Open(cfg Config) (*Cache, error) {
	if cfg.Version == 0 {
		cfg.Version = 1
	}
	if cfg.DefaultTTL == 0 {
		cfg.DefaultTTL = 24 * time.Hour
	}

	if err := ensureVersionedDirectory(cfg.Path, cfg.Version); err != nil {
		return nil, err
	}

	db, err := bolt.Open(filepath.Join(cfg.Path, "cache.db"), 0o600, nil)
	if err != nil {
		return nil, coreerr.WrapBackend(err, "open cache database at %s", cfg.Path)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(metaBucket); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(journalBucket)
		return err
	}); err != nil {
		db.Close()
		return nil, coreerr.WrapBackend(err, "create cache meta/journal buckets")
	}

	registry := prometheus.NewRegistry()
	m := newMetrics()
	if err := m.register(registry); err != nil {
		db.Close()
		return nil, coreerr.WrapBackend(err, "register cache metrics")
	}

	c := &Cache{db: db, cfg: cfg, metrics: m, registry: registry, done: make(chan struct{})}
	if cfg.MaintenanceInterval > 0 {
		c.wg.Add(1)
		go c.sweepLoop()
	}
	return c, nil
}

func ensureVersionedDirectory(path string, version uint32) error {
	versionPath := filepath.Join(path, "VERSION")
	raw, err := os.ReadFile(versionPath)
	wipe := false
	switch {
	case err == nil:
		current, perr := strconv.ParseUint(strings.TrimSpace(string(raw)), 10, 32)
		wipe = perr != nil || uint32(current) != version
	case os.IsNotExist(err):
		wipe = true
	default:
		return coreerr.WrapIo(err, "read cache VERSION file")
	}
	if !wipe {
		return nil
	}
	if err := os.RemoveAll(path); err != nil {
		return coreerr.WrapIo(err, "wipe stale cache directory %s", path)
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return coreerr.WrapIo(err, "create cache directory %s", path)
	}
	if err := os.WriteFile(versionPath, []byte(strconv.FormatUint(uint64(version), 10)), 0o644); err != nil {
		return coreerr.WrapIo(err, "write cache VERSION file")
	}
	return nil
}

// Registry exposes the cache's private Prometheus registry so a caller
// can merge it into a process-wide metrics handler.
func (c *Cache) Registry() *prometheus.Registry { return c.registry }

// Metrics returns a point-in-time copy of every namespace's counters.
func (c *Cache) Metrics() map[string]NamespaceCounts { return c.metrics.Snapshot() }

func (c *Cache) policy(ns ids.EntityFamily) Policy {
	if p, ok := c.cfg.Policies[ns.String()]; ok {
		return p
	}
	return Policy{TTL: c.cfg.DefaultTTL}
}

func (c *Cache) readMeta(tx *bolt.Tx, ns ids.EntityFamily) (metaRecord, error) {
	raw := tx.Bucket(metaBucket).Get([]byte(ns.String()))
	if raw == nil {
		return metaRecord{Version: c.cfg.Version, Generation: 0, CreatedAt: time.Now().Unix()}, nil
	}
	var m metaRecord
	if err := decodeGob(raw, &m); err != nil {
		return metaRecord{}, coreerr.WrapCorruption(err, "decode meta record for namespace %s", ns)
	}
	return m, nil
}

func (c *Cache) writeMeta(tx *bolt.Tx, ns ids.EntityFamily, m metaRecord) error {
	raw, err := encodeGob(m)
	if err != nil {
		return coreerr.WrapBackend(err, "encode meta record for namespace %s", ns)
	}
	return tx.Bucket(metaBucket).Put([]byte(ns.String()), raw)
}

// Generation returns namespace ns's current generation counter.
func (c *Cache) Generation(ns ids.EntityFamily) (uint64, error) {
	var gen uint64
	err := c.db.View(func(tx *bolt.Tx) error {
		m, err := c.readMeta(tx, ns)
		if err != nil {
			return err
		}
		gen = m.Generation
		return nil
	})
	return gen, err
}

// Get implements the read path in §4.7: Miss/Stale/Hit, deleting the row
// on any staleness so the next read rebuilds from the store.
func (c *Cache) Get(ns ids.EntityFamily, entityID ids.EntityId) (Result, *snapshot.EntitySnapshot, error) {
	var result Result
	var snap *snapshot.EntitySnapshot

	err := c.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(ns.String()))
		if bucket == nil {
			result = Miss
			return nil
		}
		key := []byte(entityID.String())
		raw := bucket.Get(key)
		if raw == nil {
			result = Miss
			return nil
		}

		var e entry
		if err := decodeGob(raw, &e); err != nil {
			result = Stale
			return bucket.Delete(key)
		}

		stale := e.Version != c.cfg.Version
		if !stale {
			m, err := c.readMeta(tx, ns)
			if err != nil {
				return err
			}
			stale = e.Generation < m.Generation
		}
		if !stale && time.Now().Unix() > e.ExpiresAt {
			stale = true
		}
		if !stale && crc32.ChecksumIEEE(e.Payload) != e.Checksum {
			stale = true
		}

		var decoded snapshot.EntitySnapshot
		if !stale {
			if err := json.Unmarshal(e.Payload, &decoded); err != nil || decoded.EntityID != entityID {
				stale = true
			}
		}

		if stale {
			result = Stale
			return bucket.Delete(key)
		}
		result = Hit
		snap = &decoded
		return nil
	})
	if err != nil {
		return Miss, nil, err
	}

	switch result {
	case Hit:
		c.metrics.incHit(ns.String())
	case Stale:
		c.metrics.incRebuild(ns.String())
	default:
		c.metrics.incMiss(ns.String())
	}
	return result, snap, nil
}

// Put serializes snap, tags it with the namespace's current generation,
// and writes the row.
func (c *Cache) Put(ns ids.EntityFamily, entityID ids.EntityId, snap snapshot.EntitySnapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return coreerr.WrapBackend(err, "encode snapshot payload for entity %s", entityID)
	}
	checksum := crc32.ChecksumIEEE(payload)
	now := time.Now()
	ttl := c.policy(ns).TTL
	if ttl < time.Second {
		ttl = time.Second
	}

	err = c.db.Update(func(tx *bolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists([]byte(ns.String()))
		if err != nil {
			return coreerr.WrapBackend(err, "open namespace bucket %s", ns)
		}
		m, err := c.readMeta(tx, ns)
		if err != nil {
			return err
		}
		e := entry{
			Version:    c.cfg.Version,
			EntityID:   entityID.String(),
			Clock:      snap.ClockSnapshot,
			Generation: m.Generation,
			StoredAt:   now.Unix(),
			ExpiresAt:  now.Add(ttl).Unix(),
			Checksum:   checksum,
			Payload:    payload,
		}
		raw, err := encodeGob(e)
		if err != nil {
			return coreerr.WrapBackend(err, "encode cache entry for entity %s", entityID)
		}
		return bucket.Put([]byte(entityID.String()), raw)
	})
	if err != nil {
		return err
	}
	c.metrics.incStore(ns.String())
	return nil
}

// TryGetSnapshot implements HookSurface.
func (c *Cache) TryGetSnapshot(family ids.EntityFamily, entityID ids.EntityId) (*snapshot.EntitySnapshot, bool, error) {
	result, snap, err := c.Get(family, entityID)
	if err != nil {
		return nil, false, err
	}
	return snap, result == Hit, nil
}

// OnEntityLoaded implements HookSurface.
func (c *Cache) OnEntityLoaded(family ids.EntityFamily, entityID ids.EntityId, snap snapshot.EntitySnapshot) error {
	return c.Put(family, entityID, snap)
}

// OnPackPersisted implements HookSurface: bumps the namespace generation,
// advances its base clock, journals the write, and deletes the cached
// entry so the next read rebuilds.
func (c *Cache) OnPackPersisted(family ids.EntityFamily, entityID ids.EntityId, inserted []ids.OperationId, clock ids.LamportTimestamp) error {
	var newGeneration uint64

	err := c.db.Update(func(tx *bolt.Tx) error {
		m, err := c.readMeta(tx, family)
		if err != nil {
			return err
		}
		m.Generation++
		if !m.HasBaseClock || m.BaseClock.Less(clock) {
			m.BaseClock = clock
			m.HasBaseClock = true
		}
		if err := c.writeMeta(tx, family, m); err != nil {
			return err
		}
		newGeneration = m.Generation

		jr := journalRecord{
			Namespace:   family.String(),
			EntityID:    entityID.String(),
			Generation:  m.Generation,
			InsertedOps: inserted,
			PersistedAt: time.Now().Unix(),
			BaseClock:   m.BaseClock,
		}
		raw, err := encodeGob(jr)
		if err != nil {
			return coreerr.WrapBackend(err, "encode journal entry for entity %s", entityID)
		}
		key := fmt.Sprintf("%s:%s:%020d", family, entityID, m.Generation)
		if err := tx.Bucket(journalBucket).Put([]byte(key), raw); err != nil {
			return coreerr.WrapBackend(err, "append journal entry for entity %s", entityID)
		}

		bucket, err := tx.CreateBucketIfNotExists([]byte(family.String()))
		if err != nil {
			return coreerr.WrapBackend(err, "open namespace bucket %s", family)
		}
		return bucket.Delete([]byte(entityID.String()))
	})
	if err != nil {
		return err
	}
	c.metrics.incEviction(family.String())
	c.metrics.setGeneration(family.String(), newGeneration)
	return nil
}

// InvalidateEntity implements HookSurface: an explicit forced drop.
func (c *Cache) InvalidateEntity(family ids.EntityFamily, entityID ids.EntityId) error {
	err := c.db.Update(func(tx *bolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists([]byte(family.String()))
		if err != nil {
			return coreerr.WrapBackend(err, "open namespace bucket %s", family)
		}
		return bucket.Delete([]byte(entityID.String()))
	})
	if err != nil {
		return err
	}
	c.metrics.incEviction(family.String())
	return nil
}

// sweepLoop runs the background maintenance pass on cfg.MaintenanceInterval
// until Close signals done. It checks only version/expiresAt, not
// generation — an entry may outlive a generation bump until it expires,
// is read (and declared Stale), or is explicitly invalidated; reads always
// check generation, so this is a space/time tradeoff, not a correctness gap.
func (c *Cache) sweepLoop() {
	defer c.wg.Done()
	ticker := time.NewTicker(c.cfg.MaintenanceInterval)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.sweepOnce()
		}
	}
}

func (c *Cache) sweepOnce() {
	err := c.db.Update(func(tx *bolt.Tx) error {
		return tx.ForEach(func(name []byte, bucket *bolt.Bucket) error {
			ns := string(name)
			if ns == string(metaBucket) || ns == string(journalBucket) {
				return nil
			}
			now := time.Now().Unix()
			var staleKeys [][]byte
			if err := bucket.ForEach(func(k, v []byte) error {
				var e entry
				if err := decodeGob(v, &e); err != nil || e.Version != c.cfg.Version || now > e.ExpiresAt {
					staleKeys = append(staleKeys, append([]byte(nil), k...))
				}
				return nil
			}); err != nil {
				return err
			}
			for _, k := range staleKeys {
				if err := bucket.Delete(k); err != nil {
					return err
				}
				c.metrics.incEviction(ns)
			}
			if len(staleKeys) > 0 {
				log.WithNamespace(log.WithComponent("cache"), ns).Debug().
					Int("evicted", len(staleKeys)).Msg("maintenance sweep evicted stale entries")
			}
			return nil
		})
	})
	if err != nil {
		log.WithComponent("cache").Error().Err(err).Msg("maintenance sweep failed")
	}
}

// Close signals the sweeper to stop, joins it, and closes the database.
func (c *Cache) Close() error {
	close(c.done)
	c.wg.Wait()
	return c.db.Close()
}
