package cache

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/trailbase/core/pkg/ids"
	"github.com/trailbase/core/pkg/snapshot"
)

func filepathReadVersion(path string) (string, error) {
	raw, err := os.ReadFile(filepath.Join(path, "VERSION"))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(raw)), nil
}

func openTestCache(t *testing.T, version uint32) *Cache {
	t.Helper()
	dir := t.TempDir()
	c, err := Open(Config{Path: filepath.Join(dir, "cache"), Version: version, DefaultTTL: time.Hour})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func sampleSnapshot(entityID ids.EntityId) snapshot.EntitySnapshot {
	return snapshot.EntitySnapshot{
		EntityID:      entityID,
		ClockSnapshot: ids.LamportTimestamp{Counter: 1, ReplicaID: "r1"},
	}
}

func TestGetMissOnEmptyCache(t *testing.T) {
	c := openTestCache(t, 1)
	result, _, err := c.Get(ids.EntityFamily("issues"), ids.EntityId("e1"))
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if result != Miss {
		t.Fatalf("expected Miss, got %v", result)
	}
}

func TestPutThenGetHit(t *testing.T) {
	c := openTestCache(t, 1)
	ns := ids.EntityFamily("issues")
	entityID := ids.EntityId("e1")
	snap := sampleSnapshot(entityID)

	if err := c.Put(ns, entityID, snap); err != nil {
		t.Fatalf("Put: %v", err)
	}
	result, got, err := c.Get(ns, entityID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if result != Hit {
		t.Fatalf("expected Hit, got %v", result)
	}
	if got.EntityID != entityID {
		t.Fatalf("unexpected snapshot returned: %+v", got)
	}
}

// TestCacheInvalidationOnWrite reproduces Scenario E.
func TestCacheInvalidationOnWrite(t *testing.T) {
	c := openTestCache(t, 1)
	ns := ids.EntityFamily("issues")
	entityID := ids.EntityId("e1")
	snap := sampleSnapshot(entityID)

	if err := c.Put(ns, entityID, snap); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if result, _, err := c.Get(ns, entityID); err != nil || result != Hit {
		t.Fatalf("expected Hit before persist, got %v, err %v", result, err)
	}

	genBefore, err := c.Generation(ns)
	if err != nil {
		t.Fatalf("Generation: %v", err)
	}

	if err := c.OnPackPersisted(ns, entityID, []ids.OperationId{}, ids.LamportTimestamp{Counter: 2, ReplicaID: "r1"}); err != nil {
		t.Fatalf("OnPackPersisted: %v", err)
	}

	result, _, err := c.Get(ns, entityID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if result == Hit {
		t.Fatalf("expected Miss or Stale after pack persisted, got Hit")
	}

	genAfter, err := c.Generation(ns)
	if err != nil {
		t.Fatalf("Generation: %v", err)
	}
	if genAfter <= genBefore {
		t.Fatalf("expected generation to strictly increase: before=%d after=%d", genBefore, genAfter)
	}

	newSnap := sampleSnapshot(entityID)
	if err := c.OnEntityLoaded(ns, entityID, newSnap); err != nil {
		t.Fatalf("OnEntityLoaded: %v", err)
	}
	result, got, err := c.Get(ns, entityID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if result != Hit || got.EntityID != entityID {
		t.Fatalf("expected Hit with rebuilt snapshot, got %v", result)
	}
}

func TestGetExpiresAfterTTL(t *testing.T) {
	dir := t.TempDir()
	c, err := Open(Config{Path: filepath.Join(dir, "cache"), Version: 1, DefaultTTL: time.Nanosecond})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer c.Close()

	ns := ids.EntityFamily("issues")
	entityID := ids.EntityId("e1")
	if err := c.Put(ns, entityID, sampleSnapshot(entityID)); err != nil {
		t.Fatalf("Put: %v", err)
	}
	// Put floors the TTL at one second and Get compares expiry in whole
	// unix seconds, so the entry only reads as expired once the clock is
	// past the second after ExpiresAt begins.
	time.Sleep(2100 * time.Millisecond)

	result, _, err := c.Get(ns, entityID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if result != Stale {
		t.Fatalf("expected Stale after TTL expiry, got %v", result)
	}
}

// TestVersionBumpWipesDirectory reproduces Scenario F.
func TestVersionBumpWipesDirectory(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cache")

	c1, err := Open(Config{Path: path, Version: 1, DefaultTTL: time.Hour})
	if err != nil {
		t.Fatalf("Open v1: %v", err)
	}
	ns := ids.EntityFamily("issues")
	entityID := ids.EntityId("e1")
	if err := c1.Put(ns, entityID, sampleSnapshot(entityID)); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := c1.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	c2, err := Open(Config{Path: path, Version: 2, DefaultTTL: time.Hour})
	if err != nil {
		t.Fatalf("Open v2: %v", err)
	}
	defer c2.Close()

	raw, err := filepathReadVersion(path)
	if err != nil {
		t.Fatalf("read VERSION: %v", err)
	}
	if raw != "2" {
		t.Fatalf("expected VERSION file to read 2, got %q", raw)
	}

	result, _, err := c2.Get(ns, entityID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if result != Miss {
		t.Fatalf("expected Miss after version bump wiped the directory, got %v", result)
	}
}

func TestMetricsSnapshotTracksHitsAndMisses(t *testing.T) {
	c := openTestCache(t, 1)
	ns := ids.EntityFamily("issues")
	entityID := ids.EntityId("e1")

	c.Get(ns, entityID) // miss
	c.Put(ns, entityID, sampleSnapshot(entityID))
	c.Get(ns, entityID) // hit

	snap := c.Metrics()[ns.String()]
	if snap.Misses != 1 || snap.Hits != 1 || snap.Stores != 1 {
		t.Fatalf("unexpected metrics snapshot: %+v", snap)
	}
}
