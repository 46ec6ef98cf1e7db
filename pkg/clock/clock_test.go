package clock

import (
	"math"
	"sync"
	"testing"

	"github.com/trailbase/core/pkg/coreerr"
	"github.com/trailbase/core/pkg/ids"
)

func TestTickMonotonic(t *testing.T) {
	c := New(ids.ReplicaId("r1"))
	first, err := c.Tick()
	if err != nil {
		t.Fatalf("Tick: %v", err)
	}
	second, err := c.Tick()
	if err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if !first.Less(second) {
		t.Fatalf("expected strictly increasing timestamps, got %+v then %+v", first, second)
	}
	if first.ReplicaID != "r1" || second.ReplicaID != "r1" {
		t.Fatalf("expected replica id to be stamped on every tick")
	}
}

func TestResumeContinuesFromPersistedCounter(t *testing.T) {
	c := Resume(ids.ReplicaId("r1"), 100)
	ts, err := c.Tick()
	if err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if ts.Counter != 101 {
		t.Fatalf("expected counter to continue from 101, got %d", ts.Counter)
	}
}

func TestObserveAdvancesButNeverRegresses(t *testing.T) {
	c := New(ids.ReplicaId("r1"))
	c.Observe(ids.LamportTimestamp{Counter: 50, ReplicaID: "other"})
	if c.Snapshot() != 50 {
		t.Fatalf("expected Observe to advance counter to 50, got %d", c.Snapshot())
	}
	c.Observe(ids.LamportTimestamp{Counter: 10, ReplicaID: "other"})
	if c.Snapshot() != 50 {
		t.Fatalf("Observe must not regress the counter, got %d", c.Snapshot())
	}
}

func TestTickOverflow(t *testing.T) {
	c := Resume(ids.ReplicaId("r1"), math.MaxUint64)
	_, err := c.Tick()
	if err == nil {
		t.Fatalf("expected overflow error")
	}
	if !coreerr.Is(err, coreerr.KindValidation) {
		t.Fatalf("expected validation error kind, got %v", coreerr.KindOf(err))
	}
}

func TestTickConcurrentSafe(t *testing.T) {
	c := New(ids.ReplicaId("r1"))
	var wg sync.WaitGroup
	const n = 100
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := c.Tick(); err != nil {
				t.Errorf("Tick: %v", err)
			}
		}()
	}
	wg.Wait()
	if c.Snapshot() != n {
		t.Fatalf("expected counter to equal %d after %d concurrent ticks, got %d", n, n, c.Snapshot())
	}
}
