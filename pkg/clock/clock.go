// Package clock implements the Lamport clock each replica keeps to mint
// and observe OperationId timestamps.
package clock

import (
	"sync"

	"github.com/trailbase/core/pkg/coreerr"
	"github.com/trailbase/core/pkg/ids"
)

// Clock is safe for concurrent use. A replica holds exactly one Clock for
// its lifetime; it never regresses the counter it has already observed.
type Clock struct {
	mu        sync.Mutex
	replicaID ids.ReplicaId
	counter   uint64
}

// New creates a fresh clock for replicaID, starting at counter 0.
func New(replicaID ids.ReplicaId) *Clock {
	return &Clock{replicaID: replicaID}
}

// Resume recreates a clock for replicaID at a previously persisted counter,
// for example after loading clock.json from disk.
func Resume(replicaID ids.ReplicaId, counter uint64) *Clock {
	return &Clock{replicaID: replicaID, counter: counter}
}

// ReplicaID returns the replica this clock mints timestamps for.
func (c *Clock) ReplicaID() ids.ReplicaId { return c.replicaID }

// Tick advances the counter and returns a fresh timestamp for a locally
// authored operation. It fails only if the counter would overflow uint64.
func (c *Clock) Tick() (ids.LamportTimestamp, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.counter == ^uint64(0) {
		return ids.LamportTimestamp{}, coreerr.Validationf("lamport counter overflow for replica %s", c.replicaID)
	}
	c.counter++
	return ids.LamportTimestamp{Counter: c.counter, ReplicaID: c.replicaID}, nil
}

// Observe folds in a timestamp seen from an operation authored elsewhere
// (or locally), advancing the local counter to at least ts.Counter. It
// never decreases the counter.
func (c *Clock) Observe(ts ids.LamportTimestamp) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ts.Counter > c.counter {
		c.counter = ts.Counter
	}
}

// Snapshot returns the current counter value, suitable for persisting to
// clock.json.
func (c *Clock) Snapshot() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counter
}
