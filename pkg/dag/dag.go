// Package dag holds the in-memory operation DAG for a single entity: the
// operation set, the blob set, the head set, and the apply algorithm that
// keeps them consistent.
package dag

import (
	"github.com/trailbase/core/pkg/coreerr"
	"github.com/trailbase/core/pkg/ids"
	"github.com/trailbase/core/pkg/op"
)

// StoredEntity is the in-memory representation of one entity's DAG.
// Zero value is not usable; construct with New.
type StoredEntity struct {
	EntityID   ids.EntityId
	Clock      ids.LamportTimestamp
	Operations map[ids.OperationId]op.Operation
	Blobs      map[ids.BlobRef][]byte
	Heads      map[ids.OperationId]struct{}
}

// New creates an empty entity ready to receive its first pack.
func New(entityID ids.EntityId) *StoredEntity {
	return &StoredEntity{
		EntityID:   entityID,
		Operations: make(map[ids.OperationId]op.Operation),
		Blobs:      make(map[ids.BlobRef][]byte),
		Heads:      make(map[ids.OperationId]struct{}),
	}
}

// clone produces a deep-enough working copy for apply-then-commit
// semantics: failures during Apply must leave the receiver untouched.
func (e *StoredEntity) clone() *StoredEntity {
	c := &StoredEntity{
		EntityID:   e.EntityID,
		Clock:      e.Clock,
		Operations: make(map[ids.OperationId]op.Operation, len(e.Operations)),
		Blobs:      make(map[ids.BlobRef][]byte, len(e.Blobs)),
		Heads:      make(map[ids.OperationId]struct{}, len(e.Heads)),
	}
	for k, v := range e.Operations {
		c.Operations[k] = v
	}
	for k, v := range e.Blobs {
		c.Blobs[k] = v
	}
	for k, v := range e.Heads {
		c.Heads[k] = v
	}
	return c
}

// Apply validates and applies pack to the entity op by op, in the pack's
// given order. On any failure the entity is left completely unchanged —
// the algorithm runs against a working copy and commits only on full
// success.
func (e *StoredEntity) Apply(pack *op.Pack) ([]ids.OperationId, error) {
	existingOps := make(map[ids.OperationId]struct{}, len(e.Operations))
	for id := range e.Operations {
		existingOps[id] = struct{}{}
	}
	existingBlobs := make(map[ids.BlobRef]struct{}, len(e.Blobs))
	for digest := range e.Blobs {
		existingBlobs[digest] = struct{}{}
	}
	if err := pack.Validate(existingOps, existingBlobs); err != nil {
		return nil, err
	}

	working := e.clone()
	inserted := make([]ids.OperationId, 0, len(pack.Operations))

	for _, o := range pack.Operations {
		if _, dup := working.Operations[o.ID]; dup {
			return nil, coreerr.Validationf("operation %s already exists in entity %s", o.ID, e.EntityID)
		}
		for _, parent := range o.Parents {
			if _, ok := working.Operations[parent]; !ok {
				return nil, coreerr.Validationf("operation %s references unsatisfied parent %s", o.ID, parent)
			}
		}

		working.Operations[o.ID] = o
		working.Heads[o.ID] = struct{}{}
		for _, parent := range o.Parents {
			delete(working.Heads, parent)
		}
		inserted = append(inserted, o.ID)
	}

	for _, b := range pack.ContentBlobs {
		working.Blobs[b.Digest] = b.Data
	}

	if working.Clock.Less(pack.ClockSnapshot) {
		working.Clock = pack.ClockSnapshot
	}

	*e = *working
	return inserted, nil
}

// RecomputeHeads rebuilds the head set from scratch, used when loading
// stored state that omits the heads index.
func RecomputeHeads(ops map[ids.OperationId]op.Operation) map[ids.OperationId]struct{} {
	hasChild := make(map[ids.OperationId]struct{}, len(ops))
	for _, o := range ops {
		for _, parent := range o.Parents {
			hasChild[parent] = struct{}{}
		}
	}
	heads := make(map[ids.OperationId]struct{})
	for id := range ops {
		if _, ok := hasChild[id]; !ok {
			heads[id] = struct{}{}
		}
	}
	return heads
}
