// Package snapshot builds the deterministic, sorted read-only projection
// of a StoredEntity that two converged replicas must produce byte-identical.
package snapshot

import (
	"sort"

	"github.com/trailbase/core/pkg/dag"
	"github.com/trailbase/core/pkg/ids"
	"github.com/trailbase/core/pkg/op"
)

// EntitySnapshot is a pure function of an entity's logical contents;
// physical storage order never leaks into it.
type EntitySnapshot struct {
	EntityID      ids.EntityId         `json:"entity_id"`
	ClockSnapshot ids.LamportTimestamp `json:"clock_snapshot"`
	Heads         []ids.OperationId    `json:"heads"`
	Operations    []op.Operation       `json:"operations"`
	Blobs         []op.Blob            `json:"blobs"`
}

// Build produces an EntitySnapshot from e: operations, heads, and blobs
// sorted ascending by their natural order; the clock copied verbatim.
func Build(e *dag.StoredEntity) EntitySnapshot {
	ops := make([]op.Operation, 0, len(e.Operations))
	for _, o := range e.Operations {
		ops = append(ops, o)
	}
	sort.Slice(ops, func(i, j int) bool { return ops[i].ID.Less(ops[j].ID) })

	blobs := make([]op.Blob, 0, len(e.Blobs))
	for digest, data := range e.Blobs {
		blobs = append(blobs, op.Blob{Digest: digest, Data: data})
	}
	sort.Slice(blobs, func(i, j int) bool { return blobs[i].Digest.Less(blobs[j].Digest) })

	heads := make([]ids.OperationId, 0, len(e.Heads))
	for id := range e.Heads {
		heads = append(heads, id)
	}
	sort.Slice(heads, func(i, j int) bool { return heads[i].Less(heads[j]) })

	return EntitySnapshot{
		EntityID:      e.EntityID,
		ClockSnapshot: e.Clock,
		Heads:         heads,
		Operations:    ops,
		Blobs:         blobs,
	}
}
