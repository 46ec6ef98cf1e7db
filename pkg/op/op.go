// Package op defines the operation and blob wire types and the pack
// validation rules every operation must pass before it touches the DAG.
package op

import (
	"encoding/json"

	"github.com/trailbase/core/pkg/coreerr"
	"github.com/trailbase/core/pkg/ids"
)

// Blob is a content-addressed payload. Of and FromStored both guarantee
// digest == BlobRefOf(data); a Blob built as a struct literal carries no
// such guarantee, which is why Pack.Validate re-checks content blobs.
type Blob struct {
	Digest ids.BlobRef
	Data   []byte
}

// Of computes the digest of data and packages it with the payload.
func Of(data []byte) Blob {
	return Blob{Digest: ids.BlobRefOf(data), Data: data}
}

// FromStored reconstructs a Blob read back from storage, re-verifying the
// digest. A mismatch is a Corruption error, never silently accepted.
func FromStored(digest ids.BlobRef, data []byte) (Blob, error) {
	got := ids.BlobRefOf(data)
	if got != digest {
		return Blob{}, coreerr.WrapCorruption(nil, "blob digest mismatch: filename %s, computed %s", digest, got)
	}
	return Blob{Digest: digest, Data: data}, nil
}

// Metadata is the free-form audit trail attached to every operation.
type Metadata struct {
	Author  string `json:"author"`
	Message string `json:"message,omitempty"`
}

// Operation is a single append-only event in an entity's DAG.
type Operation struct {
	ID       ids.OperationId   `json:"id"`
	Parents  []ids.OperationId `json:"parents"`
	Payload  ids.BlobRef       `json:"payload"`
	Metadata Metadata          `json:"metadata"`
}

// MarshalJSON / UnmarshalJSON route through a plain alias to avoid infinite
// recursion while keeping the snake_case field names declared above.
func (o Operation) MarshalJSON() ([]byte, error) {
	type alias Operation
	return json.Marshal(alias(o))
}

func (o *Operation) UnmarshalJSON(data []byte) error {
	type alias Operation
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return coreerr.Validationf("decode operation: %v", err)
	}
	if a.Parents == nil {
		a.Parents = []ids.OperationId{}
	}
	*o = Operation(a)
	return nil
}

// Pack is a client-supplied, topologically ordered batch of operations for
// one entity, plus the blobs they newly reference.
type Pack struct {
	EntityID      ids.EntityId          `json:"entity_id"`
	ClockSnapshot ids.LamportTimestamp  `json:"clock_snapshot"`
	Operations    []Operation           `json:"operations"`
	ContentBlobs  []Blob                `json:"content_blobs"`
}

// Validate enforces the four pack invariants, given the set of blobs and
// operation ids the entity already holds. It checks duplicate operation
// ids first, then the content blobs (conflicting duplicates and digest
// mismatches), then each operation's payload and parents in pack order,
// and reports the first violation found.
func (p *Pack) Validate(existingOps map[ids.OperationId]struct{}, existingBlobs map[ids.BlobRef]struct{}) error {
	seenIDs := make(map[ids.OperationId]struct{}, len(p.Operations))
	for _, o := range p.Operations {
		if _, dup := seenIDs[o.ID]; dup {
			return coreerr.Validationf("duplicate operation id %s within pack", o.ID)
		}
		seenIDs[o.ID] = struct{}{}
	}

	blobsByDigest := make(map[ids.BlobRef][]byte, len(p.ContentBlobs))
	for _, b := range p.ContentBlobs {
		if prior, dup := blobsByDigest[b.Digest]; dup {
			if string(prior) != string(b.Data) {
				return coreerr.Validationf("content blob %s appears twice with differing data", b.Digest)
			}
			continue
		}
		if got := ids.BlobRefOf(b.Data); got != b.Digest {
			return coreerr.Validationf("content blob %s does not match its data (computed %s)", b.Digest, got)
		}
		blobsByDigest[b.Digest] = b.Data
	}

	knownOps := make(map[ids.OperationId]struct{}, len(existingOps)+len(p.Operations))
	for id := range existingOps {
		knownOps[id] = struct{}{}
	}

	for _, o := range p.Operations {
		if _, ok := blobsByDigest[o.Payload]; !ok {
			if _, ok := existingBlobs[o.Payload]; !ok {
				return coreerr.Validationf("operation %s references unresolved payload %s", o.ID, o.Payload)
			}
		}
		for _, parent := range o.Parents {
			if _, ok := knownOps[parent]; !ok {
				return coreerr.Validationf("operation %s references unsatisfied parent %s", o.ID, parent)
			}
		}
		knownOps[o.ID] = struct{}{}
	}

	return nil
}
