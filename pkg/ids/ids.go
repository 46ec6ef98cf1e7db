// Package ids defines the identifier types shared across the core:
// EntityId, ReplicaId, OperationId, and BlobRef. None of these types
// invent identity on their own behalf beyond NewReplicaID — entity and
// operation ids are supplied by callers or derived from a timestamp.
package ids

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/trailbase/core/pkg/coreerr"
)

// EntityId is an opaque, total-ordered, string-serializable identifier
// for a top-level entity.
type EntityId string

func (e EntityId) String() string { return string(e) }

// ParseEntityId validates and wraps a raw string as an EntityId. Any
// non-empty token is accepted; the core does not require ids to be UUIDs.
func ParseEntityId(s string) (EntityId, error) {
	if s == "" {
		return "", coreerr.Validationf("entity id must not be empty")
	}
	return EntityId(s), nil
}

// ReplicaId identifies a writer and participates in Lamport tiebreaks.
type ReplicaId string

func (r ReplicaId) String() string { return string(r) }

// NewReplicaID generates a fresh, short, printable replica id. It is the
// only identifier generator in this package — everything else is either
// supplied by the caller or derived deterministically.
func NewReplicaID() ReplicaId {
	u := uuid.New()
	return ReplicaId(strings.ReplaceAll(u.String(), "-", "")[:12])
}

// LamportTimestamp is (counter, replicaId) with total order: counter
// ascending, then replicaId ascending lexicographically. This tiebreak
// rule is a frozen contract — changing it would change snapshot
// determinism for every existing repository.
type LamportTimestamp struct {
	Counter   uint64    `json:"counter"`
	ReplicaID ReplicaId `json:"replica_id"`
}

// Compare returns -1, 0, or 1 as t sorts before, equal to, or after o.
func (t LamportTimestamp) Compare(o LamportTimestamp) int {
	if t.Counter != o.Counter {
		if t.Counter < o.Counter {
			return -1
		}
		return 1
	}
	return strings.Compare(string(t.ReplicaID), string(o.ReplicaID))
}

func (t LamportTimestamp) Less(o LamportTimestamp) bool { return t.Compare(o) < 0 }
func (t LamportTimestamp) Equal(o LamportTimestamp) bool {
	return t.Counter == o.Counter && t.ReplicaID == o.ReplicaID
}

// OperationId is canonically derived from its LamportTimestamp and
// round-trips through its printable form. Total order equals the
// timestamp's order.
type OperationId struct {
	Timestamp LamportTimestamp
}

// NewOperationId derives an OperationId from a timestamp.
func NewOperationId(ts LamportTimestamp) OperationId {
	return OperationId{Timestamp: ts}
}

// String renders the canonical printable form: a 20-digit zero-padded
// counter, a dash, and the replica id. The fixed-width counter keeps
// lexicographic and numeric order identical, which the on-disk directory
// naming in pkg/gitstore depends on.
func (o OperationId) String() string {
	return fmt.Sprintf("%020d-%s", o.Timestamp.Counter, o.Timestamp.ReplicaID)
}

// ParseOperationId parses the canonical printable form produced by String.
func ParseOperationId(s string) (OperationId, error) {
	idx := strings.IndexByte(s, '-')
	if idx < 0 {
		return OperationId{}, coreerr.Validationf("malformed operation id %q", s)
	}
	counterStr, replica := s[:idx], s[idx+1:]
	if replica == "" {
		return OperationId{}, coreerr.Validationf("malformed operation id %q: empty replica", s)
	}
	counter, err := strconv.ParseUint(counterStr, 10, 64)
	if err != nil {
		return OperationId{}, coreerr.Validationf("malformed operation id %q: %v", s, err)
	}
	return OperationId{Timestamp: LamportTimestamp{Counter: counter, ReplicaID: ReplicaId(replica)}}, nil
}

// Compare orders OperationIds by their underlying timestamp.
func (o OperationId) Compare(other OperationId) int { return o.Timestamp.Compare(other.Timestamp) }
func (o OperationId) Less(other OperationId) bool   { return o.Compare(other) < 0 }
func (o OperationId) Equal(other OperationId) bool  { return o.Timestamp.Equal(other.Timestamp) }

// MarshalJSON / UnmarshalJSON render an OperationId as its canonical
// printable string, as used in index.json's "heads" array.
func (o OperationId) MarshalJSON() ([]byte, error) {
	return []byte(`"` + o.String() + `"`), nil
}

func (o *OperationId) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	parsed, err := ParseOperationId(s)
	if err != nil {
		return err
	}
	*o = parsed
	return nil
}

// EntityFamily names a higher-layer entity kind ("issues", "milestones",
// "identities", …). It is not part of the DAG/store contract — the store
// is family-agnostic and its ref names carry only the app and entity id —
// but the caller supplies it at each store operation and the store passes
// it to the cache hooks as the namespace key.
type EntityFamily string

func (f EntityFamily) String() string { return string(f) }

// BlobRef is the SHA-256 digest of a byte payload, hex-encoded.
type BlobRef [sha256.Size]byte

// BlobRefOf computes the deterministic digest of data.
func BlobRefOf(data []byte) BlobRef {
	return BlobRef(sha256.Sum256(data))
}

func (b BlobRef) String() string { return hex.EncodeToString(b[:]) }

// ParseBlobRef parses a hex-encoded digest, as produced by String.
func ParseBlobRef(s string) (BlobRef, error) {
	raw, err := hex.DecodeString(s)
	if err != nil {
		return BlobRef{}, coreerr.Validationf("malformed blob ref %q: %v", s, err)
	}
	if len(raw) != sha256.Size {
		return BlobRef{}, coreerr.Validationf("malformed blob ref %q: want %d bytes, got %d", s, sha256.Size, len(raw))
	}
	var out BlobRef
	copy(out[:], raw)
	return out, nil
}

// Compare orders BlobRefs by their hex-encoded digest, ascending.
func (b BlobRef) Compare(o BlobRef) int { return strings.Compare(b.String(), o.String()) }
func (b BlobRef) Less(o BlobRef) bool   { return b.Compare(o) < 0 }

// MarshalJSON / UnmarshalJSON let BlobRef round-trip as its hex string in
// JSON payloads (clock.json / index.json / meta.json use snake_case JSON
// per spec §6.2; BlobRef values appear inside Operation payloads).
func (b BlobRef) MarshalJSON() ([]byte, error) {
	return []byte(`"` + b.String() + `"`), nil
}

func (b *BlobRef) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	parsed, err := ParseBlobRef(s)
	if err != nil {
		return err
	}
	*b = parsed
	return nil
}
