package dag

import (
	"testing"

	"github.com/trailbase/core/pkg/coreerr"
	"github.com/trailbase/core/pkg/ids"
	"github.com/trailbase/core/pkg/op"
)

func ts(counter uint64, replica string) ids.LamportTimestamp {
	return ids.LamportTimestamp{Counter: counter, ReplicaID: ids.ReplicaId(replica)}
}

func opID(counter uint64, replica string) ids.OperationId {
	return ids.NewOperationId(ts(counter, replica))
}

func TestApplyRootOperation(t *testing.T) {
	e := New(ids.EntityId("e1"))
	blob := op.Of([]byte("payload"))
	root := opID(1, "r1")
	pack := &op.Pack{
		EntityID:      e.EntityID,
		ClockSnapshot: ts(1, "r1"),
		Operations: []op.Operation{
			{ID: root, Payload: blob.Digest},
		},
		ContentBlobs: []op.Blob{blob},
	}

	inserted, err := e.Apply(pack)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if len(inserted) != 1 || !inserted[0].Equal(root) {
		t.Fatalf("expected root inserted, got %+v", inserted)
	}
	if _, ok := e.Heads[root]; !ok || len(e.Heads) != 1 {
		t.Fatalf("expected single head == root, got %+v", e.Heads)
	}
	if !e.Clock.Equal(ts(1, "r1")) {
		t.Fatalf("expected clock to merge pack clock, got %+v", e.Clock)
	}
}

func TestApplyUpdatesHeadsAlgebra(t *testing.T) {
	e := New(ids.EntityId("e1"))
	blob := op.Of([]byte("payload"))
	root := opID(1, "r1")
	child := opID(2, "r1")
	pack := &op.Pack{
		EntityID: e.EntityID,
		Operations: []op.Operation{
			{ID: root, Payload: blob.Digest},
			{ID: child, Parents: []ids.OperationId{root}, Payload: blob.Digest},
		},
		ContentBlobs: []op.Blob{blob},
	}
	if _, err := e.Apply(pack); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if _, ok := e.Heads[root]; ok {
		t.Fatalf("root should no longer be a head once it has a child")
	}
	if _, ok := e.Heads[child]; !ok || len(e.Heads) != 1 {
		t.Fatalf("expected single head == child, got %+v", e.Heads)
	}
}

func TestApplyRejectsDuplicateIDLeavesEntityUnchanged(t *testing.T) {
	e := New(ids.EntityId("e1"))
	blob := op.Of([]byte("payload"))
	root := opID(1, "r1")
	pack := &op.Pack{
		EntityID:   e.EntityID,
		Operations: []op.Operation{{ID: root, Payload: blob.Digest}},
		ContentBlobs: []op.Blob{blob},
	}
	if _, err := e.Apply(pack); err != nil {
		t.Fatalf("first apply: %v", err)
	}
	snapshotOpsLen := len(e.Operations)

	_, err := e.Apply(pack)
	if !coreerr.Is(err, coreerr.KindValidation) {
		t.Fatalf("expected validation error on duplicate apply, got %v", err)
	}
	if len(e.Operations) != snapshotOpsLen {
		t.Fatalf("entity must be unchanged after a failed apply")
	}
}

func TestApplyRejectsMissingParentLeavesEntityUnchanged(t *testing.T) {
	e := New(ids.EntityId("e1"))
	blob := op.Of([]byte("payload"))
	missingParent := opID(1, "r1")
	pack := &op.Pack{
		EntityID: e.EntityID,
		Operations: []op.Operation{
			{ID: opID(5, "r1"), Parents: []ids.OperationId{missingParent}, Payload: blob.Digest},
		},
	}
	_, err := e.Apply(pack)
	if !coreerr.Is(err, coreerr.KindValidation) {
		t.Fatalf("expected validation error for missing parent, got %v", err)
	}
	if len(e.Operations) != 0 {
		t.Fatalf("entity must remain empty after a failed apply")
	}
}

func TestRecomputeHeadsMatchesIncrementalHeads(t *testing.T) {
	e := New(ids.EntityId("e1"))
	blob := op.Of([]byte("payload"))
	base := opID(1, "r1")
	a := opID(2, "r1")
	b := opID(3, "r2")
	pack := &op.Pack{
		EntityID: e.EntityID,
		Operations: []op.Operation{
			{ID: base, Payload: blob.Digest},
			{ID: a, Parents: []ids.OperationId{base}, Payload: blob.Digest},
			{ID: b, Parents: []ids.OperationId{base}, Payload: blob.Digest},
		},
		ContentBlobs: []op.Blob{blob},
	}
	if _, err := e.Apply(pack); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	recomputed := RecomputeHeads(e.Operations)
	if len(recomputed) != len(e.Heads) {
		t.Fatalf("recomputed heads %v do not match incremental heads %v", recomputed, e.Heads)
	}
	for id := range e.Heads {
		if _, ok := recomputed[id]; !ok {
			t.Fatalf("recomputed heads missing %s", id)
		}
	}
}

func TestApplyRejectsBlobDigestMismatch(t *testing.T) {
	e := New(ids.EntityId("e1"))
	good := ids.BlobRefOf([]byte("payload"))
	pack := &op.Pack{
		EntityID: e.EntityID,
		Operations: []op.Operation{
			{ID: opID(1, "r1"), Payload: good},
		},
		ContentBlobs: []op.Blob{{Digest: good, Data: []byte("tampered")}},
	}
	_, err := e.Apply(pack)
	if !coreerr.Is(err, coreerr.KindValidation) {
		t.Fatalf("expected validation error for blob mismatch, got %v", err)
	}
	if len(e.Operations) != 0 {
		t.Fatalf("entity must remain empty after a failed apply")
	}
}
