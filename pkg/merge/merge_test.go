package merge

import (
	"testing"

	"github.com/trailbase/core/pkg/coreerr"
	"github.com/trailbase/core/pkg/dag"
	"github.com/trailbase/core/pkg/ids"
	"github.com/trailbase/core/pkg/op"
)

func ts(counter uint64, replica string) ids.LamportTimestamp {
	return ids.LamportTimestamp{Counter: counter, ReplicaID: ids.ReplicaId(replica)}
}

func opID(counter uint64, replica string) ids.OperationId {
	return ids.NewOperationId(ts(counter, replica))
}

// forkedEntity reproduces Scenario B: a base op, then two sibling ops
// from different replicas forking off it.
func forkedEntity(t *testing.T) (*dag.StoredEntity, ids.OperationId, ids.OperationId) {
	t.Helper()
	e := dag.New(ids.EntityId("e1"))
	blob := op.Of([]byte("payload"))
	base := opID(1, "r1")
	a := opID(2, "r1")
	b := opID(3, "r2")

	basePack := &op.Pack{
		EntityID:     e.EntityID,
		Operations:   []op.Operation{{ID: base, Payload: blob.Digest}},
		ContentBlobs: []op.Blob{blob},
	}
	if _, err := e.Apply(basePack); err != nil {
		t.Fatalf("apply base: %v", err)
	}

	forkPack := &op.Pack{
		EntityID: e.EntityID,
		Operations: []op.Operation{
			{ID: a, Parents: []ids.OperationId{base}, Payload: blob.Digest},
			{ID: b, Parents: []ids.OperationId{base}, Payload: blob.Digest},
		},
	}
	if _, err := e.Apply(forkPack); err != nil {
		t.Fatalf("apply fork: %v", err)
	}
	return e, a, b
}

func TestResolveOursRetainsMaxHead(t *testing.T) {
	e, a, b := forkedEntity(t)
	max := a
	if a.Less(b) {
		max = b
	}

	heads, err := Resolve(e, Ours())
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(heads) != 1 || !heads[0].Equal(max) {
		t.Fatalf("expected single max head %s, got %+v", max, heads)
	}
	if len(e.Operations) != 3 {
		t.Fatalf("merge must not remove any operations, got %d", len(e.Operations))
	}
}

func TestResolveTheirsRetainsMinHead(t *testing.T) {
	e, a, b := forkedEntity(t)
	min := a
	if b.Less(a) {
		min = b
	}

	heads, err := Resolve(e, Theirs())
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(heads) != 1 || !heads[0].Equal(min) {
		t.Fatalf("expected single min head %s, got %+v", min, heads)
	}
}

func TestResolveManualRejectsEmptySelection(t *testing.T) {
	e, _, _ := forkedEntity(t)
	_, err := Resolve(e, Manual(nil))
	if !coreerr.Is(err, coreerr.KindValidation) {
		t.Fatalf("expected validation error for empty selection, got %v", err)
	}
}

func TestResolveManualRejectsUnknownHead(t *testing.T) {
	e, _, _ := forkedEntity(t)
	unknown := opID(99, "ghost")
	_, err := Resolve(e, Manual([]ids.OperationId{unknown}))
	if !coreerr.Is(err, coreerr.KindValidation) {
		t.Fatalf("expected validation error for unknown head, got %v", err)
	}
}

func TestResolveSingleHeadIsNoOp(t *testing.T) {
	e := dag.New(ids.EntityId("e1"))
	blob := op.Of([]byte("payload"))
	root := opID(1, "r1")
	pack := &op.Pack{
		EntityID:     e.EntityID,
		Operations:   []op.Operation{{ID: root, Payload: blob.Digest}},
		ContentBlobs: []op.Blob{blob},
	}
	if _, err := e.Apply(pack); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	heads, err := Resolve(e, Ours())
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(heads) != 1 || !heads[0].Equal(root) {
		t.Fatalf("expected single-head no-op to return current head, got %+v", heads)
	}
}
