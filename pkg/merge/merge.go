// Package merge reduces a multi-head entity to a chosen head set under an
// explicit client-selected policy. The store never auto-merges; this
// package only prunes heads, it never introduces new operations.
package merge

import (
	"github.com/trailbase/core/pkg/coreerr"
	"github.com/trailbase/core/pkg/dag"
	"github.com/trailbase/core/pkg/ids"
)

// Strategy selects which heads survive a conflict resolution.
type Strategy struct {
	kind      strategyKind
	selection []ids.OperationId
}

type strategyKind int

const (
	kindOurs strategyKind = iota
	kindTheirs
	kindManual
)

// Ours retains the single maximum head by OperationId order.
func Ours() Strategy { return Strategy{kind: kindOurs} }

// Theirs retains the single minimum head by OperationId order.
func Theirs() Strategy { return Strategy{kind: kindTheirs} }

// Manual retains exactly the heads in selection, which must be non-empty,
// deduplicated, and a subset of the entity's current heads.
func Manual(selection []ids.OperationId) Strategy {
	return Strategy{kind: kindManual, selection: selection}
}

// Resolve prunes e.Heads down to the strategy's chosen set. A single-head
// entity is returned unchanged as a no-op regardless of strategy.
func Resolve(e *dag.StoredEntity, strategy Strategy) ([]ids.OperationId, error) {
	if len(e.Heads) <= 1 {
		return currentHeads(e), nil
	}

	var chosen []ids.OperationId
	switch strategy.kind {
	case kindOurs:
		chosen = []ids.OperationId{extremeHead(e, false)}
	case kindTheirs:
		chosen = []ids.OperationId{extremeHead(e, true)}
	case kindManual:
		if len(strategy.selection) == 0 {
			return nil, coreerr.Validationf("manual merge selection must not be empty")
		}
		seen := make(map[ids.OperationId]struct{}, len(strategy.selection))
		for _, id := range strategy.selection {
			if _, dup := seen[id]; dup {
				return nil, coreerr.Validationf("manual merge selection contains duplicate head %s", id)
			}
			seen[id] = struct{}{}
			if _, ok := e.Heads[id]; !ok {
				return nil, coreerr.Validationf("manual merge selection references unknown head %s", id)
			}
		}
		chosen = strategy.selection
	default:
		return nil, coreerr.Validationf("unknown merge strategy")
	}

	newHeads := make(map[ids.OperationId]struct{}, len(chosen))
	for _, id := range chosen {
		newHeads[id] = struct{}{}
	}
	e.Heads = newHeads
	return currentHeads(e), nil
}

// extremeHead returns the minimum head when wantMin is true, else the
// maximum head.
func extremeHead(e *dag.StoredEntity, wantMin bool) ids.OperationId {
	var extreme ids.OperationId
	first := true
	for id := range e.Heads {
		if first {
			extreme = id
			first = false
			continue
		}
		if wantMin && id.Less(extreme) {
			extreme = id
		}
		if !wantMin && extreme.Less(id) {
			extreme = id
		}
	}
	return extreme
}

func currentHeads(e *dag.StoredEntity) []ids.OperationId {
	out := make([]ids.OperationId, 0, len(e.Heads))
	for id := range e.Heads {
		out = append(out, id)
	}
	return out
}
