package gitstore

import (
	"sort"
	"strings"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/storer"

	"github.com/trailbase/core/pkg/coreerr"
	"github.com/trailbase/core/pkg/ids"
)

// EntitySummary is one entry of a ListEntities result: just enough to
// let a caller decide which entities are worth a full LoadEntity or a
// ResolveConflicts call. HeadCount above 1 means the entity has
// divergent heads and needs resolving.
type EntitySummary struct {
	EntityID  ids.EntityId
	HeadCount int

	headCommit plumbing.Hash
}

// ListEntities enumerates every entity ref under this store's app
// namespace, sorted lexicographically by entity id. Refs whose suffix
// fails to parse as an EntityId are skipped rather than failing the
// whole listing — a defensive stance against a foreign ref landing
// under the same prefix.
func (s *Store) ListEntities() ([]EntitySummary, error) {
	prefix := refPrefix(s.app)
	var out []EntitySummary

	iter, err := s.repo.Storer.IterReferences()
	if err != nil {
		return nil, coreerr.WrapBackend(err, "iterate references")
	}
	defer iter.Close()

	err = iter.ForEach(func(ref *plumbing.Reference) error {
		name := ref.Name().String()
		if !strings.HasPrefix(name, prefix) {
			return nil
		}
		entityID, perr := ids.ParseEntityId(strings.TrimPrefix(name, prefix))
		if perr != nil {
			return nil
		}
		headCount, herr := s.readHeadCount(entityID, ref.Hash())
		if herr != nil {
			return herr
		}
		out = append(out, EntitySummary{EntityID: entityID, HeadCount: headCount, headCommit: ref.Hash()})
		return nil
	})
	if err != nil && err != storer.ErrStop {
		return nil, coreerr.WrapBackend(err, "walk entity refs")
	}

	sort.Slice(out, func(i, j int) bool { return out[i].EntityID.String() < out[j].EntityID.String() })
	return out, nil
}
