package gitstore

import (
	"fmt"

	"github.com/go-git/go-git/v5/plumbing"

	"github.com/trailbase/core/pkg/coreerr"
	"github.com/trailbase/core/pkg/ids"
	"github.com/trailbase/core/pkg/merge"
)

// ResolveConflicts loads entityID, applies strategy to prune its head
// set, and commits the pruned index. No operations are removed or
// created; only the set of surviving heads changes. Invalidates any
// cached snapshot for the entity.
func (s *Store) ResolveConflicts(family ids.EntityFamily, entityID ids.EntityId, strategy merge.Strategy) ([]ids.OperationId, error) {
	if err := s.requireWriteLock("ResolveConflicts"); err != nil {
		return nil, err
	}

	refName := s.entityRefName(entityID)
	ref, err := s.repo.Storer.Reference(refName)
	if err != nil {
		if err == plumbing.ErrReferenceNotFound {
			return nil, coreerr.NotFoundf("entity %s not found", entityID)
		}
		return nil, coreerr.WrapBackend(err, "read ref %s", refName)
	}

	entity, err := s.decodeEntityFromCommit(entityID, ref.Hash())
	if err != nil {
		return nil, err
	}

	resolvedHeads, err := merge.Resolve(entity, strategy)
	if err != nil {
		return nil, err
	}

	treeHash, err := s.buildEntityTree(entity)
	if err != nil {
		return nil, err
	}

	parentHash := ref.Hash()
	commitHash, err := s.commitTree(treeHash, &parentHash, fmt.Sprintf("resolve conflict: entity=%s heads=%d", entityID, len(resolvedHeads)))
	if err != nil {
		return nil, err
	}

	newRef := plumbing.NewHashReference(refName, commitHash)
	if err := s.repo.Storer.SetReference(newRef); err != nil {
		return nil, coreerr.WrapBackend(err, "update ref %s", refName)
	}

	if err := s.hooks.InvalidateEntity(family, entityID); err != nil {
		return nil, err
	}

	return resolvedHeads, nil
}
