package gitstore

import (
	"fmt"
	"time"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/trailbase/core/pkg/coreerr"
	"github.com/trailbase/core/pkg/dag"
	"github.com/trailbase/core/pkg/ids"
	"github.com/trailbase/core/pkg/log"
	"github.com/trailbase/core/pkg/op"
)

// PersistPack loads or creates entityID's entity, applies pack to it, and
// commits the result under refs/<app>/entities/<entityId>. Requires the
// store hold a write lock.
func (s *Store) PersistPack(family ids.EntityFamily, entityID ids.EntityId, pack *op.Pack) ([]ids.OperationId, error) {
	if err := s.requireWriteLock("PersistPack"); err != nil {
		return nil, err
	}

	refName := s.entityRefName(entityID)
	var entity *dag.StoredEntity
	var parentCommit *plumbing.Hash

	existingRef, err := s.repo.Storer.Reference(refName)
	switch {
	case err == nil:
		entity, err = s.decodeEntityFromCommit(entityID, existingRef.Hash())
		if err != nil {
			return nil, err
		}
		hash := existingRef.Hash()
		parentCommit = &hash
	case err == plumbing.ErrReferenceNotFound:
		entity = dag.New(entityID)
	default:
		return nil, coreerr.WrapBackend(err, "read ref %s", refName)
	}

	inserted, err := entity.Apply(pack)
	if err != nil {
		return nil, err
	}

	treeHash, err := s.buildEntityTree(entity)
	if err != nil {
		return nil, err
	}

	commitHash, err := s.commitTree(treeHash, parentCommit, fmt.Sprintf("persist pack: entity=%s ops=%d", entityID, len(pack.Operations)))
	if err != nil {
		return nil, err
	}

	ref := plumbing.NewHashReference(refName, commitHash)
	if err := s.repo.Storer.SetReference(ref); err != nil {
		return nil, coreerr.WrapBackend(err, "update ref %s", refName)
	}

	if err := s.hooks.OnPackPersisted(family, entityID, inserted, entity.Clock); err != nil {
		entityLog := log.WithEntityID(log.WithComponent("gitstore"), entityID.String())
		entityLog.Warn().Err(err).Msg("cache hook OnPackPersisted failed")
		return nil, err
	}

	if len(inserted) > 0 {
		replicaLog := log.WithReplicaID(log.WithComponent("gitstore"), string(entity.Clock.ReplicaID))
		replicaLog.Debug().Str("entity_id", entityID.String()).Int("inserted", len(inserted)).Msg("persisted pack")
	}

	return inserted, nil
}

func (s *Store) commitTree(treeHash plumbing.Hash, parent *plumbing.Hash, message string) (plumbing.Hash, error) {
	now := time.Now()
	sig := object.Signature{Name: "trailbase", Email: "trailbase@localhost", When: now}
	commit := &object.Commit{
		Author:    sig,
		Committer: sig,
		Message:   message,
		TreeHash:  treeHash,
	}
	if parent != nil {
		commit.ParentHashes = []plumbing.Hash{*parent}
	}

	obj := s.repo.Storer.NewEncodedObject()
	obj.SetType(plumbing.CommitObject)
	if err := commit.Encode(obj); err != nil {
		return plumbing.ZeroHash, coreerr.WrapBackend(err, "encode commit")
	}
	hash, err := s.repo.Storer.SetEncodedObject(obj)
	if err != nil {
		return plumbing.ZeroHash, coreerr.WrapBackend(err, "store commit object")
	}
	return hash, nil
}
