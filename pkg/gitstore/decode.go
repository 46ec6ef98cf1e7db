package gitstore

import (
	"encoding/json"
	"strings"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/trailbase/core/pkg/coreerr"
	"github.com/trailbase/core/pkg/dag"
	"github.com/trailbase/core/pkg/ids"
	"github.com/trailbase/core/pkg/op"
)

// decodeEntityFromCommit materializes a StoredEntity from the tree a
// commit points to, re-verifying every blob digest as it reads it.
func (s *Store) decodeEntityFromCommit(entityID ids.EntityId, commitHash plumbing.Hash) (*dag.StoredEntity, error) {
	commit, err := object.GetCommit(s.repo.Storer, commitHash)
	if err != nil {
		return nil, coreerr.WrapBackend(err, "load commit %s for entity %s", commitHash, entityID)
	}
	tree, err := object.GetTree(s.repo.Storer, commit.TreeHash)
	if err != nil {
		return nil, coreerr.WrapBackend(err, "load tree %s for entity %s", commit.TreeHash, entityID)
	}

	entity := dag.New(entityID)

	clockEntry, err := tree.FindEntry("clock.json")
	if err != nil {
		return nil, coreerr.WrapCorruption(err, "entity %s missing clock.json", entityID)
	}
	clockBytes, err := s.readBlob(clockEntry.Hash)
	if err != nil {
		return nil, err
	}
	var clk ids.LamportTimestamp
	if err := json.Unmarshal(clockBytes, &clk); err != nil {
		return nil, coreerr.WrapCorruption(err, "decode clock.json for entity %s", entityID)
	}
	entity.Clock = clk

	if blobsEntry, err := tree.FindEntry("blobs"); err == nil {
		blobsTree, err := object.GetTree(s.repo.Storer, blobsEntry.Hash)
		if err != nil {
			return nil, coreerr.WrapBackend(err, "load blobs tree for entity %s", entityID)
		}
		for _, te := range blobsTree.Entries {
			digestStr := strings.TrimSuffix(te.Name, ".blob")
			digest, perr := ids.ParseBlobRef(digestStr)
			if perr != nil {
				continue
			}
			data, err := s.readBlob(te.Hash)
			if err != nil {
				return nil, err
			}
			if _, err := op.FromStored(digest, data); err != nil {
				return nil, err
			}
			entity.Blobs[digest] = data
		}
	}

	if packEntry, err := tree.FindEntry("pack"); err == nil {
		packTree, err := object.GetTree(s.repo.Storer, packEntry.Hash)
		if err != nil {
			return nil, coreerr.WrapBackend(err, "load pack tree for entity %s", entityID)
		}
		for _, dirEnt := range packTree.Entries {
			opDirTree, err := object.GetTree(s.repo.Storer, dirEnt.Hash)
			if err != nil {
				return nil, coreerr.WrapBackend(err, "load operation dir %s for entity %s", dirEnt.Name, entityID)
			}
			o, err := s.decodeOperation(opDirTree)
			if err != nil {
				return nil, err
			}
			entity.Operations[o.ID] = o
		}
	}

	if indexEntry, err := tree.FindEntry("index.json"); err == nil {
		indexBytes, err := s.readBlob(indexEntry.Hash)
		if err != nil {
			return nil, err
		}
		var idx indexDoc
		if err := json.Unmarshal(indexBytes, &idx); err != nil {
			return nil, coreerr.WrapCorruption(err, "decode index.json for entity %s", entityID)
		}
		heads := make(map[ids.OperationId]struct{}, len(idx.Heads))
		for _, h := range idx.Heads {
			heads[h] = struct{}{}
		}
		entity.Heads = heads
	} else {
		// back-compat path: index.json missing but operations exist.
		entity.Heads = dag.RecomputeHeads(entity.Operations)
	}

	return entity, nil
}

// readHeadCount returns the number of heads recorded in a commit's
// index.json without decoding the full operation/blob trees — cheap
// enough to call once per entity during a listing. Entities written
// before index.json existed fall back to a full decode so the count
// stays accurate.
func (s *Store) readHeadCount(entityID ids.EntityId, commitHash plumbing.Hash) (int, error) {
	commit, err := object.GetCommit(s.repo.Storer, commitHash)
	if err != nil {
		return 0, coreerr.WrapBackend(err, "load commit %s for entity %s", commitHash, entityID)
	}
	tree, err := object.GetTree(s.repo.Storer, commit.TreeHash)
	if err != nil {
		return 0, coreerr.WrapBackend(err, "load tree %s for entity %s", commit.TreeHash, entityID)
	}

	indexEntry, err := tree.FindEntry("index.json")
	if err != nil {
		entity, err := s.decodeEntityFromCommit(entityID, commitHash)
		if err != nil {
			return 0, err
		}
		return len(entity.Heads), nil
	}

	indexBytes, err := s.readBlob(indexEntry.Hash)
	if err != nil {
		return 0, err
	}
	var idx indexDoc
	if err := json.Unmarshal(indexBytes, &idx); err != nil {
		return 0, coreerr.WrapCorruption(err, "decode index.json for entity %s", entityID)
	}
	return len(idx.Heads), nil
}

func (s *Store) decodeOperation(tree *object.Tree) (op.Operation, error) {
	idEntry, err := tree.FindEntry("id")
	if err != nil {
		return op.Operation{}, coreerr.WrapCorruption(err, "operation directory missing id file")
	}
	idBytes, err := s.readBlob(idEntry.Hash)
	if err != nil {
		return op.Operation{}, err
	}
	id, err := ids.ParseOperationId(strings.TrimSpace(string(idBytes)))
	if err != nil {
		return op.Operation{}, coreerr.WrapCorruption(err, "decode operation id: %v", err)
	}

	parents := []ids.OperationId{}
	if parentsEntry, err := tree.FindEntry("parents"); err == nil {
		parentsBytes, err := s.readBlob(parentsEntry.Hash)
		if err != nil {
			return op.Operation{}, err
		}
		trimmed := strings.TrimSpace(string(parentsBytes))
		if trimmed != "" {
			for _, line := range strings.Split(trimmed, "\n") {
				parentID, perr := ids.ParseOperationId(strings.TrimSpace(line))
				if perr != nil {
					return op.Operation{}, coreerr.WrapCorruption(perr, "decode parent of operation %s", id)
				}
				parents = append(parents, parentID)
			}
		}
	}

	payloadEntry, err := tree.FindEntry("payload")
	if err != nil {
		return op.Operation{}, coreerr.WrapCorruption(err, "operation %s missing payload file", id)
	}
	payloadBytes, err := s.readBlob(payloadEntry.Hash)
	if err != nil {
		return op.Operation{}, err
	}
	payload, err := ids.ParseBlobRef(strings.TrimSpace(string(payloadBytes)))
	if err != nil {
		return op.Operation{}, coreerr.WrapCorruption(err, "decode payload of operation %s", id)
	}

	metaEntry, err := tree.FindEntry("meta.json")
	if err != nil {
		return op.Operation{}, coreerr.WrapCorruption(err, "operation %s missing meta.json", id)
	}
	metaBytes, err := s.readBlob(metaEntry.Hash)
	if err != nil {
		return op.Operation{}, err
	}
	var meta op.Metadata
	if err := json.Unmarshal(metaBytes, &meta); err != nil {
		return op.Operation{}, coreerr.WrapCorruption(err, "decode metadata of operation %s", id)
	}

	return op.Operation{ID: id, Parents: parents, Payload: payload, Metadata: meta}, nil
}

// loadEntityDAG reads entityID's ref and materializes its StoredEntity, or
// NotFound if the ref does not exist.
func (s *Store) loadEntityDAG(entityID ids.EntityId) (*dag.StoredEntity, error) {
	refName := s.entityRefName(entityID)
	ref, err := s.repo.Storer.Reference(refName)
	if err != nil {
		if err == plumbing.ErrReferenceNotFound {
			return nil, coreerr.NotFoundf("entity %s not found", entityID)
		}
		return nil, coreerr.WrapBackend(err, "read ref %s", refName)
	}
	return s.decodeEntityFromCommit(entityID, ref.Hash())
}

func (s *Store) entityRefName(entityID ids.EntityId) plumbing.ReferenceName {
	return plumbing.ReferenceName(refPrefix(s.app) + entityID.String())
}
