package gitstore

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/trailbase/core/pkg/coreerr"
	"github.com/trailbase/core/pkg/dag"
	"github.com/trailbase/core/pkg/ids"
	"github.com/trailbase/core/pkg/op"
)

type indexDoc struct {
	Heads []ids.OperationId `json:"heads"`
}

// buildEntityTree writes the full clock.json/index.json/blobs/pack/ tree
// for e and returns the root tree's hash.
func (s *Store) buildEntityTree(e *dag.StoredEntity) (plumbing.Hash, error) {
	clockBytes, err := json.Marshal(e.Clock)
	if err != nil {
		return plumbing.ZeroHash, coreerr.WrapBackend(err, "encode clock.json for entity %s", e.EntityID)
	}
	clockHash, err := s.writeBlob(clockBytes)
	if err != nil {
		return plumbing.ZeroHash, err
	}

	heads := make([]ids.OperationId, 0, len(e.Heads))
	for id := range e.Heads {
		heads = append(heads, id)
	}
	sort.Slice(heads, func(i, j int) bool { return heads[i].Less(heads[j]) })
	indexBytes, err := json.Marshal(indexDoc{Heads: heads})
	if err != nil {
		return plumbing.ZeroHash, coreerr.WrapBackend(err, "encode index.json for entity %s", e.EntityID)
	}
	indexHash, err := s.writeBlob(indexBytes)
	if err != nil {
		return plumbing.ZeroHash, err
	}

	blobEntries := make([]object.TreeEntry, 0, len(e.Blobs))
	for digest, data := range e.Blobs {
		hash, err := s.writeBlob(data)
		if err != nil {
			return plumbing.ZeroHash, err
		}
		blobEntries = append(blobEntries, fileEntry(digest.String()+".blob", hash))
	}
	blobsTreeHash, err := s.writeTree(blobEntries)
	if err != nil {
		return plumbing.ZeroHash, err
	}

	packEntries := make([]object.TreeEntry, 0, len(e.Operations))
	for _, o := range e.Operations {
		dirHash, err := s.buildOpDirTree(o)
		if err != nil {
			return plumbing.ZeroHash, err
		}
		packEntries = append(packEntries, dirEntry(opDirName(o.ID), dirHash))
	}
	packTreeHash, err := s.writeTree(packEntries)
	if err != nil {
		return plumbing.ZeroHash, err
	}

	root := []object.TreeEntry{
		fileEntry("clock.json", clockHash),
		fileEntry("index.json", indexHash),
		dirEntry("blobs", blobsTreeHash),
		dirEntry("pack", packTreeHash),
	}
	return s.writeTree(root)
}

// buildOpDirTree writes one operation's pack/<opDirName>/{id,parents,
// payload,meta.json} files and returns the directory tree's hash.
func (s *Store) buildOpDirTree(o op.Operation) (plumbing.Hash, error) {
	idHash, err := s.writeBlob([]byte(o.ID.String() + "\n"))
	if err != nil {
		return plumbing.ZeroHash, err
	}

	parentLines := make([]string, 0, len(o.Parents))
	for _, p := range o.Parents {
		parentLines = append(parentLines, p.String())
	}
	parentsHash, err := s.writeBlob([]byte(strings.Join(parentLines, "\n")))
	if err != nil {
		return plumbing.ZeroHash, err
	}

	payloadHash, err := s.writeBlob([]byte(o.Payload.String() + "\n"))
	if err != nil {
		return plumbing.ZeroHash, err
	}

	metaBytes, err := json.Marshal(o.Metadata)
	if err != nil {
		return plumbing.ZeroHash, coreerr.WrapBackend(err, "encode meta.json for operation %s", o.ID)
	}
	metaHash, err := s.writeBlob(metaBytes)
	if err != nil {
		return plumbing.ZeroHash, err
	}

	return s.writeTree([]object.TreeEntry{
		fileEntry("id", idHash),
		fileEntry("parents", parentsHash),
		fileEntry("payload", payloadHash),
		fileEntry("meta.json", metaHash),
	})
}
