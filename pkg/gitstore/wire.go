package gitstore

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"regexp"
	"sort"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/trailbase/core/pkg/coreerr"
	"github.com/trailbase/core/pkg/ids"
)

var sanitizeReplicaRe = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

// opDirName produces the stable, sortable pack/ directory name for an
// operation id: "<20-digit counter>-<sanitized replicaId>-<first 4 bytes
// of sha256(operationId) hex>". The directory name is informational only;
// the authoritative id lives inside the "id" file.
func opDirName(id ids.OperationId) string {
	sanitized := sanitizeReplicaRe.ReplaceAllString(string(id.Timestamp.ReplicaID), "_")
	sum := sha256.Sum256([]byte(id.String()))
	return fmt.Sprintf("%020d-%s-%s", id.Timestamp.Counter, sanitized, hex.EncodeToString(sum[:4]))
}

func (s *Store) writeBlob(data []byte) (plumbing.Hash, error) {
	obj := s.repo.Storer.NewEncodedObject()
	obj.SetType(plumbing.BlobObject)
	w, err := obj.Writer()
	if err != nil {
		return plumbing.ZeroHash, coreerr.WrapBackend(err, "open blob writer")
	}
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return plumbing.ZeroHash, coreerr.WrapBackend(err, "write blob")
	}
	if err := w.Close(); err != nil {
		return plumbing.ZeroHash, coreerr.WrapBackend(err, "close blob writer")
	}
	hash, err := s.repo.Storer.SetEncodedObject(obj)
	if err != nil {
		return plumbing.ZeroHash, coreerr.WrapBackend(err, "store blob object")
	}
	return hash, nil
}

func (s *Store) readBlob(hash plumbing.Hash) ([]byte, error) {
	blob, err := object.GetBlob(s.repo.Storer, hash)
	if err != nil {
		return nil, coreerr.WrapBackend(err, "load blob object %s", hash)
	}
	r, err := blob.Reader()
	if err != nil {
		return nil, coreerr.WrapBackend(err, "open blob reader %s", hash)
	}
	defer r.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, coreerr.WrapBackend(err, "read blob %s", hash)
	}
	return data, nil
}

// writeTree sorts entries by name and encodes+stores the resulting tree
// object. Every tree this store builds has a fixed, non-colliding entry
// set, so a plain lexicographic sort matches git's own tree entry order.
func (s *Store) writeTree(entries []object.TreeEntry) (plumbing.Hash, error) {
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	tree := &object.Tree{Entries: entries}
	obj := s.repo.Storer.NewEncodedObject()
	obj.SetType(plumbing.TreeObject)
	if err := tree.Encode(obj); err != nil {
		return plumbing.ZeroHash, coreerr.WrapBackend(err, "encode tree")
	}
	hash, err := s.repo.Storer.SetEncodedObject(obj)
	if err != nil {
		return plumbing.ZeroHash, coreerr.WrapBackend(err, "store tree object")
	}
	return hash, nil
}

func fileEntry(name string, hash plumbing.Hash) object.TreeEntry {
	return object.TreeEntry{Name: name, Mode: filemode.Regular, Hash: hash}
}

func dirEntry(name string, hash plumbing.Hash) object.TreeEntry {
	return object.TreeEntry{Name: name, Mode: filemode.Dir, Hash: hash}
}
