// Package gitstore persists entities into a bare Git object database: one
// ref per entity under refs/<app>/entities/<entityId>, a tree shape frozen
// by the wire format, and a process-wide file lock serializing writers.
package gitstore

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/go-git/go-git/v5"
	"github.com/gofrs/flock"

	"github.com/trailbase/core/pkg/cache"
	"github.com/trailbase/core/pkg/coreerr"
	"github.com/trailbase/core/pkg/log"
)

// LockMode selects the repository-wide file lock a Store holds for its
// lifetime. Multiple readers may hold LockRead concurrently; LockWrite is
// exclusive against every other lock.
type LockMode int

const (
	LockRead LockMode = iota
	LockWrite
)

// Store wraps a bare go-git repository plus the process-wide file lock and
// cache hook surface every write and read routes through.
type Store struct {
	repo     *git.Repository
	lock     *flock.Flock
	lockMode LockMode
	app      string
	hooks    cache.HookSurface
	path     string
}

// Open opens an existing repository at path and acquires the repository
// lock in mode. Returns NotFound if no repository exists there — use Init
// to create one.
func Open(path, appName string, mode LockMode, hooks cache.HookSurface) (*Store, error) {
	repo, err := git.PlainOpen(path)
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return nil, coreerr.NotFoundf("no repository at %s", path)
		}
		return nil, coreerr.WrapBackend(err, "open repository at %s", path)
	}
	return newStore(path, appName, mode, hooks, repo)
}

// Init creates a fresh bare repository at path and acquires it for
// writing. Separate from Open so callers can distinguish "didn't exist, I
// made it" from "already there" in logs and metrics.
func Init(path, appName string, hooks cache.HookSurface) (*Store, error) {
	repo, err := git.PlainInit(path, true)
	if err != nil {
		return nil, coreerr.WrapBackend(err, "init repository at %s", path)
	}
	log.WithNamespace(log.WithComponent("gitstore"), appName).Info().Str("path", path).Msg("initialized repository")
	return newStore(path, appName, LockWrite, hooks, repo)
}

func newStore(path, appName string, mode LockMode, hooks cache.HookSurface, repo *git.Repository) (*Store, error) {
	if hooks == nil {
		hooks = cache.NoopHooks{}
	}
	fl := flock.New(filepath.Join(path, "trailbase.lock"))
	if err := acquire(fl, mode); err != nil {
		return nil, err
	}
	return &Store{repo: repo, lock: fl, lockMode: mode, app: appName, hooks: hooks, path: path}, nil
}

func acquire(fl *flock.Flock, mode LockMode) error {
	var err error
	switch mode {
	case LockRead:
		err = fl.RLock()
	case LockWrite:
		err = fl.Lock()
	default:
		return coreerr.Validationf("unknown lock mode %d", mode)
	}
	if err != nil {
		return coreerr.WrapIo(err, "acquire repository lock")
	}
	return nil
}

// Close releases the repository lock.
func (s *Store) Close() error {
	if err := s.lock.Unlock(); err != nil {
		return coreerr.WrapIo(err, "release repository lock")
	}
	return nil
}

func (s *Store) requireWriteLock(op string) error {
	if s.lockMode != LockWrite {
		return coreerr.Validationf("%s requires a write lock on %s", op, s.path)
	}
	return nil
}

func refPrefix(app string) string {
	return fmt.Sprintf("refs/%s/entities/", app)
}
