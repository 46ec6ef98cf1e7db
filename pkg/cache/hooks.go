package cache

import (
	"github.com/trailbase/core/pkg/ids"
	"github.com/trailbase/core/pkg/snapshot"
)

// HookSurface is the interface the store consults around every operation
// to populate and invalidate the cache, keeping the backing store oblivious
// to caching concerns. Hook calls are synchronous with the store operation
// they accompany; an error from a hook surfaces to the store's caller.
type HookSurface interface {
	TryGetSnapshot(family ids.EntityFamily, entityID ids.EntityId) (*snapshot.EntitySnapshot, bool, error)
	OnEntityLoaded(family ids.EntityFamily, entityID ids.EntityId, snap snapshot.EntitySnapshot) error
	OnPackPersisted(family ids.EntityFamily, entityID ids.EntityId, inserted []ids.OperationId, clock ids.LamportTimestamp) error
	InvalidateEntity(family ids.EntityFamily, entityID ids.EntityId) error
}

// NoopHooks satisfies HookSurface without caching anything. It is the
// default for a gitstore.Store opened with no cache wired in.
type NoopHooks struct{}

func (NoopHooks) TryGetSnapshot(ids.EntityFamily, ids.EntityId) (*snapshot.EntitySnapshot, bool, error) {
	return nil, false, nil
}

func (NoopHooks) OnEntityLoaded(ids.EntityFamily, ids.EntityId, snapshot.EntitySnapshot) error {
	return nil
}

func (NoopHooks) OnPackPersisted(ids.EntityFamily, ids.EntityId, []ids.OperationId, ids.LamportTimestamp) error {
	return nil
}

func (NoopHooks) InvalidateEntity(ids.EntityFamily, ids.EntityId) error { return nil }
