package gitstore

import (
	"github.com/trailbase/core/pkg/ids"
	"github.com/trailbase/core/pkg/log"
	"github.com/trailbase/core/pkg/metrics"
	"github.com/trailbase/core/pkg/snapshot"
)

// LoadEntity returns entityID's deterministic snapshot, preferring the
// cache's TryGetSnapshot hook before falling back to the Git object
// database. A cache miss or stale entry always re-derives the snapshot
// from the authoritative ref and reports it back via OnEntityLoaded.
func (s *Store) LoadEntity(family ids.EntityFamily, entityID ids.EntityId) (snap *snapshot.EntitySnapshot, err error) {
	timer := metrics.NewTimer()
	defer func() {
		timer.ObserveDurationVec(metrics.StoreLoadDuration, s.app)
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		metrics.StoreOperationsTotal.WithLabelValues(s.app, "load", outcome).Inc()
	}()

	if cached, ok, cerr := s.hooks.TryGetSnapshot(family, entityID); cerr != nil {
		err = cerr
		return nil, err
	} else if ok {
		return cached, nil
	}

	entity, derr := s.loadEntityDAG(entityID)
	if derr != nil {
		err = derr
		return nil, err
	}

	built := snapshot.Build(entity)
	if herr := s.hooks.OnEntityLoaded(family, entityID, built); herr != nil {
		entityLog := log.WithEntityID(log.WithComponent("gitstore"), entityID.String())
		entityLog.Warn().Err(herr).Msg("cache hook OnEntityLoaded failed")
		err = herr
		return nil, err
	}
	return &built, nil
}
