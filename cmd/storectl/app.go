package main

import (
	"github.com/trailbase/core/pkg/cache"
	"github.com/trailbase/core/pkg/config"
	"github.com/trailbase/core/pkg/gitstore"
)

// openStore loads the config at configPath and opens the repository it
// describes in mode, wiring a cache built from the same config as its
// hook surface.
func openStore(configPath string, mode gitstore.LockMode) (*gitstore.Store, *cache.Cache, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}

	policies := make(map[string]cache.Policy, len(cfg.Cache.Policies))
	for family, p := range cfg.Cache.Policies {
		policies[family] = cache.Policy{TTL: p.TTL}
	}

	c, err := cache.Open(cache.Config{
		Path:                cfg.Cache.Path,
		Version:             cfg.Cache.Version,
		MaintenanceInterval: cfg.Cache.MaintenanceInterval,
		Policies:            policies,
	})
	if err != nil {
		return nil, nil, err
	}

	store, err := gitstore.Open(cfg.RepoPath, cfg.App, mode, c)
	if err != nil {
		c.Close()
		return nil, nil, err
	}
	return store, c, nil
}

func closeStore(store *gitstore.Store, c *cache.Cache) {
	store.Close()
	c.Close()
}
