// Package config loads the YAML configuration needed to bootstrap a
// gitstore.Store and its cache.Cache: which app namespace to write refs
// under, where the repository and cache live on disk, per-family cache
// policies, and logging options. It follows a Config struct-plus-Init
// convention, with YAML in place of flags.
package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/trailbase/core/pkg/coreerr"
	"github.com/trailbase/core/pkg/log"
)

// CachePolicy is one entity family's cache TTL.
type CachePolicy struct {
	TTL time.Duration `yaml:"ttl"`
}

// CacheConfig configures the persistent snapshot cache.
type CacheConfig struct {
	Path                string                 `yaml:"path"`
	Version             uint32                 `yaml:"version"`
	MaintenanceInterval time.Duration          `yaml:"maintenance_interval"`
	Policies            map[string]CachePolicy `yaml:"policies"`
}

// LogConfig configures the global logger.
type LogConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// Config is the root configuration document.
type Config struct {
	App      string      `yaml:"app"`
	RepoPath string      `yaml:"repo_path"`
	Cache    CacheConfig `yaml:"cache"`
	Log      LogConfig   `yaml:"log"`
}

// Load reads and validates the configuration file at path. It validates
// just enough to construct a gitstore.Store and a cache.Cache — parsing
// workflow rules or hook scripts is a higher layer's concern.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, coreerr.WrapIo(err, "read config file %s", path)
	}

	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, coreerr.Validationf("parse config file %s: %v", path, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.App == "" {
		return coreerr.Validationf("config: app must not be empty")
	}
	if c.RepoPath == "" {
		return coreerr.Validationf("config: repo_path must not be empty")
	}
	if c.Cache.Path == "" {
		return coreerr.Validationf("config: cache.path must not be empty")
	}
	if c.Cache.Version == 0 {
		c.Cache.Version = 1
	}
	return nil
}

// LogLevel translates the config's log.level string into a log.Level,
// defaulting to InfoLevel for an empty or unrecognized value.
func (c *Config) LogLevel() log.Level {
	switch c.Log.Level {
	case "debug":
		return log.DebugLevel
	case "warn":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}
