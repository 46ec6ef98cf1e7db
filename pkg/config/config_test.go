package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadParsesFullDocument(t *testing.T) {
	path := writeConfig(t, `
app: issues
repo_path: /var/lib/trailbase/repo
cache:
  path: /var/lib/trailbase/cache
  version: 1
  maintenance_interval: 5m
  policies:
    issues: { ttl: 24h }
    milestones: { ttl: 72h }
log:
  level: debug
  json: true
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.App != "issues" {
		t.Fatalf("unexpected app: %q", cfg.App)
	}
	if cfg.Cache.MaintenanceInterval != 5*time.Minute {
		t.Fatalf("unexpected maintenance interval: %v", cfg.Cache.MaintenanceInterval)
	}
	if cfg.Cache.Policies["issues"].TTL != 24*time.Hour {
		t.Fatalf("unexpected issues TTL: %v", cfg.Cache.Policies["issues"].TTL)
	}
	if cfg.LogLevel() != "debug" {
		t.Fatalf("unexpected log level: %v", cfg.LogLevel())
	}
}

func TestLoadRejectsMissingApp(t *testing.T) {
	path := writeConfig(t, `
repo_path: /var/lib/trailbase/repo
cache:
  path: /var/lib/trailbase/cache
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected validation error for missing app")
	}
}

func TestLoadDefaultsCacheVersion(t *testing.T) {
	path := writeConfig(t, `
app: issues
repo_path: /var/lib/trailbase/repo
cache:
  path: /var/lib/trailbase/cache
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Cache.Version != 1 {
		t.Fatalf("expected default cache version 1, got %d", cfg.Cache.Version)
	}
}

func TestLoadRejectsUnreadableFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
