package cli

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()
	if cfg.MongoDatabase != "lamina" {
		t.Errorf("MongoDatabase = %q, want lamina", cfg.MongoDatabase)
	}
	if cfg.ListenAddr != ":8080" {
		t.Errorf("ListenAddr = %q, want :8080", cfg.ListenAddr)
	}
	if cfg.DefaultConductor != "copper" || cfg.DefaultDielectric != "fr4_epoxy" {
		t.Errorf("default materials = %q/%q", cfg.DefaultConductor, cfg.DefaultDielectric)
	}
}

func TestLoadConfigReadsFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	appDir := filepath.Join(dir, appName)
	if err := os.MkdirAll(appDir, 0755); err != nil {
		t.Fatal(err)
	}
	content := "redis_addr = \"localhost:6379\"\nworkers = 8\nlisten_addr = \":9000\"\n"
	if err := os.WriteFile(filepath.Join(appDir, "config.toml"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg := LoadConfig()
	if cfg.RedisAddr != "localhost:6379" {
		t.Errorf("RedisAddr = %q", cfg.RedisAddr)
	}
	if cfg.Workers != 8 {
		t.Errorf("Workers = %d, want 8", cfg.Workers)
	}
	if cfg.ListenAddr != ":9000" {
		t.Errorf("ListenAddr = %q, want :9000", cfg.ListenAddr)
	}
	// Untouched keys keep their defaults.
	if cfg.MongoDatabase != "lamina" {
		t.Errorf("MongoDatabase = %q, want lamina", cfg.MongoDatabase)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	cfg := LoadConfig()
	if cfg.ListenAddr != ":8080" {
		t.Errorf("missing file should yield defaults, got ListenAddr = %q", cfg.ListenAddr)
	}
}

func TestPathsRespectXDG(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", "/tmp/xdg-cache")
	t.Setenv("XDG_DATA_HOME", "/tmp/xdg-data")
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg-config")

	if dir, err := cacheDir(); err != nil || dir != filepath.Join("/tmp/xdg-cache", appName) {
		t.Errorf("cacheDir = %q, %v", dir, err)
	}
	if dir, err := dataDir(); err != nil || dir != filepath.Join("/tmp/xdg-data", appName) {
		t.Errorf("dataDir = %q, %v", dir, err)
	}
	if path, err := configPath(); err != nil || path != filepath.Join("/tmp/xdg-config", appName, "config.toml") {
		t.Errorf("configPath = %q, %v", path, err)
	}
}
