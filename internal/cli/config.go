package cli

import (
	"os"

	"github.com/BurntSushi/toml"
)

// Config holds the on-disk CLI configuration, read from
// ~/.config/lamina/config.toml. All fields are optional; zero values fall
// back to the defaults below.
type Config struct {
	// DataDir stores cell JSON files when no MongoDB URI is configured.
	DataDir string `toml:"data_dir"`
	// CacheDir stores cached extents when no redis address is configured.
	CacheDir string `toml:"cache_dir"`
	// RedisAddr enables the redis extent cache (host:port).
	RedisAddr string `toml:"redis_addr"`
	// MongoURI enables the MongoDB cell store.
	MongoURI      string `toml:"mongo_uri"`
	MongoDatabase string `toml:"mongo_database"`
	// ListenAddr is the serve command's bind address.
	ListenAddr string `toml:"listen_addr"`
	// Workers overrides the cutout worker count.
	Workers int `toml:"workers"`
	// DefaultConductor and DefaultDielectric name the materials used for
	// layers added without an explicit material.
	DefaultConductor  string `toml:"default_conductor"`
	DefaultDielectric string `toml:"default_dielectric"`
}

// LoadConfig reads the config file, layering it over built-in defaults.
// A missing or unreadable file yields the defaults silently; a malformed
// file is also ignored since the CLI must stay usable without it.
func LoadConfig() Config {
	cfg := defaultConfig()
	path, err := configPath()
	if err != nil {
		return cfg
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg
	}
	_ = toml.Unmarshal(data, &cfg)
	return cfg
}

func defaultConfig() Config {
	cfg := Config{
		MongoDatabase:     "lamina",
		ListenAddr:        ":8080",
		DefaultConductor:  "copper",
		DefaultDielectric: "fr4_epoxy",
	}
	if dir, err := dataDir(); err == nil {
		cfg.DataDir = dir
	}
	if dir, err := cacheDir(); err == nil {
		cfg.CacheDir = dir
	}
	return cfg
}
