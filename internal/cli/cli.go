// Package cli implements the lamina command-line interface.
package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/edalab/lamina/pkg/buildinfo"
	"github.com/edalab/lamina/pkg/cache"
	"github.com/edalab/lamina/pkg/cutout"
	"github.com/edalab/lamina/pkg/layout"
	"github.com/edalab/lamina/pkg/materials"
	"github.com/edalab/lamina/pkg/stackup"
)

// =============================================================================
// Constants
// =============================================================================

// appName is the application name used for directories and display.
const appName = "lamina"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
	Config Config
}

// New creates a new CLI instance with a default logger and the on-disk
// configuration, falling back to defaults when no config file exists.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: log.NewWithOptions(w, log.Options{
			ReportTimestamp: true,
			TimeFormat:      "15:04:05.00",
			Level:           level,
		}),
		Config: LoadConfig(),
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "lamina",
		Short:        "Lamina manages PCB stackups and layout cutouts",
		Long:         `Lamina is a CLI tool for building and transforming PCB layer stackups and for cutting reduced simulation regions out of board layouts.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
	}

	root.SetVersionTemplate(buildinfo.Template())

	// Register all subcommands
	root.AddCommand(c.stackupCommand())
	root.AddCommand(c.cutoutCommand())
	root.AddCommand(c.cellsCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Factories
// =============================================================================

// newStackup builds a stackup with the configured default materials.
func (c *CLI) newStackup(mode stackup.Mode) *stackup.Stackup {
	return stackup.New(mode, materials.DefaultLibrary(), c.Logger)
}

// defaultMaterial returns the configured fallback material for a layer type.
func (c *CLI) defaultMaterial(lt stackup.LayerType) string {
	if lt == stackup.LayerSignal || lt == stackup.LayerConducting {
		return c.Config.DefaultConductor
	}
	return c.Config.DefaultDielectric
}

// newStore opens the configured cell store: MongoDB when a URI is set,
// otherwise JSON files under the data directory.
func (c *CLI) newStore(cmd *cobra.Command) (layout.Store, error) {
	if c.Config.MongoURI != "" {
		return layout.NewMongoStore(cmd.Context(), c.Config.MongoURI, c.Config.MongoDatabase, "cells")
	}
	return layout.NewFileStore(c.Config.DataDir)
}

// newEngine builds a cutout engine over the given store.
func (c *CLI) newEngine(store layout.Store, noCache bool) (*cutout.Engine, cache.Cache) {
	ch := c.newCache(noCache)
	return cutout.NewEngine(store, ch, nil, c.Logger), ch
}

func (c *CLI) newCache(noCache bool) cache.Cache {
	if noCache {
		return cache.NewNullCache()
	}
	if c.Config.RedisAddr != "" {
		if rc, err := cache.NewRedisCache(context.Background(), c.Config.RedisAddr, "", 0); err == nil {
			return rc
		}
		c.Logger.Warn("redis unreachable, falling back to file cache", "addr", c.Config.RedisAddr)
	}
	fc, err := cache.NewFileCache(c.Config.CacheDir)
	if err != nil {
		return cache.NewNullCache()
	}
	return fc
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/lamina/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

// dataDir returns the cell store directory (~/.local/share/lamina/).
func dataDir() (string, error) {
	if dataHome := os.Getenv("XDG_DATA_HOME"); dataHome != "" {
		return filepath.Join(dataHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "share", appName), nil
}

// configPath returns the config file path (~/.config/lamina/config.toml).
func configPath() (string, error) {
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, appName, "config.toml"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", appName, "config.toml"), nil
}
