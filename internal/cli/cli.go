// Package cli implements the regionkit command-line interface.
package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/example/regionkit/pkg/backend"
	"github.com/example/regionkit/pkg/buildinfo"
	"github.com/example/regionkit/pkg/cache"
	"github.com/example/regionkit/pkg/document"
	"github.com/example/regionkit/pkg/engine"
)

// appName is the application name used for directories and display.
const appName = "regionkit"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
	Config *Config
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
		Config: DefaultConfig(),
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:          "regionkit",
		Short:        "Regionkit plans region-guided image generation",
		Long:         `Regionkit resolves spatial regions on a layered canvas into coverage masks and composed prompts, producing generation plans for a diffusion backend.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := LoadConfig(configPath)
			if err != nil {
				return err
			}
			c.Config = cfg
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&configPath, "config", "", "config file (default "+filepath.Join("~", ".config", appName, "config.toml")+")")

	root.AddCommand(c.planCommand())
	root.AddCommand(c.inspectCommand())
	root.AddCommand(c.renderCommand())
	root.AddCommand(c.graphCommand())
	root.AddCommand(c.generateCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// loadEngine reads a document and builds an engine over it with the
// configured backend.
func (c *CLI) loadEngine(path string, noCache bool) (*engine.Engine, *document.Document, error) {
	return c.loadEngineWith(path, noCache, c.newBackend())
}

// loadEngineWith is loadEngine with an explicit backend, used by dry runs.
func (c *CLI) loadEngineWith(path string, noCache bool, be backend.Backend) (*engine.Engine, *document.Document, error) {
	doc, err := document.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("load document %s: %w", path, err)
	}
	lg, rg, err := doc.Build()
	if err != nil {
		return nil, nil, fmt.Errorf("build document %s: %w", path, err)
	}

	data, err := document.Marshal(doc)
	if err != nil {
		return nil, nil, err
	}

	eng, err := engine.New(lg, rg, engine.Options{
		TileOverlapThreshold: c.Config.TileOverlapThreshold,
		SelectionCoverageMin: &c.Config.SelectionCoverageMin,
		Separator:            c.Config.Separator,
		DocHash:              cache.Hash(data),
		Cache:                c.newCache(noCache),
		Backend:              be,
		Logger:               c.Logger,
	})
	if err != nil {
		return nil, nil, err
	}
	return eng, doc, nil
}

func (c *CLI) newCache(noCache bool) cache.Cache {
	if noCache {
		return cache.NewNullCache()
	}
	ca, err := c.Config.OpenCache()
	if err != nil {
		c.Logger.Warn("cache unavailable, continuing without", "err", err)
		return cache.NewNullCache()
	}
	return ca
}

func (c *CLI) newBackend() backend.Backend {
	if c.Config.Backend.URL == "" {
		return nil
	}
	opts := []backend.HTTPOption{}
	if c.Config.Backend.RatePerSecond > 0 {
		opts = append(opts, backend.WithRateLimit(c.Config.Backend.RatePerSecond, c.Config.Backend.Burst))
	}
	if c.Config.Backend.Token != "" {
		opts = append(opts, backend.WithHeader("Authorization", "Bearer "+c.Config.Backend.Token))
	}
	return backend.NewHTTP(c.Config.Backend.URL, opts...)
}

// cacheDir returns the cache directory using XDG standard (~/.cache/regionkit/).
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
