package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/example/regionkit/pkg/cache"
	"github.com/example/regionkit/pkg/prompt"
	"github.com/example/regionkit/pkg/scope"
)

// Config is the on-disk CLI configuration, read from TOML.
//
// All fields have working defaults; a missing config file is not an
// error.
type Config struct {
	// TileOverlapThreshold is the minimum tile-area fraction a region
	// must cover to join a tile plan. 0 includes any overlap.
	TileOverlapThreshold float64 `toml:"tile_overlap_threshold"`

	// SelectionCoverageMin is the minimum selection fraction a region
	// must cover to join a selection plan. An explicit 0 includes any
	// overlap.
	SelectionCoverageMin float64 `toml:"selection_coverage_min"`

	// Separator joins prompt segments.
	Separator string `toml:"separator"`

	Cache   CacheConfig   `toml:"cache"`
	Backend BackendConfig `toml:"backend"`
}

// CacheConfig selects and configures the artifact cache backend.
type CacheConfig struct {
	// Kind is "file", "redis", or "none".
	Kind string `toml:"kind"`

	// Dir overrides the file cache directory.
	Dir string `toml:"dir"`

	// Redis connection settings, used when Kind is "redis".
	RedisAddr     string `toml:"redis_addr"`
	RedisPassword string `toml:"redis_password"`
	RedisDB       int    `toml:"redis_db"`
}

// BackendConfig points at the generation server.
type BackendConfig struct {
	URL           string  `toml:"url"`
	Token         string  `toml:"token"`
	RatePerSecond float64 `toml:"rate_per_second"`
	Burst         int     `toml:"burst"`
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() *Config {
	return &Config{
		SelectionCoverageMin: scope.DefaultSelectionCoverageMin,
		Separator:            prompt.DefaultSeparator,
		Cache:                CacheConfig{Kind: "file"},
		Backend:              BackendConfig{Burst: 1},
	}
}

// LoadConfig reads the TOML config at path, or the default location when
// path is empty. A missing file yields the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	explicit := path != ""
	if !explicit {
		home, err := os.UserHomeDir()
		if err != nil {
			return cfg, nil
		}
		path = filepath.Join(home, ".config", appName, "config.toml")
	}

	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return cfg, nil
		}
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("config %s: unknown key %q", path, undecoded[0].String())
	}
	return cfg, nil
}

// OpenCache opens the configured artifact cache backend.
func (c *Config) OpenCache() (cache.Cache, error) {
	switch c.Cache.Kind {
	case "", "file":
		dir := c.Cache.Dir
		if dir == "" {
			var err error
			if dir, err = cacheDir(); err != nil {
				return nil, err
			}
		}
		return cache.NewFileCache(dir)
	case "redis":
		return cache.NewRedisCache(context.Background(), cache.RedisConfig{
			Addr:     c.Cache.RedisAddr,
			Password: c.Cache.RedisPassword,
			DB:       c.Cache.RedisDB,
		})
	case "none":
		return cache.NewNullCache(), nil
	default:
		return nil, fmt.Errorf("unknown cache kind %q", c.Cache.Kind)
	}
}
