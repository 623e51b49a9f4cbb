package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/example/regionkit/pkg/scope"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
tile_overlap_threshold = 0.25
selection_coverage_min = 0.2
separator = "; "

[cache]
kind = "redis"
redis_addr = "localhost:6379"

[backend]
url = "http://localhost:8188"
rate_per_second = 0.5
burst = 2
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.TileOverlapThreshold != 0.25 || cfg.SelectionCoverageMin != 0.2 {
		t.Errorf("thresholds = %v/%v", cfg.TileOverlapThreshold, cfg.SelectionCoverageMin)
	}
	if cfg.Separator != "; " {
		t.Errorf("separator = %q", cfg.Separator)
	}
	if cfg.Cache.Kind != "redis" || cfg.Cache.RedisAddr != "localhost:6379" {
		t.Errorf("cache = %+v", cfg.Cache)
	}
	if cfg.Backend.URL != "http://localhost:8188" || cfg.Backend.Burst != 2 {
		t.Errorf("backend = %+v", cfg.Backend)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Separator != ", " || cfg.Cache.Kind != "file" {
		t.Errorf("defaults = %+v", cfg)
	}
	if cfg.SelectionCoverageMin != scope.DefaultSelectionCoverageMin {
		t.Errorf("selection coverage min = %v, want the default", cfg.SelectionCoverageMin)
	}
}

func TestLoadConfigExplicitZeroThreshold(t *testing.T) {
	path := writeConfig(t, "selection_coverage_min = 0.0\n")
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.SelectionCoverageMin != 0 {
		t.Errorf("selection coverage min = %v, want the explicit 0", cfg.SelectionCoverageMin)
	}
}

func TestLoadConfigMissingExplicit(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Fatal("explicitly named missing config should fail")
	}
}

func TestLoadConfigUnknownKey(t *testing.T) {
	path := writeConfig(t, "not_a_setting = true\n")
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("unknown key should fail")
	}
}
