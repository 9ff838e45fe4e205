package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultValidates(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
	if cfg.Build.Year != 2022 {
		t.Errorf("default year = %d, want 2022", cfg.Build.Year)
	}
	if len(cfg.Build.BufferRadii) == 0 {
		t.Error("default config must carry at least one buffer radius")
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yml")
	yml := `
paths:
  raw: /tmp/raw
  interim: /tmp/interim
  processed: /tmp/processed
  reports: /tmp/reports
build:
  year: 2021
  center_lat: 46.0
  center_lon: 11.0
  buffer_radii: [200, 500, 800]
cluster:
  k_min: 3
  k_max: 5
  buffer_radius: 500
  max_iter: 50
`
	if err := os.WriteFile(path, []byte(yml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Build.Year != 2021 {
		t.Errorf("year = %d, want 2021", cfg.Build.Year)
	}
	if got := cfg.Build.BufferRadii; len(got) != 3 || got[0] != 200 {
		t.Errorf("buffer_radii = %v, want [200 500 800]", got)
	}
	if cfg.Paths.RawDir != "/tmp/raw" {
		t.Errorf("raw dir = %q, want /tmp/raw", cfg.Paths.RawDir)
	}
	// untouched section keeps defaults
	if cfg.Model.SplineDF != 8 {
		t.Errorf("spline_df = %d, want default 8", cfg.Model.SplineDF)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yml")
	yml := `
cluster:
  k_min: 5
  k_max: 2
`
	if err := os.WriteFile(path, []byte(yml), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("Load() should reject k_max < k_min")
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("does-not-exist.yml")
	if err == nil {
		t.Fatal("Load() should fail for a missing file")
	}
	if !strings.Contains(err.Error(), "does-not-exist.yml") {
		t.Errorf("error should name the file: %v", err)
	}
}
