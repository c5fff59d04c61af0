package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Selection.FrameBudget != 100 {
		t.Errorf("frame budget = %d", cfg.Selection.FrameBudget)
	}
	if cfg.Analysis.BatchSize != 35 {
		t.Errorf("batch size = %d", cfg.Analysis.BatchSize)
	}
	if cfg.Postgres != nil {
		t.Error("postgres should default to disabled")
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "framesift.yaml")
	content := []byte(`
output_dir: /srv/frames
selection:
  frame_budget: 40
  min_spacing_seconds: 1.0
analysis:
  language: German
postgres:
  host: db.internal
  port: "5432"
  user: framesift
  password: secret
  dbname: framesift
`)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.OutputDir != "/srv/frames" {
		t.Errorf("output dir = %q", cfg.OutputDir)
	}
	if cfg.Selection.FrameBudget != 40 || cfg.Selection.MinSpacingSeconds != 1.0 {
		t.Errorf("selection = %+v", cfg.Selection)
	}
	// Untouched values keep their defaults.
	if cfg.Selection.PercentileFactor != 1.5 {
		t.Errorf("percentile factor = %v", cfg.Selection.PercentileFactor)
	}
	if cfg.Analysis.Language != "German" {
		t.Errorf("language = %q", cfg.Analysis.Language)
	}
	if cfg.Postgres == nil || cfg.Postgres.Host != "db.internal" {
		t.Errorf("postgres = %+v", cfg.Postgres)
	}
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("selection: ["), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected error for malformed yaml")
	}
}
