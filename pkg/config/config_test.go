package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate, got %v", err)
	}
}

func TestLoad_NoFile_FallsBackToDefaults(t *testing.T) {
	dir := t.TempDir()
	missing := filepath.Join(dir, "does-not-exist.yaml")
	if _, err := os.Stat(missing); err == nil {
		t.Fatalf("precondition failed: %s exists", missing)
	}

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load with no explicit path should not error: %v", err)
	}
	if cfg.Parameters.DataShards != DefaultDataShards {
		t.Errorf("expected default data shards %d, got %d", DefaultDataShards, cfg.Parameters.DataShards)
	}
}

func TestLoad_ExplicitMissingFile_Errors(t *testing.T) {
	dir := t.TempDir()
	missing := filepath.Join(dir, "nope.yaml")

	if _, err := Load(missing); err == nil {
		t.Fatal("expected an error for an explicit, missing config path")
	}
}

func TestLoad_ExplicitFile_OverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ectar.yaml")
	contents := "data_shards: 20\nparity_shards: 8\nchunk_size: 2097152\ncompression_level: 9\n"
	if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Parameters.DataShards != 20 || cfg.Parameters.ParityShards != 8 {
		t.Errorf("expected file values to override defaults, got %+v", cfg.Parameters)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("loaded config should validate: %v", err)
	}
}

func TestValidate_RejectsBadParameters(t *testing.T) {
	cfg := Default()
	cfg.Parameters.DataShards = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for zero data shards")
	}
}
