package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_EmptyPathReturnsDefaults(t *testing.T) {
	// Given no path
	// When loading
	cfg := Load("")

	// Then the built-in defaults come back unchanged
	want := defaultConfig()
	if cfg != want {
		t.Fatalf("Load(\"\") = %+v, want defaults %+v", cfg, want)
	}
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if cfg != defaultConfig() {
		t.Fatalf("Load(missing) = %+v, want defaults", cfg)
	}
}

func TestLoad_OverridesFromYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := "workers: 16\nspin_iterations: 500\nbatch_slice_hint: 8\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg := Load(path)

	if cfg.Workers != 16 || cfg.SpinIterations != 500 || cfg.BatchSliceHint != 8 {
		t.Fatalf("Load(%s) = %+v, want overrides applied", path, cfg)
	}
}

func TestLoad_SanityClampsNonPositiveValues(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := "workers: 0\nspin_iterations: -5\nbatch_slice_hint: 0\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg := Load(path)

	if cfg.Workers <= 0 || cfg.SpinIterations <= 0 || cfg.BatchSliceHint <= 0 {
		t.Fatalf("Load(%s) = %+v, want non-positive fields clamped", path, cfg)
	}
}
