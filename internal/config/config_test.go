package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadCreatesDefaultOnFirstRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "config.yaml")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Listen == "" || cfg.BackendBaseURL == "" {
		t.Errorf("defaults not applied: %+v", cfg)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("config file not created: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("config file perms = %o, want 600", perm)
	}
}

func TestLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg := DefaultConfig()
	cfg.Listen = "0.0.0.0:9999"
	cfg.BackendBaseURL = "http://backend:9000/api"
	cfg.FetchDebounceMs = 50
	cfg.Term = TermConfig{Start: "2026-08-10", End: "2026-12-18"}
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Listen != "0.0.0.0:9999" || loaded.FetchDebounceMs != 50 {
		t.Errorf("round trip lost fields: %+v", loaded)
	}
	if loaded.Term.Start != "2026-08-10" {
		t.Errorf("term not persisted: %+v", loaded.Term)
	}
}

func TestNormalizeFillsZeroValues(t *testing.T) {
	cfg := &Config{FetchDebounceMs: -10}
	cfg.Normalize()

	if cfg.Listen == "" || cfg.RefreshCron == "" || cfg.InitialHeightPx <= 0 {
		t.Errorf("normalize left zero values: %+v", cfg)
	}
	if cfg.FetchDebounceMs != 0 {
		t.Errorf("negative debounce not reset: %d", cfg.FetchDebounceMs)
	}
}

func TestLoadEmptyPath(t *testing.T) {
	if _, err := Load(""); err == nil {
		t.Error("expected error for empty path")
	}
}
