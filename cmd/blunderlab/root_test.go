package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/velimir/blunderlab/internal/config"
	"github.com/velimir/blunderlab/internal/storage"
)

func openTestStore(t *testing.T) *storage.Storage {
	t.Helper()
	dir, err := os.MkdirTemp("", "blunderlab-cmd-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	st, err := storage.Open(dir)
	if err != nil {
		t.Fatalf("Failed to open storage: %v", err)
	}
	t.Cleanup(func() {
		st.Close()
		os.RemoveAll(dir)
	})
	return st
}

func resetFlags(t *testing.T) {
	t.Helper()
	t.Cleanup(func() {
		flagConfig = ""
		flagEngine = ""
		flagDepth = 0
		flagAPI = ""
	})
}

func TestLoadConfigUsesStoredPreferences(t *testing.T) {
	resetFlags(t)
	st := openTestStore(t)

	prefs := storage.DefaultPreferences()
	prefs.EnginePath = "/opt/engines/sf16"
	prefs.SearchDepth = 22
	if err := st.SavePreferences(prefs); err != nil {
		t.Fatalf("SavePreferences failed: %v", err)
	}

	// No config file, no flags: the stored preferences win.
	flagConfig = filepath.Join(t.TempDir(), "missing.yaml")
	cfg, err := loadConfig(st)
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}
	if cfg.Engine.Path != "/opt/engines/sf16" {
		t.Errorf("Expected stored engine path, got %q", cfg.Engine.Path)
	}
	if cfg.Engine.Depth != 22 {
		t.Errorf("Expected stored depth 22, got %d", cfg.Engine.Depth)
	}

	// Flags still override preferences.
	flagDepth = 9
	cfg, err = loadConfig(st)
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}
	if cfg.Engine.Depth != 9 {
		t.Errorf("Expected flag depth 9, got %d", cfg.Engine.Depth)
	}
}

func TestLoadConfigFileWinsOverPreferences(t *testing.T) {
	resetFlags(t)
	st := openTestStore(t)

	prefs := storage.DefaultPreferences()
	prefs.EnginePath = "/opt/engines/sf16"
	if err := st.SavePreferences(prefs); err != nil {
		t.Fatalf("SavePreferences failed: %v", err)
	}

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("engine:\n  path: /usr/bin/lc0\n"), 0o644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	flagConfig = path

	cfg, err := loadConfig(st)
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}
	if cfg.Engine.Path != "/usr/bin/lc0" {
		t.Errorf("Expected config file path to win, got %q", cfg.Engine.Path)
	}
}

func TestSavePreferencesRecordsLastUsed(t *testing.T) {
	st := openTestStore(t)

	cfg := config.Default()
	cfg.Engine.Path = "/usr/bin/lc0"
	cfg.Engine.Depth = 18
	savePreferences(st, cfg)

	prefs, err := st.LoadPreferences()
	if err != nil {
		t.Fatalf("LoadPreferences failed: %v", err)
	}
	if prefs.EnginePath != "/usr/bin/lc0" {
		t.Errorf("Expected last-used engine path, got %q", prefs.EnginePath)
	}
	if prefs.SearchDepth != 18 {
		t.Errorf("Expected last-used depth 18, got %d", prefs.SearchDepth)
	}
	if prefs.LastPlayed.IsZero() {
		t.Error("Expected last-played timestamp to be set")
	}
}
