package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg != Default() {
		t.Errorf("Expected defaults, got %+v", cfg)
	}
}

func TestLoadOverrides(t *testing.T) {
	path := writeConfig(t, `
engine:
  path: /usr/bin/stockfish
  depth: 20
playback:
  step_delay: 500ms
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Engine.Path != "/usr/bin/stockfish" {
		t.Errorf("Expected overridden engine path, got %q", cfg.Engine.Path)
	}
	if cfg.Engine.Depth != 20 {
		t.Errorf("Expected depth 20, got %d", cfg.Engine.Depth)
	}
	if cfg.Playback.StepDelay != 500*time.Millisecond {
		t.Errorf("Expected step delay 500ms, got %v", cfg.Playback.StepDelay)
	}
	// Untouched values keep defaults.
	if cfg.Playback.BlunderPause != 2*time.Second {
		t.Errorf("Expected default blunder pause, got %v", cfg.Playback.BlunderPause)
	}
	if cfg.Engine.InitTimeout != 10*time.Second {
		t.Errorf("Expected default init timeout, got %v", cfg.Engine.InitTimeout)
	}
}

func TestLoadOverKeepsBase(t *testing.T) {
	base := Default()
	base.Engine.Path = "/opt/engines/sf16"
	base.Engine.Depth = 22

	path := writeConfig(t, "engine:\n  depth: 10\n")
	cfg, err := LoadOver(path, base)
	if err != nil {
		t.Fatalf("LoadOver failed: %v", err)
	}
	if cfg.Engine.Path != "/opt/engines/sf16" {
		t.Errorf("Expected base engine path to survive, got %q", cfg.Engine.Path)
	}
	if cfg.Engine.Depth != 10 {
		t.Errorf("Expected file depth to win over base, got %d", cfg.Engine.Depth)
	}

	cfg, err = LoadOver(filepath.Join(t.TempDir(), "none.yaml"), base)
	if err != nil {
		t.Fatalf("LoadOver failed: %v", err)
	}
	if cfg != base {
		t.Errorf("Expected base unchanged for a missing file, got %+v", cfg)
	}
}

func TestLoadRejectsBadDepth(t *testing.T) {
	path := writeConfig(t, "engine:\n  depth: 0\n")
	if _, err := Load(path); err == nil {
		t.Fatal("Expected error for depth 0")
	}
}

func TestLoadRejectsGarbage(t *testing.T) {
	path := writeConfig(t, "engine: [not a map\n")
	if _, err := Load(path); err == nil {
		t.Fatal("Expected parse error")
	}
}

func TestValidate(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default config should validate: %v", err)
	}

	cfg = Default()
	cfg.Engine.Path = ""
	if err := cfg.Validate(); err == nil {
		t.Error("Expected error for empty engine path")
	}

	cfg = Default()
	cfg.Playback.ResetDelay = -time.Second
	if err := cfg.Validate(); err == nil {
		t.Error("Expected error for negative delay")
	}
}
