// Package config loads the application configuration from a YAML file,
// falling back to defaults when the file is absent.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full application configuration.
type Config struct {
	Engine   Engine   `yaml:"engine"`
	Provider Provider `yaml:"provider"`
	Playback Playback `yaml:"playback"`
}

// Engine configures the UCI evaluation engine.
type Engine struct {
	Path        string        `yaml:"path"`
	Depth       int           `yaml:"depth"`
	InitTimeout time.Duration `yaml:"init_timeout"`
}

// Provider configures the puzzle source.
type Provider struct {
	BaseURL string `yaml:"base_url"`
}

// Playback configures the presentation pacing.
type Playback struct {
	StepDelay    time.Duration `yaml:"step_delay"`
	BlunderPause time.Duration `yaml:"blunder_pause"`
	ResetDelay   time.Duration `yaml:"reset_delay"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Engine: Engine{
			Path:        "stockfish",
			Depth:       15,
			InitTimeout: 10 * time.Second,
		},
		Playback: Playback{
			StepDelay:    800 * time.Millisecond,
			BlunderPause: 2 * time.Second,
			ResetDelay:   1500 * time.Millisecond,
		},
	}
}

// Load reads the configuration file at path over the built-in defaults.
func Load(path string) (Config, error) {
	return LoadOver(path, Default())
}

// LoadOver reads the configuration file at path over base, so stored
// user preferences can seed the defaults. A missing file is not an
// error: base applies unchanged. Values absent from the file keep
// their base values.
func LoadOver(path string, base Config) (Config, error) {
	cfg := base

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects values the rest of the program cannot work with.
func (c *Config) Validate() error {
	if c.Engine.Path == "" {
		return fmt.Errorf("engine path must not be empty")
	}
	if c.Engine.Depth < 1 || c.Engine.Depth > 99 {
		return fmt.Errorf("engine depth %d out of range [1,99]", c.Engine.Depth)
	}
	if c.Engine.InitTimeout <= 0 {
		return fmt.Errorf("engine init timeout must be positive")
	}
	if c.Playback.StepDelay < 0 || c.Playback.BlunderPause < 0 || c.Playback.ResetDelay < 0 {
		return fmt.Errorf("playback delays must not be negative")
	}
	return nil
}
