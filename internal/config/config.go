package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config is the top-level recorder configuration loaded from file/env.
type Config struct {
	// RootDir is the base directory for all experiment logs.
	RootDir string `json:"rootDir" yaml:"rootDir"`
	// Name is the experiment name; empty collapses the path segment.
	Name string `json:"name" yaml:"name"`
	// Version is "auto", an integer, or a literal directory name.
	Version string `json:"version" yaml:"version"`
	// FlushEveryNSteps auto-flushes after every Nth record; 0 disables
	// automatic flushing.
	FlushEveryNSteps int `json:"flushEveryNSteps" yaml:"flushEveryNSteps"`

	LogLevel  string `json:"logLevel" yaml:"logLevel"`
	LogFormat string `json:"logFormat" yaml:"logFormat"` // "text" or "json"
}

// Default returns built-in defaults.
func Default() Config {
	return Config{
		RootDir:          ".",
		Version:          "auto",
		FlushEveryNSteps: 0,
		LogLevel:         "info",
		LogFormat:        "text",
	}
}

// Load reads configuration from a JSON or YAML file (by extension). If path
// is empty, returns defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	cfg := Default()
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	return cfg, nil
}

// Validate checks field ranges that would otherwise surface late.
func (c Config) Validate() error {
	if c.RootDir == "" {
		return fmt.Errorf("rootDir must not be empty")
	}
	if c.FlushEveryNSteps < 0 {
		return fmt.Errorf("flushEveryNSteps must be >= 0, got %d", c.FlushEveryNSteps)
	}
	switch c.LogFormat {
	case "", "text", "json":
	default:
		return fmt.Errorf("logFormat must be text or json, got %q", c.LogFormat)
	}
	return nil
}
