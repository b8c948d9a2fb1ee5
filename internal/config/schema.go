// Package config handles YAML configuration loading, environment variable
// expansion, and structural validation for telega-server.
package config

import (
	"fmt"
	"log/slog"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration structure.
type Config struct {
	// Version is the config format version. Currently only "1" is supported.
	Version string `yaml:"version"`

	// LogLevel is one of debug, info, warn or error. Empty means info.
	LogLevel string `yaml:"log_level,omitempty"`

	// Modules maps module IDs to their raw YAML configuration.
	// Keys must match registered module IDs (e.g. "bridge.stdio").
	Modules map[string]yaml.Node `yaml:"modules"`
}

// Default returns the configuration used when no file is found: the bridge
// alone, with its defaults.
func Default() *Config {
	return &Config{
		Version:  "1",
		LogLevel: "info",
		Modules: map[string]yaml.Node{
			"bridge.stdio": {Kind: yaml.MappingNode, Tag: "!!map"},
		},
	}
}

// Level parses LogLevel.
func (c *Config) Level() (slog.Level, error) {
	var level slog.Level
	if c.LogLevel == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("config: invalid log_level %q", c.LogLevel)
	}
	return level, nil
}
