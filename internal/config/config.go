// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-shadowshare.
//
// go-shadowshare is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// SelectionFirst uses the first k covers found in the directory
	SelectionFirst = "first"

	// SelectionRandom samples k covers uniformly at random
	SelectionRandom = "random"

	// DefaultExtension is the cover file extension
	DefaultExtension = ".bmp"
)

// Config represents the complete shadowshare configuration
type Config struct {
	Logging LoggingConfig `yaml:"logging"`
	Sharing SharingConfig `yaml:"sharing"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// LoggingConfig controls logging behavior
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// SharingConfig controls distribution and recovery
type SharingConfig struct {
	// Workers bounds goroutines per operation. 0 means one per CPU.
	Workers int `yaml:"workers"`

	// Selection picks the recovery subset: first or random.
	Selection string `yaml:"selection"`

	// Extension of cover files in the image directory.
	Extension string `yaml:"extension"`

	// ClampPixels maps secret pixels above 250 to 250 instead of failing.
	ClampPixels bool `yaml:"clamp_pixels"`
}

// MetricsConfig controls Prometheus textfile export
type MetricsConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Textfile string `yaml:"textfile"`
}

// Default returns the configuration used when no file is given
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Sharing: SharingConfig{
			Selection: SelectionFirst,
			Extension: DefaultExtension,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// Load reads configuration from a YAML file over the defaults and applies
// environment variable overrides
func Load(path string) (*Config, error) {
	// #nosec G304 - Config file path is provided by the user
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// LoadOrDefault loads path when it is set and returns the defaults with
// environment overrides otherwise
func LoadOrDefault(path string) (*Config, error) {
	if path != "" {
		return Load(path)
	}
	cfg := Default()
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the configuration
func applyEnvOverrides(cfg *Config) {
	// Logging
	if level := os.Getenv("SHADOWSHARE_LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}
	if format := os.Getenv("SHADOWSHARE_LOG_FORMAT"); format != "" {
		cfg.Logging.Format = format
	}

	// Sharing
	if workers := os.Getenv("SHADOWSHARE_WORKERS"); workers != "" {
		n, err := strconv.Atoi(workers)
		if err != nil || n < 0 {
			log.Printf("Warning: invalid SHADOWSHARE_WORKERS value %q, using %d", workers, cfg.Sharing.Workers)
		} else {
			cfg.Sharing.Workers = n
		}
	}
	if selection := os.Getenv("SHADOWSHARE_SELECTION"); selection != "" {
		cfg.Sharing.Selection = selection
	}
	if clamp := os.Getenv("SHADOWSHARE_CLAMP_PIXELS"); clamp != "" {
		v, err := strconv.ParseBool(clamp)
		if err != nil {
			log.Printf("Warning: invalid SHADOWSHARE_CLAMP_PIXELS value %q, using %t", clamp, cfg.Sharing.ClampPixels)
		} else {
			cfg.Sharing.ClampPixels = v
		}
	}

	// Metrics
	if textfile := os.Getenv("SHADOWSHARE_METRICS_TEXTFILE"); textfile != "" {
		cfg.Metrics.Textfile = textfile
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	// Validate logging level
	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logging.Level)
	}

	// Validate logging format
	validFormats := map[string]bool{
		"json": true, "text": true,
	}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		return fmt.Errorf("invalid log format: %s (must be json or text)", c.Logging.Format)
	}

	if c.Sharing.Workers < 0 {
		return fmt.Errorf("invalid workers: %d (must not be negative)", c.Sharing.Workers)
	}

	switch strings.ToLower(c.Sharing.Selection) {
	case SelectionFirst, SelectionRandom:
	default:
		return fmt.Errorf("invalid selection: %s (must be first or random)", c.Sharing.Selection)
	}

	if !strings.HasPrefix(c.Sharing.Extension, ".") || len(c.Sharing.Extension) < 2 {
		return fmt.Errorf("invalid extension: %q (must start with a dot)", c.Sharing.Extension)
	}

	return nil
}
