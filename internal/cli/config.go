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

package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jeremyhahn/go-shadowshare/internal/config"
	"github.com/jeremyhahn/go-shadowshare/pkg/crypto/rand"
	"github.com/jeremyhahn/go-shadowshare/pkg/logging"
	"github.com/jeremyhahn/go-shadowshare/pkg/metrics"
	"github.com/jeremyhahn/go-shadowshare/pkg/sharing"
	"github.com/jeremyhahn/go-shadowshare/pkg/validation"
)

// EnvPrefix prefixes the environment variables bound to flags
const EnvPrefix = "SHADOWSHARE"

// Config holds global CLI configuration
type Config struct {
	// ConfigFile is the path to the YAML configuration file
	ConfigFile string

	// OutputFormat controls output formatting (json, text, table)
	OutputFormat string

	// Verbose enables debug logging
	Verbose bool

	// Workers bounds goroutines per operation. 0 means one per CPU.
	Workers int

	// Selection picks the recovery subset (first, random)
	Selection string

	// Seed switches to a deterministic random stream when set
	Seed   uint64
	seeded bool

	// MetricsFile is written in Prometheus text format after each command
	MetricsFile string

	// Clamp maps secret pixels above 250 to 250 instead of failing
	Clamp bool

	settings *config.Config
	logger   *logging.Logger
	stdout   io.Writer
	stderr   io.Writer
}

// NewConfig creates a new Config with default values
func NewConfig() *Config {
	return &Config{
		OutputFormat: string(OutputFormatText),
		Selection:    config.SelectionFirst,
		settings:     config.Default(),
		logger:       logging.Discard(),
		stdout:       os.Stdout,
		stderr:       os.Stderr,
	}
}

// SetOutput redirects command output and logs
func (c *Config) SetOutput(stdout, stderr io.Writer) {
	c.stdout = stdout
	c.stderr = stderr
}

// resolve merges flags, SHADOWSHARE_* environment variables, the
// configuration file and defaults, in that order of precedence.
func (c *Config) resolve(cmd *cobra.Command) error {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("failed to bind flags: %w", err)
	}

	settings, err := config.LoadOrDefault(v.GetString("config"))
	if err != nil {
		return err
	}
	c.settings = settings

	v.SetDefault("workers", settings.Sharing.Workers)
	v.SetDefault("selection", settings.Sharing.Selection)
	v.SetDefault("clamp", settings.Sharing.ClampPixels)
	v.SetDefault("metrics-file", settings.Metrics.Textfile)

	c.ConfigFile = v.GetString("config")
	c.OutputFormat = v.GetString("output")
	c.Verbose = v.GetBool("verbose")
	c.Workers = v.GetInt("workers")
	c.Selection = strings.ToLower(v.GetString("selection"))
	c.Seed = v.GetUint64("seed")
	c.seeded = v.IsSet("seed")
	c.MetricsFile = v.GetString("metrics-file")
	c.Clamp = v.GetBool("clamp")

	if err := c.validate(); err != nil {
		return err
	}

	level := settings.Logging.Level
	if c.Verbose {
		level = "debug"
	}
	c.logger = logging.New(c.stderr, level, settings.Logging.Format)

	if settings.Metrics.Enabled {
		metrics.Enable()
	} else {
		metrics.Disable()
	}
	return nil
}

func (c *Config) validate() error {
	if !validFormat(c.OutputFormat) {
		return fmt.Errorf("%w: unknown output format %q (must be text, json or table)",
			validation.ErrInvalidInput, c.OutputFormat)
	}
	if c.Workers < 0 {
		return fmt.Errorf("%w: workers must be non-negative, got %d", validation.ErrInvalidInput, c.Workers)
	}
	switch c.Selection {
	case config.SelectionFirst, config.SelectionRandom:
	default:
		return fmt.Errorf("%w: unknown selection %q (must be first or random)",
			validation.ErrInvalidInput, c.Selection)
	}
	return nil
}

// Extension returns the cover file extension
func (c *Config) Extension() string {
	return c.settings.Sharing.Extension
}

// Printer returns a Printer for command results
func (c *Config) Printer() *Printer {
	return NewPrinter(c.OutputFormat, c.stdout)
}

// Random returns the blinding value source: a seeded stream when --seed
// was given and crypto/rand otherwise.
func (c *Config) Random() (rand.Resolver, error) {
	if c.seeded {
		return rand.NewResolver(&rand.Config{Mode: rand.ModeDeterministic, Seed: c.Seed})
	}
	return rand.NewResolver(rand.ModeSoftware)
}

// SharingConfig builds the distributor and recoverer configuration for k
func (c *Config) SharingConfig(k int, logger *logging.Logger) (*sharing.Config, error) {
	random, err := c.Random()
	if err != nil {
		return nil, err
	}

	var selector sharing.Selector = sharing.FirstK{}
	if c.Selection == config.SelectionRandom {
		selector = sharing.RandomK{Random: random}
	}

	return &sharing.Config{
		Threshold:   k,
		Workers:     c.Workers,
		Random:      random,
		Selector:    selector,
		Logger:      logger,
		ClampPixels: c.Clamp,
	}, nil
}
