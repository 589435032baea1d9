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
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/jeremyhahn/go-shadowshare/internal/config"
	"github.com/jeremyhahn/go-shadowshare/pkg/metrics"
)

// NewRootCommand builds the command tree around cfg
func NewRootCommand(cfg *Config) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "shadowshare",
		Short: "shadowshare - k-of-n secret image sharing with cheating detection",
		Long: `shadowshare splits a grayscale bitmap into n shadows such that any k of
them rebuild it exactly and fewer reveal nothing. Each shadow is hidden in
the least significant bits of a cover bitmap, and recovery detects shadows
that were altered after distribution.

Supported thresholds: k = 3 to 8. Covers must be 8-bit bitmaps with the
same dimensions as the secret.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return cfg.resolve(cmd)
		},
	}
	rootCmd.SetOut(cfg.stdout)
	rootCmd.SetErr(cfg.stderr)
	rootCmd.SetFlagErrorFunc(flagError)

	// Persistent flags (available to all commands)
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfg.ConfigFile, "config", "",
		"config file (YAML)")
	flags.StringVarP(&cfg.OutputFormat, "output", "o", string(OutputFormatText),
		"output format (text, json, table)")
	flags.BoolVarP(&cfg.Verbose, "verbose", "v", false,
		"verbose output")
	flags.IntVar(&cfg.Workers, "workers", 0,
		"goroutines per operation (0 = one per CPU)")
	flags.StringVar(&cfg.Selection, "selection", config.SelectionFirst,
		"recovery subset selection (first, random)")
	flags.Uint64Var(&cfg.Seed, "seed", 0,
		"seed a deterministic random stream (testing only)")
	flags.StringVar(&cfg.MetricsFile, "metrics-file", "",
		"write Prometheus metrics to this file after the command")
	flags.BoolVar(&cfg.Clamp, "clamp", false,
		"clamp secret pixels above 250 instead of failing")

	// Add subcommands
	rootCmd.AddCommand(newDistributeCmd(cfg))
	rootCmd.AddCommand(newRecoverCmd(cfg))
	rootCmd.AddCommand(newInspectCmd(cfg))
	rootCmd.AddCommand(newVersionCmd(cfg))

	return rootCmd
}

// Execute runs the command line in os.Args. Errors are printed to stderr
// before being returned; ExitCode maps them to the process status.
func Execute() error {
	return Run(context.Background(), NewConfig(), os.Args[1:])
}

// Run executes args against a fresh command tree bound to cfg
func Run(ctx context.Context, cfg *Config, args []string) error {
	rootCmd := NewRootCommand(cfg)
	rootCmd.SetArgs(args)

	err := rootCmd.ExecuteContext(ctx)
	if mErr := writeMetrics(cfg); mErr != nil && err == nil {
		err = mErr
	}
	if err != nil {
		handleError(cfg, err)
	}
	return err
}

// writeMetrics exports the registry when a textfile path is configured
func writeMetrics(cfg *Config) error {
	if cfg.MetricsFile == "" || !metrics.IsEnabled() {
		return nil
	}
	metrics.CollectOnce()
	return metrics.WriteTextfile(cfg.MetricsFile)
}

// handleError prints an error to stderr
func handleError(cfg *Config, err error) {
	printer := NewPrinter(cfg.OutputFormat, cfg.stderr)
	_ = printer.PrintError(err) // Error printing to stderr is best-effort
	cfg.logger.Debug("command failed", "exit_code", ExitCode(err))
}
