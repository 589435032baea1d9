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
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jeremyhahn/go-shadowshare/pkg/carrier"
	"github.com/jeremyhahn/go-shadowshare/pkg/correlation"
	"github.com/jeremyhahn/go-shadowshare/pkg/metrics"
	"github.com/jeremyhahn/go-shadowshare/pkg/sharing"
	"github.com/jeremyhahn/go-shadowshare/pkg/validation"
)

func newRecoverCmd(cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:     "recover <output.bmp> <k> <directory>",
		Aliases: []string{"r"},
		Short:   "Rebuild a secret bitmap from k covers in a directory",
		Long: `Extract the shadows hidden in k of the bitmaps found in the directory,
rebuild the secret and write it to the output path. The output copies the
header and palette of the first cover used.

Recovery fails with exit code 3 when any shadow proves to have been
altered after distribution.`,
		Args: exactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRecover(cmd.Context(), cfg, args[0], args[1], args[2])
		},
	}
}

func runRecover(ctx context.Context, cfg *Config, outputPath, kArg, dir string) (err error) {
	start := time.Now()
	defer func() { recordOperation(metrics.OpRecover, start, err) }()

	k, err := validation.ParseThreshold(kArg)
	if err != nil {
		return err
	}
	if err := validation.ValidateOutputImage(outputPath); err != nil {
		return err
	}
	if err := validation.ValidateDirectory(dir); err != nil {
		return err
	}

	ctx, logger := correlation.Start(ctx, cfg.logger)
	logger = logger.With("command", "recover", "k", k)

	store, keys, err := scanCovers(dir, cfg.Extension(), outputPath)
	if err != nil {
		return err
	}
	if err := validation.ValidateImageCount(len(keys), k); err != nil {
		return err
	}

	printer := cfg.Printer()
	if err := printer.PrintStatus(fmt.Sprintf("Recovering the secret image '%s' from %d images",
		outputPath, len(keys))); err != nil {
		return err
	}

	carriers, err := carrier.OpenAll(store, keys)
	if err != nil {
		return err
	}

	sharingConfig, err := cfg.SharingConfig(k, logger)
	if err != nil {
		return err
	}
	recoverer, err := sharing.NewRecoverer(sharingConfig)
	if err != nil {
		return err
	}

	recovery, err := recoverer.Recover(ctx, carrier.Covers(carriers), 0)
	if err != nil {
		return err
	}

	source := carriers[recovery.Source]
	img, err := source.Derive(recovery.Plane)
	if err != nil {
		return err
	}
	outStore, outKey, err := openStore(outputPath)
	if err != nil {
		return err
	}
	if err := carrier.Save(outStore, outKey, img); err != nil {
		return err
	}
	logger.Info("secret recovered", "output", outputPath, "participants", recovery.Participants,
		"duration", time.Since(start))

	result := &RecoveryResult{
		Output:        outputPath,
		Threshold:     k,
		Width:         recovery.Plane.Width,
		Height:        recovery.Plane.Height,
		Source:        source.Key(),
		Participants:  recovery.Participants,
		CorrelationID: correlation.GetCorrelationID(ctx),
	}
	for _, id := range recovery.Participants {
		result.Images = append(result.Images, keyFor(carriers, id))
	}
	return printer.PrintRecovery(result)
}

// keyFor returns the key of the carrier holding participant id
func keyFor(carriers []*carrier.Carrier, id uint16) string {
	for _, c := range carriers {
		h := c.Header()
		if h.ParticipantID() == id {
			return c.Key()
		}
	}
	return ""
}
