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

func newDistributeCmd(cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:     "distribute <secret.bmp> <k> <directory>",
		Aliases: []string{"d"},
		Short:   "Hide shadows of a secret bitmap in every bitmap of a directory",
		Long: `Split the secret bitmap into one shadow per bitmap found in the directory
and embed each shadow in the low bits of its cover, overwriting the cover
file. Any k of the covers recover the secret.

The secret must be an 8-bit grayscale bitmap whose pixel count is a
multiple of 2k-2 and whose pixels do not exceed 250 (see --clamp). Every
cover must have the secret's dimensions.`,
		Args: exactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDistribute(cmd.Context(), cfg, args[0], args[1], args[2])
		},
	}
}

func runDistribute(ctx context.Context, cfg *Config, secretPath, kArg, dir string) (err error) {
	start := time.Now()
	defer func() { recordOperation(metrics.OpDistribute, start, err) }()

	k, err := validation.ParseThreshold(kArg)
	if err != nil {
		return err
	}
	if err := validation.ValidateSecretImage(secretPath); err != nil {
		return err
	}
	if err := validation.ValidateDirectory(dir); err != nil {
		return err
	}

	ctx, logger := correlation.Start(ctx, cfg.logger)
	logger = logger.With("command", "distribute", "k", k)

	store, keys, err := scanCovers(dir, cfg.Extension(), secretPath)
	if err != nil {
		return err
	}
	if err := validation.ValidateImageCount(len(keys), k); err != nil {
		return err
	}

	printer := cfg.Printer()
	if err := printer.PrintStatus(fmt.Sprintf("Distributing the secret image '%s' into %d images",
		secretPath, len(keys))); err != nil {
		return err
	}

	secretStore, secretKey, err := openStore(secretPath)
	if err != nil {
		return err
	}
	secretImage, err := carrier.Open(secretStore, secretKey)
	if err != nil {
		return err
	}
	secret, _, err := secretImage.Load()
	if err != nil {
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
	distributor, err := sharing.NewDistributor(sharingConfig)
	if err != nil {
		return err
	}

	logger.Debug("distributing secret", "secret", secretPath, "covers", len(carriers),
		"width", secret.Width, "height", secret.Height)
	dist, err := distributor.Distribute(ctx, secret, carrier.Covers(carriers))
	if err != nil {
		return err
	}
	logger.Info("secret distributed", "covers", len(carriers), "blocks", dist.Blocks,
		"duration", time.Since(start))

	result := &DistributionResult{
		Secret:        secretPath,
		Threshold:     k,
		Blocks:        dist.Blocks,
		BitWidth:      dist.BitWidth,
		CorrelationID: correlation.GetCorrelationID(ctx),
		Shadows:       make([]ShadowInfo, len(dist.Shadows)),
	}
	for i, shadow := range dist.Shadows {
		result.Shadows[i] = ShadowInfo{
			Image:       carriers[i].Key(),
			Participant: shadow.Participant,
			Bytes:       len(shadow.Values),
		}
	}
	return printer.PrintDistribution(result)
}
