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
	"os"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cobra"

	"github.com/jeremyhahn/go-shadowshare/pkg/carrier"
	"github.com/jeremyhahn/go-shadowshare/pkg/storage"
	"github.com/jeremyhahn/go-shadowshare/pkg/validation"
)

func newInspectCmd(cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <image.bmp|directory>...",
		Short: "Show bitmap headers and participant identifiers",
		Long: `Print the dimensions, pixel depth and participant identifier of each
bitmap. Directories are expanded to the bitmaps they contain. A participant
identifier of 0 means the bitmap carries no shadow.`,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return fmt.Errorf("%w: %s requires at least one image or directory",
					validation.ErrInvalidInput, cmd.CommandPath())
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(cfg, args)
		},
	}
}

// runInspect prints every bitmap it can read and returns the failures of
// the rest together.
func runInspect(cfg *Config, paths []string) error {
	var result *multierror.Error
	var images []ImageInfo

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("%w: %q does not exist",
				validation.ErrInvalidInput, validation.SanitizeForLog(path)))
			continue
		}

		var store storage.Backend
		var keys []string
		if info.IsDir() {
			store, keys, err = scanCovers(path, cfg.Extension(), "")
		} else {
			var key string
			store, key, err = openStore(path)
			keys = []string{key}
		}
		if err != nil {
			result = multierror.Append(result, err)
			continue
		}

		for _, key := range keys {
			c, err := carrier.Open(store, key)
			if err != nil {
				result = multierror.Append(result, err)
				continue
			}
			images = append(images, describe(c))
		}
	}

	if err := cfg.Printer().PrintImages(images); err != nil {
		return err
	}
	return result.ErrorOrNil()
}

func describe(c *carrier.Carrier) ImageInfo {
	h := c.Header()
	return ImageInfo{
		Image:        c.Key(),
		Width:        h.Columns(),
		Height:       h.Rows(),
		BitsPerPixel: h.BitsPerPixel,
		Participant:  h.ParticipantID(),
		FileSize:     h.FileSize,
		DataOffset:   h.DataOffset,
		TopDown:      h.TopDown(),
	}
}
