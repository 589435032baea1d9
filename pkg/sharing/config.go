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

// Package sharing implements a (k, n) threshold secret image sharing scheme
// over GF(251) with cheating detection.
//
// The secret pixel plane is cut into blocks of 2k-2 pixels. For every block
// two degree k-1 polynomials are built: f carries the first k pixels and g
// carries two blinding coefficients followed by the remaining k-2 pixels.
// The blinding coefficients satisfy r*a0 + b0 = 0 and r*a1 + b1 = 0 for a
// random r, so any k consistent shares reveal a common r while a forged share
// almost certainly breaks the relation. Each participant receives f(j) and
// g(j) for every block, which is then hidden in the participant's cover
// image through the stego package.
package sharing

import (
	"fmt"
	"io"
	"runtime"

	"github.com/jeremyhahn/go-shadowshare/pkg/crypto/rand"
	"github.com/jeremyhahn/go-shadowshare/pkg/field"
	"github.com/jeremyhahn/go-shadowshare/pkg/logging"
)

const (
	// MinThreshold is the smallest supported k.
	MinThreshold = 3

	// MaxThreshold is the largest supported k.
	MaxThreshold = 8

	// MaxParticipants is the number of distinct nonzero evaluation points.
	MaxParticipants = field.Modulus - 1
)

// Config configures a Distributor or Recoverer.
type Config struct {
	// Threshold is k, the number of shares needed to recover the secret.
	Threshold int

	// Workers bounds the number of goroutines used per operation.
	// Defaults to runtime.NumCPU().
	Workers int

	// Random supplies blinding values. Defaults to crypto/rand.
	Random io.Reader

	// Selector chooses which k covers take part in recovery. Defaults to FirstK.
	Selector Selector

	// Logger receives progress and warning records. Defaults to a logger
	// that discards everything.
	Logger *logging.Logger

	// ClampPixels maps secret pixels above 250 to 250 instead of failing.
	// Clamped pixels do not round-trip.
	ClampPixels bool
}

// BlockSize returns the number of pixels per block for threshold k.
func BlockSize(k int) int {
	return 2*k - 2
}

// ShadowLength returns the number of shadow values produced for a secret of
// total pixels under threshold k.
func ShadowLength(total, k int) int {
	return 2 * (total / BlockSize(k))
}

func validateThreshold(k int) error {
	if k < MinThreshold || k > MaxThreshold {
		return fmt.Errorf("%w: k=%d, must be between %d and %d",
			ErrUnsupportedThreshold, k, MinThreshold, MaxThreshold)
	}
	return nil
}

// withDefaults validates cfg and returns a copy with unset fields filled in.
func (cfg *Config) withDefaults() (*Config, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: config is required", ErrValidation)
	}
	if err := validateThreshold(cfg.Threshold); err != nil {
		return nil, err
	}
	if cfg.Workers < 0 {
		return nil, fmt.Errorf("%w: workers must not be negative, got %d", ErrValidation, cfg.Workers)
	}

	c := *cfg
	if c.Workers == 0 {
		c.Workers = runtime.NumCPU()
	}
	if c.Random == nil {
		c.Random = &rand.SoftwareResolver{}
	}
	if c.Selector == nil {
		c.Selector = FirstK{}
	}
	if c.Logger == nil {
		c.Logger = logging.Discard()
	}
	return &c, nil
}
