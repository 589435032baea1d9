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

package sharing

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-multierror"

	"github.com/jeremyhahn/go-shadowshare/pkg/crypto/rand"
	"github.com/jeremyhahn/go-shadowshare/pkg/field"
	"github.com/jeremyhahn/go-shadowshare/pkg/logging"
	"github.com/jeremyhahn/go-shadowshare/pkg/metrics"
	"github.com/jeremyhahn/go-shadowshare/pkg/polynomial"
	"github.com/jeremyhahn/go-shadowshare/pkg/stego"
)

// maxPixel is the largest intensity representable in GF(251).
const maxPixel = field.Modulus - 1

// Distributor splits secret planes into shadows and hides them in covers.
type Distributor struct {
	config *Config
	logger *logging.Logger
}

// Distribution summarises a completed Distribute call.
type Distribution struct {
	// Shadows holds one shadow per cover, in cover order.
	Shadows []Shadow

	// Blocks is the number of 2k-2 pixel blocks in the secret.
	Blocks int

	// BitWidth is the number of low bits per cover pixel that carry the shadow.
	BitWidth int
}

// NewDistributor returns a Distributor for cfg.Threshold.
func NewDistributor(cfg *Config) (*Distributor, error) {
	c, err := cfg.withDefaults()
	if err != nil {
		return nil, err
	}
	return &Distributor{config: c, logger: c.Logger}, nil
}

// Threshold returns k.
func (d *Distributor) Threshold() int {
	return d.config.Threshold
}

// GenerateShadows computes the shadows of n participants with identifiers
// 1..n. One blinding value per block is drawn from the configured random
// source, in block order, before any block is evaluated.
func (d *Distributor) GenerateShadows(ctx context.Context, secret *Plane, n int) ([]Shadow, error) {
	k := d.config.Threshold
	if err := secret.validate(); err != nil {
		return nil, err
	}
	if n < k {
		return nil, fmt.Errorf("%w: %d participants for threshold %d", ErrInsufficientShares, n, k)
	}
	if n > MaxParticipants {
		return nil, fmt.Errorf("%w: %d, at most %d", ErrTooManyParticipants, n, MaxParticipants)
	}

	pixels, err := d.secretPixels(secret)
	if err != nil {
		return nil, err
	}

	size := BlockSize(k)
	blocks := len(pixels) / size

	blinds := make([]field.Element, blocks)
	for i := range blinds {
		v, err := rand.Uniform(d.config.Random, 1, field.Modulus)
		if err != nil {
			return nil, fmt.Errorf("sharing: draw blinding value: %w", err)
		}
		blinds[i] = field.New(v)
	}

	xs := make([]field.Element, n)
	shadows := make([]Shadow, n)
	for j := range shadows {
		xs[j] = field.New(j + 1)
		shadows[j] = Shadow{
			Participant: uint16(j + 1),
			Values:      make([]byte, 2*blocks),
		}
	}

	d.logger.Debug("generating shadows",
		"threshold", k,
		"participants", n,
		"blocks", blocks,
		"workers", d.config.Workers)

	err = parallel(ctx, d.config.Workers, blocks, func(ctx context.Context, lo, hi int) error {
		for i := lo; i < hi; i++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			f, g := blockPolynomials(pixels[i*size:(i+1)*size], k, blinds[i])
			for j, x := range xs {
				shadows[j].Values[2*i] = f.Evaluate(x).Byte()
				shadows[j].Values[2*i+1] = g.Evaluate(x).Byte()
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordBlocks(metrics.OpDistribute, blocks)
	return shadows, nil
}

// Distribute hides one shadow in each cover. The participant identifier of
// covers[j] is j+1. Each cover must have the secret's width and height; a
// cover with fewer pixels than the shadow needs fails with ErrCoverTooSmall
// and any other size with ErrDimensionMismatch. Every cover is loaded and
// checked before any is stored;
// a validation failure leaves all covers untouched. When a Store fails, the
// covers already written are stored again with their original pixels and
// identifiers; a failure during that restore is returned alongside the
// store error.
func (d *Distributor) Distribute(ctx context.Context, secret *Plane, covers []Cover) (*Distribution, error) {
	k := d.config.Threshold
	n := len(covers)

	shadows, err := d.GenerateShadows(ctx, secret, n)
	if err != nil {
		return nil, err
	}

	width := stego.BitWidth(k)
	shadowLen := ShadowLength(secret.Len(), k)
	required := stego.Required(shadowLen, width)

	planes := make([]*Plane, n)
	originals := make([]*Plane, n)
	ids := make([]uint16, n)
	err = parallel(ctx, d.config.Workers, n, func(ctx context.Context, lo, hi int) error {
		for j := lo; j < hi; j++ {
			plane, id, err := covers[j].Load()
			if err != nil {
				return fmt.Errorf("sharing: load cover %d: %w", j, err)
			}
			if err := plane.validate(); err != nil {
				return fmt.Errorf("cover %d: %w", j, err)
			}
			if plane.Len() < required {
				return fmt.Errorf("%w: cover %d has %d pixels, need %d",
					ErrCoverTooSmall, j, plane.Len(), required)
			}
			if !plane.SameShape(secret) {
				return fmt.Errorf("%w: cover %d is %dx%d, secret is %dx%d",
					ErrDimensionMismatch, j, plane.Width, plane.Height, secret.Width, secret.Height)
			}
			planes[j] = plane
			originals[j] = plane.Clone()
			ids[j] = id
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = parallel(ctx, d.config.Workers, n, func(ctx context.Context, lo, hi int) error {
		for j := lo; j < hi; j++ {
			if err := stego.Embed(planes[j].Pixels, shadows[j].Values, width); err != nil {
				return fmt.Errorf("sharing: embed shadow %d: %w", shadows[j].Participant, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	stored := make([]bool, n)
	err = parallel(ctx, d.config.Workers, n, func(ctx context.Context, lo, hi int) error {
		for j := lo; j < hi; j++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := covers[j].Store(planes[j], shadows[j].Participant); err != nil {
				return fmt.Errorf("sharing: store cover %d: %w", j, err)
			}
			stored[j] = true
		}
		return nil
	})
	if err != nil {
		return nil, d.rollback(covers, originals, ids, stored, err)
	}

	metrics.RecordShadowBytes(metrics.OpEmbed, n*shadowLen)
	d.logger.Debug("shadows embedded", "covers", n, "bit_width", width, "shadow_length", shadowLen)

	return &Distribution{
		Shadows:  shadows,
		Blocks:   shadowLen / 2,
		BitWidth: width,
	}, nil
}

// rollback restores every stored cover to the plane and identifier it had
// before Distribute and returns cause together with any restore failures.
func (d *Distributor) rollback(covers []Cover, originals []*Plane, ids []uint16, stored []bool, cause error) error {
	result := multierror.Append(nil, cause)
	restored := 0
	for j, ok := range stored {
		if !ok {
			continue
		}
		if err := covers[j].Store(originals[j], ids[j]); err != nil {
			result = multierror.Append(result, fmt.Errorf("sharing: restore cover %d: %w", j, err))
			continue
		}
		restored++
	}
	d.logger.Warn("distribution aborted while storing covers", "restored", restored, "error", cause)
	if len(result.Errors) == 1 {
		return cause
	}
	return result.ErrorOrNil()
}

// secretPixels checks block alignment and the field range of the secret.
// With ClampPixels it returns a clamped copy.
func (d *Distributor) secretPixels(secret *Plane) ([]byte, error) {
	k := d.config.Threshold
	size := BlockSize(k)
	if secret.Len()%size != 0 {
		return nil, fmt.Errorf("%w: %d pixels, block size %d", ErrBlockAlignment, secret.Len(), size)
	}

	over, first := 0, -1
	for i, p := range secret.Pixels {
		if p > maxPixel {
			if first < 0 {
				first = i
			}
			over++
		}
	}
	if over == 0 {
		return secret.Pixels, nil
	}
	if !d.config.ClampPixels {
		return nil, fmt.Errorf("%w: %d pixels, first at index %d is %d",
			ErrPixelOutOfRange, over, first, secret.Pixels[first])
	}

	d.logger.Warn("clamping secret pixels to field range", "count", over, "max", maxPixel)
	pixels := make([]byte, len(secret.Pixels))
	for i, p := range secret.Pixels {
		pixels[i] = min(p, maxPixel)
	}
	return pixels, nil
}

// blockPolynomials builds f and g for one block. f holds block[0:k]; g holds
// the blinding pair followed by block[k:]. Zero values of a0 and a1 are
// treated as 1 so the blinding relation never degenerates.
func blockPolynomials(block []byte, k int, r field.Element) (*polynomial.Polynomial, *polynomial.Polynomial) {
	f := polynomial.FromBytes(block[:k])

	a0 := nonZero(f.Coefficient(0))
	a1 := nonZero(f.Coefficient(1))

	coeffs := make([]field.Element, k)
	coeffs[0] = r.Mul(a0).Neg()
	coeffs[1] = r.Mul(a1).Neg()
	for i, p := range block[k:] {
		coeffs[2+i] = field.FromByte(p)
	}
	return f, polynomial.New(coeffs...)
}

func nonZero(e field.Element) field.Element {
	if e.IsZero() {
		return field.One
	}
	return e
}
