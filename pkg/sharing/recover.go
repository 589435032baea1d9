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
	"errors"
	"fmt"

	"github.com/jeremyhahn/go-shadowshare/pkg/field"
	"github.com/jeremyhahn/go-shadowshare/pkg/logging"
	"github.com/jeremyhahn/go-shadowshare/pkg/metrics"
	"github.com/jeremyhahn/go-shadowshare/pkg/polynomial"
	"github.com/jeremyhahn/go-shadowshare/pkg/stego"
)

// Recoverer rebuilds secret planes from k covers.
type Recoverer struct {
	config *Config
	logger *logging.Logger
}

// Recovery is the result of a successful Recover call.
type Recovery struct {
	// Plane is the reconstructed secret, shaped like the covers.
	Plane *Plane

	// Source is the index into covers of the cover whose metadata the
	// output should copy.
	Source int

	// Participants lists the identifiers of the shares that were used.
	Participants []uint16
}

// NewRecoverer returns a Recoverer for cfg.Threshold.
func NewRecoverer(cfg *Config) (*Recoverer, error) {
	c, err := cfg.withDefaults()
	if err != nil {
		return nil, err
	}
	return &Recoverer{config: c, logger: c.Logger}, nil
}

// Threshold returns k.
func (r *Recoverer) Threshold() int {
	return r.config.Threshold
}

// Recover selects k covers, extracts their shadows and reconstructs the
// secret. The selected covers must all have one shape, and the secret is
// rebuilt with that shape. secretLen is the expected pixel count of the
// secret; zero means the pixel count of the covers. A nonzero secretLen that
// differs from the cover pixel count, including covers larger than the
// secret, fails with ErrDimensionMismatch; extra cover pixels are never
// ignored. No plane is returned unless every block passes the consistency
// check.
func (r *Recoverer) Recover(ctx context.Context, covers []Cover, secretLen int) (*Recovery, error) {
	k := r.config.Threshold

	idx, err := r.config.Selector.Select(len(covers), k)
	if err != nil {
		return nil, err
	}
	if err := checkIndices(idx, len(covers), k); err != nil {
		return nil, err
	}

	planes := make([]*Plane, k)
	ids := make([]uint16, k)
	err = parallel(ctx, r.config.Workers, k, func(ctx context.Context, lo, hi int) error {
		for s := lo; s < hi; s++ {
			plane, id, err := covers[idx[s]].Load()
			if err != nil {
				return fmt.Errorf("sharing: load cover %d: %w", idx[s], err)
			}
			if err := plane.validate(); err != nil {
				return fmt.Errorf("cover %d: %w", idx[s], err)
			}
			planes[s], ids[s] = plane, id
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	ref := planes[0]
	for s, p := range planes[1:] {
		if !p.SameShape(ref) {
			return nil, fmt.Errorf("%w: cover %d is %dx%d, cover %d is %dx%d",
				ErrDimensionMismatch, idx[s+1], p.Width, p.Height, idx[0], ref.Width, ref.Height)
		}
	}
	if secretLen == 0 {
		secretLen = ref.Len()
	}
	if secretLen != ref.Len() {
		return nil, fmt.Errorf("%w: expected %d pixels, covers hold %d",
			ErrDimensionMismatch, secretLen, ref.Len())
	}
	if err := checkParticipants(ids); err != nil {
		return nil, err
	}
	if secretLen%BlockSize(k) != 0 {
		return nil, fmt.Errorf("%w: %d pixels, block size %d", ErrBlockAlignment, secretLen, BlockSize(k))
	}

	width := stego.BitWidth(k)
	shadowLen := ShadowLength(secretLen, k)
	shadows := make([]Shadow, k)
	err = parallel(ctx, r.config.Workers, k, func(ctx context.Context, lo, hi int) error {
		for s := lo; s < hi; s++ {
			values, err := stego.Extract(planes[s].Pixels, shadowLen, width)
			if errors.Is(err, stego.ErrCoverTooSmall) {
				return fmt.Errorf("%w: cover %d: %v", ErrCoverTooSmall, idx[s], err)
			}
			if err != nil {
				return fmt.Errorf("sharing: extract shadow from cover %d: %w", idx[s], err)
			}
			shadows[s] = Shadow{Participant: ids[s], Values: values}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	metrics.RecordShadowBytes(metrics.OpExtract, k*shadowLen)

	pixels, err := r.Reconstruct(ctx, shadows, secretLen)
	if err != nil {
		return nil, err
	}

	return &Recovery{
		Plane:        &Plane{Width: ref.Width, Height: ref.Height, Pixels: pixels},
		Source:       idx[0],
		Participants: ids,
	}, nil
}

// Reconstruct interpolates f and g for every block from the first k shadows
// and reassembles the secret pixels. It returns a *CheatingError as soon as
// any block fails the consistency check; remaining blocks are abandoned.
func (r *Recoverer) Reconstruct(ctx context.Context, shadows []Shadow, secretLen int) ([]byte, error) {
	k := r.config.Threshold
	if len(shadows) < k {
		return nil, fmt.Errorf("%w: have %d shadows, need %d", ErrInsufficientShares, len(shadows), k)
	}
	shadows = shadows[:k]

	size := BlockSize(k)
	if secretLen <= 0 || secretLen%size != 0 {
		return nil, fmt.Errorf("%w: %d pixels, block size %d", ErrBlockAlignment, secretLen, size)
	}

	ids := make([]uint16, k)
	for s, sh := range shadows {
		ids[s] = sh.Participant
	}
	if err := checkParticipants(ids); err != nil {
		return nil, err
	}

	shadowLen := ShadowLength(secretLen, k)
	for _, sh := range shadows {
		if len(sh.Values) != shadowLen {
			return nil, fmt.Errorf("%w: shadow %d has %d values, expected %d",
				ErrValidation, sh.Participant, len(sh.Values), shadowLen)
		}
	}

	blocks := secretLen / size
	out := make([]byte, secretLen)

	r.logger.Debug("reconstructing secret",
		"threshold", k,
		"participants", ids,
		"blocks", blocks,
		"workers", r.config.Workers)

	err := parallel(ctx, r.config.Workers, blocks, func(ctx context.Context, lo, hi int) error {
		fPoints := make([]polynomial.Point, k)
		gPoints := make([]polynomial.Point, k)
		for i := lo; i < hi; i++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			for s, sh := range shadows {
				x := field.New(int(sh.Participant))
				fPoints[s] = polynomial.Point{X: x, Y: field.FromByte(sh.Values[2*i])}
				gPoints[s] = polynomial.Point{X: x, Y: field.FromByte(sh.Values[2*i+1])}
			}

			f, err := polynomial.Interpolate(fPoints)
			if err != nil {
				return fmt.Errorf("sharing: block %d: %w", i, err)
			}
			g, err := polynomial.Interpolate(gPoints)
			if err != nil {
				return fmt.Errorf("sharing: block %d: %w", i, err)
			}

			if !consistent(f, g) {
				return &CheatingError{Block: i}
			}

			block := out[i*size : (i+1)*size]
			for c := 0; c < k; c++ {
				block[c] = f.Coefficient(c).Byte()
			}
			for c := 2; c < k; c++ {
				block[k+c-2] = g.Coefficient(c).Byte()
			}
		}
		return nil
	})
	if err != nil {
		var cheat *CheatingError
		if errors.As(err, &cheat) {
			metrics.RecordCheating()
			r.logger.Warn("inconsistent shares", "block", cheat.Block, "participants", ids)
		}
		return nil, err
	}

	metrics.RecordBlocks(metrics.OpRecover, blocks)
	return out, nil
}

// consistent reports whether some r in [0, 251) satisfies r*a0 + b0 = 0 and
// r*a1 + b1 = 0, with a0 and a1 remapped like the encoder does.
func consistent(f, g *polynomial.Polynomial) bool {
	return blindingValue(
		nonZero(f.Coefficient(0)), nonZero(f.Coefficient(1)),
		g.Coefficient(0), g.Coefficient(1),
	) >= 0
}

// blindingValue returns the smallest r satisfying both relations, or -1.
func blindingValue(a0, a1, b0, b1 field.Element) int {
	for r := 0; r < field.Modulus; r++ {
		e := field.New(r)
		if e.Mul(a0).Add(b0).IsZero() && e.Mul(a1).Add(b1).IsZero() {
			return r
		}
	}
	return -1
}

func checkIndices(idx []int, n, k int) error {
	if len(idx) != k {
		return fmt.Errorf("%w: selector returned %d covers, need %d", ErrValidation, len(idx), k)
	}
	seen := make(map[int]bool, k)
	for _, i := range idx {
		if i < 0 || i >= n || seen[i] {
			return fmt.Errorf("%w: selector returned invalid index %d", ErrValidation, i)
		}
		seen[i] = true
	}
	return nil
}

func checkParticipants(ids []uint16) error {
	seen := make(map[uint16]bool, len(ids))
	for _, id := range ids {
		if id == 0 || id > MaxParticipants {
			return fmt.Errorf("%w: identifier %d outside [1, %d]", ErrInvalidParticipant, id, MaxParticipants)
		}
		if seen[id] {
			return fmt.Errorf("%w: identifier %d used twice", ErrInvalidParticipant, id)
		}
		seen[id] = true
	}
	return nil
}
