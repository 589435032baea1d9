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

// Package stego hides byte streams in the least-significant bits of cover
// pixels.
//
// Each payload byte is split into 8/width groups of width bits, most
// significant group first, and each group replaces the low width bits of the
// next pixel. Pixels are consumed strictly in order.
package stego

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidWidth is returned for bit widths other than 1, 2, 4 or 8.
	ErrInvalidWidth = errors.New("stego: bit width must divide 8")

	// ErrCoverTooSmall is returned when the cover has fewer pixels than the
	// payload needs.
	ErrCoverTooSmall = errors.New("stego: cover too small for payload")
)

// BitWidth returns the number of low bits per pixel used for a (k, n)
// scheme: 4 when k is 3 or 4, otherwise 2.
func BitWidth(k int) int {
	if k == 3 || k == 4 {
		return 4
	}
	return 2
}

func validWidth(width int) bool {
	switch width {
	case 1, 2, 4, 8:
		return true
	}
	return false
}

// Required returns the number of cover pixels needed to carry n bytes at the
// given bit width.
func Required(n, width int) int {
	if !validWidth(width) {
		return 0
	}
	return n * (8 / width)
}

// Embed writes payload into the low width bits of pixels in place. The high
// bits of every pixel are preserved.
func Embed(pixels, payload []byte, width int) error {
	if !validWidth(width) {
		return fmt.Errorf("%w: %d", ErrInvalidWidth, width)
	}
	need := Required(len(payload), width)
	if len(pixels) < need {
		return fmt.Errorf("%w: need %d pixels, have %d", ErrCoverTooSmall, need, len(pixels))
	}

	groups := 8 / width
	mask := byte(0xff) >> uint(8-width)
	pos := 0
	for _, b := range payload {
		for g := groups - 1; g >= 0; g-- {
			bits := (b >> uint(g*width)) & mask
			pixels[pos] = (pixels[pos] &^ mask) | bits
			pos++
		}
	}
	return nil
}

// Extract reads n bytes from the low width bits of pixels.
func Extract(pixels []byte, n, width int) ([]byte, error) {
	if !validWidth(width) {
		return nil, fmt.Errorf("%w: %d", ErrInvalidWidth, width)
	}
	need := Required(n, width)
	if len(pixels) < need {
		return nil, fmt.Errorf("%w: need %d pixels, have %d", ErrCoverTooSmall, need, len(pixels))
	}

	groups := 8 / width
	mask := byte(0xff) >> uint(8-width)
	out := make([]byte, n)
	pos := 0
	for i := range out {
		var b byte
		for g := 0; g < groups; g++ {
			b = b<<uint(width) | pixels[pos]&mask
			pos++
		}
		out[i] = b
	}
	return out, nil
}
