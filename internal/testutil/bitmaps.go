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

// Package testutil provides bitmap fixtures shared by package tests.
package testutil

import (
	mrand "math/rand/v2"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jeremyhahn/go-shadowshare/pkg/bmp"
)

// RandomBitmap returns a width x height gray bitmap with pixels drawn
// uniformly from [0, limit].
func RandomBitmap(rng *mrand.Rand, width, height, limit int) *bmp.Image {
	img := bmp.New(width, height)
	for i := range img.Pixels {
		img.Pixels[i] = byte(rng.IntN(limit + 1))
	}
	return img
}

// WriteBitmap encodes img to path.
func WriteBitmap(t testing.TB, path string, img *bmp.Image) {
	t.Helper()
	data, err := bmp.EncodeBytes(img)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0600))
}

// ReadBitmap decodes the bitmap at path.
func ReadBitmap(t testing.TB, path string) *bmp.Image {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	img, err := bmp.DecodeBytes(data)
	require.NoError(t, err)
	return img
}

// ReadFile returns the raw bytes at path.
func ReadFile(t testing.TB, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return data
}
