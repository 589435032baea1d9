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

package carrier

import (
	"context"
	mrand "math/rand/v2"
	"testing"

	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeremyhahn/go-shadowshare/internal/testutil"
	"github.com/jeremyhahn/go-shadowshare/pkg/bmp"
	"github.com/jeremyhahn/go-shadowshare/pkg/crypto/rand"
	"github.com/jeremyhahn/go-shadowshare/pkg/sharing"
	"github.com/jeremyhahn/go-shadowshare/pkg/storage"
)

func putBitmap(t *testing.T, backend storage.Backend, key string, width, height int, rng *mrand.Rand, limit int) *bmp.Image {
	t.Helper()
	img := testutil.RandomBitmap(rng, width, height, limit)
	require.NoError(t, Save(backend, key, img))
	return img
}

func TestScan(t *testing.T) {
	backend := storage.NewMemory()
	for _, key := range []string{"b.BMP", "a.bmp", "c.png", "d.bmpx"} {
		require.NoError(t, backend.Put(key, []byte{1}, nil))
	}

	keys, err := Scan(backend, Extension)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.bmp", "b.BMP"}, keys)
}

func TestOpenAll_AggregatesFailures(t *testing.T) {
	backend := storage.NewMemory()
	rng := mrand.New(mrand.NewPCG(1, 1))
	putBitmap(t, backend, "good.bmp", 4, 4, rng, 255)
	require.NoError(t, backend.Put("bad1.bmp", []byte("not a bitmap"), nil))
	require.NoError(t, backend.Put("bad2.bmp", []byte("BMshort"), nil))

	_, err := OpenAll(backend, []string{"bad1.bmp", "good.bmp", "bad2.bmp", "missing.bmp"})
	require.Error(t, err)

	merr, ok := err.(*multierror.Error)
	require.True(t, ok, "expected *multierror.Error, got %T", err)
	assert.Len(t, merr.Errors, 3)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	carriers, err := OpenAll(backend, []string{"good.bmp"})
	require.NoError(t, err)
	require.Len(t, carriers, 1)
	assert.Equal(t, "good.bmp", carriers[0].Key())
}

func TestCarrier_StoreKeepsHeader(t *testing.T) {
	backend := storage.NewMemory()
	rng := mrand.New(mrand.NewPCG(2, 2))
	orig := putBitmap(t, backend, "c.bmp", 6, 2, rng, 255)

	c, err := Open(backend, "c.bmp")
	require.NoError(t, err)

	plane, id, err := c.Load()
	require.NoError(t, err)
	assert.Equal(t, uint16(0), id)
	assert.Equal(t, orig.Pixels, plane.Pixels)

	plane.Pixels[0] ^= 0x0F
	require.NoError(t, c.Store(plane, 3))

	reopened, err := Open(backend, "c.bmp")
	require.NoError(t, err)
	got, id, err := reopened.Load()
	require.NoError(t, err)
	assert.Equal(t, uint16(3), id)
	assert.Equal(t, plane.Pixels, got.Pixels)

	h := reopened.Header()
	assert.Equal(t, orig.Header.Width, h.Width)
	assert.Equal(t, orig.Header.ColorsUsed, h.ColorsUsed)

	err = c.Store(sharing.NewPlane(2, 2), 1)
	assert.ErrorIs(t, err, sharing.ErrDimensionMismatch)
}

func TestCarrier_Derive(t *testing.T) {
	backend := storage.NewMemory()
	rng := mrand.New(mrand.NewPCG(3, 3))
	putBitmap(t, backend, "c.bmp", 4, 2, rng, 255)

	c, err := Open(backend, "c.bmp")
	require.NoError(t, err)
	plane, _, _ := c.Load()
	require.NoError(t, c.Store(plane, 9))

	secret := &sharing.Plane{Width: 4, Height: 2, Pixels: []byte{1, 2, 3, 4, 5, 6, 7, 8}}
	img, err := c.Derive(secret)
	require.NoError(t, err)
	assert.Equal(t, uint16(0), img.Header.ParticipantID())
	assert.Equal(t, secret.Pixels, img.Pixels)
	assert.Equal(t, bmp.GrayPalette(), img.Palette)

	// the carrier itself is untouched
	_, id, _ := c.Load()
	assert.Equal(t, uint16(9), id)
}

func TestDistributeRecover_ThroughBitmaps(t *testing.T) {
	const k = 4
	backend := storage.NewMemory()
	rng := mrand.New(mrand.NewPCG(4, 4))

	secret := putBitmap(t, backend, "secret.bmp", 6, 5, rng, 250)
	for _, key := range []string{"p1.bmp", "p2.bmp", "p3.bmp", "p4.bmp", "p5.bmp"} {
		putBitmap(t, backend, key, 6, 5, rng, 255)
	}

	keys, err := Scan(backend, Extension)
	require.NoError(t, err)
	keys = keys[:5] // p1..p5, secret.bmp sorts last

	carriers, err := OpenAll(backend, keys)
	require.NoError(t, err)

	random, err := rand.NewResolver(&rand.Config{Mode: rand.ModeDeterministic, Seed: 1})
	require.NoError(t, err)
	dist, err := sharing.NewDistributor(&sharing.Config{Threshold: k, Random: random})
	require.NoError(t, err)

	plane := &sharing.Plane{Width: 6, Height: 5, Pixels: secret.Pixels}
	_, err = dist.Distribute(context.Background(), plane, Covers(carriers))
	require.NoError(t, err)

	// reopen from storage so only the encoded bitmaps are used
	reopened, err := OpenAll(backend, []string{"p5.bmp", "p2.bmp", "p4.bmp", "p1.bmp"})
	require.NoError(t, err)
	for i, want := range []uint16{5, 2, 4, 1} {
		_, id, _ := reopened[i].Load()
		assert.Equal(t, want, id)
	}

	rec, err := sharing.NewRecoverer(&sharing.Config{Threshold: k})
	require.NoError(t, err)
	res, err := rec.Recover(context.Background(), Covers(reopened), 0)
	require.NoError(t, err)
	assert.Equal(t, secret.Pixels, res.Plane.Pixels)

	out, err := reopened[res.Source].Derive(res.Plane)
	require.NoError(t, err)
	require.NoError(t, Save(backend, "recovered.bmp", out))

	check, err := Open(backend, "recovered.bmp")
	require.NoError(t, err)
	got, id, _ := check.Load()
	assert.Equal(t, uint16(0), id)
	assert.Equal(t, secret.Pixels, got.Pixels)
}
