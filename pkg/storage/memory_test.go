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

package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryBackend_PutAndGet(t *testing.T) {
	backend := NewMemory()
	defer func() { _ = backend.Close() }()

	key := "cover.bmp"
	value := []byte("BM-data")

	require.NoError(t, backend.Put(key, value, nil))

	result, err := backend.Get(key)
	require.NoError(t, err)
	assert.Equal(t, value, result)
}

func TestMemoryBackend_Get_NotFound(t *testing.T) {
	backend := NewMemory()
	defer func() { _ = backend.Close() }()

	_, err := backend.Get("nonexistent.bmp")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryBackend_CopiesValues(t *testing.T) {
	backend := NewMemory()
	defer func() { _ = backend.Close() }()

	value := []byte{1, 2, 3}
	require.NoError(t, backend.Put("a", value, DefaultOptions()))
	value[0] = 9

	got, err := backend.Get("a")
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, got)

	got[1] = 9
	again, err := backend.Get("a")
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, again)
}

func TestMemoryBackend_InvalidKey(t *testing.T) {
	backend := NewMemory()
	defer func() { _ = backend.Close() }()

	for _, key := range []string{"", ".", "..", "dir/cover.bmp", `dir\cover.bmp`} {
		assert.ErrorIs(t, backend.Put(key, []byte{1}, nil), ErrInvalidKey, "key %q", key)
	}
}

func TestMemoryBackend_ListSorted(t *testing.T) {
	backend := NewMemory()
	defer func() { _ = backend.Close() }()

	for _, key := range []string{"c.bmp", "a.bmp", "b.txt", "a2.bmp"} {
		require.NoError(t, backend.Put(key, []byte(key), nil))
	}

	keys, err := backend.List("")
	require.NoError(t, err)
	assert.Equal(t, []string{"a.bmp", "a2.bmp", "b.txt", "c.bmp"}, keys)

	keys, err = backend.List("a")
	require.NoError(t, err)
	assert.Equal(t, []string{"a.bmp", "a2.bmp"}, keys)
}

func TestMemoryBackend_DeleteAndExists(t *testing.T) {
	backend := NewMemory()
	defer func() { _ = backend.Close() }()

	require.NoError(t, backend.Put("x", []byte{1}, nil))

	ok, err := backend.Exists("x")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, backend.Delete("x"))
	assert.ErrorIs(t, backend.Delete("x"), ErrNotFound)

	ok, err = backend.Exists("x")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryBackend_Closed(t *testing.T) {
	backend := NewMemory()
	require.NoError(t, backend.Close())
	require.NoError(t, backend.Close())

	_, err := backend.Get("x")
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, backend.Put("x", nil, nil), ErrClosed)
	assert.ErrorIs(t, backend.Delete("x"), ErrClosed)
	_, err = backend.List("")
	assert.ErrorIs(t, err, ErrClosed)
	_, err = backend.Exists("x")
	assert.ErrorIs(t, err, ErrClosed)
}
