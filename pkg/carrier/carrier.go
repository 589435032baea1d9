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

// Package carrier binds bitmap files held in a storage backend to the
// sharing.Cover interface. The participant identifier travels in the
// bitmap's Reserved1 header field.
package carrier

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/hashicorp/go-multierror"

	"github.com/jeremyhahn/go-shadowshare/pkg/bmp"
	"github.com/jeremyhahn/go-shadowshare/pkg/sharing"
	"github.com/jeremyhahn/go-shadowshare/pkg/storage"
)

// Extension is the file extension of carrier bitmaps.
const Extension = ".bmp"

// Carrier is a bitmap stored under a key in a backend.
type Carrier struct {
	backend storage.Backend
	key     string

	mu    sync.RWMutex
	image *bmp.Image
}

var _ sharing.Cover = (*Carrier)(nil)

// Open reads and decodes the bitmap stored under key.
func Open(backend storage.Backend, key string) (*Carrier, error) {
	data, err := backend.Get(key)
	if err != nil {
		return nil, fmt.Errorf("carrier: read %q: %w", key, err)
	}
	img, err := bmp.DecodeBytes(data)
	if err != nil {
		return nil, fmt.Errorf("carrier: decode %q: %w", key, err)
	}
	return &Carrier{backend: backend, key: key, image: img}, nil
}

// OpenAll opens every key. All failures are collected and returned together;
// on error no carriers are returned.
func OpenAll(backend storage.Backend, keys []string) ([]*Carrier, error) {
	var result *multierror.Error
	carriers := make([]*Carrier, 0, len(keys))
	for _, key := range keys {
		c, err := Open(backend, key)
		if err != nil {
			result = multierror.Append(result, err)
			continue
		}
		carriers = append(carriers, c)
	}
	if err := result.ErrorOrNil(); err != nil {
		return nil, err
	}
	return carriers, nil
}

// Scan returns the sorted keys in backend whose extension matches ext,
// ignoring case.
func Scan(backend storage.Backend, ext string) ([]string, error) {
	keys, err := backend.List("")
	if err != nil {
		return nil, fmt.Errorf("carrier: scan: %w", err)
	}
	matched := make([]string, 0, len(keys))
	for _, key := range keys {
		if strings.EqualFold(filepath.Ext(key), ext) {
			matched = append(matched, key)
		}
	}
	return matched, nil
}

// Covers converts carriers to the sharing.Cover interface, keeping order.
func Covers(carriers []*Carrier) []sharing.Cover {
	covers := make([]sharing.Cover, len(carriers))
	for i, c := range carriers {
		covers[i] = c
	}
	return covers
}

// Key returns the storage key of the carrier.
func (c *Carrier) Key() string {
	return c.key
}

// Header returns a copy of the bitmap header.
func (c *Carrier) Header() bmp.Header {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.image.Header
}

// Load returns a copy of the pixel plane and the participant identifier.
func (c *Carrier) Load() (*sharing.Plane, uint16, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	pixels := make([]byte, len(c.image.Pixels))
	copy(pixels, c.image.Pixels)
	plane := &sharing.Plane{
		Width:  c.image.Width(),
		Height: c.image.Height(),
		Pixels: pixels,
	}
	return plane, c.image.Header.ParticipantID(), nil
}

// Store re-encodes the bitmap with plane's pixels and the participant
// identifier and writes it back under the same key. Header fields other
// than Reserved1 and the palette are preserved.
func (c *Carrier) Store(plane *sharing.Plane, participant uint16) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	img, err := c.withPixels(plane)
	if err != nil {
		return err
	}
	img.Header.SetParticipantID(participant)

	if err := Save(c.backend, c.key, img); err != nil {
		return err
	}
	c.image = img
	return nil
}

// Derive returns a new bitmap with this carrier's header and palette, the
// pixels of plane and a zero participant identifier.
func (c *Carrier) Derive(plane *sharing.Plane) (*bmp.Image, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	img, err := c.withPixels(plane)
	if err != nil {
		return nil, err
	}
	img.Header.SetParticipantID(0)
	return img, nil
}

func (c *Carrier) withPixels(plane *sharing.Plane) (*bmp.Image, error) {
	if plane.Width != c.image.Width() || plane.Height != c.image.Height() {
		return nil, fmt.Errorf("%w: carrier %q is %dx%d, plane is %dx%d",
			sharing.ErrDimensionMismatch, c.key, c.image.Width(), c.image.Height(), plane.Width, plane.Height)
	}
	if len(plane.Pixels) != plane.Width*plane.Height {
		return nil, fmt.Errorf("%w: %d pixels for %dx%d",
			sharing.ErrInvalidPlane, len(plane.Pixels), plane.Width, plane.Height)
	}
	img := c.image.Clone()
	copy(img.Pixels, plane.Pixels)
	return img, nil
}

// Save encodes img and stores it under key.
func Save(backend storage.Backend, key string, img *bmp.Image) error {
	data, err := bmp.EncodeBytes(img)
	if err != nil {
		return fmt.Errorf("carrier: encode %q: %w", key, err)
	}
	if err := backend.Put(key, data, nil); err != nil {
		return fmt.Errorf("carrier: write %q: %w", key, err)
	}
	return nil
}
