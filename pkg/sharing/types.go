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
	"fmt"
	"sync"
)

// Plane is a row-major grid of 8-bit intensities.
type Plane struct {
	Width  int
	Height int
	Pixels []byte
}

// NewPlane returns a zeroed width x height plane.
func NewPlane(width, height int) *Plane {
	return &Plane{
		Width:  width,
		Height: height,
		Pixels: make([]byte, width*height),
	}
}

// Len returns the number of pixels.
func (p *Plane) Len() int {
	return len(p.Pixels)
}

// Clone returns a deep copy of p.
func (p *Plane) Clone() *Plane {
	pixels := make([]byte, len(p.Pixels))
	copy(pixels, p.Pixels)
	return &Plane{Width: p.Width, Height: p.Height, Pixels: pixels}
}

// SameShape reports whether p and o have the same width and height.
func (p *Plane) SameShape(o *Plane) bool {
	return p.Width == o.Width && p.Height == o.Height
}

func (p *Plane) validate() error {
	if p == nil {
		return fmt.Errorf("%w: plane is nil", ErrInvalidPlane)
	}
	if p.Width <= 0 || p.Height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidPlane, p.Width, p.Height)
	}
	if len(p.Pixels) != p.Width*p.Height {
		return fmt.Errorf("%w: %d pixels for %dx%d", ErrInvalidPlane, len(p.Pixels), p.Width, p.Height)
	}
	return nil
}

// Shadow is one participant's share: the pair (f_i(j), g_i(j)) for every
// block i, stored at Values[2i] and Values[2i+1].
type Shadow struct {
	Participant uint16
	Values      []byte
}

// Cover carries a shadow in its pixels and a participant identifier
// outside of them.
type Cover interface {
	// Load returns the cover's pixel plane and participant identifier.
	// The returned plane is owned by the caller.
	Load() (*Plane, uint16, error)

	// Store persists plane together with the participant identifier.
	Store(plane *Plane, participant uint16) error
}

// MemoryCover is a Cover held entirely in memory.
type MemoryCover struct {
	mu          sync.RWMutex
	plane       *Plane
	participant uint16
	stores      int
}

var _ Cover = (*MemoryCover)(nil)

// NewMemoryCover returns a cover holding a copy of plane.
func NewMemoryCover(plane *Plane, participant uint16) *MemoryCover {
	return &MemoryCover{plane: plane.Clone(), participant: participant}
}

func (m *MemoryCover) Load() (*Plane, uint16, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.plane.Clone(), m.participant, nil
}

func (m *MemoryCover) Store(plane *Plane, participant uint16) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.plane = plane.Clone()
	m.participant = participant
	m.stores++
	return nil
}

// Stores returns the number of times Store has been called.
func (m *MemoryCover) Stores() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.stores
}
