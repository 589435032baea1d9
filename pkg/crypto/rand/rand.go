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

// Package rand provides the random sources used to draw blinding values.
//
// Two sources are available:
//   - Software: crypto/rand, the default for all real distributions
//   - Deterministic: a ChaCha8 stream keyed from a 64-bit seed, for
//     reproducible test fixtures only
//
// Both sources implement io.Reader through the Resolver interface so they
// can be handed to anything expecting crypto/rand.Reader.
package rand

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"io"
	"math/big"
	mrand "math/rand/v2"
	"sync"
)

// Mode specifies which RNG source to use.
type Mode string

const (
	// ModeSoftware uses crypto/rand (stdlib secure random)
	ModeSoftware Mode = "software"

	// ModeDeterministic uses a seeded ChaCha8 stream. Never use it for real secrets.
	ModeDeterministic Mode = "deterministic"
)

// Config contains RNG configuration.
type Config struct {
	// Mode specifies the RNG source to use. Defaults to ModeSoftware.
	Mode Mode

	// Seed keys the deterministic stream (ModeDeterministic only).
	Seed uint64
}

// Source represents a random number generator.
type Source interface {
	// Rand returns n random bytes.
	Rand(n int) ([]byte, error)

	// Available returns true if this RNG source is available and ready.
	Available() bool

	// Close closes the RNG and releases any resources.
	Close() error
}

// Resolver is a Source that also implements io.Reader.
type Resolver interface {
	Source
	io.Reader

	// Source returns the underlying RNG Source being used.
	Source() Source
}

// NewResolver creates a new RNG resolver. config may be nil, a Mode, or a
// *Config.
func NewResolver(config interface{}) (Resolver, error) {
	cfg := normalizeConfig(config)

	switch cfg.Mode {
	case ModeSoftware:
		return &SoftwareResolver{}, nil
	case ModeDeterministic:
		return newDeterministicResolver(cfg.Seed), nil
	default:
		return nil, fmt.Errorf("unknown RNG mode: %s", cfg.Mode)
	}
}

// normalizeConfig converts various config types to *Config.
func normalizeConfig(config interface{}) *Config {
	if config == nil {
		return &Config{Mode: ModeSoftware}
	}

	switch v := config.(type) {
	case Mode:
		if v == "" {
			v = ModeSoftware
		}
		return &Config{Mode: v}
	case *Config:
		if v == nil {
			return &Config{Mode: ModeSoftware}
		}
		c := *v
		if c.Mode == "" {
			c.Mode = ModeSoftware
		}
		return &c
	default:
		return &Config{Mode: ModeSoftware}
	}
}

// Uniform returns an integer drawn uniformly from [lo, hi) using r.
func Uniform(r io.Reader, lo, hi int) (int, error) {
	if hi <= lo {
		return 0, fmt.Errorf("rand: empty range [%d, %d)", lo, hi)
	}
	n, err := rand.Int(r, big.NewInt(int64(hi-lo)))
	if err != nil {
		return 0, fmt.Errorf("rand: failed to draw value: %w", err)
	}
	return lo + int(n.Int64()), nil
}

// SoftwareResolver uses crypto/rand from the Go standard library.
type SoftwareResolver struct{}

var _ Resolver = (*SoftwareResolver)(nil)

func (s *SoftwareResolver) Rand(n int) ([]byte, error) {
	buf := make([]byte, n)
	_, err := rand.Read(buf)
	return buf, err
}

// Read implements io.Reader for compatibility with crypto/rand.Reader.
func (s *SoftwareResolver) Read(p []byte) (n int, err error) {
	return rand.Read(p)
}

func (s *SoftwareResolver) Source() Source {
	return s
}

func (s *SoftwareResolver) Available() bool {
	return true // crypto/rand always available
}

func (s *SoftwareResolver) Close() error {
	return nil
}

// DeterministicResolver replays the same byte stream for the same seed.
// Safe for concurrent use; concurrent readers interleave the stream.
type DeterministicResolver struct {
	mu     sync.Mutex
	stream *mrand.ChaCha8
}

var _ Resolver = (*DeterministicResolver)(nil)

func newDeterministicResolver(seed uint64) *DeterministicResolver {
	var key [32]byte
	binary.LittleEndian.PutUint64(key[:8], seed)
	return &DeterministicResolver{stream: mrand.NewChaCha8(key)}
}

func (d *DeterministicResolver) Rand(n int) ([]byte, error) {
	buf := make([]byte, n)
	_, err := d.Read(buf)
	return buf, err
}

func (d *DeterministicResolver) Read(p []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stream.Read(p)
}

func (d *DeterministicResolver) Source() Source {
	return d
}

func (d *DeterministicResolver) Available() bool {
	return true
}

func (d *DeterministicResolver) Close() error {
	return nil
}
