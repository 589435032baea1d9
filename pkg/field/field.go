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

// Package field implements arithmetic in GF(251), the prime field of integers
// modulo 251.
//
// 251 is the largest prime below 256, so every field element fits in a single
// byte and every nonzero element has a unique multiplicative inverse. Pixel
// intensities above 250 are folded into the field by reduction.
package field

import (
	"errors"
	"strconv"
)

// Modulus is the prime order of the field.
const Modulus = 251

// ErrDivisionByZero is returned when dividing by, or inverting, the zero element.
var ErrDivisionByZero = errors.New("field: division by zero")

// Element is a value of GF(251). Values produced by this package are always
// normalized to [0, 250].
type Element uint8

// Zero and One are the additive and multiplicative identities.
const (
	Zero Element = 0
	One  Element = 1
)

// inverseTable holds the multiplicative inverse of every nonzero element.
// Index 0 is unused. Filled once in init and never mutated afterwards.
var inverseTable [Modulus]Element

func init() {
	// Fermat: a^(p-2) = a^-1 for a != 0
	for a := 1; a < Modulus; a++ {
		inverseTable[a] = Element(a).Pow(Modulus - 2)
	}
}

// New returns the element congruent to v. Negative inputs use the Euclidean
// remainder, so New(-1) == 250.
func New(v int) Element {
	m := v % Modulus
	if m < 0 {
		m += Modulus
	}
	return Element(m)
}

// FromByte returns the element congruent to b.
func FromByte(b byte) Element {
	return Element(uint16(b) % Modulus)
}

func (a Element) norm() Element {
	return Element(uint16(a) % Modulus)
}

// Int returns the normalized value of a as an int.
func (a Element) Int() int {
	return int(a.norm())
}

// Byte returns the normalized value of a as a byte.
func (a Element) Byte() byte {
	return byte(a.norm())
}

// IsZero reports whether a is the additive identity.
func (a Element) IsZero() bool {
	return a.norm() == 0
}

// Equal reports whether a and b represent the same field element.
func (a Element) Equal(b Element) bool {
	return a.norm() == b.norm()
}

// Add returns a + b.
func (a Element) Add(b Element) Element {
	return Element((uint16(a) + uint16(b)) % Modulus)
}

// Sub returns a - b.
func (a Element) Sub(b Element) Element {
	return New(int(a) - int(b))
}

// Neg returns -a.
func (a Element) Neg() Element {
	return New(-int(a))
}

// Mul returns a * b.
func (a Element) Mul(b Element) Element {
	return Element(uint16(a) * uint16(b) % Modulus)
}

// Pow returns a raised to the power e. Pow(0) is One for every a, including zero.
func (a Element) Pow(e uint) Element {
	result := uint32(1)
	base := uint32(a.norm())
	for e > 0 {
		if e&1 == 1 {
			result = result * base % Modulus
		}
		base = base * base % Modulus
		e >>= 1
	}
	return Element(result)
}

// Inverse returns the multiplicative inverse of a.
func (a Element) Inverse() (Element, error) {
	n := a.norm()
	if n == 0 {
		return Zero, ErrDivisionByZero
	}
	return inverseTable[n], nil
}

// Div returns a / b, or ErrDivisionByZero when b is zero.
func (a Element) Div(b Element) (Element, error) {
	inv, err := b.Inverse()
	if err != nil {
		return Zero, err
	}
	return a.Mul(inv), nil
}

// String returns the decimal form of the normalized value.
func (a Element) String() string {
	return strconv.Itoa(a.Int())
}

// InverseTable returns a copy of the inverse lookup table. Entry 0 is zero
// and has no meaning.
func InverseTable() [Modulus]Element {
	return inverseTable
}
