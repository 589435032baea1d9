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

// Package polynomial provides polynomials over GF(251) with evaluation and
// Lagrange interpolation.
//
// Coefficients are stored highest-degree first: the coefficient at position
// i multiplies x^(degree-i). The number of coefficients is fixed when the
// polynomial is constructed; individual coefficients may be replaced.
package polynomial

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jeremyhahn/go-shadowshare/pkg/field"
)

var (
	// ErrNoPoints is returned when interpolating an empty point set.
	ErrNoPoints = errors.New("polynomial: no points to interpolate")

	// ErrDuplicateX is returned when two points share an abscissa.
	ErrDuplicateX = errors.New("polynomial: duplicate x value")

	// ErrZeroAbscissa is returned when a point lies at x = 0. The reduced
	// interpolation divides by every abscissa.
	ErrZeroAbscissa = errors.New("polynomial: x value must be nonzero")
)

// Point is a sample (x, y) of a polynomial.
type Point struct {
	X field.Element
	Y field.Element
}

// Polynomial is a fixed-length sequence of coefficients over GF(251).
type Polynomial struct {
	coefficients []field.Element
}

// New returns a polynomial with the given coefficients, highest degree first.
// The slice is copied.
func New(coefficients ...field.Element) *Polynomial {
	c := make([]field.Element, len(coefficients))
	copy(c, coefficients)
	return &Polynomial{coefficients: c}
}

// FromBytes builds a polynomial whose coefficients are the field reductions
// of b, highest degree first.
func FromBytes(b []byte) *Polynomial {
	c := make([]field.Element, len(b))
	for i, v := range b {
		c[i] = field.FromByte(v)
	}
	return &Polynomial{coefficients: c}
}

// Degree returns len(coefficients)-1. An empty polynomial has degree -1.
func (p *Polynomial) Degree() int {
	return len(p.coefficients) - 1
}

// Len returns the number of coefficients.
func (p *Polynomial) Len() int {
	return len(p.coefficients)
}

// Coefficient returns the coefficient at position i.
func (p *Polynomial) Coefficient(i int) field.Element {
	return p.coefficients[i]
}

// SetCoefficient replaces the coefficient at position i.
// It panics if i is out of range, like a slice index.
func (p *Polynomial) SetCoefficient(i int, v field.Element) {
	p.coefficients[i] = v
}

// Coefficients returns a copy of the coefficients, highest degree first.
func (p *Polynomial) Coefficients() []field.Element {
	c := make([]field.Element, len(p.coefficients))
	copy(c, p.coefficients)
	return c
}

// Evaluate returns p(x) using Horner's method.
func (p *Polynomial) Evaluate(x field.Element) field.Element {
	result := field.Zero
	for _, c := range p.coefficients {
		result = result.Mul(x).Add(c)
	}
	return result
}

// Equal reports whether p and o have the same degree and coefficients.
func (p *Polynomial) Equal(o *Polynomial) bool {
	if p == nil || o == nil {
		return p == o
	}
	if len(p.coefficients) != len(o.coefficients) {
		return false
	}
	for i := range p.coefficients {
		if !p.coefficients[i].Equal(o.coefficients[i]) {
			return false
		}
	}
	return true
}

// String renders p as "c0*x^d + c1*x^(d-1) + ... + cd*x^0".
func (p *Polynomial) String() string {
	terms := make([]string, len(p.coefficients))
	for i, c := range p.coefficients {
		terms[i] = fmt.Sprintf("%s*x^%d", c, p.Degree()-i)
	}
	return strings.Join(terms, " + ")
}

// Interpolate returns the unique polynomial of degree len(points)-1 passing
// through points.
//
// Coefficients are recovered one per pass, lowest degree first. The first
// pass evaluates the Lagrange form at zero, giving the constant term. Each
// later pass deflates the remaining ordinates by (y - c)/x, which samples the
// quotient polynomial, and drops one point since the quotient has one degree
// less. All x values must be distinct and nonzero.
func Interpolate(points []Point) (*Polynomial, error) {
	k := len(points)
	if k == 0 {
		return nil, ErrNoPoints
	}
	for i := range points {
		if points[i].X.IsZero() {
			return nil, ErrZeroAbscissa
		}
		for j := i + 1; j < k; j++ {
			if points[i].X.Equal(points[j].X) {
				return nil, fmt.Errorf("%w: %s", ErrDuplicateX, points[i].X)
			}
		}
	}

	ys := make([]field.Element, k)
	for i := range points {
		ys[i] = points[i].Y
	}

	ascending := make([]field.Element, 0, k)
	for pass := 0; pass < k; pass++ {
		top := k - pass

		if pass > 0 {
			prev := ascending[pass-1]
			for i := 0; i < top; i++ {
				y, err := ys[i].Sub(prev).Div(points[i].X)
				if err != nil {
					return nil, err
				}
				ys[i] = y
			}
		}

		coefficient := field.Zero
		for i := 0; i < top; i++ {
			num, den := field.One, field.One
			for j := 0; j < top; j++ {
				if i == j {
					continue
				}
				num = num.Mul(points[j].X.Neg())
				den = den.Mul(points[i].X.Sub(points[j].X))
			}
			basis, err := num.Div(den)
			if err != nil {
				return nil, err
			}
			coefficient = coefficient.Add(ys[i].Mul(basis))
		}
		ascending = append(ascending, coefficient)
	}

	coefficients := make([]field.Element, k)
	for i, c := range ascending {
		coefficients[k-1-i] = c
	}
	return &Polynomial{coefficients: coefficients}, nil
}
