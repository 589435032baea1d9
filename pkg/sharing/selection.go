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
	"io"
	"sort"

	"github.com/jeremyhahn/go-shadowshare/pkg/crypto/rand"
)

// Selector picks which k of n available covers take part in recovery.
// Any k-subset recovers the same secret.
type Selector interface {
	// Select returns k distinct indices in [0, n).
	Select(n, k int) ([]int, error)
}

// FirstK selects the first k covers. It is deterministic.
type FirstK struct{}

func (FirstK) Select(n, k int) ([]int, error) {
	if err := checkSelection(n, k); err != nil {
		return nil, err
	}
	idx := make([]int, k)
	for i := range idx {
		idx[i] = i
	}
	return idx, nil
}

// RandomK selects k covers uniformly at random without replacement.
// The result is sorted ascending.
type RandomK struct {
	// Random defaults to crypto/rand.
	Random io.Reader
}

func (s RandomK) Select(n, k int) ([]int, error) {
	if err := checkSelection(n, k); err != nil {
		return nil, err
	}
	r := s.Random
	if r == nil {
		r = &rand.SoftwareResolver{}
	}

	// partial Fisher-Yates
	pool := make([]int, n)
	for i := range pool {
		pool[i] = i
	}
	for i := 0; i < k; i++ {
		j, err := rand.Uniform(r, i, n)
		if err != nil {
			return nil, fmt.Errorf("sharing: select covers: %w", err)
		}
		pool[i], pool[j] = pool[j], pool[i]
	}
	idx := pool[:k]
	sort.Ints(idx)
	return idx, nil
}

func checkSelection(n, k int) error {
	if n < k {
		return fmt.Errorf("%w: have %d, need %d", ErrInsufficientShares, n, k)
	}
	return nil
}
