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
	"context"

	"golang.org/x/sync/errgroup"
)

// parallel splits [0, total) into contiguous ranges and runs fn on each
// range across at most workers goroutines. The context handed to fn is
// cancelled as soon as any range fails.
func parallel(ctx context.Context, workers, total int, fn func(ctx context.Context, lo, hi int) error) error {
	if total <= 0 {
		return ctx.Err()
	}
	if workers < 1 {
		workers = 1
	}
	if workers > total {
		workers = total
	}
	chunk := (total + workers - 1) / workers

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for lo := 0; lo < total; lo += chunk {
		hi := min(lo+chunk, total)
		g.Go(func() error {
			return fn(gctx, lo, hi)
		})
	}
	return g.Wait()
}
