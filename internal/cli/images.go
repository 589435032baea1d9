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

package cli

import (
	"fmt"
	"path/filepath"

	"github.com/jeremyhahn/go-shadowshare/pkg/carrier"
	"github.com/jeremyhahn/go-shadowshare/pkg/storage"
	"github.com/jeremyhahn/go-shadowshare/pkg/storage/file"
)

// openStore opens the directory holding path as a storage backend and
// returns it with the key of path inside it.
func openStore(path string) (storage.Backend, string, error) {
	store, err := file.New(filepath.Dir(path))
	if err != nil {
		return nil, "", fmt.Errorf("failed to open directory: %w", err)
	}
	return store, filepath.Base(path), nil
}

// scanCovers lists the cover keys in dir. When exclude names a file inside
// dir it is left out, so a secret or output image kept next to its covers
// is never treated as one.
func scanCovers(dir, ext, exclude string) (storage.Backend, []string, error) {
	store, err := file.New(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open directory: %w", err)
	}
	keys, err := carrier.Scan(store, ext)
	if err != nil {
		return nil, nil, err
	}
	if exclude == "" || !sameDir(dir, filepath.Dir(exclude)) {
		return store, keys, nil
	}
	base := filepath.Base(exclude)
	filtered := keys[:0]
	for _, key := range keys {
		if key != base {
			filtered = append(filtered, key)
		}
	}
	return store, filtered, nil
}

func sameDir(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return filepath.Clean(a) == filepath.Clean(b)
	}
	return absA == absB
}
