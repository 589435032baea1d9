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

// Package validation checks command-line input before any bitmap is read.
// Every failure wraps ErrInvalidInput so callers can report it as a usage
// error rather than an I/O failure.
package validation

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// ErrInvalidInput is the root of every validation failure.
var ErrInvalidInput = errors.New("invalid input")

const (
	// MinThreshold and MaxThreshold bound the supported k.
	MinThreshold = 3
	MaxThreshold = 8

	// BitmapExtension is the required extension for secret and output files.
	BitmapExtension = ".bmp"
)

// ParseThreshold parses k from a command-line argument and checks its range.
func ParseThreshold(arg string) (int, error) {
	k, err := strconv.Atoi(strings.TrimSpace(arg))
	if err != nil {
		return 0, fmt.Errorf("%w: k must be an integer, got %q", ErrInvalidInput, SanitizeForLog(arg))
	}
	if err := ValidateThreshold(k); err != nil {
		return 0, err
	}
	return k, nil
}

// ValidateThreshold checks that k is between MinThreshold and MaxThreshold.
func ValidateThreshold(k int) error {
	if k < MinThreshold || k > MaxThreshold {
		return fmt.Errorf("%w: k must be between %d and %d, got %d",
			ErrInvalidInput, MinThreshold, MaxThreshold, k)
	}
	return nil
}

// HasBitmapExtension reports whether path ends in .bmp, ignoring case.
func HasBitmapExtension(path string) bool {
	return strings.EqualFold(filepath.Ext(path), BitmapExtension)
}

// ValidateSecretImage checks that path is an existing regular file with a
// bitmap extension.
func ValidateSecretImage(path string) error {
	if err := validatePath(path); err != nil {
		return err
	}
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() || !HasBitmapExtension(path) {
		return fmt.Errorf("%w: the secret image %q does not exist or does not have a %s extension",
			ErrInvalidInput, SanitizeForLog(path), BitmapExtension)
	}
	return nil
}

// ValidateOutputImage checks that path has a bitmap extension and does not
// name an existing directory.
func ValidateOutputImage(path string) error {
	if err := validatePath(path); err != nil {
		return err
	}
	if !HasBitmapExtension(path) {
		return fmt.Errorf("%w: the output image %q must have a %s extension",
			ErrInvalidInput, SanitizeForLog(path), BitmapExtension)
	}
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return fmt.Errorf("%w: the output image %q is a directory", ErrInvalidInput, SanitizeForLog(path))
	}
	return nil
}

// ValidateDirectory checks that dir exists and is a directory.
func ValidateDirectory(dir string) error {
	if err := validatePath(dir); err != nil {
		return err
	}
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("%w: the directory %q does not exist", ErrInvalidInput, SanitizeForLog(dir))
	}
	return nil
}

// ValidateImageCount checks that at least k candidate bitmaps were found.
func ValidateImageCount(found, k int) error {
	if found < k {
		return fmt.Errorf("%w: at least %d images are required in the directory, found %d",
			ErrInvalidInput, k, found)
	}
	return nil
}

func validatePath(path string) error {
	if path == "" {
		return fmt.Errorf("%w: path cannot be empty", ErrInvalidInput)
	}
	if strings.Contains(path, "\x00") {
		return fmt.Errorf("%w: path contains null byte", ErrInvalidInput)
	}
	return nil
}

// SanitizeForLog sanitizes a string for safe logging (prevents log injection).
func SanitizeForLog(s string) string {
	// Remove control characters and null bytes
	s = strings.Map(func(r rune) rune {
		if r < 32 || r == 127 {
			return -1
		}
		return r
	}, s)

	// Limit length to prevent log flooding
	if len(s) > 1000 {
		s = s[:1000] + "...[truncated]"
	}

	return s
}
