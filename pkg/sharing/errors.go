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
	"errors"
	"fmt"
)

// ErrValidation is the root of every input validation failure. Use
// errors.Is(err, ErrValidation) to tell bad input apart from I/O failures
// and cheating.
var ErrValidation = errors.New("sharing: invalid input")

var (
	// ErrUnsupportedThreshold is returned for k outside [MinThreshold, MaxThreshold].
	ErrUnsupportedThreshold = fmt.Errorf("%w: unsupported threshold", ErrValidation)

	// ErrBlockAlignment is returned when the secret's pixel count is not a
	// multiple of the block size 2k-2.
	ErrBlockAlignment = fmt.Errorf("%w: pixel count not divisible by block size", ErrValidation)

	// ErrInsufficientShares is returned when fewer than k covers are supplied.
	ErrInsufficientShares = fmt.Errorf("%w: insufficient shares", ErrValidation)

	// ErrTooManyParticipants is returned when more participants are requested
	// than there are nonzero field elements to evaluate at.
	ErrTooManyParticipants = fmt.Errorf("%w: too many participants", ErrValidation)

	// ErrDimensionMismatch is returned when planes that must share a shape do not.
	ErrDimensionMismatch = fmt.Errorf("%w: dimension mismatch", ErrValidation)

	// ErrCoverTooSmall is returned when a cover cannot carry a full shadow.
	ErrCoverTooSmall = fmt.Errorf("%w: cover too small", ErrValidation)

	// ErrInvalidParticipant is returned for a zero or repeated participant id.
	ErrInvalidParticipant = fmt.Errorf("%w: invalid participant", ErrValidation)

	// ErrPixelOutOfRange is returned when a secret pixel does not fit in
	// GF(251) and clamping is disabled.
	ErrPixelOutOfRange = fmt.Errorf("%w: pixel value above 250", ErrValidation)

	// ErrInvalidPlane is returned for a nil plane or one whose pixel buffer
	// disagrees with its width and height.
	ErrInvalidPlane = fmt.Errorf("%w: malformed plane", ErrValidation)
)

// ErrCheatingDetected reports that the selected shares are not mutually
// consistent. It is never wrapped in ErrValidation.
var ErrCheatingDetected = errors.New("sharing: cheating detected")

// CheatingError identifies the first block whose consistency check failed.
type CheatingError struct {
	Block int
}

func (e *CheatingError) Error() string {
	return fmt.Sprintf("sharing: cheating detected in block %d", e.Block)
}

// Is reports whether target is ErrCheatingDetected.
func (e *CheatingError) Is(target error) bool {
	return target == ErrCheatingDetected
}
