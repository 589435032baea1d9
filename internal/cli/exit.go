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
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jeremyhahn/go-shadowshare/pkg/metrics"
	"github.com/jeremyhahn/go-shadowshare/pkg/sharing"
	"github.com/jeremyhahn/go-shadowshare/pkg/validation"
)

// Process exit codes
const (
	ExitOK         = 0
	ExitError      = 1
	ExitValidation = 2
	ExitCheating   = 3
)

// ExitCode maps an error returned by a command to the process exit code.
// Cheating takes precedence over validation, which takes precedence over
// every other failure.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, sharing.ErrCheatingDetected):
		return ExitCheating
	case errors.Is(err, sharing.ErrValidation), errors.Is(err, validation.ErrInvalidInput):
		return ExitValidation
	default:
		return ExitError
	}
}

// statusFor returns the metrics status label for the outcome err
func statusFor(err error) string {
	switch {
	case err == nil:
		return metrics.StatusSuccess
	case errors.Is(err, sharing.ErrCheatingDetected):
		return metrics.StatusCheating
	default:
		return metrics.StatusError
	}
}

// recordOperation records a finished command in the metrics registry
func recordOperation(operation string, start time.Time, err error) {
	metrics.RecordOperation(operation, statusFor(err), time.Since(start).Seconds())
}

// exactArgs is cobra.ExactArgs with the error classified as invalid input
func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) != n {
			return fmt.Errorf("%w: %s accepts %d arg(s), received %d",
				validation.ErrInvalidInput, cmd.CommandPath(), n, len(args))
		}
		return nil
	}
}

// flagError classifies flag parsing failures as invalid input
func flagError(cmd *cobra.Command, err error) error {
	return fmt.Errorf("%w: %v", validation.ErrInvalidInput, err)
}
