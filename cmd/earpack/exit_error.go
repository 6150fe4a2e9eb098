// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/earpack/earpack/internal/issue"
)

// Exit codes by failure kind.
const (
	ExitFailure    = 1
	ExitResolution = 2
	ExitIO         = 3
	ExitTransform  = 4
	ExitAssembly   = 5
)

// ExitError signals a non-zero exit code without forcing os.Exit in RunE handlers.
type ExitError struct {
	Code int
	Err  error
}

// Error returns the error message for ExitError.
func (e *ExitError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("exit status %d", e.Code)
}

// Unwrap returns the underlying error, if any.
func (e *ExitError) Unwrap() error {
	return e.Err
}

// exitCodeFor maps err onto the exit code of its failure kind.
func exitCodeFor(err error) int {
	switch issue.KindOf(err) {
	case issue.KindResolution:
		return ExitResolution
	case issue.KindIO:
		return ExitIO
	case issue.KindTransform:
		return ExitTransform
	case issue.KindAssembly:
		return ExitAssembly
	default:
		return ExitFailure
	}
}

// newExitError wraps err with the exit code of its kind; nil stays nil.
func newExitError(err error) error {
	if err == nil {
		return nil
	}
	return &ExitError{Code: exitCodeFor(err), Err: err}
}
