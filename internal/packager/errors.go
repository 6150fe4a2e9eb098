// SPDX-License-Identifier: MPL-2.0

package packager

import (
	"errors"
	"fmt"

	"github.com/earpack/earpack/internal/issue"
)

var (
	// ErrSealed is returned when an archive is modified or built again after
	// Build.
	ErrSealed = errors.New("archive already built")
	// ErrNotBuilt is returned when chaining from an archive that has not
	// been built.
	ErrNotBuilt = errors.New("archive not built")
)

// AssemblyError reports a failure producing an archive. No output file is
// left behind when it is returned.
type AssemblyError struct {
	Output string
	Cause  error
}

func (e *AssemblyError) Error() string {
	return fmt.Sprintf("assemble %s: %v", e.Output, e.Cause)
}

// Unwrap returns the underlying cause.
func (e *AssemblyError) Unwrap() error { return e.Cause }

// Is reports whether target is issue.ErrAssembly.
func (e *AssemblyError) Is(target error) bool { return target == issue.ErrAssembly }
