// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"errors"
	"fmt"
)

// Sentinels for the failure kinds of a packaging run. Concrete error types in
// other packages report their kind through errors.Is.
var (
	// ErrResolution: a dependency coordinate could not be satisfied. Fatal.
	ErrResolution = errors.New("dependency resolution failed")
	// ErrIO: a file or directory could not be created, read, or written. Fatal.
	ErrIO = errors.New("i/o failure")
	// ErrTransform: a descriptor template failed to compile or render. Fatal.
	ErrTransform = errors.New("descriptor transform failed")
	// ErrUnsupportedFilter: an exclusion filter is not in bracketed-regex
	// form. Callers degrade the feature that needed it.
	ErrUnsupportedFilter = errors.New("unsupported exclusion filter")
	// ErrAssembly: an archive could not be produced. Fatal.
	ErrAssembly = errors.New("archive assembly failed")
)

// Kind classifies an error by the sentinel it matches.
type Kind int

const (
	KindUnknown Kind = iota
	KindResolution
	KindIO
	KindTransform
	KindUnsupportedFilter
	KindAssembly
)

// String returns the lower-case name of the kind.
func (k Kind) String() string {
	switch k {
	case KindResolution:
		return "resolution"
	case KindIO:
		return "io"
	case KindTransform:
		return "transform"
	case KindUnsupportedFilter:
		return "unsupported-filter"
	case KindAssembly:
		return "assembly"
	default:
		return "unknown"
	}
}

// KindOf reports the failure kind of err. Assembly wins over the kinds it
// wraps because it is the outermost fatal condition.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindUnknown
	case errors.Is(err, ErrAssembly):
		return KindAssembly
	case errors.Is(err, ErrResolution):
		return KindResolution
	case errors.Is(err, ErrTransform):
		return KindTransform
	case errors.Is(err, ErrUnsupportedFilter):
		return KindUnsupportedFilter
	case errors.Is(err, ErrIO):
		return KindIO
	default:
		return KindUnknown
	}
}

// IOError describes a failed filesystem operation on Path.
// It wraps ErrIO for errors.Is() compatibility.
type IOError struct {
	Op    string
	Path  string
	Cause error
}

// NewIOError returns nil when cause is nil.
func NewIOError(op, path string, cause error) error {
	if cause == nil {
		return nil
	}
	return &IOError{Op: op, Path: path, Cause: cause}
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Cause)
}

// Unwrap returns the underlying cause.
func (e *IOError) Unwrap() error { return e.Cause }

// Is reports whether target is ErrIO.
func (e *IOError) Is(target error) bool { return target == ErrIO }
