// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"errors"
	"strings"
	"testing"
)

func TestActionableError_Error(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      *ActionableError
		expected string
	}{
		{
			name:     "operation only",
			err:      &ActionableError{Operation: "package module"},
			expected: "failed to package module",
		},
		{
			name: "operation with resource",
			err: &ActionableError{
				Operation: "load project configuration",
				Resource:  "./earpack.cue",
			},
			expected: "failed to load project configuration: ./earpack.cue",
		},
		{
			name: "full context",
			err: &ActionableError{
				Operation: "load project configuration",
				Resource:  "./earpack.cue",
				Cause:     errors.New("file not found"),
			},
			expected: "failed to load project configuration: ./earpack.cue: file not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestActionableError_Format(t *testing.T) {
	t.Parallel()

	root := errors.New("root cause")
	err := NewErrorContext().
		WithOperation("package module").
		WithResource("/tmp/mod").
		WithSuggestion("Run with --verbose").
		Wrap(root).
		Build()

	plain := err.Format(false)
	if !strings.Contains(plain, "• Run with --verbose") {
		t.Errorf("Format(false) missing suggestion: %q", plain)
	}
	if strings.Contains(plain, "Error chain") {
		t.Errorf("Format(false) should not include the chain: %q", plain)
	}

	verbose := err.Format(true)
	if !strings.Contains(verbose, "1. root cause") {
		t.Errorf("Format(true) missing chain: %q", verbose)
	}
	if !errors.Is(err, root) {
		t.Error("expected errors.Is to reach the cause")
	}
}

func TestErrorContext_BuildErrorWithoutOperation(t *testing.T) {
	t.Parallel()

	if err := NewErrorContext().WithResource("x").BuildError(); err != nil {
		t.Errorf("BuildError() = %v, want nil", err)
	}
}
