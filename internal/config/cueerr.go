// SPDX-License-Identifier: MPL-2.0

package config

import (
	"fmt"
	"strings"

	cueerrors "cuelang.org/go/cue/errors"
)

// formatCUEError prefixes each CUE error with the file and the field path,
// e.g. "earpack.cue: packager.mode: invalid value".
func formatCUEError(err error, file string) error {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return fmt.Errorf("%s: %w", file, err)
	}

	lines := make([]string, 0, len(errs))
	for _, e := range errs {
		path := fieldPath(cueerrors.Path(e))
		msg := e.Error()
		if path != "" {
			msg = strings.TrimSpace(strings.TrimPrefix(strings.TrimPrefix(msg, path), ":"))
			msg = path + ": " + msg
		}
		lines = append(lines, msg)
	}
	if len(lines) == 1 {
		return fmt.Errorf("%s: %s", file, lines[0])
	}
	return fmt.Errorf("%s: validation failed:\n  %s", file, strings.Join(lines, "\n  "))
}

// fieldPath renders ["dependencies", "0", "version"] as
// "dependencies[0].version".
func fieldPath(parts []string) string {
	var b strings.Builder
	for i, part := range parts {
		if i > 0 && isIndex(part) {
			b.WriteString("[" + part + "]")
			continue
		}
		if i > 0 {
			b.WriteByte('.')
		}
		b.WriteString(part)
	}
	return b.String()
}

func isIndex(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
