// SPDX-License-Identifier: MPL-2.0

// Package props resolves template parameter names against module build
// properties.
//
// Descriptor templates and filtered resources refer to parameters through a
// stable public vocabulary ("server-platform", "default", ...). The
// AliasResolver translates that vocabulary onto the property keys a module
// actually declares, so the keys can change without touching templates.
package props

import "strings"

// Source looks up raw property values.
type Source interface {
	Value(key string) (string, bool)
}

// Properties is a flat build property map.
type Properties map[string]string

// Value implements Source.
func (p Properties) Value(key string) (string, bool) {
	v, ok := p[key]
	return v, ok
}

// Bool reports whether key is set to "true" (case-insensitive).
func (p Properties) Bool(key string) bool {
	v, ok := p[key]
	return ok && strings.EqualFold(strings.TrimSpace(v), "true")
}
