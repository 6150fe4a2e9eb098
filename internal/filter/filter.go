// SPDX-License-Identifier: MPL-2.0

// Package filter parses exclusion filters applied to archive content.
//
// Two pattern syntaxes are understood. A bracketed regular expression,
// "%regex[<expr>]", must match an entry name in full. Anything else is an
// ant-style glob ("*.jar", "META-INF/**", "**/Test*.class") matched against
// the slash-separated entry path; a glob that matches a directory excludes
// everything below it.
package filter

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/moby/patternmatcher"

	"github.com/earpack/earpack/internal/issue"
)

// RegexPrefix opens a bracketed regular expression filter.
const RegexPrefix = "%regex["

type (
	// Filter decides which entry names are excluded.
	// The zero value and a nil *Filter exclude nothing.
	Filter struct {
		patterns []string
		regexes  []*regexp.Regexp
		globs    *patternmatcher.PatternMatcher
	}

	// UnsupportedFilterError is returned when a filter is required to be in
	// bracketed-regex form and is not, or its expression does not compile.
	// It wraps issue.ErrUnsupportedFilter for errors.Is() compatibility.
	UnsupportedFilterError struct {
		Filter string
		Cause  error
	}
)

// Error implements the error interface.
func (e *UnsupportedFilterError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("unsupported filter %q: %v", e.Filter, e.Cause)
	}
	return fmt.Sprintf("unsupported filter %q: only %s<regex>] filters are supported", e.Filter, RegexPrefix)
}

// Unwrap returns the cause, if any.
func (e *UnsupportedFilterError) Unwrap() error { return e.Cause }

// Is reports whether target is issue.ErrUnsupportedFilter.
func (e *UnsupportedFilterError) Is(target error) bool { return target == issue.ErrUnsupportedFilter }

// IsRegex reports whether pattern uses the bracketed regex syntax.
func IsRegex(pattern string) bool {
	return strings.HasPrefix(pattern, RegexPrefix) && strings.LastIndex(pattern, "]") > len(RegexPrefix)-1
}

// ParseRegex compiles a bracketed regex filter into an anchored expression.
func ParseRegex(pattern string) (*regexp.Regexp, error) {
	if !IsRegex(pattern) {
		return nil, &UnsupportedFilterError{Filter: pattern}
	}
	expr := pattern[len(RegexPrefix):strings.LastIndex(pattern, "]")]
	re, err := regexp.Compile("^(?:" + expr + ")$")
	if err != nil {
		return nil, &UnsupportedFilterError{Filter: pattern, Cause: err}
	}
	return re, nil
}

// Parse builds a Filter from patterns. Empty patterns are ignored.
func Parse(patterns ...string) (*Filter, error) {
	f := &Filter{}
	var globs []string
	for _, p := range patterns {
		if p == "" {
			continue
		}
		f.patterns = append(f.patterns, p)
		if strings.HasPrefix(p, RegexPrefix) {
			re, err := ParseRegex(p)
			if err != nil {
				return nil, err
			}
			f.regexes = append(f.regexes, re)
			continue
		}
		globs = append(globs, antToMatcher(p))
	}

	if len(globs) > 0 {
		pm, err := patternmatcher.New(globs)
		if err != nil {
			return nil, fmt.Errorf("invalid exclusion pattern: %w", err)
		}
		f.globs = pm
	}
	return f, nil
}

// MustParse is Parse for patterns known at compile time.
func MustParse(patterns ...string) *Filter {
	f, err := Parse(patterns...)
	if err != nil {
		panic(err)
	}
	return f
}

// Excludes reports whether the slash-separated entry name is filtered out.
func (f *Filter) Excludes(name string) bool {
	if f == nil {
		return false
	}
	for _, re := range f.regexes {
		if re.MatchString(name) {
			return true
		}
	}
	if f.globs == nil {
		return false
	}
	clean := strings.TrimSuffix(name, "/")
	if clean == "" {
		return false
	}
	matched, err := f.globs.MatchesOrParentMatches(filepath.FromSlash(clean))
	return err == nil && matched
}

// Patterns returns the source patterns in the order given.
func (f *Filter) Patterns() []string {
	if f == nil {
		return nil
	}
	return append([]string(nil), f.patterns...)
}

// String joins the source patterns for diagnostics.
func (f *Filter) String() string {
	return "[" + strings.Join(f.Patterns(), ", ") + "]"
}

// antToMatcher rewrites ant conventions the matcher does not share: a
// trailing slash means "everything below".
func antToMatcher(p string) string {
	p = filepath.FromSlash(strings.TrimPrefix(p, "/"))
	if strings.HasSuffix(p, string(filepath.Separator)) {
		p += "**"
	}
	return p
}
