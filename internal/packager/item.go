// SPDX-License-Identifier: MPL-2.0

package packager

import (
	"path"
	"strings"

	"github.com/earpack/earpack/internal/filter"
)

// Kind is the type of a content item.
type Kind int

const (
	// KindFile is a single regular file.
	KindFile Kind = iota
	// KindDirectory is a directory tree merged recursively.
	KindDirectory
	// KindNestedArchive is a zip whose entries are merged.
	KindNestedArchive
	// KindGeneratedResourceTree is a directory produced during the run and
	// merged verbatim at the archive root.
	KindGeneratedResourceTree
)

// templatesPrefix receives override templates.
const templatesPrefix = "META-INF/templates/"

// ContentItem is one registered source of archive entries.
type ContentItem struct {
	Kind   Kind
	Source string
	// Prefix is prepended to every entry name the item produces.
	Prefix string
	// Name is the full entry name of a KindFile item.
	Name string
	// Exclusions drop matching entries of directory and nested archive items.
	Exclusions *filter.Filter
}

func (k Kind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindDirectory:
		return "directory"
	case KindNestedArchive:
		return "nested archive"
	case KindGeneratedResourceTree:
		return "generated resources"
	default:
		return "unknown"
	}
}

// entryName joins prefix and a slash-separated relative name.
func entryName(prefix, rel string) string {
	if prefix == "" {
		return rel
	}
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return prefix + rel
}

// parents lists the directory entries above name, outermost first.
func parents(name string) []string {
	var dirs []string
	dir := path.Dir(strings.TrimSuffix(name, "/"))
	for dir != "." && dir != "/" && dir != "" {
		dirs = append([]string{dir + "/"}, dirs...)
		dir = path.Dir(dir)
	}
	return dirs
}

// StripVersion folds a per-member artifact file name onto its module base:
// for names containing "member_", everything between the first and the last
// hyphen is dropped and the base joined to the remainder with an underscore,
// so "foo-2.1-member_ejb.jar" becomes "foo_member_ejb.jar". A hyphen in the
// first two characters disables the rewrite. Other names pass through.
func StripVersion(name string) string {
	first := strings.IndexByte(name, '-')
	if first > 1 && strings.Contains(name, "member_") {
		last := strings.LastIndexByte(name, '-')
		return name[:first] + "_" + name[last+1:]
	}
	return name
}
