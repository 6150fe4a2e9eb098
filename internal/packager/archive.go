// SPDX-License-Identifier: MPL-2.0

package packager

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/earpack/earpack/internal/filter"
	"github.com/earpack/earpack/internal/filtering"
	"github.com/earpack/earpack/internal/logging"
	"github.com/earpack/earpack/internal/props"
)

// DefaultCreatedBy is the manifest creator stamp when none is configured.
const DefaultCreatedBy = "earpack"

type (
	// Archive accumulates content items and writes them to a zip file.
	// An Archive is built once; every mutation after Build fails with
	// ErrSealed.
	Archive struct {
		output      string
		timestamp   time.Time
		confDir     string
		scratchRoot string
		createdBy   string
		filterer    filtering.Filterer
		logger      *log.Logger

		mu        sync.Mutex
		items     []ContentItem
		generated []string
		sealed    bool
	}

	// Option configures an Archive.
	Option func(*Archive)
)

// WithTimestamp makes the archive reproducible: every entry carries ts and
// normalized permissions. The zero time keeps source modification times.
func WithTimestamp(ts time.Time) Option {
	return func(a *Archive) { a.timestamp = ts.UTC() }
}

// WithConfDir sets the directory filtered into the archive root on Build.
func WithConfDir(dir string) Option {
	return func(a *Archive) { a.confDir = dir }
}

// WithScratchRoot sets where filtered configuration is staged. The staging
// directory is named after the configuration directory's last element.
func WithScratchRoot(dir string) Option {
	return func(a *Archive) { a.scratchRoot = dir }
}

// WithCreatedBy sets the manifest Created-By value.
func WithCreatedBy(createdBy string) Option {
	return func(a *Archive) { a.createdBy = createdBy }
}

// WithFilterer replaces the token filter applied to the configuration
// directory.
func WithFilterer(f filtering.Filterer) Option {
	return func(a *Archive) { a.filterer = f }
}

// WithLogger sets the logger for add and skip records.
func WithLogger(logger *log.Logger) Option {
	return func(a *Archive) { a.logger = logging.Ensure(logger) }
}

// New returns an empty archive that Build writes to output.
func New(output string, opts ...Option) *Archive {
	a := &Archive{
		output:    output,
		createdBy: DefaultCreatedBy,
		logger:    logging.Discard(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.scratchRoot == "" {
		a.scratchRoot = filepath.Join(filepath.Dir(output), "earpack")
	}
	if a.filterer == nil {
		a.filterer = filtering.New(filtering.WithLogger(a.logger))
	}
	return a
}

// Chain returns a new archive writing to output whose first item is the
// built file of prev, stored at the root under its own name.
func Chain(prev *Archive, output string, opts ...Option) (*Archive, error) {
	if !prev.Sealed() {
		return nil, fmt.Errorf("chain %s: %w", prev.Output(), ErrNotBuilt)
	}
	a := New(output, opts...)
	a.items = append(a.items, ContentItem{
		Kind:   KindFile,
		Source: prev.Output(),
		Name:   filepath.Base(prev.Output()),
	})
	a.logger.Debug("adding file", "name", filepath.Base(prev.Output()))
	return a, nil
}

// Output returns the destination path.
func (a *Archive) Output() string { return a.output }

// Sealed reports whether Build has been called.
func (a *Archive) Sealed() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.sealed
}

// Items returns a copy of the registered items in order.
func (a *Archive) Items() []ContentItem {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]ContentItem(nil), a.items...)
}

// AddFile adds the regular file at path under prefix, naming it with
// StripVersion. A missing file is skipped.
func (a *Archive) AddFile(path, prefix string) error {
	name := entryName(prefix, StripVersion(filepath.Base(path)))
	if !isFile(path) {
		a.logger.Debug("skipping file", "name", entryName(prefix, filepath.Base(path)))
		return a.checkOpen()
	}
	return a.add(ContentItem{Kind: KindFile, Source: path, Prefix: prefix, Name: name}, "adding file", "name", name)
}

// AddExpanded merges every entry of the zip at archive except those matched
// by exclusion. An empty exclusion keeps everything. A missing archive is
// skipped.
func (a *Archive) AddExpanded(archive, exclusion string) error {
	excl, err := filter.Parse(exclusion)
	if err != nil {
		return err
	}
	if !isFile(archive) {
		a.logger.Debug("skipping expanded archive", "name", filepath.Base(archive), "exclusions", exclusion)
		return a.checkOpen()
	}
	return a.add(ContentItem{Kind: KindNestedArchive, Source: archive, Exclusions: excl},
		"adding expanded archive", "name", filepath.Base(archive), "exclusions", exclusion)
}

// AddDirectoryTree merges the tree below root, dropping paths matched by
// any of exclusions. A missing directory is skipped.
func (a *Archive) AddDirectoryTree(root string, exclusions ...string) error {
	excl, err := filter.Parse(exclusions...)
	if err != nil {
		return err
	}
	if !isDir(root) {
		a.logger.Debug("skipping directory", "name", filepath.Base(root), "exclusions", excl.String())
		return a.checkOpen()
	}
	return a.add(ContentItem{Kind: KindDirectory, Source: root, Exclusions: excl},
		"adding directory", "name", filepath.Base(root), "exclusions", excl.String())
}

// AddGeneratedResourceDir registers a directory merged verbatim at the
// archive root ahead of the other items. The directory only needs to exist
// by the time Build runs.
func (a *Archive) AddGeneratedResourceDir(path string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.sealed {
		return ErrSealed
	}
	a.generated = append(a.generated, path)
	return nil
}

// AddTemplateFile adds confDir/name under META-INF/templates/ when it
// exists.
func (a *Archive) AddTemplateFile(confDir, name string) error {
	src := filepath.Join(confDir, filepath.FromSlash(name))
	entry := templatesPrefix + filepath.Base(src)
	if !isFile(src) {
		a.logger.Debug("skipping template", "name", filepath.Base(src))
		return a.checkOpen()
	}
	return a.add(ContentItem{Kind: KindFile, Source: src, Name: entry}, "adding template", "name", filepath.Base(src))
}

// Build writes the archive: the filtered configuration directory first,
// then generated resource trees, then the remaining items in registration
// order. values feeds token substitution. On failure nothing is left at the
// output path.
func (a *Archive) Build(values props.Source) error {
	a.mu.Lock()
	if a.sealed {
		a.mu.Unlock()
		return ErrSealed
	}
	a.sealed = true
	items := append([]ContentItem(nil), a.items...)
	generated := append([]string(nil), a.generated...)
	a.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(a.output), 0o755); err != nil {
		return &AssemblyError{Output: a.output, Cause: err}
	}

	var trees []ContentItem
	if a.confDir != "" && isDir(a.confDir) {
		scratch := filepath.Join(a.scratchRoot, filepath.Base(a.confDir))
		a.logger.Debug("filtering resources", "dir", filepath.Base(a.confDir), "into", scratch)
		if err := os.RemoveAll(scratch); err != nil {
			return &AssemblyError{Output: a.output, Cause: err}
		}
		if err := a.filterer.FilterTree(a.confDir, scratch, values); err != nil {
			return &AssemblyError{Output: a.output, Cause: err}
		}
		trees = append(trees, ContentItem{Kind: KindGeneratedResourceTree, Source: scratch})
	} else if a.confDir != "" {
		a.logger.Debug("skipping directory", "name", filepath.Base(a.confDir))
	}
	for _, g := range generated {
		trees = append(trees, ContentItem{Kind: KindGeneratedResourceTree, Source: g})
	}

	if err := a.write(append(trees, items...)); err != nil {
		return &AssemblyError{Output: a.output, Cause: err}
	}
	a.logger.Info("Built archive", "path", a.output)
	return nil
}

func (a *Archive) add(item ContentItem, msg string, keyvals ...any) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.sealed {
		return ErrSealed
	}
	a.items = append(a.items, item)
	a.logger.Debug(msg, keyvals...)
	return nil
}

func (a *Archive) checkOpen() error {
	if a.Sealed() {
		return ErrSealed
	}
	return nil
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
