// SPDX-License-Identifier: MPL-2.0

package packager

import (
	"bytes"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/zip"

	"github.com/earpack/earpack/internal/issue"
)

const (
	manifestName = "META-INF/MANIFEST.MF"

	fileMode = 0o644
	dirMode  = 0o755
)

type (
	// entry is one planned archive entry. Files take their content from
	// exactly one of data, path and zf; directories have none.
	entry struct {
		name     string
		data     []byte
		path     string
		zf       *zip.File
		mode     fs.FileMode
		modified time.Time
	}

	// plan orders entries by first appearance; a later put with the same
	// name replaces the content in place.
	plan struct {
		order   []string
		entries map[string]*entry
	}
)

func newPlan() *plan {
	return &plan{entries: make(map[string]*entry)}
}

func (p *plan) put(e *entry) {
	for _, dir := range parents(e.name) {
		if _, ok := p.entries[dir]; !ok {
			p.order = append(p.order, dir)
			p.entries[dir] = &entry{name: dir, mode: fs.ModeDir | dirMode, modified: e.modified}
		}
	}
	if existing, ok := p.entries[e.name]; ok {
		if !e.isDir() {
			*existing = *e
		}
		return
	}
	p.order = append(p.order, e.name)
	p.entries[e.name] = e
}

func (e *entry) isDir() bool { return strings.HasSuffix(e.name, "/") }

func (e *entry) open() (io.ReadCloser, error) {
	switch {
	case e.data != nil:
		return io.NopCloser(bytes.NewReader(e.data)), nil
	case e.zf != nil:
		return e.zf.Open()
	default:
		return os.Open(e.path)
	}
}

// write plans every item, then streams the result into a temporary file
// renamed onto the output once complete.
func (a *Archive) write(items []ContentItem) (err error) {
	var closers []io.Closer
	defer func() {
		for _, c := range closers {
			_ = c.Close()
		}
	}()

	p := newPlan()
	p.put(a.manifestEntry())
	for _, item := range items {
		c, planErr := a.planItem(p, item)
		if c != nil {
			closers = append(closers, c)
		}
		if planErr != nil {
			return planErr
		}
	}

	tmp, err := os.CreateTemp(filepath.Dir(a.output), "."+filepath.Base(a.output)+"-*")
	if err != nil {
		return issue.NewIOError("create", a.output, err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	zw := zip.NewWriter(tmp)
	for _, name := range p.order {
		if err := a.writeEntry(zw, p.entries[name]); err != nil {
			return err
		}
	}
	if err := zw.Close(); err != nil {
		return issue.NewIOError("finish", a.output, err)
	}
	if err := tmp.Close(); err != nil {
		return issue.NewIOError("close", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), a.output); err != nil {
		return issue.NewIOError("rename", a.output, err)
	}
	return nil
}

// planItem adds the entries of item to p. The returned closer, if any, must
// stay open until the plan is written.
func (a *Archive) planItem(p *plan, item ContentItem) (io.Closer, error) {
	switch item.Kind {
	case KindFile:
		info, err := os.Stat(item.Source)
		if err != nil {
			return nil, issue.NewIOError("stat", item.Source, err)
		}
		a.put(p, &entry{name: item.Name, path: item.Source, mode: info.Mode(), modified: info.ModTime()})
		return nil, nil
	case KindDirectory, KindGeneratedResourceTree:
		if !isDir(item.Source) {
			a.logger.Debug("skipping directory", "name", filepath.Base(item.Source))
			return nil, nil
		}
		return nil, a.planTree(p, item)
	case KindNestedArchive:
		zr, err := zip.OpenReader(item.Source)
		if err != nil {
			return nil, issue.NewIOError("open", item.Source, err)
		}
		for _, f := range zr.File {
			if item.Exclusions.Excludes(f.Name) {
				continue
			}
			e := &entry{name: entryName(item.Prefix, f.Name), zf: f, mode: f.Mode(), modified: f.Modified}
			if e.isDir() {
				e.zf = nil
			}
			a.put(p, e)
		}
		return zr, nil
	default:
		return nil, errors.New("unknown content kind " + item.Kind.String())
	}
}

func (a *Archive) planTree(p *plan, item ContentItem) error {
	return filepath.WalkDir(item.Source, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return issue.NewIOError("walk", path, walkErr)
		}
		rel, err := filepath.Rel(item.Source, path)
		if err != nil {
			return issue.NewIOError("walk", path, err)
		}
		if rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if item.Exclusions.Excludes(rel) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return issue.NewIOError("stat", path, err)
		}
		switch {
		case d.IsDir():
			a.put(p, &entry{name: entryName(item.Prefix, rel) + "/", mode: info.Mode(), modified: info.ModTime()})
		case info.Mode().IsRegular():
			a.put(p, &entry{name: entryName(item.Prefix, rel), path: path, mode: info.Mode(), modified: info.ModTime()})
		}
		return nil
	})
}

// put drops source manifests; the archive writes its own.
func (a *Archive) put(p *plan, e *entry) {
	if e.name == manifestName {
		a.logger.Debug("skipping manifest", "source", e.path)
		return
	}
	p.put(e)
}

func (a *Archive) header(e *entry) *zip.FileHeader {
	h := &zip.FileHeader{Name: e.name, Method: zip.Deflate}
	mode, modified := e.mode, e.modified
	if e.isDir() {
		h.Method = zip.Store
		mode = fs.ModeDir | mode.Perm()
	}
	if !a.timestamp.IsZero() {
		modified = a.timestamp
		if e.isDir() {
			mode = fs.ModeDir | dirMode
		} else {
			mode = fileMode
		}
	}
	if modified.IsZero() {
		modified = time.Now()
	}
	h.Modified = modified
	h.SetMode(mode)
	return h
}

func (a *Archive) writeEntry(zw *zip.Writer, e *entry) error {
	w, err := zw.CreateHeader(a.header(e))
	if err != nil {
		return issue.NewIOError("add entry", e.name, err)
	}
	if e.isDir() {
		return nil
	}
	rc, err := e.open()
	if err != nil {
		return issue.NewIOError("open", e.source(), err)
	}
	defer func() { _ = rc.Close() }()
	if _, err := io.Copy(w, rc); err != nil {
		return issue.NewIOError("copy", e.source(), err)
	}
	return nil
}

func (e *entry) source() string {
	switch {
	case e.data != nil:
		return e.name
	case e.zf != nil:
		return e.zf.Name
	default:
		return e.path
	}
}
