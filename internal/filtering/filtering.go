// SPDX-License-Identifier: MPL-2.0

// Package filtering copies resource trees while substituting @name@ tokens.
package filtering

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/earpack/earpack/internal/issue"
	"github.com/earpack/earpack/internal/logging"
	"github.com/earpack/earpack/internal/props"
)

const (
	delimiter = '@'
	escape    = '\\'
)

// DefaultNonFiltered lists extensions copied without substitution.
var DefaultNonFiltered = []string{"jpg", "jpeg", "gif", "bmp", "png"}

type (
	// Filterer copies the tree rooted at src to dst, resolving tokens
	// through values.
	Filterer interface {
		FilterTree(src, dst string, values props.Source) error
	}

	// TokenFilter is the default Filterer. Tokens are delimited by '@' on
	// both sides and never span lines; "\@" yields a literal '@'. Tokens
	// that values cannot resolve are written back unchanged.
	TokenFilter struct {
		nonFiltered map[string]bool
		logger      *log.Logger
	}

	// Option configures a TokenFilter.
	Option func(*TokenFilter)
)

// WithNonFiltered replaces the set of extensions copied verbatim.
func WithNonFiltered(exts ...string) Option {
	return func(f *TokenFilter) {
		f.nonFiltered = make(map[string]bool, len(exts))
		for _, e := range exts {
			f.nonFiltered[strings.ToLower(strings.TrimPrefix(e, "."))] = true
		}
	}
}

// WithLogger sets the logger used for per-file debug output.
func WithLogger(logger *log.Logger) Option {
	return func(f *TokenFilter) { f.logger = logging.Ensure(logger) }
}

// New returns a TokenFilter.
func New(opts ...Option) *TokenFilter {
	f := &TokenFilter{logger: logging.Discard()}
	WithNonFiltered(DefaultNonFiltered...)(f)
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// FilterTree implements Filterer. A missing src is not an error.
func (f *TokenFilter) FilterTree(src, dst string, values props.Source) error {
	if _, err := os.Stat(src); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if values == nil {
		values = props.Properties{}
	}
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return issue.NewIOError("walk", path, err)
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return issue.NewIOError("walk", path, err)
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return issue.NewIOError("create directory", target, err)
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		return f.filterFile(path, target, values)
	})
}

func (f *TokenFilter) filterFile(src, dst string, values props.Source) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return issue.NewIOError("open", src, err)
	}
	defer func() { _ = in.Close() }()

	out, err := os.Create(dst)
	if err != nil {
		return issue.NewIOError("create", dst, err)
	}
	defer func() {
		if closeErr := out.Close(); closeErr != nil && err == nil {
			err = issue.NewIOError("close", dst, closeErr)
		}
	}()

	if f.nonFiltered[strings.ToLower(strings.TrimPrefix(filepath.Ext(src), "."))] {
		f.logger.Debug("copying unfiltered", "file", src)
		if _, err := io.Copy(out, in); err != nil {
			return issue.NewIOError("copy", dst, err)
		}
		return nil
	}

	f.logger.Debug("filtering", "file", src)
	w := bufio.NewWriter(out)
	r := bufio.NewReader(in)
	for {
		line, readErr := r.ReadBytes('\n')
		if len(line) > 0 {
			if _, err := w.Write(Substitute(line, values)); err != nil {
				return issue.NewIOError("write", dst, err)
			}
		}
		if errors.Is(readErr, io.EOF) {
			break
		}
		if readErr != nil {
			return issue.NewIOError("read", src, readErr)
		}
	}
	if err := w.Flush(); err != nil {
		return issue.NewIOError("write", dst, err)
	}
	return nil
}

// Substitute replaces every @name@ token in line that values resolves.
func Substitute(line []byte, values props.Source) []byte {
	if bytes.IndexByte(line, delimiter) < 0 {
		return line
	}
	var out bytes.Buffer
	out.Grow(len(line))
	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case c == escape && i+1 < len(line) && line[i+1] == delimiter:
			out.WriteByte(delimiter)
			i++
		case c == delimiter:
			end := tokenEnd(line, i+1)
			if end < 0 {
				out.WriteByte(c)
				continue
			}
			name := string(line[i+1 : end])
			if v, ok := values.Value(name); ok {
				out.WriteString(v)
			} else {
				out.Write(line[i : end+1])
			}
			i = end
		default:
			out.WriteByte(c)
		}
	}
	return out.Bytes()
}

// tokenEnd returns the index of the closing delimiter of a token whose name
// starts at from, or -1 when there is none on the line or the name is empty.
func tokenEnd(line []byte, from int) int {
	for j := from; j < len(line); j++ {
		switch line[j] {
		case delimiter:
			if j == from {
				return -1
			}
			return j
		case '\n', '\r', ' ', '\t':
			return -1
		}
	}
	return -1
}
