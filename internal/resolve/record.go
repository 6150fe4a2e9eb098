// SPDX-License-Identifier: MPL-2.0

package resolve

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/pelletier/go-toml/v2"

	"github.com/earpack/earpack/internal/coords"
	"github.com/earpack/earpack/internal/issue"
)

type (
	// Record collects the artifacts resolved during one run. It is safe
	// for concurrent use.
	Record struct {
		mu      sync.Mutex
		entries map[string]RecordEntry
	}

	// RecordEntry describes one resolved artifact.
	RecordEntry struct {
		Coordinate string `toml:"coordinate"`
		Path       string `toml:"path"`
		SHA256     string `toml:"sha256"`
		Repository string `toml:"repository,omitempty"`
	}

	recordFile struct {
		Artifacts []RecordEntry `toml:"artifact"`
	}
)

// NewRecord returns an empty record.
func NewRecord() *Record {
	return &Record{entries: make(map[string]RecordEntry)}
}

// Add records c as resolved to path. Re-adding a coordinate replaces it.
func (r *Record) Add(c coords.Coordinate, path, repository string) error {
	sum, err := fileSHA256(path)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[c.String()] = RecordEntry{
		Coordinate: c.String(),
		Path:       path,
		SHA256:     sum,
		Repository: repository,
	}
	return nil
}

// Entries returns the recorded artifacts ordered by coordinate.
func (r *Record) Entries() []RecordEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]RecordEntry, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Coordinate < out[j].Coordinate })
	return out
}

// Write stores the record as TOML at path.
func (r *Record) Write(path string) error {
	data, err := toml.Marshal(recordFile{Artifacts: r.Entries()})
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return issue.NewIOError("create directory", filepath.Dir(path), err)
	}
	return issue.NewIOError("write", path, os.WriteFile(path, data, 0o644))
}

// ReadRecord loads a record written by Record.Write.
func ReadRecord(path string) ([]RecordEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, issue.NewIOError("read", path, err)
	}
	var f recordFile
	if err := toml.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	return f.Artifacts, nil
}

func fileSHA256(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", issue.NewIOError("open", path, err)
	}
	defer func() { _ = f.Close() }()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", issue.NewIOError("read", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
