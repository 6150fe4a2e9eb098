// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/zip"
)

// ZipEntry is one fixture entry. Names ending in "/" become directories.
type ZipEntry struct {
	Name    string
	Content string
}

// MustWriteZip writes a zip archive at path with entries in the given order.
func MustWriteZip(t testing.TB, path string, entries ...ZipEntry) string {
	t.Helper()
	MustMkdirAll(t, filepath.Dir(path))

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create %s: %v", path, err)
	}
	zw := zip.NewWriter(f)
	for _, e := range entries {
		w, err := zw.Create(e.Name)
		if err != nil {
			t.Fatalf("failed to add %s to %s: %v", e.Name, path, err)
		}
		if strings.HasSuffix(e.Name, "/") {
			continue
		}
		if _, err := io.WriteString(w, e.Content); err != nil {
			t.Fatalf("failed to write %s to %s: %v", e.Name, path, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("failed to finish %s: %v", path, err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("failed to close %s: %v", path, err)
	}
	return path
}

// ZipEntryNames returns the entry names of the archive at path, in order.
func ZipEntryNames(t testing.TB, path string) []string {
	t.Helper()
	zr, err := zip.OpenReader(path)
	if err != nil {
		t.Fatalf("failed to open %s: %v", path, err)
	}
	defer zr.Close()

	names := make([]string, 0, len(zr.File))
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	return names
}

// ZipFileNames is ZipEntryNames without directory entries and without the
// archive manifest, i.e. the content a caller added.
func ZipFileNames(t testing.TB, path string) []string {
	t.Helper()
	var names []string
	for _, n := range ZipEntryNames(t, path) {
		if strings.HasSuffix(n, "/") || n == "META-INF/MANIFEST.MF" {
			continue
		}
		names = append(names, n)
	}
	return names
}

// ZipEntryContent returns the content of entry name, failing if it is absent.
func ZipEntryContent(t testing.TB, path, name string) string {
	t.Helper()
	zr, err := zip.OpenReader(path)
	if err != nil {
		t.Fatalf("failed to open %s: %v", path, err)
	}
	defer zr.Close()

	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("failed to open %s in %s: %v", name, path, err)
		}
		defer rc.Close()
		data, err := io.ReadAll(rc)
		if err != nil {
			t.Fatalf("failed to read %s in %s: %v", name, path, err)
		}
		return string(data)
	}
	t.Fatalf("entry %s not found in %s", name, path)
	return ""
}
