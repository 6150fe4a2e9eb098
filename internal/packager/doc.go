// SPDX-License-Identifier: MPL-2.0

// Package packager assembles module archives from content items.
//
// An Archive accumulates items (plain files, directory trees, expanded
// nested archives and generated resource trees) and writes them in one Build
// call. Items whose source is missing on disk are skipped with a debug
// record, never an error. Entries are written in registration order with
// parent directories emitted ahead of their children; when two items produce
// the same entry name the later content wins and the entry keeps the position
// of its first occurrence. A non-zero timestamp makes the output byte-for-byte
// reproducible.
package packager
