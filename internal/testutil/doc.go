// SPDX-License-Identifier: MPL-2.0

// Package testutil provides helper functions for tests that fail fast on
// setup errors, reducing boilerplate and keeping fixtures consistent.
//
// Helpers cover environment variables (MustSetenv), filesystem fixtures
// (MustMkdirAll, MustWriteFile) and archive fixtures (MustWriteZip,
// ZipEntryNames, ZipEntryContent).
package testutil
