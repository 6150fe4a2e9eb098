// SPDX-License-Identifier: MPL-2.0

// Package resolve locates dependency artifacts on disk.
//
// Artifacts are looked up in Maven repository layout, first in the local
// repository, then in each configured repository in order. Repositories may
// be local directories (plain paths or file:// URLs) or HTTP(S) servers;
// remote artifacts are downloaded into the local repository. Every resolved
// artifact can be recorded with its checksum for later inspection.
package resolve
