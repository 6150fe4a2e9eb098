// SPDX-License-Identifier: MPL-2.0

// Package issue provides the error vocabulary shared by the packaging pipeline.
//
// It defines the failure kinds a build can end with (resolution, I/O,
// transform, unsupported filter, assembly) and an actionable error type that
// carries remediation hints for CLI output.
package issue
