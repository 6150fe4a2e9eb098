// SPDX-License-Identifier: MPL-2.0

// Package config loads the packaging configuration of a module.
//
// A module directory carries an earpack.cue file describing the module's
// coordinates and build layout, the packager settings, build properties,
// declared dependencies and the repositories to resolve them from. The file
// is validated against an embedded CUE schema (earpack_schema.cue), merged
// over defaults with Viper and then overridden by EARPACK_* environment
// variables and explicit command-line overrides.
package config
