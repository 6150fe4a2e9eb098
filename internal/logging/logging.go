// SPDX-License-Identifier: MPL-2.0

// Package logging constructs the loggers used across a packaging run.
package logging

import (
	"io"

	"github.com/charmbracelet/log"
)

// Prefix is prepended to every record.
const Prefix = "earpack"

// New constructs a logger writing to w. Verbose enables debug records, which
// is where skip diagnostics for optional inputs are reported.
func New(w io.Writer, verbose bool) *log.Logger {
	if w == nil {
		panic("logging: writer must not be nil")
	}

	level := log.InfoLevel
	if verbose {
		level = log.DebugLevel
	}

	return log.NewWithOptions(w, log.Options{
		Prefix: Prefix,
		Level:  level,
	})
}

// Discard returns a logger that drops every record.
func Discard() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{Level: log.FatalLevel})
}

// Ensure returns logger, or a discarding logger if it is nil.
func Ensure(logger *log.Logger) *log.Logger {
	if logger != nil {
		return logger
	}
	return Discard()
}
