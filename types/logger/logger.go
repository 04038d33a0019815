// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

// Package logger defines a type for writing log messages.
package logger

import (
	"log"
)

// Logf is the basic printf-like logging function type used throughout
// the datapath: components accept a Logf at construction instead of
// reaching for a package-level logger, so tests can capture or
// silence output.
type Logf func(format string, args ...any)

// Std returns a Logf that writes to the standard library's log
// package, prefixed with prefix.
func Std(prefix string) Logf {
	return func(format string, args ...any) {
		log.Printf(prefix+format, args...)
	}
}

// Discard is a Logf that throws away everything written to it.
func Discard(string, ...any) {}

// WithPrefix returns a Logf that prepends prefix to every message
// logged through logf.
func WithPrefix(logf Logf, prefix string) Logf {
	return func(format string, args ...any) {
		logf(prefix+format, args...)
	}
}
