// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package framegraph

import (
	"log/slog"

	"github.com/gogpu/framegraph/internal/logx"
)

// SetLogger configures the logger for framegraph and all its sub-packages.
// By default, framegraph produces no log output. Call SetLogger to enable
// logging.
//
// SetLogger is safe for concurrent use: it stores the new logger atomically.
// Pass nil to disable logging (restore default silent behavior).
//
// Log levels used by framegraph:
//   - [slog.LevelDebug]: internal diagnostics (plan shape, barrier counts,
//     pool allocations)
//   - [slog.LevelInfo]: important lifecycle events
//   - [slog.LevelWarn]: non-fatal issues (allocation retries, release errors)
//
// Example:
//
//	// Enable info-level logging to stderr:
//	framegraph.SetLogger(slog.Default())
//
//	// Enable debug-level logging for full diagnostics:
//	framegraph.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	logx.SetLogger(l)
}

// Logger returns the current logger used by framegraph. Sub-packages share
// the same logger configuration.
//
// Logger is safe for concurrent use.
func Logger() *slog.Logger {
	return logx.Logger()
}

// logger is shorthand for the shared logger inside this package.
func logger() *slog.Logger { return logx.Logger() }
