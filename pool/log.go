// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package pool

import (
	"log/slog"

	"github.com/gogpu/framegraph/internal/logx"
)

// logger returns the shared framegraph logger.
func logger() *slog.Logger { return logx.Logger() }
