// go-sensorlink
// Copyright (c) 2025 The Zaparoo Project Contributors.
// SPDX-License-Identifier: LGPL-3.0-or-later
//
// This file is part of go-sensorlink.
//
// go-sensorlink is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 3 of the License, or (at your option) any later version.
//
// go-sensorlink is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with go-sensorlink; if not, write to the Free Software Foundation,
// Inc., 51 Franklin Street, Fifth Floor, Boston, MA  02110-1301, USA.

package sensorlink

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"
)

var (
	debugEnabled atomic.Bool
	logger       atomic.Pointer[slog.Logger]
)

func init() {
	logger.Store(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
}

// SetDebugEnabled turns debug logging on or off for the whole module
func SetDebugEnabled(enabled bool) {
	debugEnabled.Store(enabled)
}

// DebugEnabled reports whether debug logging is on
func DebugEnabled() bool {
	return debugEnabled.Load()
}

// SetLogger replaces the logger used by every package of the module
func SetLogger(l *slog.Logger) {
	if l != nil {
		logger.Store(l)
	}
}

// Logger returns the module logger
func Logger() *slog.Logger {
	return logger.Load()
}

// Debug logs msg with attrs when debug logging is enabled
func Debug(msg string, args ...any) {
	if !debugEnabled.Load() {
		return
	}
	Logger().Log(context.Background(), slog.LevelDebug, msg, args...)
}

func debugf(format string, args ...any) {
	if !debugEnabled.Load() {
		return
	}
	Logger().Log(context.Background(), slog.LevelDebug, fmt.Sprintf(format, args...))
}
