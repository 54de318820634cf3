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

package polling

import "errors"

// Session errors. Each one resets the session to StateInit.
var (
	ErrRetryExhausted    = errors.New("retries exhausted")
	ErrInvalidPointCount = errors.New("invalid point count")
	ErrVersionMismatch   = errors.New("interface version mismatch")
	ErrProtocolTimeout   = errors.New("protocol timeout")
	ErrUnexpectedAnswer  = errors.New("unexpected answer")
)

// Write errors.
var (
	ErrNotDiscovered  = errors.New("points not discovered yet")
	ErrNotWritable    = errors.New("point is not writable")
	ErrWriteQueueFull = errors.New("write queue full")
)

// ErrWriteDropped is reported for queued writes discarded by a reset.
var ErrWriteDropped = errors.New("write dropped by protocol reset")

// ErrAlreadyRunning is returned when a Runner is started twice.
var ErrAlreadyRunning = errors.New("runner is already running")
