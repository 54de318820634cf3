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

// Package frame infers frame boundaries on a byte stream that has no
// end-of-frame marker: a frame ends when the line stays silent for longer
// than the inter-byte gap.
package frame

import "time"

// Frame boundary defaults
const (
	DefaultGap     = 50 * time.Millisecond
	DefaultMaxSize = 64
)

// Assembler accumulates received bytes and hands them out as one frame
// once the gap since the last byte has elapsed. It is driven with explicit
// timestamps and is not safe for concurrent use.
type Assembler struct {
	last     time.Time
	buf      []byte
	gap      time.Duration
	maxSize  int
	overruns int
}

// NewAssembler creates an assembler. Zero arguments select the defaults.
func NewAssembler(gap time.Duration, maxSize int) *Assembler {
	if gap <= 0 {
		gap = DefaultGap
	}
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	return &Assembler{gap: gap, maxSize: maxSize, buf: make([]byte, 0, maxSize)}
}

// Feed appends bytes received at now. Bytes that would overflow the frame
// buffer are dropped and counted as an overrun.
func (a *Assembler) Feed(p []byte, now time.Time) {
	if len(p) == 0 {
		return
	}
	a.last = now
	room := a.maxSize - len(a.buf)
	if len(p) > room {
		a.overruns++
		p = p[:room]
	}
	a.buf = append(a.buf, p...)
}

// Ready reports whether a frame is buffered and the line has been quiet
// for at least the gap.
func (a *Assembler) Ready(now time.Time) bool {
	return len(a.buf) > 0 && now.Sub(a.last) >= a.gap
}

// Deadline returns when the buffered bytes become a frame.
func (a *Assembler) Deadline() (time.Time, bool) {
	if len(a.buf) == 0 {
		return time.Time{}, false
	}
	return a.last.Add(a.gap), true
}

// Take returns the buffered bytes and empties the buffer.
func (a *Assembler) Take() []byte {
	if len(a.buf) == 0 {
		return nil
	}
	out := append([]byte(nil), a.buf...)
	a.buf = a.buf[:0]
	return out
}

// Pending returns how many bytes are buffered.
func (a *Assembler) Pending() int {
	return len(a.buf)
}

// Overruns returns how many times input was dropped for lack of room.
func (a *Assembler) Overruns() int {
	return a.overruns
}

// Reset drops buffered bytes.
func (a *Assembler) Reset() {
	a.buf = a.buf[:0]
}
