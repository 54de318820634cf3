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

package frame

import (
	"context"
	"errors"
	"fmt"
	"time"

	sensorlink "github.com/ZaparooProject/go-sensorlink"
)

// DefaultPollTimeout bounds a single Poll when reading cooperatively.
const DefaultPollTimeout = 5 * time.Millisecond

// Reader turns a Link byte stream into whole frames. Use either Run in its
// own goroutine or Poll from a single-threaded loop, not both.
type Reader struct {
	link   sensorlink.Link
	asm    *Assembler
	frames chan []byte
	chunk  []byte
	now    func() time.Time
}

// NewReader creates a reader using the given inter-byte gap.
func NewReader(link sensorlink.Link, gap time.Duration) *Reader {
	asm := NewAssembler(gap, DefaultMaxSize)
	return &Reader{
		link:   link,
		asm:    asm,
		frames: make(chan []byte, 4),
		chunk:  make([]byte, DefaultMaxSize),
		now:    time.Now,
	}
}

// Frames delivers frames assembled by Run, in arrival order.
func (r *Reader) Frames() <-chan []byte {
	return r.frames
}

// Run reads until ctx is done or the link fails permanently. Frames are
// sent on Frames; Run is the only sender.
func (r *Reader) Run(ctx context.Context) error {
	if err := r.link.SetReadTimeout(r.asm.gap); err != nil {
		return fmt.Errorf("set read timeout: %w", err)
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		frm, err := r.read()
		if err != nil {
			if sensorlink.IsRetryable(err) {
				sensorlink.Debug("frame reader: transient read error", "err", err)
				continue
			}
			return err
		}
		if frm == nil {
			continue
		}

		select {
		case r.frames <- frm:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Poll performs one bounded read and returns a frame if the gap after the
// last byte has elapsed. Call SetPollTimeout first to bound the read.
func (r *Reader) Poll() ([]byte, error) {
	return r.read()
}

// SetPollTimeout sets the link read timeout used by Poll.
func (r *Reader) SetPollTimeout(timeout time.Duration) error {
	if err := r.link.SetReadTimeout(timeout); err != nil {
		return fmt.Errorf("set read timeout: %w", err)
	}
	return nil
}

// Pending returns the bytes buffered toward the next frame. Only valid in
// Poll mode.
func (r *Reader) Pending() int {
	return r.asm.Pending()
}

// TakePending drops the partial frame and returns it. Only valid in Poll
// mode.
func (r *Reader) TakePending() []byte {
	return r.asm.Take()
}

func (r *Reader) read() ([]byte, error) {
	n, err := r.link.Read(r.chunk)
	now := r.now()
	if n > 0 {
		r.asm.Feed(r.chunk[:n], now)
	}
	if err != nil {
		if errors.Is(err, sensorlink.ErrLinkClosed) {
			return nil, err
		}
		return nil, fmt.Errorf("frame reader: %w", err)
	}
	if r.asm.Ready(now) {
		return r.asm.Take(), nil
	}
	return nil, nil
}
