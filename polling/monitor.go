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

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	sensorlink "github.com/ZaparooProject/go-sensorlink"
	"github.com/ZaparooProject/go-sensorlink/internal/coop"
	"github.com/ZaparooProject/go-sensorlink/internal/frame"
)

// Runner drives a Session from a link: it reassembles frames, delivers
// them and steps the state machine every tick.
type Runner struct {
	session *Session
	link    sensorlink.Link
	running atomic.Bool
}

// NewRunner creates a runner and its session
func NewRunner(link sensorlink.Link, opts ...Option) (*Runner, error) {
	session, err := NewSession(link, opts...)
	if err != nil {
		return nil, err
	}
	return &Runner{session: session, link: link}, nil
}

// Session returns the driven session
func (r *Runner) Session() *Session {
	return r.session
}

// IsRunning returns whether Run or RunCooperative is active
func (r *Runner) IsRunning() bool {
	return r.running.Load()
}

// Stats returns the session counters
func (r *Runner) Stats() Stats {
	return r.session.Stats()
}

// Close closes the underlying link
func (r *Runner) Close() error {
	if err := r.link.Close(); err != nil {
		return fmt.Errorf("failed to close link: %w", err)
	}
	return nil
}

// Run polls until ctx is done or the link fails. A reader goroutine
// assembles frames and hands them over a channel; the session is only
// touched by the calling goroutine.
func (r *Runner) Run(ctx context.Context) error {
	if !r.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer r.running.Store(false)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	cfg := r.session.config
	reader := frame.NewReader(r.link, cfg.FrameGap)
	readErr := make(chan error, 1)
	go func() {
		readErr <- reader.Run(ctx)
	}()

	ticker := time.NewTicker(cfg.TickPeriod)
	defer ticker.Stop()

	sensorlink.Debug("runner started", "session", r.session.id, "mode", "preemptive")
	for {
		select {
		case <-ctx.Done():
			<-readErr
			return ctx.Err()
		case err := <-readErr:
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("mote reader: %w", err)
		case frm := <-reader.Frames():
			r.session.Deliver(frm)
		case <-ticker.C:
			r.session.Step()
		}
	}
}

// RunCooperative does the same work as Run without extra goroutines. The
// link is polled with short reads between ticks, and bytes still short of
// a frame are visible to the session when a wait times out.
func (r *Runner) RunCooperative(ctx context.Context) error {
	if !r.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer r.running.Store(false)

	cfg := r.session.config
	reader := frame.NewReader(r.link, cfg.FrameGap)
	if err := reader.SetPollTimeout(frame.DefaultPollTimeout); err != nil {
		return err
	}
	r.session.pending = reader.TakePending
	defer func() { r.session.pending = nil }()

	next := time.Now().Add(cfg.TickPeriod)
	loop := coop.NewLoop(0, coop.Task{
		Name:  "polling",
		Ready: func() bool { return !time.Now().Before(next) },
		Step: func() {
			next = next.Add(cfg.TickPeriod)
			r.session.Step()
		},
	})
	loop.Poll = func() error {
		frm, err := reader.Poll()
		if err != nil {
			if sensorlink.IsRetryable(err) {
				return nil
			}
			return err
		}
		if frm != nil {
			r.session.Deliver(frm)
		}
		return nil
	}

	sensorlink.Debug("runner started", "session", r.session.id, "mode", "cooperative")
	err := loop.Run(ctx)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("mote loop: %w", err)
}
