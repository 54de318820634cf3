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

package sensor

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	sensorlink "github.com/ZaparooProject/go-sensorlink"
	"github.com/ZaparooProject/go-sensorlink/internal/coop"
	"github.com/ZaparooProject/go-sensorlink/internal/frame"
	"github.com/ZaparooProject/go-sensorlink/protocol"
	"github.com/ZaparooProject/go-sensorlink/regmap"
	"github.com/ZaparooProject/go-sensorlink/schedule"
)

// DefaultTickPeriod is the acquisition tick. Descriptor sampling intervals
// are counted in these ticks.
const DefaultTickPeriod = 250 * time.Millisecond

// Sampler acquires a fresh value for a point that is due.
type Sampler interface {
	Sample(index int, desc protocol.Descriptor, current protocol.Value) (protocol.Value, error)
}

// SamplerFunc adapts a function to Sampler.
type SamplerFunc func(index int, desc protocol.Descriptor, current protocol.Value) (protocol.Value, error)

// Sample calls f.
func (f SamplerFunc) Sample(index int, desc protocol.Descriptor, current protocol.Value) (protocol.Value, error) {
	return f(index, desc, current)
}

// Stats counts node activity.
type Stats struct {
	FramesIn      uint64
	FramesDropped uint64
	Responses     uint64
	WriteErrors   uint64
	Samples       uint64
	SampleErrors  uint64
}

// Option configures a Node.
type Option func(*Node) error

// WithCodec selects the frame codec.
func WithCodec(codec *protocol.Codec) Option {
	return func(n *Node) error {
		if codec == nil {
			return fmt.Errorf("%w: nil codec", sensorlink.ErrInvalidParameter)
		}
		n.codec = codec
		return nil
	}
}

// WithGap sets the inter-byte gap that ends a frame.
func WithGap(gap time.Duration) Option {
	return func(n *Node) error {
		if gap <= 0 {
			return fmt.Errorf("%w: gap must be positive", sensorlink.ErrInvalidParameter)
		}
		n.gap = gap
		return nil
	}
}

// WithTickPeriod sets the acquisition tick.
func WithTickPeriod(period time.Duration) Option {
	return func(n *Node) error {
		if period <= 0 {
			return fmt.Errorf("%w: tick period must be positive", sensorlink.ErrInvalidParameter)
		}
		n.tick = period
		return nil
	}
}

// WithSampler sets the value source for due points. Without one the
// current values are kept.
func WithSampler(s Sampler) Option {
	return func(n *Node) error {
		n.sampler = s
		return nil
	}
}

// WithDisplay routes display writes to display.
func WithDisplay(display Display) Option {
	return func(n *Node) error {
		n.dispatcher.SetDisplay(display)
		return nil
	}
}

// WithCommandHandler sets the board command handler.
func WithCommandHandler(h CommandHandler) Option {
	return func(n *Node) error {
		n.dispatcher.SetCommandHandler(h)
		return nil
	}
}

// WithServers sets the server addresses answered by the node.
func WithServers(main, secondary string) Option {
	return func(n *Node) error {
		n.dispatcher.SetServers(protocol.MakeServerAddr(main), protocol.MakeServerAddr(secondary))
		return nil
	}
}

// Node serves one point database over a link and keeps its values fresh.
// Run and RunCooperative must not be called concurrently.
type Node struct {
	link       sensorlink.Link
	sampler    Sampler
	codec      *protocol.Codec
	dispatcher *Dispatcher
	table      *regmap.Table
	sched      *schedule.Schedule
	gap        time.Duration
	tick       time.Duration

	framesIn      atomic.Uint64
	framesDropped atomic.Uint64
	responses     atomic.Uint64
	writeErrors   atomic.Uint64
	samples       atomic.Uint64
	sampleErrors  atomic.Uint64
}

// NewNode creates a node serving db over link.
func NewNode(link sensorlink.Link, db *regmap.Database, opts ...Option) (*Node, error) {
	if link == nil || db == nil || db.Table == nil {
		return nil, fmt.Errorf("%w: link and database are required", sensorlink.ErrInvalidParameter)
	}
	n := &Node{
		link:       link,
		codec:      protocol.DefaultCodec(),
		dispatcher: NewDispatcher(db),
		table:      db.Table,
		sched:      schedule.Build(db.Table.Descriptors()),
		gap:        frame.DefaultGap,
		tick:       DefaultTickPeriod,
	}
	for _, opt := range opts {
		if err := opt(n); err != nil {
			return nil, err
		}
	}
	return n, nil
}

// Dispatcher returns the node's dispatcher.
func (n *Node) Dispatcher() *Dispatcher { return n.dispatcher }

// Schedule returns the acquisition schedule.
func (n *Node) Schedule() *schedule.Schedule { return n.sched }

// HandleFrame decodes a request frame and returns the encoded response.
// Frames that fail to decode are dropped without an answer.
func (n *Node) HandleFrame(frm []byte) ([]byte, error) {
	n.framesIn.Add(1)
	req, err := n.codec.UnpackRequest(frm, n.table)
	if err != nil {
		n.framesDropped.Add(1)
		return nil, fmt.Errorf("drop request: %w", err)
	}
	resp := n.dispatcher.Handle(req)
	out, err := n.codec.PackResponse(resp)
	if err != nil {
		return nil, fmt.Errorf("pack response for %s: %w", req.Addr, err)
	}
	return out, nil
}

func (n *Node) serve(frm []byte) error {
	out, err := n.HandleFrame(frm)
	if err != nil {
		sensorlink.Debug("node: request dropped", "err", err, "frame", protocol.Dump(frm))
		return nil
	}
	if err := sensorlink.WriteFrame(n.link, out); err != nil {
		n.writeErrors.Add(1)
		if sensorlink.IsRetryable(err) {
			sensorlink.Debug("node: response lost", "err", err)
			return nil
		}
		return err
	}
	n.responses.Add(1)
	return nil
}

// Acquire advances the schedule by one tick and samples every point that
// fell due.
func (n *Node) Acquire() {
	for _, idx := range n.sched.Tick() {
		if n.sampler == nil {
			continue
		}
		p, ok := n.table.Point(idx)
		if !ok {
			continue
		}
		v, err := n.sampler.Sample(idx, p.Desc, p.Value)
		if err == nil {
			err = n.table.SetValue(idx, v)
		}
		if err != nil {
			n.sampleErrors.Add(1)
			sensorlink.Debug("node: sample failed", "point", p.Desc.Name.String(), "err", err)
			continue
		}
		n.samples.Add(1)
	}
}

// Run serves requests and acquires values until ctx is done. A reader
// goroutine assembles frames; everything touching the table runs on the
// calling goroutine.
func (n *Node) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	reader := frame.NewReader(n.link, n.gap)
	readErr := make(chan error, 1)
	go func() {
		readErr <- reader.Run(ctx)
	}()

	ticker := time.NewTicker(n.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			<-readErr
			return ctx.Err()
		case err := <-readErr:
			if errors.Is(err, context.Canceled) && ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("node reader: %w", err)
		case frm := <-reader.Frames():
			if err := n.serve(frm); err != nil {
				cancel()
				<-readErr
				return err
			}
		case <-ticker.C:
			n.Acquire()
		}
	}
}

// RunCooperative does the same work as Run on the calling goroutine only,
// polling the link with short reads.
func (n *Node) RunCooperative(ctx context.Context) error {
	reader := frame.NewReader(n.link, n.gap)
	if err := reader.SetPollTimeout(frame.DefaultPollTimeout); err != nil {
		return err
	}

	var (
		pending  []byte
		serveErr error
		nextTick = time.Now().Add(n.tick)
	)
	loop := coop.NewLoop(0,
		coop.Task{
			Name:  "serve",
			Ready: func() bool { return pending != nil },
			Step: func() {
				frm := pending
				pending = nil
				serveErr = n.serve(frm)
			},
		},
		coop.Task{
			Name:  "acquire",
			Ready: func() bool { return !time.Now().Before(nextTick) },
			Step: func() {
				nextTick = nextTick.Add(n.tick)
				n.Acquire()
			},
		},
	)
	loop.Poll = func() error {
		if serveErr != nil {
			return serveErr
		}
		if pending != nil {
			return nil
		}
		frm, err := reader.Poll()
		if err != nil {
			if sensorlink.IsRetryable(err) {
				return nil
			}
			return err
		}
		pending = frm
		return nil
	}
	return loop.Run(ctx)
}

// GetStats returns a snapshot of the node counters.
func (n *Node) GetStats() Stats {
	return Stats{
		FramesIn:      n.framesIn.Load(),
		FramesDropped: n.framesDropped.Load(),
		Responses:     n.responses.Load(),
		WriteErrors:   n.writeErrors.Load(),
		Samples:       n.samples.Load(),
		SampleErrors:  n.sampleErrors.Load(),
	}
}
