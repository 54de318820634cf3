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

// Package loopback provides pairs of in-memory links. Bytes written to one
// end are read from the other, which lets a mote and a simulated sensor
// run in the same process.
package loopback

import (
	"sync"
	"time"

	sensorlink "github.com/ZaparooProject/go-sensorlink"
)

// DefaultReadTimeout is the initial read timeout of both ends.
const DefaultReadTimeout = 50 * time.Millisecond

// pipe is one direction of a pair.
type pipe struct {
	notify chan struct{}
	buf    []byte
	mu     sync.Mutex
	closed bool
}

func newPipe() *pipe {
	return &pipe{notify: make(chan struct{}, 1)}
}

func (p *pipe) signal() {
	select {
	case p.notify <- struct{}{}:
	default:
	}
}

// Link is one end of a loopback pair.
type Link struct {
	rx      *pipe
	tx      *pipe
	name    string
	mu      sync.Mutex
	timeout time.Duration
}

// Pair returns two connected ends. name shows up in link errors.
func Pair(name string) (*Link, *Link) {
	ab, ba := newPipe(), newPipe()
	a := &Link{rx: ba, tx: ab, name: name + ":a", timeout: DefaultReadTimeout}
	b := &Link{rx: ab, tx: ba, name: name + ":b", timeout: DefaultReadTimeout}
	return a, b
}

// Write queues p for the other end.
func (l *Link) Write(p []byte) (int, error) {
	l.tx.mu.Lock()
	if l.tx.closed {
		l.tx.mu.Unlock()
		return 0, sensorlink.NewClosedError("write", l.name)
	}
	l.tx.buf = append(l.tx.buf, p...)
	l.tx.mu.Unlock()
	l.tx.signal()
	return len(p), nil
}

// Read returns queued bytes, waiting up to the read timeout for some to
// arrive. Bytes still queued when the pair is closed can be read.
func (l *Link) Read(p []byte) (int, error) {
	l.mu.Lock()
	timeout := l.timeout
	l.mu.Unlock()

	var deadline <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		deadline = timer.C
	}

	for {
		l.rx.mu.Lock()
		if len(l.rx.buf) > 0 {
			n := copy(p, l.rx.buf)
			l.rx.buf = l.rx.buf[n:]
			l.rx.mu.Unlock()
			return n, nil
		}
		closed := l.rx.closed
		l.rx.mu.Unlock()

		if closed {
			return 0, sensorlink.NewClosedError("read", l.name)
		}
		if deadline == nil {
			return 0, nil
		}
		select {
		case <-l.rx.notify:
		case <-deadline:
			return 0, nil
		}
	}
}

// SetReadTimeout bounds every Read. Zero makes Read return immediately.
func (l *Link) SetReadTimeout(timeout time.Duration) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.timeout = timeout
	return nil
}

// ResetInput discards bytes the other end wrote and this end did not read.
func (l *Link) ResetInput() error {
	l.rx.mu.Lock()
	defer l.rx.mu.Unlock()
	l.rx.buf = nil
	return nil
}

// Close closes both directions; the other end sees ErrLinkClosed once it
// has drained what was written before.
func (l *Link) Close() error {
	for _, p := range []*pipe{l.rx, l.tx} {
		p.mu.Lock()
		p.closed = true
		p.mu.Unlock()
		p.signal()
	}
	return nil
}

// IsConnected reports whether the pair is still open.
func (l *Link) IsConnected() bool {
	l.tx.mu.Lock()
	defer l.tx.mu.Unlock()
	return !l.tx.closed
}

// Type returns LinkLoopback.
func (*Link) Type() sensorlink.LinkType {
	return sensorlink.LinkLoopback
}
