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

// Package spi implements a sensor link over an SPI bus using periph.io.
//
// SPI has no idle line: the host clocks the sensor out by sending filler
// bytes, and the sensor answers with 0xFF while it has nothing to say. Read
// drops those filler bytes between frames and keeps them inside a frame,
// whose length is known from its size byte.
package spi

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	sensorlink "github.com/ZaparooProject/go-sensorlink"
	"github.com/ZaparooProject/go-sensorlink/internal/transport"
	"github.com/ZaparooProject/go-sensorlink/protocol"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
)

// Idle is what the sensor shifts out when it has no data.
const Idle byte = 0xFF

// Config holds the bus settings.
type Config struct {
	Speed        physic.Frequency
	ReadTimeout  time.Duration
	PollInterval time.Duration
}

// DefaultConfig returns 1 MHz mode 0 with a 50 ms read timeout.
func DefaultConfig() Config {
	return Config{
		Speed:        physic.MegaHertz,
		ReadTimeout:  50 * time.Millisecond,
		PollInterval: time.Millisecond,
	}
}

// txConn is the part of spi.Conn the link needs.
type txConn interface {
	Tx(w, r []byte) error
}

// Transport is a Link on an SPI device.
type Transport struct {
	conn    txConn
	closer  io.Closer
	busName string
	cfg     Config
	// remaining counts the bytes still due in the frame being received.
	remaining int
	mu        sync.Mutex
	closed    bool
}

// New opens busName (e.g. "/dev/spidev0.0" or "SPI0.0") with the defaults.
func New(busName string) (*Transport, error) {
	return Open(busName, DefaultConfig())
}

// Open initialises the periph host drivers and connects to busName.
func Open(busName string, cfg Config) (*Transport, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize periph host: %w", err)
	}
	port, err := spireg.Open(busName)
	if err != nil {
		return nil, fmt.Errorf("failed to open SPI bus %s: %w", busName, err)
	}
	if cfg.Speed <= 0 {
		cfg.Speed = DefaultConfig().Speed
	}
	conn, err := port.Connect(cfg.Speed, spi.Mode0, 8)
	if err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("failed to connect to SPI bus %s: %w", busName, err)
	}
	sensorlink.Debug("spi: opened", "bus", busName, "speed", cfg.Speed.String())
	return newTransport(conn, port, busName, cfg), nil
}

func newTransport(conn txConn, closer io.Closer, busName string, cfg Config) *Transport {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultConfig().PollInterval
	}
	return &Transport{conn: conn, closer: closer, busName: busName, cfg: cfg}
}

// Write shifts p out to the sensor.
func (t *Transport) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return 0, sensorlink.NewClosedError("write", t.busName)
	}
	if err := t.conn.Tx(p, nil); err != nil {
		return 0, sensorlink.NewLinkError("write", t.busName, err, sensorlink.ErrorTypeTransient)
	}
	return len(p), nil
}

// Read clocks the sensor until it shifts out frame bytes or the read
// timeout expires, in which case it returns 0 and no error.
func (t *Transport) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	t.mu.Lock()
	timeout, interval := t.cfg.ReadTimeout, t.cfg.PollInterval
	t.mu.Unlock()

	return transport.TimeoutRetry(context.Background(), timeout, interval, func() (int, bool, error) {
		n, err := t.clock(p)
		if err != nil {
			return 0, false, err
		}
		return n, n == 0, nil
	})
}

func (t *Transport) clock(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return 0, sensorlink.NewClosedError("read", t.busName)
	}

	w := make([]byte, len(p))
	for i := range w {
		w[i] = Idle
	}
	r := make([]byte, len(p))
	if err := t.conn.Tx(w, r); err != nil {
		return 0, sensorlink.NewLinkError("read", t.busName, err, sensorlink.ErrorTypeTransient)
	}

	n := 0
	for _, b := range r {
		if t.remaining == 0 {
			if b == Idle {
				continue
			}
			t.remaining = max(int(b), protocol.MinFrameSize) + protocol.CRCSize
		}
		p[n] = b
		n++
		t.remaining--
	}
	return n, nil
}

// SetReadTimeout bounds every Read.
func (t *Transport) SetReadTimeout(timeout time.Duration) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return sensorlink.NewClosedError("set read timeout", t.busName)
	}
	t.cfg.ReadTimeout = timeout
	return nil
}

// ResetInput forgets any partially received frame.
func (t *Transport) ResetInput() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return sensorlink.NewClosedError("reset input", t.busName)
	}
	t.remaining = 0
	return nil
}

// Close releases the bus.
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	if t.closer == nil {
		return nil
	}
	if err := t.closer.Close(); err != nil {
		return fmt.Errorf("close SPI bus %s: %w", t.busName, err)
	}
	return nil
}

// IsConnected reports whether the bus is open.
func (t *Transport) IsConnected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return !t.closed && t.conn != nil
}

// Type returns LinkSPI.
func (*Transport) Type() sensorlink.LinkType {
	return sensorlink.LinkSPI
}
