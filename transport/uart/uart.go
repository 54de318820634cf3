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

// Package uart implements a sensor link over a serial port.
package uart

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	sensorlink "github.com/ZaparooProject/go-sensorlink"
	"github.com/ZaparooProject/go-sensorlink/internal/transport"
	"go.bug.st/serial"
)

// DefaultBaudRate is the rate used by the sensor firmware.
const DefaultBaudRate = 115200

// Config holds the serial settings.
type Config struct {
	BaudRate    int
	ReadTimeout time.Duration
	// OpenRetries is how many more times opening is tried when the port is
	// busy or not there yet, e.g. while a USB adapter enumerates.
	OpenRetries int
	OpenBackoff time.Duration
}

// DefaultConfig returns 115200 8N1 with a short read timeout.
func DefaultConfig() Config {
	return Config{
		BaudRate:    DefaultBaudRate,
		ReadTimeout: 50 * time.Millisecond,
		OpenRetries: 3,
		OpenBackoff: 500 * time.Millisecond,
	}
}

type openFunc func(name string, mode *serial.Mode) (serial.Port, error)

// Transport is a Link on a serial port.
type Transport struct {
	port     serial.Port
	portName string
	mu       sync.Mutex
	closed   bool
}

// New opens portName with the default configuration.
func New(portName string) (*Transport, error) {
	return Open(context.Background(), portName, DefaultConfig())
}

// Open opens portName, retrying while the port is busy or missing.
func Open(ctx context.Context, portName string, cfg Config) (*Transport, error) {
	return open(ctx, portName, cfg, serial.Open)
}

func open(ctx context.Context, portName string, cfg Config, openPort openFunc) (*Transport, error) {
	if portName == "" {
		return nil, fmt.Errorf("%w: empty port name", sensorlink.ErrInvalidParameter)
	}
	if cfg.BaudRate <= 0 {
		cfg.BaudRate = DefaultBaudRate
	}
	mode := &serial.Mode{
		BaudRate: cfg.BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	retry := transport.RetryConfig{
		Op:         "open",
		Port:       portName,
		MaxRetries: cfg.OpenRetries,
		RetryDelay: cfg.OpenBackoff,
		OnRetry: func(attempt int, cause error) {
			sensorlink.Debug("uart: open retry", "port", portName, "attempt", attempt, "err", cause)
		},
	}
	port, err := transport.WithRetry(ctx, retry, func() (serial.Port, bool, error) {
		p, err := openPort(portName, mode)
		if err == nil {
			return p, false, nil
		}
		return nil, retryableOpenError(err), err
	})
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", portName, err)
	}

	if cfg.ReadTimeout > 0 {
		if err := port.SetReadTimeout(cfg.ReadTimeout); err != nil {
			_ = port.Close()
			return nil, fmt.Errorf("set read timeout on %s: %w", portName, err)
		}
	}
	sensorlink.Debug("uart: opened", "port", portName, "baud", cfg.BaudRate)
	return &Transport{port: port, portName: portName}, nil
}

func retryableOpenError(err error) bool {
	var portErr *serial.PortError
	if !errors.As(err, &portErr) {
		return false
	}
	switch portErr.Code() {
	case serial.PortBusy, serial.PortNotFound:
		return true
	default:
		return false
	}
}

// Read returns the bytes received so far, or 0 when the read timeout
// expires with nothing received.
func (t *Transport) Read(p []byte) (int, error) {
	port, err := t.live("read")
	if err != nil {
		return 0, err
	}
	n, err := port.Read(p)
	if err != nil {
		return n, t.wrap("read", err)
	}
	return n, nil
}

// Write sends p.
func (t *Transport) Write(p []byte) (int, error) {
	port, err := t.live("write")
	if err != nil {
		return 0, err
	}
	n, err := port.Write(p)
	if err != nil {
		return n, t.wrap("write", err)
	}
	return n, nil
}

// SetReadTimeout bounds every Read.
func (t *Transport) SetReadTimeout(timeout time.Duration) error {
	port, err := t.live("set read timeout")
	if err != nil {
		return err
	}
	if err := port.SetReadTimeout(timeout); err != nil {
		return t.wrap("set read timeout", err)
	}
	return nil
}

// ResetInput discards bytes received but not read yet.
func (t *Transport) ResetInput() error {
	port, err := t.live("reset input")
	if err != nil {
		return err
	}
	if err := port.ResetInputBuffer(); err != nil {
		return t.wrap("reset input", err)
	}
	return nil
}

// Close closes the port. Closing twice is not an error.
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed || t.port == nil {
		t.closed = true
		return nil
	}
	t.closed = true
	if err := t.port.Close(); err != nil {
		return fmt.Errorf("close serial port %s: %w", t.portName, err)
	}
	return nil
}

// IsConnected reports whether the port is open.
func (t *Transport) IsConnected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.port != nil && !t.closed
}

// Type returns LinkUART.
func (*Transport) Type() sensorlink.LinkType {
	return sensorlink.LinkUART
}

// PortName returns the device path.
func (t *Transport) PortName() string {
	return t.portName
}

func (t *Transport) live(op string) (serial.Port, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed || t.port == nil {
		return nil, sensorlink.NewClosedError(op, t.portName)
	}
	return t.port, nil
}

func (t *Transport) wrap(op string, err error) error {
	var portErr *serial.PortError
	if errors.As(err, &portErr) && portErr.Code() == serial.PortClosed {
		return sensorlink.NewLinkError(op, t.portName, fmt.Errorf("%w: %w", sensorlink.ErrLinkClosed, err),
			sensorlink.ErrorTypePermanent)
	}
	return sensorlink.NewLinkError(op, t.portName, err, sensorlink.ErrorTypeTransient)
}
