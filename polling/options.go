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
	"fmt"
	"time"

	sensorlink "github.com/ZaparooProject/go-sensorlink"
	"github.com/ZaparooProject/go-sensorlink/protocol"
	"github.com/ZaparooProject/go-sensorlink/regmap"
)

// Config holds the timing of a polling session.
type Config struct {
	// TickPeriod is how often the state machine steps
	TickPeriod time.Duration
	// ResponseTimeout bounds every wait for an answer
	ResponseTimeout time.Duration
	// FrameGap is the inter-byte silence that ends a frame
	FrameGap time.Duration
	// MaxRetries is how many times a descriptor or value request is
	// resent before the session resets
	MaxRetries int
	// MaxQueuedWrites bounds Session.Write
	MaxQueuedWrites int
}

// DefaultConfig returns the timing used by the reference sensor firmware.
func DefaultConfig() *Config {
	return &Config{
		TickPeriod:      250 * time.Millisecond,
		ResponseTimeout: 5 * time.Second,
		FrameGap:        50 * time.Millisecond,
		MaxRetries:      3,
		MaxQueuedWrites: 16,
	}
}

// TimeoutTicks converts ResponseTimeout to ticks, never less than one.
func (c *Config) TimeoutTicks() int {
	if c.TickPeriod <= 0 {
		return 1
	}
	return max(1, int(c.ResponseTimeout/c.TickPeriod))
}

// Validate checks that the timing values make sense.
func (c *Config) Validate() error {
	switch {
	case c.TickPeriod <= 0:
		return fmt.Errorf("%w: tick period must be positive", sensorlink.ErrInvalidParameter)
	case c.ResponseTimeout <= 0:
		return fmt.Errorf("%w: response timeout must be positive", sensorlink.ErrInvalidParameter)
	case c.FrameGap <= 0:
		return fmt.Errorf("%w: frame gap must be positive", sensorlink.ErrInvalidParameter)
	case c.MaxRetries < 1:
		return fmt.Errorf("%w: max retries must be at least 1", sensorlink.ErrInvalidParameter)
	case c.MaxQueuedWrites < 1:
		return fmt.Errorf("%w: write queue must hold at least one write", sensorlink.ErrInvalidParameter)
	}
	return nil
}

// Update reports a freshly read point value.
type Update struct {
	Point regmap.Point
	Index int
}

// WriteResult reports the sensor's answer to a queued write.
type WriteResult struct {
	Err    error
	Value  protocol.Value
	Index  int
	Status protocol.Status
}

// Option is a functional option for configuring a Session
type Option func(*Session) error

// WithConfig replaces the whole timing configuration
func WithConfig(config *Config) Option {
	return func(s *Session) error {
		if config == nil {
			return fmt.Errorf("%w: nil config", sensorlink.ErrInvalidParameter)
		}
		cfg := *config
		s.config = &cfg
		return nil
	}
}

// WithTickPeriod sets the state machine tick
func WithTickPeriod(period time.Duration) Option {
	return func(s *Session) error {
		s.config.TickPeriod = period
		return nil
	}
}

// WithResponseTimeout sets how long to wait for each answer
func WithResponseTimeout(timeout time.Duration) Option {
	return func(s *Session) error {
		s.config.ResponseTimeout = timeout
		return nil
	}
}

// WithMaxRetries sets the descriptor and value retry budget
func WithMaxRetries(retries int) Option {
	return func(s *Session) error {
		s.config.MaxRetries = retries
		return nil
	}
}

// WithFrameGap sets the inter-byte gap used by the runner's reader
func WithFrameGap(gap time.Duration) Option {
	return func(s *Session) error {
		s.config.FrameGap = gap
		return nil
	}
}

// WithCodec selects the frame codec
func WithCodec(codec *protocol.Codec) Option {
	return func(s *Session) error {
		if codec == nil {
			return fmt.Errorf("%w: nil codec", sensorlink.ErrInvalidParameter)
		}
		s.codec = codec
		return nil
	}
}

// WithMetrics reports session activity to m
func WithMetrics(m *Metrics) Option {
	return func(s *Session) error {
		s.metrics = m
		return nil
	}
}

// OnUpdate registers a callback for every point value read
func OnUpdate(fn func(Update)) Option {
	return func(s *Session) error {
		s.onUpdate = fn
		return nil
	}
}

// OnWriteResult registers a callback for answers to queued writes
func OnWriteResult(fn func(WriteResult)) Option {
	return func(s *Session) error {
		s.onWrite = fn
		return nil
	}
}

// OnStateChange registers a callback for every state transition
func OnStateChange(fn func(from, to State)) Option {
	return func(s *Session) error {
		s.onState = fn
		return nil
	}
}
