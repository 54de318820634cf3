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
	"time"
)

// Link is a byte-oriented connection to the peer. It can be implemented by
// UART, SPI or in-memory backends.
type Link interface {
	// Read reads up to len(p) bytes. It returns 0 and a nil error when
	// nothing arrived within the read timeout.
	Read(p []byte) (int, error)

	// Write writes p to the peer and returns the number of bytes written
	Write(p []byte) (int, error)

	// SetReadTimeout bounds how long Read waits for the first byte
	SetReadTimeout(timeout time.Duration) error

	// ResetInput discards bytes received but not yet read
	ResetInput() error

	// Close closes the link
	Close() error

	// IsConnected returns true if the link is open
	IsConnected() bool

	// Type returns the link type
	Type() LinkType
}

// LinkType represents the type of link
type LinkType string

const (
	// LinkUART represents UART/serial links.
	LinkUART LinkType = "uart"
	// LinkSPI represents SPI bus links.
	LinkSPI LinkType = "spi"
	// LinkLoopback represents in-memory links.
	LinkLoopback LinkType = "loopback"
	// LinkMock represents a mock link for testing
	LinkMock LinkType = "mock"
)

// ReadByte reads a single byte. ok is false when nothing arrived within the
// link's read timeout.
func ReadByte(link Link) (b byte, ok bool, err error) {
	var buf [1]byte
	n, err := link.Read(buf[:])
	if err != nil {
		return 0, false, err
	}
	if n == 0 {
		return 0, false, nil
	}
	return buf[0], true, nil
}

// WriteFrame writes a whole frame. A short write is reported as a
// retryable ErrShortWrite.
func WriteFrame(link Link, frame []byte) error {
	n, err := link.Write(frame)
	if err != nil {
		return NewLinkError("write", string(link.Type()), err, GetErrorType(err))
	}
	if n != len(frame) {
		return NewLinkError("write", string(link.Type()),
			fmt.Errorf("%w: %d of %d bytes", ErrShortWrite, n, len(frame)), ErrorTypeTransient)
	}
	return nil
}

// LinkWithRetry wraps a Link and retries failed or short frame writes
type LinkWithRetry struct {
	link   Link
	config *RetryConfig
}

// NewLinkWithRetry creates a new link wrapper with retry logic
func NewLinkWithRetry(link Link, config *RetryConfig) *LinkWithRetry {
	if config == nil {
		config = DefaultRetryConfig()
	}
	return &LinkWithRetry{
		link:   link,
		config: config,
	}
}

// Write writes p, retrying transient failures. A short write is resumed
// from the first unsent byte at once, so the peer still sees one frame;
// only a write that makes no progress waits out the backoff. The count
// returned is the number of bytes that reached the link.
func (l *LinkWithRetry) Write(p []byte) (int, error) {
	written := 0
	err := RetryWithConfig(context.Background(), l.config, func() error {
		for written < len(p) {
			n, err := l.link.Write(p[written:])
			written += n
			if err != nil {
				return NewLinkError("write", string(l.link.Type()), err, GetErrorType(err))
			}
			if n == 0 {
				return NewLinkError("write", string(l.link.Type()),
					fmt.Errorf("%w: %d of %d bytes", ErrShortWrite, written, len(p)), ErrorTypeTransient)
			}
		}
		return nil
	})
	return written, err
}

// Read reads from the underlying link
func (l *LinkWithRetry) Read(p []byte) (int, error) {
	n, err := l.link.Read(p)
	if err != nil {
		return n, fmt.Errorf("read from underlying link: %w", err)
	}
	return n, nil
}

// SetReadTimeout sets the read timeout of the underlying link
func (l *LinkWithRetry) SetReadTimeout(timeout time.Duration) error {
	if err := l.link.SetReadTimeout(timeout); err != nil {
		return fmt.Errorf("failed to set timeout on underlying link: %w", err)
	}
	return nil
}

// ResetInput discards pending input on the underlying link
func (l *LinkWithRetry) ResetInput() error {
	if err := l.link.ResetInput(); err != nil {
		return fmt.Errorf("failed to reset input on underlying link: %w", err)
	}
	return nil
}

// Close closes the link
func (l *LinkWithRetry) Close() error {
	if err := l.link.Close(); err != nil {
		return fmt.Errorf("failed to close underlying link: %w", err)
	}
	return nil
}

// IsConnected returns true if the link is connected
func (l *LinkWithRetry) IsConnected() bool {
	return l.link.IsConnected()
}

// Type returns the link type
func (l *LinkWithRetry) Type() LinkType {
	return l.link.Type()
}

// SetRetryConfig updates the retry configuration
func (l *LinkWithRetry) SetRetryConfig(config *RetryConfig) {
	l.config = config
}
