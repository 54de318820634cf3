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
	"sync"
	"time"
)

// MockLink is an in-memory Link for tests. Every Write is recorded and
// handed to Responder; the bytes it returns become readable.
type MockLink struct {
	Responder  func(frame []byte) []byte
	WriteErr   error
	writes     [][]byte
	rx         []byte
	timeout    time.Duration
	shortWrite int
	mu         sync.Mutex
	closed     bool
}

// NewMockLink creates a mock link with a short read timeout
func NewMockLink() *MockLink {
	return &MockLink{timeout: time.Millisecond}
}

// Write records p and queues the responder's answer
func (m *MockLink) Write(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return 0, NewClosedError("write", "mock")
	}
	if m.WriteErr != nil {
		return 0, m.WriteErr
	}
	n := len(p)
	if m.shortWrite > 0 {
		m.shortWrite--
		n = len(p) / 2
	}
	frame := append([]byte(nil), p[:n]...)
	m.writes = append(m.writes, frame)
	if m.Responder != nil && n == len(p) {
		m.rx = append(m.rx, m.Responder(frame)...)
	}
	return n, nil
}

// Read returns queued bytes, or 0 after the read timeout
func (m *MockLink) Read(p []byte) (int, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return 0, NewClosedError("read", "mock")
	}
	if len(m.rx) > 0 {
		n := copy(p, m.rx)
		m.rx = m.rx[n:]
		m.mu.Unlock()
		return n, nil
	}
	timeout := m.timeout
	m.mu.Unlock()

	time.Sleep(timeout)
	return 0, nil
}

// Inject queues bytes as if the peer had sent them
func (m *MockLink) Inject(data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rx = append(m.rx, data...)
}

// ShortWrites makes the next n writes transfer only half the frame
func (m *MockLink) ShortWrites(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shortWrite = n
}

// Writes returns a copy of every frame written so far
func (m *MockLink) Writes() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]byte, len(m.writes))
	copy(out, m.writes)
	return out
}

// SetReadTimeout sets how long Read sleeps when nothing is queued
func (m *MockLink) SetReadTimeout(timeout time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.timeout = timeout
	return nil
}

// ResetInput drops queued bytes
func (m *MockLink) ResetInput() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rx = nil
	return nil
}

// Close marks the link closed
func (m *MockLink) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// IsConnected returns true until Close is called
func (m *MockLink) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.closed
}

// Type returns LinkMock
func (*MockLink) Type() LinkType {
	return LinkMock
}
