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

package spi

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sensorlink "github.com/ZaparooProject/go-sensorlink"
	"github.com/ZaparooProject/go-sensorlink/protocol"
)

// fakeBus shifts out queued bytes, then Idle.
type fakeBus struct {
	err     error
	out     []byte
	written []byte
	mu      sync.Mutex
	closed  bool
}

func (b *fakeBus) Tx(w, r []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return b.err
	}
	if r == nil {
		b.written = append(b.written, w...)
		return nil
	}
	for i := range r {
		if len(b.out) == 0 {
			r[i] = Idle
			continue
		}
		r[i] = b.out[0]
		b.out = b.out[1:]
	}
	return nil
}

func (b *fakeBus) queue(p ...byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.out = append(b.out, p...)
}

func (b *fakeBus) Close() error {
	b.closed = true
	return nil
}

func newFake(bus *fakeBus) *Transport {
	return newTransport(bus, bus, "SPI0.0", Config{ReadTimeout: 10 * time.Millisecond})
}

func TestWriteShiftsOut(t *testing.T) {
	t.Parallel()

	bus := &fakeBus{}
	tr := newFake(bus)

	n, err := tr.Write([]byte{0x04, 0x00, 0x11, 0x22})
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, []byte{0x04, 0x00, 0x11, 0x22}, bus.written)
	assert.Equal(t, sensorlink.LinkSPI, tr.Type())
	assert.True(t, tr.IsConnected())
}

func TestReadSkipsIdleBetweenFrames(t *testing.T) {
	t.Parallel()

	bus := &fakeBus{}
	tr := newFake(bus)

	// Leading filler, then a frame whose CRC contains 0xFF.
	frm, err := protocol.PackResponse(protocol.Response{Addr: protocol.RegVersion, Status: protocol.StatusOK, Version: 1})
	require.NoError(t, err)
	frm[len(frm)-1] = Idle
	bus.queue(Idle, Idle, Idle)
	bus.queue(frm...)

	got := make([]byte, 0, protocol.MaxFrameSize)
	buf := make([]byte, 8)
	for range 10 {
		n, err := tr.Read(buf)
		require.NoError(t, err)
		if n == 0 {
			break
		}
		got = append(got, buf[:n]...)
	}
	assert.Equal(t, frm, got)
}

func TestReadTimesOutWithNothing(t *testing.T) {
	t.Parallel()

	tr := newFake(&fakeBus{})

	start := time.Now()
	n, err := tr.Read(make([]byte, 4))
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.GreaterOrEqual(t, time.Since(start), 10*time.Millisecond)
}

func TestResetInputDropsPartialFrame(t *testing.T) {
	t.Parallel()

	bus := &fakeBus{}
	tr := newFake(bus)

	// Size byte promises 8 bytes but only 2 arrive before the reset.
	bus.queue(0x06, 0x80)
	n, err := tr.Read(make([]byte, 2))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.NoError(t, tr.ResetInput())
	bus.queue(Idle, 0x05)
	buf := make([]byte, 2)
	n, err = tr.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x05}, buf[:n])
}

func TestBusErrorIsTransient(t *testing.T) {
	t.Parallel()

	cause := errors.New("ioctl failed")
	tr := newFake(&fakeBus{err: cause})

	_, err := tr.Read(make([]byte, 4))
	require.ErrorIs(t, err, cause)
	assert.True(t, sensorlink.IsRetryable(err))

	_, err = tr.Write([]byte{1})
	require.ErrorIs(t, err, cause)
}

func TestCloseReleasesBus(t *testing.T) {
	t.Parallel()

	bus := &fakeBus{}
	tr := newFake(bus)

	require.NoError(t, tr.Close())
	require.NoError(t, tr.Close())
	assert.True(t, bus.closed)
	assert.False(t, tr.IsConnected())

	_, err := tr.Read(make([]byte, 1))
	require.ErrorIs(t, err, sensorlink.ErrLinkClosed)
	_, err = tr.Write([]byte{1})
	require.ErrorIs(t, err, sensorlink.ErrLinkClosed)
	require.ErrorIs(t, tr.SetReadTimeout(time.Millisecond), sensorlink.ErrLinkClosed)
}
