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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	sensorlink "github.com/ZaparooProject/go-sensorlink"
)

func TestAssemblerWaitsForGap(t *testing.T) {
	t.Parallel()

	start := time.Unix(1000, 0)
	asm := NewAssembler(50*time.Millisecond, 0)

	assert.False(t, asm.Ready(start))
	_, ok := asm.Deadline()
	assert.False(t, ok)

	asm.Feed([]byte{2, 0}, start)
	asm.Feed([]byte{0xAA}, start.Add(30*time.Millisecond))
	assert.False(t, asm.Ready(start.Add(60*time.Millisecond)), "gap restarts on every byte")
	assert.Equal(t, 3, asm.Pending())

	deadline, ok := asm.Deadline()
	require.True(t, ok)
	assert.Equal(t, start.Add(80*time.Millisecond), deadline)

	asm.Feed([]byte{0xBB}, start.Add(70*time.Millisecond))
	assert.True(t, asm.Ready(start.Add(120*time.Millisecond)))
	assert.Equal(t, []byte{2, 0, 0xAA, 0xBB}, asm.Take())
	assert.Zero(t, asm.Pending())
	assert.Nil(t, asm.Take())
}

func TestAssemblerOverrun(t *testing.T) {
	t.Parallel()

	now := time.Unix(0, 0)
	asm := NewAssembler(time.Millisecond, 4)
	asm.Feed([]byte{1, 2, 3}, now)
	asm.Feed([]byte{4, 5, 6}, now)

	assert.Equal(t, 1, asm.Overruns())
	assert.Equal(t, []byte{1, 2, 3, 4}, asm.Take())

	asm.Feed([]byte{9}, now)
	asm.Reset()
	assert.Zero(t, asm.Pending())
}

func TestReaderDeliversWholeFrames(t *testing.T) {
	defer goleak.VerifyNone(t)

	link := sensorlink.NewMockLink()
	reader := NewReader(link, 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- reader.Run(ctx) }()

	link.Inject([]byte{2, 0, 0x11, 0x22})
	select {
	case frm := <-reader.Frames():
		assert.Equal(t, []byte{2, 0, 0x11, 0x22}, frm)
	case <-time.After(time.Second):
		t.Fatal("no frame delivered")
	}

	link.Inject([]byte{2, 1, 0x33, 0x44})
	select {
	case frm := <-reader.Frames():
		assert.Equal(t, []byte{2, 1, 0x33, 0x44}, frm)
	case <-time.After(time.Second):
		t.Fatal("no frame delivered")
	}

	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
}

func TestReaderStopsOnClosedLink(t *testing.T) {
	defer goleak.VerifyNone(t)

	link := sensorlink.NewMockLink()
	require.NoError(t, link.Close())
	reader := NewReader(link, time.Millisecond)

	err := reader.Run(context.Background())
	require.ErrorIs(t, err, sensorlink.ErrLinkClosed)
}

func TestReaderPoll(t *testing.T) {
	t.Parallel()

	link := sensorlink.NewMockLink()
	reader := NewReader(link, 10*time.Millisecond)
	clock := time.Unix(50, 0)
	reader.now = func() time.Time { return clock }
	require.NoError(t, reader.SetPollTimeout(0))

	link.Inject([]byte{2, 9, 1, 1})
	frm, err := reader.Poll()
	require.NoError(t, err)
	assert.Nil(t, frm)
	assert.Equal(t, 4, reader.Pending())

	clock = clock.Add(10 * time.Millisecond)
	frm, err = reader.Poll()
	require.NoError(t, err)
	assert.Equal(t, []byte{2, 9, 1, 1}, frm)

	link.Inject([]byte{7})
	_, err = reader.Poll()
	require.NoError(t, err)
	assert.Equal(t, []byte{7}, reader.TakePending())
	assert.Zero(t, reader.Pending())
}

func TestReaderSurfacesPermanentErrors(t *testing.T) {
	t.Parallel()

	link := sensorlink.NewMockLink()
	reader := NewReader(link, time.Millisecond)
	require.NoError(t, link.Close())

	_, err := reader.Poll()
	require.Error(t, err)
	assert.True(t, errors.Is(err, sensorlink.ErrLinkClosed))
}
