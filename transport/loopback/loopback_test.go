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

package loopback

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	sensorlink "github.com/ZaparooProject/go-sensorlink"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestPairCarriesBytesBothWays(t *testing.T) {
	t.Parallel()

	a, b := Pair("bench")
	assert.Equal(t, sensorlink.LinkLoopback, a.Type())

	n, err := a.Write([]byte{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	buf := make([]byte, 2)
	n, err = b.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2}, buf[:n])
	n, err = b.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, []byte{3}, buf[:n])

	require.NoError(t, sensorlink.WriteFrame(b, []byte{9}))
	v, ok, err := sensorlink.ReadByte(a)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, byte(9), v)
}

func TestReadTimesOut(t *testing.T) {
	t.Parallel()

	a, _ := Pair("bench")
	require.NoError(t, a.SetReadTimeout(5*time.Millisecond))

	start := time.Now()
	n, err := a.Read(make([]byte, 4))
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.GreaterOrEqual(t, time.Since(start), 5*time.Millisecond)

	require.NoError(t, a.SetReadTimeout(0))
	n, err = a.Read(make([]byte, 4))
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestReadWakesOnWrite(t *testing.T) {
	t.Parallel()

	a, b := Pair("bench")
	require.NoError(t, b.SetReadTimeout(time.Second))

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		time.Sleep(10 * time.Millisecond)
		_, _ = a.Write([]byte{0x42})
	}()

	buf := make([]byte, 1)
	start := time.Now()
	n, err := b.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
	wg.Wait()
}

func TestResetInput(t *testing.T) {
	t.Parallel()

	a, b := Pair("bench")
	require.NoError(t, b.SetReadTimeout(0))

	_, err := a.Write([]byte{1, 2})
	require.NoError(t, err)
	require.NoError(t, b.ResetInput())

	n, err := b.Read(make([]byte, 2))
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCloseDrainsThenFails(t *testing.T) {
	t.Parallel()

	a, b := Pair("bench")
	_, err := a.Write([]byte{7})
	require.NoError(t, err)
	require.NoError(t, a.Close())

	assert.False(t, a.IsConnected())
	assert.False(t, b.IsConnected())

	buf := make([]byte, 1)
	n, err := b.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = b.Read(buf)
	require.ErrorIs(t, err, sensorlink.ErrLinkClosed)
	_, err = b.Write([]byte{1})
	require.ErrorIs(t, err, sensorlink.ErrLinkClosed)
}
