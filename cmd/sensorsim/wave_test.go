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

package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZaparooProject/go-sensorlink/protocol"
)

func TestWaveDriftsFloats(t *testing.T) {
	t.Parallel()

	now := time.Unix(1000, 0)
	w := newWave(4*time.Second, func() time.Time { return now })
	desc := protocol.Descriptor{Type: protocol.TypeF32}

	v, err := w.Sample(0, desc, protocol.Float32Value(20))
	require.NoError(t, err)
	assert.InDelta(t, 20, v.Float(), 1e-6)

	// A quarter period later the signal peaks at base + 10%.
	now = now.Add(time.Second)
	v, err = w.Sample(0, desc, v)
	require.NoError(t, err)
	assert.InDelta(t, 22, v.Float(), 1e-4)
	assert.Equal(t, protocol.TypeF32, v.Type)
}

func TestWaveCountsIntegers(t *testing.T) {
	t.Parallel()

	w := newWave(time.Minute, time.Now)

	tests := []struct {
		in   protocol.Value
		want protocol.Value
	}{
		{in: protocol.Uint16Value(41), want: protocol.Uint16Value(42)},
		{in: protocol.Int8Value(-2), want: protocol.Int8Value(-1)},
		{in: protocol.Uint8Value(255), want: protocol.Uint8Value(0)},
		{in: protocol.Int16Value(32767), want: protocol.Int16Value(0)},
	}
	for _, tt := range tests {
		got, err := w.Sample(1, protocol.Descriptor{Type: tt.in.Type}, tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}
