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

package regmap

import (
	"testing"

	"github.com/ZaparooProject/go-sensorlink/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func desc(name string, dt protocol.Datatype, access protocol.Access, sampling uint32) protocol.Descriptor {
	return protocol.Descriptor{Name: protocol.MakeName(name), Type: dt, Access: access, Sampling: sampling}
}

func TestNewTableBounds(t *testing.T) {
	t.Parallel()

	for _, n := range []int{0, -1, protocol.MaxPoints + 1} {
		_, err := NewTable(n)
		require.ErrorIs(t, err, ErrInvalidPointCount, "count %d", n)
	}
	for _, n := range []int{1, protocol.MaxPoints} {
		table, err := NewTable(n)
		require.NoError(t, err)
		assert.Equal(t, n, table.Declared())
		assert.Zero(t, table.Len())
	}
}

func TestTableFillsIncrementally(t *testing.T) {
	t.Parallel()

	table, err := NewTable(2)
	require.NoError(t, err)

	require.NoError(t, table.Append(desc("A", protocol.TypeU16, protocol.AccessRead, 1)))
	assert.False(t, table.Complete())
	_, ok := table.PointType(1)
	assert.False(t, ok)

	require.NoError(t, table.Append(desc("B", protocol.TypeF32, protocol.AccessWrite, 0)))
	assert.True(t, table.Complete())
	require.ErrorIs(t, table.Append(desc("C", protocol.TypeU8, protocol.AccessRead, 0)), ErrTableFull)
	assert.Equal(t, 2, table.Len())

	dt, ok := table.PointType(1)
	assert.True(t, ok)
	assert.Equal(t, protocol.TypeF32, dt)

	p, ok := table.Point(0)
	require.True(t, ok)
	assert.Equal(t, protocol.ZeroValue(protocol.TypeU16), p.Value)

	idx, ok := table.Index("B")
	assert.True(t, ok)
	assert.Equal(t, 1, idx)
}

func TestTableRejectsUnknownDatatype(t *testing.T) {
	t.Parallel()

	table, err := NewTable(1)
	require.NoError(t, err)
	require.ErrorIs(t, table.Append(desc("X", 42, protocol.AccessRead, 0)), protocol.ErrUnknownDatatype)
}

func TestTableSetValue(t *testing.T) {
	t.Parallel()

	table, err := NewTableFrom([]Point{
		{Desc: desc("A", protocol.TypeU8, protocol.AccessRead, 0)},
		{Desc: desc("B", protocol.TypeS32, protocol.AccessReadWrite, 0), Value: protocol.Int32Value(-9)},
	})
	require.NoError(t, err)

	p, _ := table.Point(1)
	assert.Equal(t, protocol.Int32Value(-9), p.Value)

	require.NoError(t, table.SetValue(0, protocol.Uint8Value(3)))
	require.ErrorIs(t, table.SetValue(0, protocol.Uint16Value(3)), ErrTypeMismatch)
	require.ErrorIs(t, table.SetValue(2, protocol.Uint8Value(3)), ErrNoSuchPoint)

	snap := table.Snapshot()
	assert.Equal(t, protocol.Uint8Value(3), snap[0].Value)
	snap[0].Value = protocol.Uint8Value(99)
	p, _ = table.Point(0)
	assert.Equal(t, protocol.Uint8Value(3), p.Value, "snapshot must be a copy")
}

func TestTableImplements(t *testing.T) {
	t.Parallel()

	table := Sample().Table
	tests := []struct {
		name string
		addr protocol.Address
		want bool
	}{
		{name: "singleton", addr: protocol.RegBoardID, want: true},
		{name: "last present descriptor", addr: protocol.PointDescAddr(4), want: true},
		{name: "descriptor past count", addr: protocol.PointDescAddr(5), want: false},
		{name: "read past count", addr: protocol.ReadPointAddr(31), want: false},
		{name: "write present", addr: protocol.WritePointAddr(3), want: true},
		{name: "gap", addr: protocol.RegServerSecondary + 1, want: false},
		{name: "above ranges", addr: 0xF0, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, table.Implements(tt.addr))
		})
	}
}
