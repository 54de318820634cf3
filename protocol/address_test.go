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

package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAddressKind(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		addr  Address
		kind  AddressKind
		point int
	}{
		{name: "version", addr: RegVersion, kind: KindSingleton, point: -1},
		{name: "secondary server", addr: RegServerSecondary, kind: KindSingleton, point: -1},
		{name: "gap after singletons", addr: RegServerSecondary + 1, kind: KindInvalid, point: -1},
		{name: "gap before descriptors", addr: RegPointDescFirst - 1, kind: KindInvalid, point: -1},
		{name: "first descriptor", addr: RegPointDescFirst, kind: KindPointDesc, point: 0},
		{name: "last descriptor", addr: RegPointDescLast, kind: KindPointDesc, point: 31},
		{name: "first read", addr: RegReadPointFirst, kind: KindReadPoint, point: 0},
		{name: "read 5", addr: ReadPointAddr(4), kind: KindReadPoint, point: 4},
		{name: "last write", addr: RegWritePointLast, kind: KindWritePoint, point: 31},
		{name: "above write range", addr: RegWritePointLast + 1, kind: KindInvalid, point: -1},
		{name: "top of space", addr: 0xFF, kind: KindInvalid, point: -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.kind, tt.addr.Kind())
			assert.Equal(t, tt.point, tt.addr.Point())
		})
	}
}

func TestAddressHelpers(t *testing.T) {
	t.Parallel()

	for i := 0; i < MaxPoints; i++ {
		assert.Equal(t, i, PointDescAddr(i).Point())
		assert.Equal(t, i, ReadPointAddr(i).Point())
		assert.Equal(t, i, WritePointAddr(i).Point())
	}
	assert.Equal(t, "POINT_DESC_1", RegPointDescFirst.String())
	assert.Equal(t, "READ_POINT_DATA_32", RegReadPointLast.String())
	assert.Equal(t, "ITF_VERSION", RegVersion.String())
	assert.Equal(t, "0xFE", Address(0xFE).String())
}
