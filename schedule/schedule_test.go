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

package schedule

import (
	"testing"

	"github.com/ZaparooProject/go-sensorlink/protocol"
	"github.com/stretchr/testify/assert"
)

func descriptors(intervals []uint32, access []protocol.Access) []protocol.Descriptor {
	out := make([]protocol.Descriptor, len(intervals))
	for i := range intervals {
		out[i] = protocol.Descriptor{Type: protocol.TypeU8, Access: access[i], Sampling: intervals[i]}
	}
	return out
}

func TestBuildSelectsReadablePoints(t *testing.T) {
	t.Parallel()

	ro, wo, rw := protocol.AccessRead, protocol.AccessWrite, protocol.AccessReadWrite
	s := Build(descriptors([]uint32{10, 30, 1, 0, 0}, []protocol.Access{ro, ro, ro, wo, rw}))

	assert.Equal(t, []Entry{
		{Index: 0, Interval: 10, Countdown: 10},
		{Index: 1, Interval: 30, Countdown: 30},
		{Index: 2, Interval: 1, Countdown: 1},
	}, s.Entries())
}

func TestBuildIncludesReadWriteWithInterval(t *testing.T) {
	t.Parallel()

	s := Build(descriptors([]uint32{0, 5, 7}, []protocol.Access{
		protocol.AccessRead, protocol.AccessReadWrite, protocol.AccessWrite,
	}))
	assert.Equal(t, []Entry{{Index: 1, Interval: 5, Countdown: 5}}, s.Entries())
}

func TestTickDueListMatchesDivisors(t *testing.T) {
	t.Parallel()

	ro, wo, rw := protocol.AccessRead, protocol.AccessWrite, protocol.AccessReadWrite
	intervals := []uint32{10, 30, 1, 0, 0}
	s := Build(descriptors(intervals, []protocol.Access{ro, ro, ro, wo, rw}))

	for n := uint32(1); n <= 120; n++ {
		var want []int
		for i, iv := range intervals[:3] {
			if n%iv == 0 {
				want = append(want, i)
			}
		}
		got := append([]int(nil), s.Tick()...)
		assert.Equal(t, want, nilIfEmpty(got), "tick %d", n)
		assert.Equal(t, got, nilIfEmpty(s.Due()), "tick %d", n)
	}
}

func TestEmptySchedule(t *testing.T) {
	t.Parallel()

	s := Build(nil)
	assert.Zero(t, s.Len())
	assert.Empty(t, s.Tick())
}

func nilIfEmpty(v []int) []int {
	if len(v) == 0 {
		return nil
	}
	return v
}
