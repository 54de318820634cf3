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

// Package schedule turns per-point sampling intervals into a tick-driven
// due list. It knows nothing about the wire protocol.
package schedule

import "github.com/ZaparooProject/go-sensorlink/protocol"

// Entry is one scheduled point.
type Entry struct {
	Index     int
	Interval  uint32
	Countdown uint32
}

// Schedule is the acquisition schedule derived from a point table. It is
// not safe for concurrent use.
type Schedule struct {
	entries []Entry
	due     []int
}

// Build selects every readable point with a nonzero sampling interval, in
// point-index order, with its countdown seeded from the interval.
func Build(descs []protocol.Descriptor) *Schedule {
	s := &Schedule{}
	for i, d := range descs {
		if !d.Access.CanRead() || d.Sampling == 0 {
			continue
		}
		s.entries = append(s.entries, Entry{Index: i, Interval: d.Sampling, Countdown: d.Sampling})
	}
	s.due = make([]int, 0, len(s.entries))
	return s
}

// Entries returns a copy of the schedule entries.
func (s *Schedule) Entries() []Entry {
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Len returns the number of scheduled points.
func (s *Schedule) Len() int {
	return len(s.entries)
}

// Tick advances the schedule by one tick and returns the point indices
// that became due, in point-index order. The returned slice is reused by
// the next call.
func (s *Schedule) Tick() []int {
	s.due = s.due[:0]
	for i := range s.entries {
		e := &s.entries[i]
		if e.Countdown > 0 {
			e.Countdown--
		}
		if e.Countdown == 0 {
			s.due = append(s.due, e.Index)
			e.Countdown = e.Interval
		}
	}
	return s.due
}

// Due returns the due list computed by the last Tick.
func (s *Schedule) Due() []int {
	return s.due
}
