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
	"math"
	"strconv"
	"time"

	"github.com/ZaparooProject/go-sensorlink/protocol"
)

// wave drifts every sampled point around its value at start-up: floats
// follow a sine of 10% amplitude, integers count up.
type wave struct {
	now    func() time.Time
	start  time.Time
	base   map[int]float64
	period time.Duration
}

func newWave(period time.Duration, now func() time.Time) *wave {
	if period <= 0 {
		period = time.Minute
	}
	return &wave{now: now, start: now(), period: period, base: make(map[int]float64)}
}

func (w *wave) Sample(index int, desc protocol.Descriptor, current protocol.Value) (protocol.Value, error) {
	switch desc.Type {
	case protocol.TypeF32, protocol.TypeF64:
		base, ok := w.base[index]
		if !ok {
			base = current.Float()
			w.base[index] = base
		}
		phase := 2 * math.Pi * float64(w.now().Sub(w.start)) / float64(w.period)
		amp := math.Abs(base) * 0.1
		if amp == 0 {
			amp = 1
		}
		v := base + amp*math.Sin(phase)
		if desc.Type == protocol.TypeF32 {
			return protocol.Float32Value(float32(v)), nil
		}
		return protocol.Float64Value(v), nil
	default:
		next, err := protocol.ParseValue(desc.Type, increment(current))
		if err != nil {
			// Counter wrapped.
			return protocol.ZeroValue(desc.Type), nil
		}
		return next, nil
	}
}

func increment(v protocol.Value) string {
	switch v.Type {
	case protocol.TypeS8, protocol.TypeS16, protocol.TypeS32, protocol.TypeS64:
		return strconv.FormatInt(v.Int()+1, 10)
	}
	return strconv.FormatUint(v.Uint()+1, 10)
}
