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
	"fmt"
	"strings"
)

// Dump renders a frame as space separated hex bytes, prefixed with the
// register it addresses, for debug logs.
func Dump(frame []byte) string {
	var sb strings.Builder
	if len(frame) >= 2 {
		_, _ = fmt.Fprintf(&sb, "%s [%d]", Address(frame[1]), len(frame))
	} else {
		_, _ = fmt.Fprintf(&sb, "[%d]", len(frame))
	}
	for _, b := range frame {
		_, _ = fmt.Fprintf(&sb, " %02X", b)
	}
	return sb.String()
}
