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

import "github.com/snksoft/crc"

// CRC parameter sets known to interoperate with deployed peers.
var (
	// CRCX25 is CRC-16/X-25, the checksum used by the mote serial stack.
	CRCX25 = crc.X25
	// CRCXModem is CRC-16/XMODEM.
	CRCXModem = crc.XMODEM
	// CRCCCITT is CRC-16/CCITT-FALSE.
	CRCCCITT = crc.CCITT
)

// CRC16 computes a 16-bit frame checksum with a precomputed table.
type CRC16 struct {
	table *crc.Table
}

// NewCRC16 builds a checksum for the given 16-bit parameter set.
func NewCRC16(params *crc.Parameters) *CRC16 {
	return &CRC16{table: crc.NewTable(params)}
}

// Checksum returns the CRC of data.
func (c *CRC16) Checksum(data []byte) uint16 {
	return uint16(c.table.CalculateCRC(data))
}
