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

// Package protocol implements the register-map wire protocol spoken between
// a mote and a sensor node: the flat one-byte register address space, the
// ten scalar datatypes, typed payloads and the CRC16-protected frame codec.
//
// Requests are laid out as
//
//	[size][address][payload...][crc16 LE]
//
// and responses as
//
//	[size][address][status][payload, only when status is OK][crc16 LE]
//
// where size counts every byte preceding the CRC.
package protocol

import "fmt"

// Address is a register address. The address alone selects the payload
// shape of a frame.
type Address uint8

// Singleton registers.
const (
	RegVersion            Address = 0x00
	RegBoardID            Address = 0x01
	RegBoardStatus        Address = 0x02
	RegBoardCommand       Address = 0x03
	RegReadBatteryStatus  Address = 0x04
	RegWriteBatteryStatus Address = 0x05
	RegReadBatteryCharge  Address = 0x06
	RegWriteBatteryCharge Address = 0x07
	RegRadioStatus        Address = 0x08
	RegRadioStrength      Address = 0x09
	RegDisplayWrite       Address = 0x0A
	RegServerMain         Address = 0x0B
	RegServerSecondary    Address = 0x0C
)

// Per-point register ranges, MaxPoints addresses each.
const (
	RegPointDescFirst  Address = 0x20
	RegPointDescLast   Address = RegPointDescFirst + MaxPoints - 1
	RegReadPointFirst  Address = 0x40
	RegReadPointLast   Address = RegReadPointFirst + MaxPoints - 1
	RegWritePointFirst Address = 0x60
	RegWritePointLast  Address = RegWritePointFirst + MaxPoints - 1
)

// MaxPoints is the largest point count a board may declare.
const MaxPoints = 32

// AddressKind classifies an address by the register range it falls in.
type AddressKind int

const (
	KindInvalid AddressKind = iota
	KindSingleton
	KindPointDesc
	KindReadPoint
	KindWritePoint
)

func (k AddressKind) String() string {
	switch k {
	case KindSingleton:
		return "singleton"
	case KindPointDesc:
		return "point-desc"
	case KindReadPoint:
		return "read-point"
	case KindWritePoint:
		return "write-point"
	default:
		return "invalid"
	}
}

// Kind returns the range the address belongs to. It does not know the
// board's declared point count; see regmap.Table.Implements for that.
func (a Address) Kind() AddressKind {
	switch {
	case a <= RegServerSecondary:
		return KindSingleton
	case a >= RegPointDescFirst && a <= RegPointDescLast:
		return KindPointDesc
	case a >= RegReadPointFirst && a <= RegReadPointLast:
		return KindReadPoint
	case a >= RegWritePointFirst && a <= RegWritePointLast:
		return KindWritePoint
	default:
		return KindInvalid
	}
}

// Point returns the zero-based point index of a per-point address, or -1.
func (a Address) Point() int {
	switch a.Kind() {
	case KindPointDesc:
		return int(a - RegPointDescFirst)
	case KindReadPoint:
		return int(a - RegReadPointFirst)
	case KindWritePoint:
		return int(a - RegWritePointFirst)
	default:
		return -1
	}
}

// PointDescAddr returns the descriptor register of point index.
func PointDescAddr(index int) Address {
	return RegPointDescFirst + Address(index)
}

// ReadPointAddr returns the value-read register of point index.
func ReadPointAddr(index int) Address {
	return RegReadPointFirst + Address(index)
}

// WritePointAddr returns the value-write register of point index.
func WritePointAddr(index int) Address {
	return RegWritePointFirst + Address(index)
}

var singletonNames = map[Address]string{
	RegVersion:            "ITF_VERSION",
	RegBoardID:            "BRD_ID",
	RegBoardStatus:        "BRD_STATUS",
	RegBoardCommand:       "BRD_CMD",
	RegReadBatteryStatus:  "READ_BAT_STATUS",
	RegWriteBatteryStatus: "WRITE_BAT_STATUS",
	RegReadBatteryCharge:  "READ_BAT_CHARGE",
	RegWriteBatteryCharge: "WRITE_BAT_CHARGE",
	RegRadioStatus:        "WPAN_STATUS",
	RegRadioStrength:      "WPAN_STRENGTH",
	RegDisplayWrite:       "DSP_WRITE",
	RegServerMain:         "SVR_MAIN_ADDR",
	RegServerSecondary:    "SVR_SEC_ADDR",
}

func (a Address) String() string {
	switch a.Kind() {
	case KindSingleton:
		return singletonNames[a]
	case KindPointDesc:
		return fmt.Sprintf("POINT_DESC_%d", a.Point()+1)
	case KindReadPoint:
		return fmt.Sprintf("READ_POINT_DATA_%d", a.Point()+1)
	case KindWritePoint:
		return fmt.Sprintf("WRITE_POINT_DATA_%d", a.Point()+1)
	default:
		return fmt.Sprintf("0x%02X", uint8(a))
	}
}
