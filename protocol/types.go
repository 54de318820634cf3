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
	"bytes"
	"fmt"
	"strings"

	"github.com/lunixbochs/struc"
)

// Fixed field sizes.
const (
	NameSize           = 8
	ServerAddrSize     = 16
	DisplayMessageSize = 24

	BoardIDSize     = 2*NameSize + 4 + 3
	DescriptorSize  = NameSize + 3 + 4
	DisplayLineSize = 1 + DisplayMessageSize
)

// Version is the interface version this package speaks.
const Version uint8 = 1

// Status is the response status code.
type Status uint8

// Response status codes.
const (
	StatusOK                     Status = 0
	StatusError                  Status = 1
	StatusReadOnly               Status = 2
	StatusWriteOnly              Status = 3
	StatusRegisterNotImplemented Status = 4
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "OK"
	case StatusError:
		return "ERROR"
	case StatusReadOnly:
		return "READ_ONLY"
	case StatusWriteOnly:
		return "WRITE_ONLY"
	case StatusRegisterNotImplemented:
		return "REGISTER_NOT_IMPLEMENTED"
	default:
		return fmt.Sprintf("status(%d)", uint8(s))
	}
}

// Err maps a non-OK status to its sentinel error. StatusOK maps to nil.
func (s Status) Err() error {
	switch s {
	case StatusOK:
		return nil
	case StatusReadOnly:
		return ErrReadOnly
	case StatusWriteOnly:
		return ErrWriteOnly
	case StatusRegisterNotImplemented:
		return ErrRegisterNotImplemented
	default:
		return ErrUnknownCommand
	}
}

// Access is the access-rights bitmask of a point.
type Access uint8

// Access rights.
const (
	AccessRead      Access = 0x01
	AccessWrite     Access = 0x02
	AccessReadWrite Access = AccessRead | AccessWrite
)

// CanRead reports whether the read bit is set.
func (a Access) CanRead() bool { return a&AccessRead != 0 }

// CanWrite reports whether the write bit is set.
func (a Access) CanWrite() bool { return a&AccessWrite != 0 }

func (a Access) String() string {
	switch a {
	case AccessRead:
		return "ro"
	case AccessWrite:
		return "wo"
	case AccessReadWrite:
		return "rw"
	default:
		return fmt.Sprintf("access(0x%02X)", uint8(a))
	}
}

// ParseAccess parses "ro", "wo" or "rw".
func ParseAccess(s string) (Access, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ro", "r", "read":
		return AccessRead, nil
	case "wo", "w", "write":
		return AccessWrite, nil
	case "rw", "read_write", "readwrite":
		return AccessReadWrite, nil
	default:
		return 0, fmt.Errorf("unknown access rights %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (a Access) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Access) UnmarshalText(text []byte) error {
	parsed, err := ParseAccess(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Capability is the board capability bitmask.
type Capability uint8

// Board capabilities.
const (
	CapDisplay       Capability = 0x01
	CapRadioStatus   Capability = 0x02
	CapBatteryStatus Capability = 0x04
	CapAll                      = CapDisplay | CapRadioStatus | CapBatteryStatus
)

// Has reports whether every bit of c2 is set in c.
func (c Capability) Has(c2 Capability) bool { return c&c2 == c2 }

// Name is a fixed eight byte, zero padded name field.
type Name [NameSize]byte

// MakeName copies s into a Name, truncating it to NameSize bytes.
func MakeName(s string) Name {
	var n Name
	copy(n[:], s)
	return n
}

func (n Name) String() string {
	return string(bytes.TrimRight(n[:], "\x00"))
}

// ServerAddr is a fixed sixteen byte server address.
type ServerAddr [ServerAddrSize]byte

// MakeServerAddr copies s into a ServerAddr, truncating it if needed.
func MakeServerAddr(s string) ServerAddr {
	var a ServerAddr
	copy(a[:], s)
	return a
}

func (a ServerAddr) String() string {
	return string(bytes.TrimRight(a[:], "\x00"))
}

// DisplayLine is the payload of a display write.
type DisplayLine struct {
	Line    uint8
	Message [DisplayMessageSize]byte
}

// NewDisplayLine builds a display write for line, truncating msg.
func NewDisplayLine(line uint8, msg string) DisplayLine {
	d := DisplayLine{Line: line}
	copy(d.Message[:], msg)
	return d
}

// Text returns the message without zero padding.
func (d DisplayLine) Text() string {
	return string(bytes.TrimRight(d.Message[:], "\x00"))
}

// Descriptor describes one point.
type Descriptor struct {
	Name     Name
	Type     Datatype
	Unit     uint8
	Access   Access
	Sampling uint32 // in ticks, 0 disables periodic acquisition
}

// BoardID is the board identity answered on RegBoardID.
type BoardID struct {
	Manufacturer Name
	Model        Name
	SensorID     uint32
	HWRevision   uint8
	NumPoints    uint8
	Capabilities Capability
}

type boardIDWire struct {
	Manufacturer []byte `struc:"[8]byte"`
	Model        []byte `struc:"[8]byte"`
	SensorID     uint32 `struc:"uint32,little"`
	HWRevision   uint8  `struc:"uint8"`
	NumPoints    uint8  `struc:"uint8"`
	Capabilities uint8  `struc:"uint8"`
}

type descriptorWire struct {
	Name     []byte `struc:"[8]byte"`
	Type     uint8  `struc:"uint8"`
	Unit     uint8  `struc:"uint8"`
	Access   uint8  `struc:"uint8"`
	Sampling uint32 `struc:"uint32,little"`
}

type displayLineWire struct {
	Line    uint8  `struc:"uint8"`
	Message []byte `struc:"[24]byte"`
}

func packStruct(buf []byte, v any) ([]byte, error) {
	var b bytes.Buffer
	if err := struc.Pack(&b, v); err != nil {
		return nil, fmt.Errorf("pack payload: %w", err)
	}
	return append(buf, b.Bytes()...), nil
}

func unpackStruct(p []byte, size int, v any) error {
	if len(p) != size {
		return fmt.Errorf("%w: payload needs %d bytes, got %d", ErrMalformedFrame, size, len(p))
	}
	if err := struc.Unpack(bytes.NewReader(p), v); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedFrame, err)
	}
	return nil
}

func (b BoardID) appendTo(buf []byte) ([]byte, error) {
	w := boardIDWire{
		Manufacturer: b.Manufacturer[:],
		Model:        b.Model[:],
		SensorID:     b.SensorID,
		HWRevision:   b.HWRevision,
		NumPoints:    b.NumPoints,
		Capabilities: uint8(b.Capabilities),
	}
	return packStruct(buf, &w)
}

func decodeBoardID(p []byte) (BoardID, error) {
	var w boardIDWire
	if err := unpackStruct(p, BoardIDSize, &w); err != nil {
		return BoardID{}, err
	}
	b := BoardID{
		SensorID:     w.SensorID,
		HWRevision:   w.HWRevision,
		NumPoints:    w.NumPoints,
		Capabilities: Capability(w.Capabilities),
	}
	copy(b.Manufacturer[:], w.Manufacturer)
	copy(b.Model[:], w.Model)
	return b, nil
}

func (d Descriptor) appendTo(buf []byte) ([]byte, error) {
	w := descriptorWire{
		Name:     d.Name[:],
		Type:     uint8(d.Type),
		Unit:     d.Unit,
		Access:   uint8(d.Access),
		Sampling: d.Sampling,
	}
	return packStruct(buf, &w)
}

func decodeDescriptor(p []byte) (Descriptor, error) {
	var w descriptorWire
	if err := unpackStruct(p, DescriptorSize, &w); err != nil {
		return Descriptor{}, err
	}
	d := Descriptor{
		Type:     Datatype(w.Type),
		Unit:     w.Unit,
		Access:   Access(w.Access),
		Sampling: w.Sampling,
	}
	if !d.Type.Valid() {
		return Descriptor{}, fmt.Errorf("%w: descriptor %w: %d", ErrMalformedFrame, ErrUnknownDatatype, w.Type)
	}
	copy(d.Name[:], w.Name)
	return d, nil
}

func (d DisplayLine) appendTo(buf []byte) ([]byte, error) {
	w := displayLineWire{Line: d.Line, Message: d.Message[:]}
	return packStruct(buf, &w)
}

func decodeDisplayLine(p []byte) (DisplayLine, error) {
	var w displayLineWire
	if err := unpackStruct(p, DisplayLineSize, &w); err != nil {
		return DisplayLine{}, err
	}
	d := DisplayLine{Line: w.Line}
	copy(d.Message[:], w.Message)
	return d, nil
}
