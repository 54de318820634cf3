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
	"math"
	"strconv"
	"strings"
)

// Datatype identifies the scalar type of a point.
type Datatype uint8

// Supported datatypes, in wire order.
const (
	TypeU8 Datatype = iota
	TypeS8
	TypeU16
	TypeS16
	TypeU32
	TypeS32
	TypeU64
	TypeS64
	TypeF32
	TypeF64
)

// NumDatatypes is the number of supported datatypes.
const NumDatatypes = 10

var datatypeSizes = [NumDatatypes]int{1, 1, 2, 2, 4, 4, 8, 8, 4, 8}

var datatypeNames = [NumDatatypes]string{
	"u8", "s8", "u16", "s16", "u32", "s32", "u64", "s64", "f32", "f64",
}

// Valid reports whether t is one of the supported datatypes.
func (t Datatype) Valid() bool {
	return t < NumDatatypes
}

// Size returns the wire size of a value of type t, or 0 for unknown types.
func (t Datatype) Size() int {
	if !t.Valid() {
		return 0
	}
	return datatypeSizes[t]
}

func (t Datatype) String() string {
	if !t.Valid() {
		return fmt.Sprintf("type(%d)", uint8(t))
	}
	return datatypeNames[t]
}

func (t Datatype) signed() bool {
	return t == TypeS8 || t == TypeS16 || t == TypeS32 || t == TypeS64
}

func (t Datatype) float() bool {
	return t == TypeF32 || t == TypeF64
}

// ParseDatatype parses names such as "u16" or "f32".
func ParseDatatype(s string) (Datatype, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range datatypeNames {
		if s == name {
			return Datatype(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownDatatype, s)
}

// MarshalText implements encoding.TextMarshaler.
func (t Datatype) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownDatatype, uint8(t))
	}
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Datatype) UnmarshalText(text []byte) error {
	parsed, err := ParseDatatype(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Value is a point value: a datatype tag plus the raw little-endian bit
// pattern of the scalar, truncated to the datatype's size.
type Value struct {
	bits uint64
	Type Datatype
}

// Uint8Value returns a u8 value.
func Uint8Value(v uint8) Value { return Value{Type: TypeU8, bits: uint64(v)} }

// Int8Value returns an s8 value.
func Int8Value(v int8) Value { return Value{Type: TypeS8, bits: uint64(uint8(v))} }

// Uint16Value returns a u16 value.
func Uint16Value(v uint16) Value { return Value{Type: TypeU16, bits: uint64(v)} }

// Int16Value returns an s16 value.
func Int16Value(v int16) Value { return Value{Type: TypeS16, bits: uint64(uint16(v))} }

// Uint32Value returns a u32 value.
func Uint32Value(v uint32) Value { return Value{Type: TypeU32, bits: uint64(v)} }

// Int32Value returns an s32 value.
func Int32Value(v int32) Value { return Value{Type: TypeS32, bits: uint64(uint32(v))} }

// Uint64Value returns a u64 value.
func Uint64Value(v uint64) Value { return Value{Type: TypeU64, bits: v} }

// Int64Value returns an s64 value.
func Int64Value(v int64) Value { return Value{Type: TypeS64, bits: uint64(v)} }

// Float32Value returns an f32 value.
func Float32Value(v float32) Value { return Value{Type: TypeF32, bits: uint64(math.Float32bits(v))} }

// Float64Value returns an f64 value.
func Float64Value(v float64) Value { return Value{Type: TypeF64, bits: math.Float64bits(v)} }

// ZeroValue returns the zero value of type t.
func ZeroValue(t Datatype) Value {
	return Value{Type: t}
}

// Bits returns the raw bit pattern as it travels on the wire.
func (v Value) Bits() uint64 {
	return v.bits
}

// Uint returns the value as an unsigned integer. Signed values are
// returned as their two's complement pattern, floats are truncated.
func (v Value) Uint() uint64 {
	switch {
	case v.Type.float():
		return uint64(v.Float())
	case v.Type.signed():
		return uint64(v.Int())
	default:
		return v.bits
	}
}

// Int returns the value as a sign-extended integer.
func (v Value) Int() int64 {
	switch v.Type {
	case TypeS8:
		return int64(int8(v.bits))
	case TypeS16:
		return int64(int16(v.bits))
	case TypeS32:
		return int64(int32(v.bits))
	case TypeS64:
		return int64(v.bits)
	case TypeF32, TypeF64:
		return int64(v.Float())
	default:
		return int64(v.bits)
	}
}

// Float returns the value as a float64.
func (v Value) Float() float64 {
	switch v.Type {
	case TypeF32:
		return float64(math.Float32frombits(uint32(v.bits)))
	case TypeF64:
		return math.Float64frombits(v.bits)
	default:
		if v.Type.signed() {
			return float64(v.Int())
		}
		return float64(v.bits)
	}
}

func (v Value) String() string {
	switch {
	case v.Type.float():
		bitSize := 64
		if v.Type == TypeF32 {
			bitSize = 32
		}
		return strconv.FormatFloat(v.Float(), 'g', -1, bitSize)
	case v.Type.signed():
		return strconv.FormatInt(v.Int(), 10)
	default:
		return strconv.FormatUint(v.bits, 10)
	}
}

// ParseValue parses s as a value of type t.
func ParseValue(t Datatype, s string) (Value, error) {
	if !t.Valid() {
		return Value{}, fmt.Errorf("%w: %d", ErrUnknownDatatype, uint8(t))
	}
	s = strings.TrimSpace(s)
	size := t.Size() * 8
	switch {
	case t.float():
		f, err := strconv.ParseFloat(s, size)
		if err != nil {
			return Value{}, fmt.Errorf("parse %s value: %w", t, err)
		}
		if t == TypeF32 {
			return Float32Value(float32(f)), nil
		}
		return Float64Value(f), nil
	case t.signed():
		n, err := strconv.ParseInt(s, 0, size)
		if err != nil {
			return Value{}, fmt.Errorf("parse %s value: %w", t, err)
		}
		return Value{Type: t, bits: uint64(n) & sizeMask(t)}, nil
	default:
		n, err := strconv.ParseUint(s, 0, size)
		if err != nil {
			return Value{}, fmt.Errorf("parse %s value: %w", t, err)
		}
		return Value{Type: t, bits: n}, nil
	}
}

func sizeMask(t Datatype) uint64 {
	if t.Size() >= 8 {
		return math.MaxUint64
	}
	return 1<<(uint(t.Size())*8) - 1
}

// appendValue writes the tag byte and the little-endian scalar.
func appendValue(buf []byte, v Value) []byte {
	buf = append(buf, byte(v.Type))
	for i := 0; i < v.Type.Size(); i++ {
		buf = append(buf, byte(v.bits>>(8*uint(i))))
	}
	return buf
}

// decodeValue reads a tagged value whose type must be want.
func decodeValue(p []byte, want Datatype) (Value, error) {
	if !want.Valid() {
		return Value{}, fmt.Errorf("%w: %d", ErrUnknownDatatype, uint8(want))
	}
	if len(p) != 1+want.Size() {
		return Value{}, fmt.Errorf("%w: %s value needs %d bytes, got %d",
			ErrMalformedFrame, want, 1+want.Size(), len(p))
	}
	if Datatype(p[0]) != want {
		return Value{}, fmt.Errorf("%w: value tagged %s, point is %s",
			ErrMalformedFrame, Datatype(p[0]), want)
	}
	var bits uint64
	for i := 0; i < want.Size(); i++ {
		bits |= uint64(p[1+i]) << (8 * uint(i))
	}
	return Value{Type: want, bits: bits}, nil
}
