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

// Package regmap holds the point control table: the ordered (descriptor,
// value) pairs behind the per-point register ranges, plus the YAML point
// database a sensor node serves.
package regmap

import (
	"errors"
	"fmt"

	"github.com/ZaparooProject/go-sensorlink/protocol"
)

// Table errors
var (
	ErrInvalidPointCount = errors.New("invalid point count")
	ErrTableFull         = errors.New("point table full")
	ErrNoSuchPoint       = errors.New("no such point")
	ErrTypeMismatch      = errors.New("value type does not match point")
)

// Point is one slot of the table.
type Point struct {
	Desc  protocol.Descriptor
	Value protocol.Value
}

// Table is the point control table. Its capacity is fixed by the board's
// declared point count; it fills up index by index and keeps its shape
// once complete. A Table is not safe for concurrent use.
type Table struct {
	points   []Point
	declared int
}

// NewTable returns an empty table for a board declaring count points.
func NewTable(count int) (*Table, error) {
	if count < 1 || count > protocol.MaxPoints {
		return nil, fmt.Errorf("%w: %d", ErrInvalidPointCount, count)
	}
	return &Table{points: make([]Point, 0, count), declared: count}, nil
}

// NewTableFrom returns a complete table holding points.
func NewTableFrom(points []Point) (*Table, error) {
	t, err := NewTable(len(points))
	if err != nil {
		return nil, err
	}
	for i, p := range points {
		if err := t.Append(p.Desc); err != nil {
			return nil, fmt.Errorf("point %d: %w", i, err)
		}
		if p.Value.Type == p.Desc.Type {
			t.points[i].Value = p.Value
		}
	}
	return t, nil
}

// Append adds the next discovered descriptor. The value starts at zero.
func (t *Table) Append(desc protocol.Descriptor) error {
	if len(t.points) >= t.declared {
		return fmt.Errorf("%w: %d points", ErrTableFull, t.declared)
	}
	if !desc.Type.Valid() {
		return fmt.Errorf("%w: %d", protocol.ErrUnknownDatatype, uint8(desc.Type))
	}
	t.points = append(t.points, Point{Desc: desc, Value: protocol.ZeroValue(desc.Type)})
	return nil
}

// Len returns the number of points present.
func (t *Table) Len() int {
	return len(t.points)
}

// Declared returns the point count the board declared.
func (t *Table) Declared() int {
	return t.declared
}

// Complete reports whether every declared point has been discovered.
func (t *Table) Complete() bool {
	return len(t.points) == t.declared
}

// Point returns the slot at index.
func (t *Table) Point(index int) (Point, bool) {
	if index < 0 || index >= len(t.points) {
		return Point{}, false
	}
	return t.points[index], true
}

// PointType implements protocol.TypeResolver.
func (t *Table) PointType(index int) (protocol.Datatype, bool) {
	p, ok := t.Point(index)
	return p.Desc.Type, ok
}

// Implements reports whether addr is served by a board with this table:
// any singleton, or a per-point register whose index is present.
func (t *Table) Implements(addr protocol.Address) bool {
	switch addr.Kind() {
	case protocol.KindSingleton:
		return true
	case protocol.KindPointDesc, protocol.KindReadPoint, protocol.KindWritePoint:
		return addr.Point() < len(t.points)
	default:
		return false
	}
}

// SetValue stores v in slot index. The value type must match the point.
func (t *Table) SetValue(index int, v protocol.Value) error {
	if index < 0 || index >= len(t.points) {
		return fmt.Errorf("%w: %d", ErrNoSuchPoint, index)
	}
	if v.Type != t.points[index].Desc.Type {
		return fmt.Errorf("%w: point %d is %s, value is %s",
			ErrTypeMismatch, index, t.points[index].Desc.Type, v.Type)
	}
	t.points[index].Value = v
	return nil
}

// Descriptors returns the descriptors in index order.
func (t *Table) Descriptors() []protocol.Descriptor {
	out := make([]protocol.Descriptor, len(t.points))
	for i, p := range t.points {
		out[i] = p.Desc
	}
	return out
}

// Snapshot returns a copy of every slot.
func (t *Table) Snapshot() []Point {
	out := make([]Point, len(t.points))
	copy(out, t.points)
	return out
}

// Index returns the index of the point called name.
func (t *Table) Index(name string) (int, bool) {
	for i, p := range t.points {
		if p.Desc.Name.String() == name {
			return i, true
		}
	}
	return -1, false
}
