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

package regmap

import (
	"fmt"
	"os"
	"strings"

	"github.com/ZaparooProject/go-sensorlink/protocol"
	"gopkg.in/yaml.v3"
)

// Config is the YAML layout of a sensor point database.
type Config struct {
	Board  BoardConfig   `yaml:"board"`
	Points []PointConfig `yaml:"points"`
}

// BoardConfig describes the board identity.
type BoardConfig struct {
	Manufacturer string   `yaml:"manufacturer"`
	Model        string   `yaml:"model"`
	Capabilities []string `yaml:"capabilities"`
	SensorID     uint32   `yaml:"sensor_id"`
	HWRevision   uint8    `yaml:"hw_revision"`
}

// PointConfig describes one point.
type PointConfig struct {
	Name   string `yaml:"name"`
	Type   string `yaml:"type"`
	Access string `yaml:"access"`
	// Value is the initial value, parsed according to Type.
	Value    string `yaml:"value"`
	Unit     uint8  `yaml:"unit"`
	Sampling uint32 `yaml:"sampling"`
}

// Database is a board identity plus its complete point table.
type Database struct {
	Table *Table
	Board protocol.BoardID
}

var capabilityNames = map[string]protocol.Capability{
	"display":        protocol.CapDisplay,
	"radio_status":   protocol.CapRadioStatus,
	"battery_status": protocol.CapBatteryStatus,
}

// Load reads and builds a point database from a YAML file.
func Load(path string) (*Database, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read point database: %w", err)
	}
	return Parse(data)
}

// Parse builds a point database from YAML.
func Parse(data []byte) (*Database, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse point database: %w", err)
	}
	return cfg.Build()
}

// Validate checks the configuration without building anything.
func (c *Config) Validate() error {
	if n := len(c.Points); n < 1 || n > protocol.MaxPoints {
		return fmt.Errorf("%w: %d points, need 1..%d", ErrInvalidPointCount, n, protocol.MaxPoints)
	}
	if len(c.Board.Manufacturer) > protocol.NameSize || len(c.Board.Model) > protocol.NameSize {
		return fmt.Errorf("board manufacturer and model must fit in %d bytes", protocol.NameSize)
	}
	for _, name := range c.Board.Capabilities {
		if _, ok := capabilityNames[strings.ToLower(name)]; !ok {
			return fmt.Errorf("board: unknown capability %q", name)
		}
	}

	seen := make(map[string]int)
	for i, p := range c.Points {
		if p.Name == "" || len(p.Name) > protocol.NameSize {
			return fmt.Errorf("point %d: name %q must be 1..%d bytes", i, p.Name, protocol.NameSize)
		}
		if prev, dup := seen[p.Name]; dup {
			return fmt.Errorf("point %d: name %q already used by point %d", i, p.Name, prev)
		}
		seen[p.Name] = i

		dt, err := protocol.ParseDatatype(p.Type)
		if err != nil {
			return fmt.Errorf("point %q: %w", p.Name, err)
		}
		access, err := protocol.ParseAccess(p.Access)
		if err != nil {
			return fmt.Errorf("point %q: %w", p.Name, err)
		}
		if p.Sampling > 0 && !access.CanRead() {
			return fmt.Errorf("point %q: sampling set on a write-only point", p.Name)
		}
		if p.Value != "" {
			if _, err := protocol.ParseValue(dt, p.Value); err != nil {
				return fmt.Errorf("point %q: %w", p.Name, err)
			}
		}
	}
	return nil
}

// Build validates the configuration and turns it into a Database.
func (c *Config) Build() (*Database, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	board := protocol.BoardID{
		Manufacturer: protocol.MakeName(c.Board.Manufacturer),
		Model:        protocol.MakeName(c.Board.Model),
		SensorID:     c.Board.SensorID,
		HWRevision:   c.Board.HWRevision,
		NumPoints:    uint8(len(c.Points)),
	}
	for _, name := range c.Board.Capabilities {
		board.Capabilities |= capabilityNames[strings.ToLower(name)]
	}

	points := make([]Point, len(c.Points))
	for i, p := range c.Points {
		// already validated
		dt, _ := protocol.ParseDatatype(p.Type)
		access, _ := protocol.ParseAccess(p.Access)
		points[i] = Point{
			Desc: protocol.Descriptor{
				Name:     protocol.MakeName(p.Name),
				Type:     dt,
				Unit:     p.Unit,
				Access:   access,
				Sampling: p.Sampling,
			},
			Value: protocol.ZeroValue(dt),
		}
		if p.Value != "" {
			points[i].Value, _ = protocol.ParseValue(dt, p.Value)
		}
	}

	table, err := NewTableFrom(points)
	if err != nil {
		return nil, err
	}
	return &Database{Board: board, Table: table}, nil
}

// Sample returns the reference five-point board: temperature, humidity
// and fire detection readings, an alarm output and a door-open counter.
func Sample() *Database {
	cfg := Config{
		Board: BoardConfig{
			Manufacturer: "TESLA",
			Model:        "KL46Z",
			SensorID:     0xDEADBEEF,
			HWRevision:   1,
			Capabilities: []string{"display", "radio_status", "battery_status"},
		},
		Points: []PointConfig{
			{Name: "TEMP", Type: "f32", Access: "ro", Sampling: 40, Value: "22.5"},
			{Name: "HUMID", Type: "f32", Access: "ro", Sampling: 120, Value: "55"},
			{Name: "FIRE", Type: "u8", Access: "ro", Sampling: 4},
			{Name: "ALARM", Type: "u8", Access: "wo"},
			{Name: "OPENCNT", Type: "u32", Access: "rw"},
		},
	}
	db, err := cfg.Build()
	if err != nil {
		panic(fmt.Sprintf("sample point database: %v", err))
	}
	return db
}
