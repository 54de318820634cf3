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

// Package config loads the YAML configuration of the mote and sensor
// processes.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/ZaparooProject/go-sensorlink/polling"
	"github.com/ZaparooProject/go-sensorlink/protocol"
	"github.com/snksoft/crc"
	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Link kinds.
const (
	LinkUART     = "uart"
	LinkSPI      = "spi"
	LinkLoopback = "loopback"
)

// AutoPort asks for the first detected board.
const AutoPort = "auto"

// Config is the root of a configuration file. Either process ignores the
// section meant for the other.
type Config struct {
	Link   LinkConfig   `yaml:"link"`
	Mote   MoteConfig   `yaml:"mote"`
	Sensor SensorConfig `yaml:"sensor"`
}

// LinkConfig selects and tunes the byte link.
type LinkConfig struct {
	Type string `yaml:"type"`
	// Port is the serial device or SPI bus. "auto" detects a serial board.
	Port        string        `yaml:"port"`
	CRC         string        `yaml:"crc"`
	IgnorePaths []string      `yaml:"ignore_paths"`
	Blocklist   []string      `yaml:"blocklist"`
	BaudRate    int           `yaml:"baud_rate"`
	SpeedHz     int64         `yaml:"speed_hz"`
	ReadTimeout time.Duration `yaml:"read_timeout"`
	FrameGap    time.Duration `yaml:"frame_gap"`
}

// MoteConfig tunes the polling state machine.
type MoteConfig struct {
	// MetricsAddr is where /metrics is served; empty disables it.
	MetricsAddr     string        `yaml:"metrics_addr"`
	TickPeriod      time.Duration `yaml:"tick_period"`
	ResponseTimeout time.Duration `yaml:"response_timeout"`
	MaxRetries      int           `yaml:"max_retries"`
	MaxQueuedWrites int           `yaml:"max_queued_writes"`
	Cooperative     bool          `yaml:"cooperative"`
}

// SensorConfig tunes the sensor node.
type SensorConfig struct {
	// Database is a point database file; empty serves the sample board.
	Database        string        `yaml:"database"`
	ServerMain      string        `yaml:"server_main"`
	ServerSecondary string        `yaml:"server_secondary"`
	TickPeriod      time.Duration `yaml:"tick_period"`
	Cooperative     bool          `yaml:"cooperative"`
}

// Default returns a configuration for a USB serial board.
func Default() Config {
	mote := polling.DefaultConfig()
	return Config{
		Link: LinkConfig{
			Type:        LinkUART,
			Port:        AutoPort,
			CRC:         "x25",
			BaudRate:    115200,
			SpeedHz:     1_000_000,
			ReadTimeout: 50 * time.Millisecond,
			FrameGap:    mote.FrameGap,
		},
		Mote: MoteConfig{
			TickPeriod:      mote.TickPeriod,
			ResponseTimeout: mote.ResponseTimeout,
			MaxRetries:      mote.MaxRetries,
			MaxQueuedWrites: mote.MaxQueuedWrites,
		},
		Sensor: SensorConfig{
			TickPeriod: 250 * time.Millisecond,
		},
	}
}

// Load reads path over the defaults and validates the result.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML over the defaults and validates the result. Unknown
// keys are rejected.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the configuration. It does not modify it.
func (c *Config) Validate() error {
	switch c.Link.Type {
	case LinkUART, LinkSPI, LinkLoopback:
	default:
		return fmt.Errorf("%w: link type %q, want uart, spi or loopback", ErrInvalidConfig, c.Link.Type)
	}
	if c.Link.Type != LinkLoopback && c.Link.Port == "" {
		return fmt.Errorf("%w: link port is required for %s", ErrInvalidConfig, c.Link.Type)
	}
	if c.Link.Type == LinkSPI && c.Link.Port == AutoPort {
		return fmt.Errorf("%w: spi bus cannot be detected, name it", ErrInvalidConfig)
	}
	if _, err := c.Link.CRCParams(); err != nil {
		return err
	}
	if c.Link.BaudRate <= 0 {
		return fmt.Errorf("%w: baud_rate must be positive", ErrInvalidConfig)
	}
	if c.Link.SpeedHz <= 0 {
		return fmt.Errorf("%w: speed_hz must be positive", ErrInvalidConfig)
	}
	if c.Link.ReadTimeout < 0 || c.Link.FrameGap <= 0 {
		return fmt.Errorf("%w: read_timeout must not be negative and frame_gap must be positive", ErrInvalidConfig)
	}

	if err := c.Mote.Polling(c.Link).Validate(); err != nil {
		return fmt.Errorf("%w: mote: %w", ErrInvalidConfig, err)
	}

	if c.Sensor.TickPeriod <= 0 {
		return fmt.Errorf("%w: sensor tick_period must be positive", ErrInvalidConfig)
	}
	if len(c.Sensor.ServerMain) > protocol.ServerAddrSize || len(c.Sensor.ServerSecondary) > protocol.ServerAddrSize {
		return fmt.Errorf("%w: server addresses must fit in %d bytes", ErrInvalidConfig, protocol.ServerAddrSize)
	}
	return nil
}

// CRCParams maps the crc name to its parameter set.
func (l LinkConfig) CRCParams() (*crc.Parameters, error) {
	switch strings.ToLower(strings.ReplaceAll(l.CRC, "_", "-")) {
	case "", "x25", "x-25":
		return protocol.CRCX25, nil
	case "xmodem":
		return protocol.CRCXModem, nil
	case "ccitt", "ccitt-false":
		return protocol.CRCCCITT, nil
	default:
		return nil, fmt.Errorf("%w: unknown crc %q", ErrInvalidConfig, l.CRC)
	}
}

// Codec builds the frame codec for the configured CRC.
func (l LinkConfig) Codec() (*protocol.Codec, error) {
	params, err := l.CRCParams()
	if err != nil {
		return nil, err
	}
	return protocol.NewCodec(params), nil
}

// Polling converts the mote section to a polling configuration.
func (m MoteConfig) Polling(link LinkConfig) *polling.Config {
	return &polling.Config{
		TickPeriod:      m.TickPeriod,
		ResponseTimeout: m.ResponseTimeout,
		FrameGap:        link.FrameGap,
		MaxRetries:      m.MaxRetries,
		MaxQueuedWrites: m.MaxQueuedWrites,
	}
}
