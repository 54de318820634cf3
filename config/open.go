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

package config

import (
	"context"
	"fmt"

	sensorlink "github.com/ZaparooProject/go-sensorlink"
	"github.com/ZaparooProject/go-sensorlink/detection"
	"github.com/ZaparooProject/go-sensorlink/protocol"
	"github.com/ZaparooProject/go-sensorlink/transport/spi"
	"github.com/ZaparooProject/go-sensorlink/transport/uart"
	"periph.io/x/conn/v3/physic"

	// Registers the serial detector used for "auto" ports.
	_ "github.com/ZaparooProject/go-sensorlink/detection/uart"
)

// OpenLink opens the configured serial port or SPI bus. Transient write
// failures are retried with sensorlink.DefaultRetryConfig. Loopback links
// come in pairs and are built by the caller.
func OpenLink(ctx context.Context, l LinkConfig) (sensorlink.Link, error) {
	switch l.Type {
	case LinkUART:
		port := l.Port
		if port == AutoPort {
			found, err := Detect(ctx, l)
			if err != nil {
				return nil, err
			}
			port = found
		}
		cfg := uart.DefaultConfig()
		cfg.BaudRate = l.BaudRate
		cfg.ReadTimeout = l.ReadTimeout
		link, err := uart.Open(ctx, port, cfg)
		if err != nil {
			return nil, err
		}
		return sensorlink.NewLinkWithRetry(link, sensorlink.DefaultRetryConfig()), nil
	case LinkSPI:
		cfg := spi.DefaultConfig()
		cfg.Speed = physic.Frequency(l.SpeedHz) * physic.Hertz
		cfg.ReadTimeout = l.ReadTimeout
		link, err := spi.Open(l.Port, cfg)
		if err != nil {
			return nil, err
		}
		return sensorlink.NewLinkWithRetry(link, sensorlink.DefaultRetryConfig()), nil
	default:
		return nil, fmt.Errorf("%w: cannot open a %s link", ErrInvalidConfig, l.Type)
	}
}

// Detect returns the path of the first serial board that answers a
// version request.
func Detect(ctx context.Context, l LinkConfig) (string, error) {
	opts, err := detectOptions(l)
	if err != nil {
		return "", err
	}

	devices, err := detection.DetectAll(ctx, &opts)
	for _, dev := range devices {
		if dev.Transport == LinkUART && dev.Version == protocol.Version {
			sensorlink.Debug("config: detected board", "port", dev.Path, "vidpid", dev.VIDPID)
			return dev.Path, nil
		}
	}
	if err != nil {
		return "", fmt.Errorf("detect board: %w", err)
	}
	return "", fmt.Errorf("detect board: %w", detection.ErrNoDevicesFound)
}

// detectOptions asks candidates for their version with the CRC, frame gap
// and baud rate the link is configured for.
func detectOptions(l LinkConfig) (detection.Options, error) {
	codec, err := l.Codec()
	if err != nil {
		return detection.Options{}, err
	}
	opts := detection.DefaultOptions()
	opts.IgnorePaths = l.IgnorePaths
	opts.Blocklist = append(opts.Blocklist, l.Blocklist...)
	opts.Codec = codec
	opts.Gap = l.FrameGap
	opts.BaudRate = l.BaudRate
	return opts, nil
}
