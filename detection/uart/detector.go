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

// Package uart detects sensor boards behind USB serial adapters.
package uart

import (
	"context"
	"fmt"

	sensorlink "github.com/ZaparooProject/go-sensorlink"
	"github.com/ZaparooProject/go-sensorlink/detection"
	"github.com/ZaparooProject/go-sensorlink/transport/uart"
	"go.bug.st/serial/enumerator"
)

type detector struct {
	list func() ([]*enumerator.PortDetails, error)
	open func(ctx context.Context, path string, baud int) (sensorlink.Link, error)
}

// New creates a serial port detector.
func New() detection.Detector {
	return &detector{
		list: enumerator.GetDetailedPortsList,
		open: func(ctx context.Context, path string, baud int) (sensorlink.Link, error) {
			cfg := uart.DefaultConfig()
			cfg.OpenRetries = 0
			if baud > 0 {
				cfg.BaudRate = baud
			}
			return uart.Open(ctx, path, cfg)
		},
	}
}

func init() {
	detection.RegisterDetector(New())
}

// Transport returns "uart".
func (*detector) Transport() string {
	return "uart"
}

// Detect lists serial ports and, when opts.Probe is set, keeps those whose
// board answers a version request.
func (d *detector) Detect(ctx context.Context, opts *detection.Options) ([]detection.DeviceInfo, error) {
	ports, err := d.list()
	if err != nil {
		return nil, fmt.Errorf("list serial ports: %w", err)
	}

	var devices []detection.DeviceInfo
	for _, port := range ports {
		if err := ctx.Err(); err != nil {
			return devices, err
		}
		info, ok := candidate(port, opts)
		if !ok {
			continue
		}
		if opts.Probe {
			version, err := d.probe(ctx, port.Name, opts)
			if err != nil {
				sensorlink.Debug("uart: probe failed", "port", port.Name, "err", err)
				continue
			}
			info.Version = version
			info.Probed = true
		}
		devices = append(devices, info)
	}
	return devices, nil
}

func candidate(port *enumerator.PortDetails, opts *detection.Options) (detection.DeviceInfo, bool) {
	if detection.IsPathIgnored(port.Name, opts.IgnorePaths) {
		return detection.DeviceInfo{}, false
	}
	info := detection.DeviceInfo{
		Transport:    "uart",
		Path:         port.Name,
		Name:         port.Product,
		Product:      port.Product,
		SerialNumber: port.SerialNumber,
	}
	if port.IsUSB {
		info.VIDPID = detection.ParseVIDPID(port.VID + ":" + port.PID)
		if detection.IsBlocked(info.VIDPID, opts.Blocklist) {
			return detection.DeviceInfo{}, false
		}
	}
	return info, true
}

func (d *detector) probe(ctx context.Context, path string, opts *detection.Options) (uint8, error) {
	link, err := d.open(ctx, path, opts.BaudRate)
	if err != nil {
		return 0, err
	}
	defer func() { _ = link.Close() }()
	return detection.Probe(ctx, link, opts.Codec, opts.Timeout, opts.Gap)
}
