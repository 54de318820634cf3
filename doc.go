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

/*
Package sensorlink provides a pure Go implementation of the register-map
protocol spoken between a mote (the controller) and an embedded sensor
node over a byte-oriented link such as a serial port or an SPI bus.

A sensor exposes a flat one-byte register space: board-level singletons
(interface version, board identity, battery, radio, display, server
addresses) and three ranges of up to 32 per-point registers (descriptor,
value read, value write). The mote discovers the board, enumerates its
points and then polls them on a tick-driven schedule.

Features:
  - CRC16 protected frame codec with typed payloads (package protocol)
  - Sensor-side request dispatcher with access-rights enforcement (package sensor)
  - Mote-side table-driven polling state machine with timeout and retry (package polling)
  - Preemptive (goroutines and channels) and cooperative run modes
  - UART, SPI and in-memory loopback links
  - Prometheus metrics and structured debug logging

Basic Usage:

	import (
	    "github.com/ZaparooProject/go-sensorlink/polling"
	    "github.com/ZaparooProject/go-sensorlink/transport/uart"
	)

	link, err := uart.New("/dev/ttyUSB0")
	if err != nil {
	    log.Fatal(err)
	}
	defer link.Close()

	runner, err := polling.NewRunner(link,
	    polling.WithResponseTimeout(2*time.Second),
	    polling.OnUpdate(func(u polling.Update) {
	        fmt.Printf("%s = %s\n", u.Point.Desc.Name, u.Point.Value)
	    }))
	if err != nil {
	    log.Fatal(err)
	}
	if err := runner.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
	    log.Fatal(err)
	}

The root package holds what every side shares: the Link byte-stream
abstraction, the link error taxonomy, retry configuration and the debug
logger.
*/
package sensorlink
