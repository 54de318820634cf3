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

// Package sensor implements the sensor side of the protocol: a dispatcher
// that answers decoded requests from the register map, and a Node that
// reassembles frames from a link, serves them and acquires point values.
package sensor

import (
	sensorlink "github.com/ZaparooProject/go-sensorlink"
	"github.com/ZaparooProject/go-sensorlink/protocol"
	"github.com/ZaparooProject/go-sensorlink/regmap"
)

// Default server addresses answered on the server registers.
var (
	DefaultMainServer      = protocol.MakeServerAddr("1212121212121212")
	DefaultSecondaryServer = protocol.MakeServerAddr("aabbccddeeff1122")
)

// BoardState holds the board-level registers that are not part of the
// identity.
type BoardState struct {
	Status        uint8
	BatteryStatus uint8
	BatteryCharge uint8
	RadioStatus   uint8
	RadioStrength uint8
}

// Display receives display writes.
type Display interface {
	WriteLine(line uint8, text string)
}

// CommandHandler executes a board command and returns its status byte.
type CommandHandler func(cmd uint8) uint8

// stage is one step of the dispatch pipeline. ok reports whether it
// produced the response.
type stage func(d *Dispatcher, req protocol.Request) (resp protocol.Response, ok bool)

var pipeline = []stage{
	checkRange,
	handleWrite,
	handleRead,
	handleOther,
}

// Dispatcher turns a request into a response using the board identity and
// point table. It is not safe for concurrent use.
type Dispatcher struct {
	table   *regmap.Table
	display Display
	command CommandHandler
	board   protocol.BoardID
	servers [2]protocol.ServerAddr
	state   BoardState
}

// NewDispatcher creates a dispatcher serving db.
func NewDispatcher(db *regmap.Database) *Dispatcher {
	board := db.Board
	board.NumPoints = uint8(db.Table.Len())
	return &Dispatcher{
		table:   db.Table,
		board:   board,
		servers: [2]protocol.ServerAddr{DefaultMainServer, DefaultSecondaryServer},
		state:   BoardState{BatteryCharge: 100},
	}
}

// SetDisplay sets where display writes go.
func (d *Dispatcher) SetDisplay(display Display) { d.display = display }

// SetCommandHandler sets the board command handler.
func (d *Dispatcher) SetCommandHandler(h CommandHandler) { d.command = h }

// SetServers sets the main and secondary server addresses.
func (d *Dispatcher) SetServers(main, secondary protocol.ServerAddr) {
	d.servers = [2]protocol.ServerAddr{main, secondary}
}

// State returns the board-level register values.
func (d *Dispatcher) State() BoardState { return d.state }

// Board returns the identity answered on RegBoardID.
func (d *Dispatcher) Board() protocol.BoardID { return d.board }

// Table returns the served point table.
func (d *Dispatcher) Table() *regmap.Table { return d.table }

// Handle runs req through the pipeline; the first stage that answers wins.
func (d *Dispatcher) Handle(req protocol.Request) protocol.Response {
	for _, s := range pipeline {
		if resp, ok := s(d, req); ok {
			sensorlink.Debug("dispatch", "addr", req.Addr, "status", resp.Status)
			return resp
		}
	}
	sensorlink.Debug("dispatch: no handler", "addr", req.Addr)
	return protocol.Response{Addr: req.Addr, Status: protocol.StatusError}
}

func checkRange(d *Dispatcher, req protocol.Request) (protocol.Response, bool) {
	if d.table.Implements(req.Addr) {
		return protocol.Response{}, false
	}
	return protocol.Response{Addr: req.Addr, Status: protocol.StatusRegisterNotImplemented}, true
}

func handleWrite(d *Dispatcher, req protocol.Request) (protocol.Response, bool) {
	if req.Addr.Kind() != protocol.KindWritePoint {
		return protocol.Response{}, false
	}
	resp := protocol.Response{Addr: req.Addr, Status: protocol.StatusReadOnly}
	p, _ := d.table.Point(req.Addr.Point())
	if !p.Desc.Access.CanWrite() {
		return resp, true
	}
	if err := d.table.SetValue(req.Addr.Point(), req.Value); err != nil {
		sensorlink.Debug("dispatch: write rejected", "addr", req.Addr, "err", err)
		resp.Status = protocol.StatusError
		return resp, true
	}
	resp.Status = protocol.StatusOK
	return resp, true
}

func handleRead(d *Dispatcher, req protocol.Request) (protocol.Response, bool) {
	if req.Addr.Kind() != protocol.KindReadPoint {
		return protocol.Response{}, false
	}
	p, _ := d.table.Point(req.Addr.Point())
	if !p.Desc.Access.CanRead() {
		return protocol.Response{Addr: req.Addr, Status: protocol.StatusWriteOnly}, true
	}
	return protocol.Response{Addr: req.Addr, Status: protocol.StatusOK, Value: p.Value}, true
}

func handleOther(d *Dispatcher, req protocol.Request) (protocol.Response, bool) {
	resp := protocol.Response{Addr: req.Addr, Status: protocol.StatusOK}

	if req.Addr.Kind() == protocol.KindPointDesc {
		p, _ := d.table.Point(req.Addr.Point())
		resp.Desc = p.Desc
		return resp, true
	}

	switch req.Addr {
	case protocol.RegVersion:
		resp.Version = protocol.Version
	case protocol.RegBoardID:
		resp.Board = d.board
	case protocol.RegBoardStatus:
		resp.Arg = d.state.Status
	case protocol.RegBoardCommand:
		if d.command != nil {
			resp.Arg = d.command(req.Arg)
		}
	case protocol.RegReadBatteryStatus:
		resp.Arg = d.state.BatteryStatus
	case protocol.RegReadBatteryCharge:
		resp.Arg = d.state.BatteryCharge
	case protocol.RegWriteBatteryStatus:
		d.state.BatteryStatus = req.Arg
	case protocol.RegWriteBatteryCharge:
		d.state.BatteryCharge = req.Arg
	case protocol.RegRadioStatus:
		d.state.RadioStatus = req.Arg
	case protocol.RegRadioStrength:
		d.state.RadioStrength = req.Arg
	case protocol.RegDisplayWrite:
		if d.display != nil {
			d.display.WriteLine(req.Display.Line, req.Display.Text())
		}
	case protocol.RegServerMain:
		resp.Server = d.servers[0]
	case protocol.RegServerSecondary:
		resp.Server = d.servers[1]
	default:
		return protocol.Response{}, false
	}
	return resp, true
}
