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

// Package testing provides a virtual sensor for exercising the mote side
// without hardware.
package testing

import (
	"sync"

	sensorlink "github.com/ZaparooProject/go-sensorlink"
	"github.com/ZaparooProject/go-sensorlink/protocol"
	"github.com/ZaparooProject/go-sensorlink/regmap"
	"github.com/ZaparooProject/go-sensorlink/sensor"
)

// VirtualSensor answers request frames with a real dispatcher. Answers can
// be dropped or rewritten per address to simulate a misbehaving board.
type VirtualSensor struct {
	DB         *regmap.Database
	dispatcher *sensor.Dispatcher
	codec      *protocol.Codec
	drops      map[protocol.Address]int
	rewrites   map[protocol.Address]func(protocol.Response) protocol.Response
	raw        map[protocol.Address][]byte
	requests   []protocol.Request
	mu         sync.Mutex
}

// NewVirtualSensor creates a sensor serving db. A nil db serves
// regmap.Sample().
func NewVirtualSensor(db *regmap.Database) *VirtualSensor {
	if db == nil {
		db = regmap.Sample()
	}
	return &VirtualSensor{
		DB:         db,
		dispatcher: sensor.NewDispatcher(db),
		codec:      protocol.DefaultCodec(),
		drops:      make(map[protocol.Address]int),
		rewrites:   make(map[protocol.Address]func(protocol.Response) protocol.Response),
		raw:        make(map[protocol.Address][]byte),
	}
}

// SetCodec makes the sensor frame with codec, e.g. to emulate a board
// built with another CRC.
func (v *VirtualSensor) SetCodec(codec *protocol.Codec) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.codec = codec
}

// Link returns a mock link wired to the sensor.
func (v *VirtualSensor) Link() *sensorlink.MockLink {
	link := sensorlink.NewMockLink()
	link.Responder = v.Respond
	return link
}

// Respond turns one request frame into the answer bytes, or nil when the
// request is dropped or undecodable.
func (v *VirtualSensor) Respond(frm []byte) []byte {
	v.mu.Lock()
	defer v.mu.Unlock()

	req, err := v.codec.UnpackRequest(frm, v.DB.Table)
	if err != nil {
		return nil
	}
	v.requests = append(v.requests, req)

	if n := v.drops[req.Addr]; n > 0 {
		v.drops[req.Addr] = n - 1
		return nil
	}
	if out, ok := v.raw[req.Addr]; ok {
		return append([]byte(nil), out...)
	}

	resp := v.dispatcher.Handle(req)
	if fn, ok := v.rewrites[req.Addr]; ok {
		resp = fn(resp)
	}
	out, err := v.codec.PackResponse(resp)
	if err != nil {
		return nil
	}
	return out
}

// Drop swallows the next n requests to addr.
func (v *VirtualSensor) Drop(addr protocol.Address, n int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.drops[addr] = n
}

// Rewrite alters every answer to addr.
func (v *VirtualSensor) Rewrite(addr protocol.Address, fn func(protocol.Response) protocol.Response) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.rewrites[addr] = fn
}

// AnswerRaw answers every request to addr with frm as is.
func (v *VirtualSensor) AnswerRaw(addr protocol.Address, frm []byte) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.raw[addr] = append([]byte(nil), frm...)
}

// Requests returns the addresses of every decoded request, in order.
func (v *VirtualSensor) Requests() []protocol.Address {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]protocol.Address, len(v.requests))
	for i, r := range v.requests {
		out[i] = r.Addr
	}
	return out
}

// Point returns the sensor-side slot at index.
func (v *VirtualSensor) Point(index int) (regmap.Point, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.DB.Table.Point(index)
}

// SetValue changes a sensor-side value.
func (v *VirtualSensor) SetValue(index int, val protocol.Value) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.DB.Table.SetValue(index, val)
}
