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

	"github.com/snksoft/crc"
)

// Frame geometry.
const (
	MaxFrameSize = 64
	MinFrameSize = 3
	CRCSize      = 2

	requestHeaderSize  = 2
	responseHeaderSize = 3
)

// Request is a decoded mote-to-sensor frame. Which payload field is
// meaningful depends on Addr.
type Request struct {
	// Raw holds the undecoded payload of registers whose shape is unknown,
	// such as invalid addresses or points the resolver does not know.
	Raw []byte
	// Display is the payload of RegDisplayWrite.
	Display DisplayLine
	// Value is the payload of the WRITE_POINT_DATA range.
	Value Value
	Addr  Address
	// Arg is the single-byte argument of RegBoardCommand,
	// RegWriteBatteryStatus, RegWriteBatteryCharge, RegRadioStatus and
	// RegRadioStrength.
	Arg uint8
}

// Response is a decoded sensor-to-mote frame. Payload fields are only
// meaningful when Status is StatusOK.
type Response struct {
	Raw    []byte
	Board  BoardID
	Desc   Descriptor
	Value  Value
	Server ServerAddr
	Addr   Address
	Status Status
	// Version is the payload of RegVersion.
	Version uint8
	// Arg is the single-byte payload of RegBoardStatus, RegBoardCommand,
	// RegReadBatteryStatus and RegReadBatteryCharge.
	Arg uint8
}

// TypeResolver yields the datatype of a point so point-value payloads can
// be sized. regmap.Table implements it.
type TypeResolver interface {
	PointType(index int) (Datatype, bool)
}

type shape int

const (
	shapeEmpty shape = iota
	shapeByte
	shapeBoard
	shapeDisplay
	shapeServer
	shapeDesc
	shapeValue
	shapeRaw
)

func requestShape(a Address) shape {
	switch a.Kind() {
	case KindSingleton:
		switch a {
		case RegBoardCommand, RegWriteBatteryStatus, RegWriteBatteryCharge,
			RegRadioStatus, RegRadioStrength:
			return shapeByte
		case RegDisplayWrite:
			return shapeDisplay
		default:
			return shapeEmpty
		}
	case KindPointDesc, KindReadPoint:
		return shapeEmpty
	case KindWritePoint:
		return shapeValue
	default:
		return shapeRaw
	}
}

func responseShape(a Address) shape {
	switch a.Kind() {
	case KindSingleton:
		switch a {
		case RegVersion, RegBoardStatus, RegBoardCommand,
			RegReadBatteryStatus, RegReadBatteryCharge:
			return shapeByte
		case RegBoardID:
			return shapeBoard
		case RegServerMain, RegServerSecondary:
			return shapeServer
		default:
			return shapeEmpty
		}
	case KindPointDesc:
		return shapeDesc
	case KindReadPoint:
		return shapeValue
	case KindWritePoint:
		return shapeEmpty
	default:
		return shapeRaw
	}
}

// Codec packs and unpacks frames with a fixed CRC parameter set.
type Codec struct {
	crc *CRC16
}

// NewCodec returns a codec using the given CRC-16 parameters.
func NewCodec(params *crc.Parameters) *Codec {
	return &Codec{crc: NewCRC16(params)}
}

var defaultCodec = NewCodec(CRCX25)

// DefaultCodec returns the CRC-16/X-25 codec used by default.
func DefaultCodec() *Codec {
	return defaultCodec
}

// PackRequest encodes req with the default codec.
func PackRequest(req Request) ([]byte, error) {
	return defaultCodec.PackRequest(req)
}

// UnpackRequest decodes a request with the default codec.
func UnpackRequest(frame []byte, types TypeResolver) (Request, error) {
	return defaultCodec.UnpackRequest(frame, types)
}

// PackResponse encodes resp with the default codec.
func PackResponse(resp Response) ([]byte, error) {
	return defaultCodec.PackResponse(resp)
}

// UnpackResponse decodes a response with the default codec.
func UnpackResponse(frame []byte, types TypeResolver) (Response, error) {
	return defaultCodec.UnpackResponse(frame, types)
}

// PackRequest encodes req into a complete frame including the CRC.
func (c *Codec) PackRequest(req Request) ([]byte, error) {
	buf := make([]byte, 0, MaxFrameSize)
	buf = append(buf, 0, byte(req.Addr))

	var err error
	switch requestShape(req.Addr) {
	case shapeByte:
		buf = append(buf, req.Arg)
	case shapeDisplay:
		buf, err = req.Display.appendTo(buf)
	case shapeValue:
		if !req.Value.Type.Valid() {
			return nil, fmt.Errorf("pack %s: %w: %d", req.Addr, ErrUnknownDatatype, uint8(req.Value.Type))
		}
		buf = appendValue(buf, req.Value)
	case shapeRaw:
		buf = append(buf, req.Raw...)
	case shapeEmpty:
	default:
	}
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", req.Addr, err)
	}
	return c.seal(buf)
}

// PackResponse encodes resp into a complete frame. The payload is only
// emitted when the status is OK.
func (c *Codec) PackResponse(resp Response) ([]byte, error) {
	buf := make([]byte, 0, MaxFrameSize)
	buf = append(buf, 0, byte(resp.Addr), byte(resp.Status))
	if resp.Status != StatusOK {
		return c.seal(buf)
	}

	var err error
	switch responseShape(resp.Addr) {
	case shapeByte:
		if resp.Addr == RegVersion {
			buf = append(buf, resp.Version)
		} else {
			buf = append(buf, resp.Arg)
		}
	case shapeBoard:
		buf, err = resp.Board.appendTo(buf)
	case shapeServer:
		buf = append(buf, resp.Server[:]...)
	case shapeDesc:
		buf, err = resp.Desc.appendTo(buf)
	case shapeValue:
		if !resp.Value.Type.Valid() {
			return nil, fmt.Errorf("pack %s: %w: %d", resp.Addr, ErrUnknownDatatype, uint8(resp.Value.Type))
		}
		buf = appendValue(buf, resp.Value)
	case shapeRaw:
		buf = append(buf, resp.Raw...)
	case shapeEmpty:
	default:
	}
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", resp.Addr, err)
	}
	return c.seal(buf)
}

// UnpackRequest validates the CRC of frame and decodes it. Point-value
// payloads are sized through types; when types is nil or does not know the
// point, the payload is kept in Raw.
func (c *Codec) UnpackRequest(frame []byte, types TypeResolver) (Request, error) {
	body, err := c.open(frame, requestHeaderSize)
	if err != nil {
		return Request{}, err
	}
	req := Request{Addr: Address(body[1])}
	p := body[requestHeaderSize:]

	switch requestShape(req.Addr) {
	case shapeEmpty:
		err = expectSize(p, 0)
	case shapeByte:
		if err = expectSize(p, 1); err == nil {
			req.Arg = p[0]
		}
	case shapeDisplay:
		req.Display, err = decodeDisplayLine(p)
	case shapeValue:
		t, ok := resolve(types, req.Addr)
		if !ok {
			req.Raw = rawCopy(p)
			break
		}
		req.Value, err = decodeValue(p, t)
	default:
		req.Raw = rawCopy(p)
	}
	if err != nil {
		return Request{}, fmt.Errorf("unpack %s request: %w", req.Addr, err)
	}
	return req, nil
}

// UnpackResponse validates the CRC of frame and decodes it. A non-OK
// status must come without payload.
func (c *Codec) UnpackResponse(frame []byte, types TypeResolver) (Response, error) {
	body, err := c.open(frame, responseHeaderSize)
	if err != nil {
		return Response{}, err
	}
	resp := Response{Addr: Address(body[1]), Status: Status(body[2])}
	p := body[responseHeaderSize:]

	if resp.Status != StatusOK {
		if err := expectSize(p, 0); err != nil {
			return Response{}, fmt.Errorf("unpack %s response: %w", resp.Addr, err)
		}
		return resp, nil
	}

	switch responseShape(resp.Addr) {
	case shapeEmpty:
		err = expectSize(p, 0)
	case shapeByte:
		if err = expectSize(p, 1); err == nil {
			if resp.Addr == RegVersion {
				resp.Version = p[0]
			} else {
				resp.Arg = p[0]
			}
		}
	case shapeBoard:
		resp.Board, err = decodeBoardID(p)
	case shapeServer:
		if err = expectSize(p, ServerAddrSize); err == nil {
			copy(resp.Server[:], p)
		}
	case shapeDesc:
		resp.Desc, err = decodeDescriptor(p)
	case shapeValue:
		t, ok := resolve(types, resp.Addr)
		if !ok {
			resp.Raw = rawCopy(p)
			break
		}
		resp.Value, err = decodeValue(p, t)
	default:
		resp.Raw = rawCopy(p)
	}
	if err != nil {
		return Response{}, fmt.Errorf("unpack %s response: %w", resp.Addr, err)
	}
	return resp, nil
}

// seal backfills the size byte and appends the little-endian CRC.
func (c *Codec) seal(buf []byte) ([]byte, error) {
	if len(buf)+CRCSize > MaxFrameSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, len(buf)+CRCSize)
	}
	buf[0] = byte(len(buf))
	sum := c.crc.Checksum(buf)
	return append(buf, byte(sum), byte(sum>>8)), nil
}

// open checks the frame length and CRC and returns the bytes covered by
// the CRC.
func (c *Codec) open(frame []byte, headerSize int) ([]byte, error) {
	if len(frame) < MinFrameSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrShortFrame, len(frame))
	}
	size := int(frame[0])
	if size < headerSize || len(frame) < size+CRCSize {
		return nil, fmt.Errorf("%w: size %d, have %d bytes", ErrShortFrame, size, len(frame))
	}
	got := uint16(frame[size]) | uint16(frame[size+1])<<8
	if want := c.crc.Checksum(frame[:size]); got != want {
		return nil, fmt.Errorf("%w: got 0x%04X, want 0x%04X", ErrCRCMismatch, got, want)
	}
	return frame[:size], nil
}

func expectSize(p []byte, n int) error {
	if len(p) != n {
		return fmt.Errorf("%w: payload needs %d bytes, got %d", ErrMalformedFrame, n, len(p))
	}
	return nil
}

func resolve(types TypeResolver, a Address) (Datatype, bool) {
	if types == nil {
		return 0, false
	}
	return types.PointType(a.Point())
}

func rawCopy(p []byte) []byte {
	if len(p) == 0 {
		return nil
	}
	return append([]byte(nil), p...)
}

// ResponseSize returns the full frame length of an OK response to addr,
// given the datatype of the addressed point for point-value registers.
func ResponseSize(addr Address, t Datatype) int {
	n := responseHeaderSize + CRCSize
	switch responseShape(addr) {
	case shapeByte:
		n++
	case shapeBoard:
		n += BoardIDSize
	case shapeServer:
		n += ServerAddrSize
	case shapeDesc:
		n += DescriptorSize
	case shapeValue:
		n += 1 + t.Size()
	default:
	}
	return n
}
