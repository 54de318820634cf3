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
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pointTypes is a TypeResolver backed by a slice.
type pointTypes []Datatype

func (p pointTypes) PointType(index int) (Datatype, bool) {
	if index < 0 || index >= len(p) {
		return 0, false
	}
	return p[index], true
}

func allTypes() pointTypes {
	types := make(pointTypes, NumDatatypes)
	for i := range types {
		types[i] = Datatype(i)
	}
	return types
}

func sampleValues() []Value {
	return []Value{
		Uint8Value(0xA5),
		Int8Value(-7),
		Uint16Value(0xBEEF),
		Int16Value(-300),
		Uint32Value(0xDEADBEEF),
		Int32Value(-100000),
		Uint64Value(math.MaxUint64 - 1),
		Int64Value(math.MinInt64),
		Float32Value(-12.75),
		Float64Value(math.Pi),
	}
}

func TestVersionFrameLayout(t *testing.T) {
	t.Parallel()

	req, err := PackRequest(Request{Addr: RegVersion})
	require.NoError(t, err)
	require.Len(t, req, 4)
	assert.Equal(t, byte(2), req[0])
	assert.Equal(t, byte(RegVersion), req[1])
	sum := NewCRC16(CRCX25).Checksum(req[:2])
	assert.Equal(t, []byte{byte(sum), byte(sum >> 8)}, req[2:])

	resp, err := PackResponse(Response{Addr: RegVersion, Status: StatusOK, Version: Version})
	require.NoError(t, err)
	require.Len(t, resp, 6)
	assert.Equal(t, []byte{4, byte(RegVersion), byte(StatusOK), Version}, resp[:4])
	sum = NewCRC16(CRCX25).Checksum(resp[:4])
	assert.Equal(t, []byte{byte(sum), byte(sum >> 8)}, resp[4:])
}

func TestFrameSizes(t *testing.T) {
	t.Parallel()

	types := allTypes()
	tests := []struct {
		name string
		req  Request
		resp Response
		reqN int
		resN int
	}{
		{name: "board id", req: Request{Addr: RegBoardID}, resp: Response{Addr: RegBoardID}, reqN: 4, resN: 28},
		{name: "board cmd", req: Request{Addr: RegBoardCommand, Arg: 1}, resp: Response{Addr: RegBoardCommand}, reqN: 5, resN: 6},
		{name: "battery write", req: Request{Addr: RegWriteBatteryCharge, Arg: 90}, resp: Response{Addr: RegWriteBatteryCharge}, reqN: 5, resN: 5},
		{name: "display", req: Request{Addr: RegDisplayWrite}, resp: Response{Addr: RegDisplayWrite}, reqN: 29, resN: 5},
		{name: "server", req: Request{Addr: RegServerMain}, resp: Response{Addr: RegServerMain}, reqN: 4, resN: 21},
		{name: "descriptor", req: Request{Addr: PointDescAddr(0)}, resp: Response{Addr: PointDescAddr(0)}, reqN: 4, resN: 20},
		{
			name: "read u32", req: Request{Addr: ReadPointAddr(4)},
			resp: Response{Addr: ReadPointAddr(4), Value: Uint32Value(1)}, reqN: 4, resN: 10,
		},
		{
			name: "write u32", req: Request{Addr: WritePointAddr(4), Value: Uint32Value(1)},
			resp: Response{Addr: WritePointAddr(4)}, reqN: 9, resN: 5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			req, err := PackRequest(tt.req)
			require.NoError(t, err)
			assert.Len(t, req, tt.reqN)

			resp, err := PackResponse(tt.resp)
			require.NoError(t, err)
			assert.Len(t, resp, tt.resN)
			assert.Equal(t, tt.resN, ResponseSize(tt.resp.Addr, types[TypeU32]))
		})
	}
}

func requestsForEveryAddress() []Request {
	var reqs []Request
	for a := RegVersion; a <= RegServerSecondary; a++ {
		req := Request{Addr: a}
		switch requestShape(a) {
		case shapeByte:
			req.Arg = 0x42 + uint8(a)
		case shapeDisplay:
			req.Display = NewDisplayLine(uint8(a), "line of text")
		default:
		}
		reqs = append(reqs, req)
	}
	for i := 0; i < MaxPoints; i++ {
		reqs = append(reqs, Request{Addr: PointDescAddr(i)}, Request{Addr: ReadPointAddr(i)})
	}
	for i, v := range sampleValues() {
		reqs = append(reqs, Request{Addr: WritePointAddr(i), Value: v})
	}
	return reqs
}

func responsesForEveryAddress() []Response {
	board := BoardID{
		Manufacturer: MakeName("TESLA"),
		Model:        MakeName("KL46Z"),
		SensorID:     0xDEADBEEF,
		HWRevision:   1,
		NumPoints:    5,
		Capabilities: CapAll,
	}
	var resps []Response
	for a := RegVersion; a <= RegServerSecondary; a++ {
		resp := Response{Addr: a, Status: StatusOK}
		switch responseShape(a) {
		case shapeByte:
			if a == RegVersion {
				resp.Version = Version
			} else {
				resp.Arg = 0x10 + uint8(a)
			}
		case shapeBoard:
			resp.Board = board
		case shapeServer:
			resp.Server = MakeServerAddr("aabbccddeeff1122")
		default:
		}
		resps = append(resps, resp)
	}
	for i := 0; i < NumDatatypes; i++ {
		resps = append(resps, Response{
			Addr:   PointDescAddr(i),
			Status: StatusOK,
			Desc: Descriptor{
				Name:     MakeName("PT"),
				Type:     Datatype(i),
				Unit:     uint8(i),
				Access:   AccessReadWrite,
				Sampling: uint32(i * 1000),
			},
		})
	}
	for i, v := range sampleValues() {
		resps = append(resps,
			Response{Addr: ReadPointAddr(i), Status: StatusOK, Value: v},
			Response{Addr: WritePointAddr(i), Status: StatusOK},
		)
	}
	for _, st := range []Status{StatusError, StatusReadOnly, StatusWriteOnly, StatusRegisterNotImplemented} {
		resps = append(resps, Response{Addr: ReadPointAddr(0), Status: st})
	}
	return resps
}

func TestRequestRoundTrip(t *testing.T) {
	t.Parallel()

	types := allTypes()
	for _, req := range requestsForEveryAddress() {
		frame, err := PackRequest(req)
		require.NoError(t, err, req.Addr.String())

		got, err := UnpackRequest(frame, types)
		require.NoError(t, err, req.Addr.String())
		assert.Equal(t, req, got, req.Addr.String())
	}
}

func TestResponseRoundTrip(t *testing.T) {
	t.Parallel()

	types := allTypes()
	for _, resp := range responsesForEveryAddress() {
		frame, err := PackResponse(resp)
		require.NoError(t, err, resp.Addr.String())

		got, err := UnpackResponse(frame, types)
		require.NoError(t, err, resp.Addr.String())
		assert.Equal(t, resp, got, resp.Addr.String())
	}
}

func TestCRCRejectsEveryBitFlip(t *testing.T) {
	t.Parallel()

	types := allTypes()
	for _, resp := range responsesForEveryAddress() {
		frame, err := PackResponse(resp)
		require.NoError(t, err)

		size := int(frame[0])
		for i := 1; i < size; i++ {
			for bit := 0; bit < 8; bit++ {
				corrupt := append([]byte(nil), frame...)
				corrupt[i] ^= 1 << bit
				_, err := UnpackResponse(corrupt, types)
				require.ErrorIs(t, err, ErrCRCMismatch, "%s byte %d bit %d", resp.Addr, i, bit)
			}
		}
	}

	for _, req := range requestsForEveryAddress() {
		frame, err := PackRequest(req)
		require.NoError(t, err)

		size := int(frame[0])
		for i := 1; i < size; i++ {
			for bit := 0; bit < 8; bit++ {
				corrupt := append([]byte(nil), frame...)
				corrupt[i] ^= 1 << bit
				_, err := UnpackRequest(corrupt, types)
				require.ErrorIs(t, err, ErrCRCMismatch, "%s byte %d bit %d", req.Addr, i, bit)
			}
		}
	}
}

func TestUnpackShortFrames(t *testing.T) {
	t.Parallel()

	frame, err := PackRequest(Request{Addr: RegBoardID})
	require.NoError(t, err)

	tests := []struct {
		name  string
		frame []byte
	}{
		{name: "empty", frame: nil},
		{name: "two bytes", frame: frame[:2]},
		{name: "missing crc byte", frame: frame[:3]},
		{name: "size below header", frame: []byte{1, 0, 0, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := UnpackRequest(tt.frame, nil)
			require.ErrorIs(t, err, ErrShortFrame)
		})
	}
}

func TestUnpackMalformedPayloads(t *testing.T) {
	t.Parallel()

	c := DefaultCodec()
	types := pointTypes{TypeU16}

	tests := []struct {
		name     string
		body     []byte
		response bool
	}{
		{name: "value tag differs from point type", body: []byte{0, byte(WritePointAddr(0)), byte(TypeU8), 1, 2}},
		{name: "value too short", body: []byte{0, byte(WritePointAddr(0)), byte(TypeU16), 1}},
		{name: "byte arg missing", body: []byte{0, byte(RegBoardCommand)}},
		{name: "payload on empty register", body: []byte{0, byte(RegBoardID), 9}},
		{name: "board id truncated", body: []byte{0, byte(RegBoardID), byte(StatusOK), 1, 2, 3}, response: true},
		{name: "payload with error status", body: []byte{0, byte(RegVersion), byte(StatusError), 1}, response: true},
		{
			name:     "descriptor with unknown datatype",
			body: append(append([]byte{0, byte(PointDescAddr(0)), byte(StatusOK)}, make([]byte, NameSize)...),
				0x7F, 0, byte(AccessRead), 0, 0, 0, 0),
			response: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			frame, err := c.seal(append([]byte(nil), tt.body...))
			require.NoError(t, err)
			if tt.response {
				_, err = c.UnpackResponse(frame, types)
			} else {
				_, err = c.UnpackRequest(frame, types)
			}
			require.ErrorIs(t, err, ErrMalformedFrame)
		})
	}
}

func TestUnpackUnknownPointKeepsRaw(t *testing.T) {
	t.Parallel()

	frame, err := PackRequest(Request{Addr: WritePointAddr(20), Value: Uint16Value(7)})
	require.NoError(t, err)

	req, err := UnpackRequest(frame, pointTypes{TypeU8})
	require.NoError(t, err)
	assert.Equal(t, WritePointAddr(20), req.Addr)
	assert.Equal(t, []byte{byte(TypeU16), 7, 0}, req.Raw)

	req, err = UnpackRequest([]byte{2, 0xF0}, nil)
	require.ErrorIs(t, err, ErrShortFrame)
	assert.Equal(t, Request{}, req)
}

func TestErrorStatusOmitsPayload(t *testing.T) {
	t.Parallel()

	frame, err := PackResponse(Response{
		Addr:   RegBoardID,
		Status: StatusRegisterNotImplemented,
		Board:  BoardID{NumPoints: 3},
	})
	require.NoError(t, err)
	assert.Len(t, frame, 5)
	assert.Equal(t, byte(3), frame[0])
}

func TestPackRejectsOversizedFrames(t *testing.T) {
	t.Parallel()

	_, err := PackRequest(Request{Addr: 0xF0, Raw: make([]byte, MaxFrameSize)})
	require.ErrorIs(t, err, ErrFrameTooLarge)

	_, err = PackRequest(Request{Addr: WritePointAddr(0), Value: Value{Type: 0x20}})
	require.ErrorIs(t, err, ErrUnknownDatatype)
}

func TestAlternateCRCCodec(t *testing.T) {
	t.Parallel()

	xmodem := NewCodec(CRCXModem)
	frame, err := xmodem.PackRequest(Request{Addr: RegBoardID})
	require.NoError(t, err)

	_, err = xmodem.UnpackRequest(frame, nil)
	require.NoError(t, err)
	_, err = UnpackRequest(frame, nil)
	require.ErrorIs(t, err, ErrCRCMismatch)
}

func TestDump(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "BRD_ID [4] 02 01 AA BB", Dump([]byte{2, 1, 0xAA, 0xBB}))
	assert.Equal(t, "[1] 02", Dump([]byte{2}))
}
