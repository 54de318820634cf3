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

package detection

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sensorlink "github.com/ZaparooProject/go-sensorlink"
	testutil "github.com/ZaparooProject/go-sensorlink/internal/testing"
	"github.com/ZaparooProject/go-sensorlink/protocol"
)

const testGap = 5 * time.Millisecond

func TestProbeReadsVersion(t *testing.T) {
	t.Parallel()

	sensor := testutil.NewVirtualSensor(nil)
	version, err := Probe(context.Background(), sensor.Link(), nil, time.Second, testGap)
	require.NoError(t, err)
	assert.Equal(t, protocol.Version, version)
	assert.Equal(t, []protocol.Address{protocol.RegVersion}, sensor.Requests())
}

func TestProbeUsesBoardCRC(t *testing.T) {
	t.Parallel()

	xmodem := protocol.NewCodec(protocol.CRCXModem)

	tests := []struct {
		codec   *protocol.Codec
		wantErr error
		name    string
	}{
		{name: "matching crc", codec: xmodem},
		{name: "default crc", codec: nil, wantErr: sensorlink.ErrLinkTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			sensor := testutil.NewVirtualSensor(nil)
			sensor.SetCodec(xmodem)

			version, err := Probe(context.Background(), sensor.Link(), tt.codec, 50*time.Millisecond, testGap)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, protocol.Version, version)
		})
	}
}

func TestProbeSilentPeer(t *testing.T) {
	t.Parallel()

	_, err := Probe(context.Background(), sensorlink.NewMockLink(), nil, 30*time.Millisecond, testGap)
	require.ErrorIs(t, err, sensorlink.ErrLinkTimeout)
}

func TestProbeRejectsForeignAnswer(t *testing.T) {
	t.Parallel()

	link := sensorlink.NewMockLink()
	link.Responder = func([]byte) []byte { return []byte("AT+OK\r\n") }

	_, err := Probe(context.Background(), link, nil, time.Second, testGap)
	require.ErrorIs(t, err, ErrNotSensor)
}

func TestProbeRejectsWrongRegister(t *testing.T) {
	t.Parallel()

	sensor := testutil.NewVirtualSensor(nil)
	sensor.Rewrite(protocol.RegVersion, func(r protocol.Response) protocol.Response {
		r.Addr = protocol.RegBoardStatus
		r.Arg = 0
		return r
	})

	_, err := Probe(context.Background(), sensor.Link(), nil, time.Second, testGap)
	require.ErrorIs(t, err, ErrNotSensor)
}

func TestProbeClosedLink(t *testing.T) {
	t.Parallel()

	link := sensorlink.NewMockLink()
	require.NoError(t, link.Close())

	_, err := Probe(context.Background(), link, nil, time.Second, testGap)
	require.ErrorIs(t, err, sensorlink.ErrLinkClosed)
}

type fakeDetector struct {
	err     error
	name    string
	devices []DeviceInfo
}

func (f *fakeDetector) Transport() string { return f.name }

func (f *fakeDetector) Detect(context.Context, *Options) ([]DeviceInfo, error) {
	return f.devices, f.err
}

func TestDetectAll(t *testing.T) {
	t.Parallel()

	broken := errors.New("bus error")
	RegisterDetector(&fakeDetector{name: "b-fake", devices: []DeviceInfo{{Transport: "b-fake", Path: "/dev/b"}}})
	RegisterDetector(&fakeDetector{name: "a-fake", devices: []DeviceInfo{{Transport: "a-fake", Path: "/dev/a"}}})
	RegisterDetector(&fakeDetector{name: "c-none", err: ErrUnsupportedPlatform})
	RegisterDetector(&fakeDetector{name: "d-broken", err: broken})

	assert.Equal(t, []string{"a-fake", "b-fake", "c-none", "d-broken"}, Detectors())

	devices, err := DetectAll(context.Background(), nil)
	require.ErrorIs(t, err, broken)
	require.NotErrorIs(t, err, ErrUnsupportedPlatform)
	require.NotErrorIs(t, err, ErrNoDevicesFound)
	require.Len(t, devices, 2)
	assert.Equal(t, "/dev/a", devices[0].Path)
	assert.Equal(t, "/dev/b", devices[1].Path)
}
