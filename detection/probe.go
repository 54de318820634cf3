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
	"fmt"
	"time"

	sensorlink "github.com/ZaparooProject/go-sensorlink"
	"github.com/ZaparooProject/go-sensorlink/internal/frame"
	"github.com/ZaparooProject/go-sensorlink/protocol"
)

const probePoll = 10 * time.Millisecond

// Probe asks the board on link for its protocol version. codec must match
// the board's CRC; nil selects protocol.DefaultCodec. gap is the inter-byte
// silence that ends a frame; zero selects frame.DefaultGap.
func Probe(
	ctx context.Context, link sensorlink.Link, codec *protocol.Codec, timeout, gap time.Duration,
) (uint8, error) {
	if codec == nil {
		codec = protocol.DefaultCodec()
	}
	req, err := codec.PackRequest(protocol.Request{Addr: protocol.RegVersion})
	if err != nil {
		return 0, fmt.Errorf("pack version request: %w", err)
	}

	_ = link.ResetInput()
	if err := sensorlink.WriteFrame(link, req); err != nil {
		return 0, err
	}

	reader := frame.NewReader(link, gap)
	if err := reader.SetPollTimeout(probePoll); err != nil {
		return 0, err
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	for {
		select {
		case <-ctx.Done():
			if reader.Pending() > 0 {
				return 0, fmt.Errorf("%w: incomplete answer", ErrNotSensor)
			}
			return 0, sensorlink.NewTimeoutError("probe", string(link.Type()))
		default:
		}

		frm, err := reader.Poll()
		if err != nil {
			return 0, err
		}
		if frm == nil {
			continue
		}

		resp, err := codec.UnpackResponse(frm, nil)
		if err != nil {
			return 0, fmt.Errorf("%w: %w", ErrNotSensor, err)
		}
		if resp.Addr != protocol.RegVersion || resp.Status != protocol.StatusOK {
			return 0, fmt.Errorf("%w: answered %s with %s", ErrNotSensor, resp.Addr, resp.Status)
		}
		return resp.Version, nil
	}
}
