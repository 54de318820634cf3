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

import "errors"

// Frame errors. A frame failing with any of these is discarded without an
// answer; the requester's timeout is the only recovery.
var (
	ErrShortFrame      = errors.New("short frame")
	ErrCRCMismatch     = errors.New("crc mismatch")
	ErrMalformedFrame  = errors.New("malformed frame")
	ErrFrameTooLarge   = errors.New("frame too large")
	ErrUnknownDatatype = errors.New("unknown datatype")
)

// Dispatcher outcomes, carried on the wire as a response status.
var (
	ErrRegisterNotImplemented = errors.New("register not implemented")
	ErrReadOnly               = errors.New("point is read-only")
	ErrWriteOnly              = errors.New("point is write-only")
	ErrUnknownCommand         = errors.New("unknown command")
)
