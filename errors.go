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

package sensorlink

import (
	"errors"
	"fmt"
)

// Link errors
var (
	ErrLinkClosed  = errors.New("link closed")
	ErrLinkTimeout = errors.New("link timeout")
	ErrLinkRead    = errors.New("link read failed")
	ErrLinkWrite   = errors.New("link write failed")
	ErrShortWrite  = errors.New("short write")
)

// Setup errors
var (
	ErrDeviceNotFound   = errors.New("device not found")
	ErrInvalidParameter = errors.New("invalid parameter")
)

// ErrorType classifies link failures for retry decisions
type ErrorType int

const (
	// ErrorTypePermanent failures will not go away by retrying
	ErrorTypePermanent ErrorType = iota
	// ErrorTypeTransient failures may succeed on the next attempt
	ErrorTypeTransient
	// ErrorTypeTimeout failures ran out of time and may be retried
	ErrorTypeTimeout
)

func (t ErrorType) String() string {
	switch t {
	case ErrorTypeTransient:
		return "transient"
	case ErrorTypeTimeout:
		return "timeout"
	default:
		return "permanent"
	}
}

// LinkError wraps a link failure with the operation and port it happened on
type LinkError struct {
	Err       error
	Op        string
	Port      string
	Type      ErrorType
	Retryable bool
}

func (e *LinkError) Error() string {
	if e.Port != "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Port, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *LinkError) Unwrap() error {
	return e.Err
}

// NewLinkError creates a link error; transient and timeout errors are retryable
func NewLinkError(op, port string, err error, errType ErrorType) *LinkError {
	return &LinkError{
		Op:        op,
		Port:      port,
		Err:       err,
		Type:      errType,
		Retryable: errType != ErrorTypePermanent,
	}
}

// NewTimeoutError creates a retryable timeout error
func NewTimeoutError(op, port string) *LinkError {
	return NewLinkError(op, port, ErrLinkTimeout, ErrorTypeTimeout)
}

// NewClosedError creates a permanent error for an operation on a closed link
func NewClosedError(op, port string) *LinkError {
	return NewLinkError(op, port, ErrLinkClosed, ErrorTypePermanent)
}

// IsRetryable reports whether err is worth another attempt
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var linkErr *LinkError
	if errors.As(err, &linkErr) {
		return linkErr.Retryable
	}

	switch err {
	case ErrLinkTimeout, ErrLinkRead, ErrLinkWrite, ErrShortWrite:
		return true
	default:
		return false
	}
}

// GetErrorType returns the classification of err
func GetErrorType(err error) ErrorType {
	var linkErr *LinkError
	if errors.As(err, &linkErr) {
		return linkErr.Type
	}

	switch {
	case errors.Is(err, ErrLinkTimeout):
		return ErrorTypeTimeout
	case errors.Is(err, ErrLinkRead), errors.Is(err, ErrLinkWrite), errors.Is(err, ErrShortWrite):
		return ErrorTypeTransient
	default:
		return ErrorTypePermanent
	}
}
