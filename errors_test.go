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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsRetryable(t *testing.T) {
	t.Parallel()
	tests := getIsRetryableTestCases()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := IsRetryable(tt.err)
			if got != tt.want {
				t.Errorf("IsRetryable() = %v, want %v", got, tt.want)
			}
		})
	}
}

func getIsRetryableTestCases() []struct {
	err  error
	name string
	want bool
} {
	return []struct {
		err  error
		name string
		want bool
	}{
		{
			name: "nil error",
			err:  nil,
			want: false,
		},
		{
			name: "link timeout retryable",
			err:  ErrLinkTimeout,
			want: true,
		},
		{
			name: "link read retryable",
			err:  ErrLinkRead,
			want: true,
		},
		{
			name: "link write retryable",
			err:  ErrLinkWrite,
			want: true,
		},
		{
			name: "short write retryable",
			err:  ErrShortWrite,
			want: true,
		},
		{
			name: "closed link not retryable",
			err:  ErrLinkClosed,
			want: false,
		},
		{
			name: "device not found not retryable",
			err:  ErrDeviceNotFound,
			want: false,
		},
		{
			name: "invalid parameter not retryable",
			err:  ErrInvalidParameter,
			want: false,
		},
		{
			name: "transient link error retryable",
			err:  NewLinkError("write", "/dev/ttyUSB0", errors.New("EAGAIN"), ErrorTypeTransient),
			want: true,
		},
		{
			name: "wrapped timeout error retryable",
			err:  fmt.Errorf("poll: %w", NewTimeoutError("read", "mock")),
			want: true,
		},
		{
			name: "permanent link error not retryable",
			err:  NewClosedError("read", "mock"),
			want: false,
		},
		{
			name: "wrapped retryable error",
			err:  errors.New("outer: " + ErrLinkTimeout.Error()),
			want: false,
		},
	}
}

func TestGetErrorType(t *testing.T) {
	t.Parallel()

	assert.Equal(t, ErrorTypeTimeout, GetErrorType(ErrLinkTimeout))
	assert.Equal(t, ErrorTypeTimeout, GetErrorType(fmt.Errorf("x: %w", ErrLinkTimeout)))
	assert.Equal(t, ErrorTypeTransient, GetErrorType(ErrShortWrite))
	assert.Equal(t, ErrorTypePermanent, GetErrorType(ErrDeviceNotFound))
	assert.Equal(t, ErrorTypePermanent, GetErrorType(NewClosedError("write", "mock")))
}

func TestLinkErrorMessage(t *testing.T) {
	t.Parallel()

	err := NewLinkError("write", "/dev/ttyACM0", ErrShortWrite, ErrorTypeTransient)
	assert.Equal(t, "write /dev/ttyACM0: short write", err.Error())
	assert.ErrorIs(t, err, ErrShortWrite)

	err = NewLinkError("open", "", ErrDeviceNotFound, ErrorTypePermanent)
	assert.Equal(t, "open: device not found", err.Error())
	assert.False(t, err.Retryable)
}
