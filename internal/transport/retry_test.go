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

package transport

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sensorlink "github.com/ZaparooProject/go-sensorlink"
)

var errBusy = errors.New("port busy")

func TestWithRetrySucceedsAfterRetries(t *testing.T) {
	t.Parallel()

	calls := 0
	var retried []int
	cfg := RetryConfig{
		Op:         "open",
		Port:       "/dev/ttyUSB0",
		MaxRetries: 3,
		OnRetry:    func(attempt int, _ error) { retried = append(retried, attempt) },
	}
	got, err := WithRetry(context.Background(), cfg, func() (string, bool, error) {
		calls++
		if calls < 3 {
			return "", true, errBusy
		}
		return "ok", false, nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, []int{1, 2}, retried)
}

func TestWithRetryExhausted(t *testing.T) {
	t.Parallel()

	calls := 0
	_, err := WithRetry(context.Background(), RetryConfig{Op: "open", Port: "p", MaxRetries: 2},
		func() (int, bool, error) {
			calls++
			return 0, true, errBusy
		})

	assert.Equal(t, 3, calls)
	require.ErrorIs(t, err, errBusy)
	assert.True(t, sensorlink.IsRetryable(err))

	var linkErr *sensorlink.LinkError
	require.ErrorAs(t, err, &linkErr)
	assert.Equal(t, "open", linkErr.Op)
}

func TestWithRetryPermanentError(t *testing.T) {
	t.Parallel()

	calls := 0
	_, err := WithRetry(context.Background(), RetryConfig{MaxRetries: 5}, func() (int, bool, error) {
		calls++
		return 0, false, errBusy
	})
	require.ErrorIs(t, err, errBusy)
	assert.Equal(t, 1, calls)
}

func TestWithRetryHonoursContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	_, err := WithRetry(ctx, RetryConfig{MaxRetries: 5, RetryDelay: time.Second}, func() (int, bool, error) {
		return 0, true, nil
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestTimeoutRetry(t *testing.T) {
	t.Parallel()

	calls := 0
	got, err := TimeoutRetry(context.Background(), time.Second, time.Millisecond, func() (int, bool, error) {
		calls++
		return calls, calls < 3, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, got)

	got, err = TimeoutRetry(context.Background(), 5*time.Millisecond, time.Millisecond, func() (int, bool, error) {
		return 7, true, nil
	})
	require.NoError(t, err)
	assert.Zero(t, got, "timeout yields the zero value")
}
