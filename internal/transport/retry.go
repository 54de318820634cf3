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

// Package transport provides internal transport utilities
package transport

import (
	"context"
	"time"

	sensorlink "github.com/ZaparooProject/go-sensorlink"
)

// RetryOperation represents a function that can be retried
// Returns: data, shouldRetry, error
// - data: the result if successful
// - shouldRetry: true if the operation should be retried; a non-nil error
//   is then kept as the cause reported once retries run out
// - error: any permanent error that should stop retries
type RetryOperation[T any] func() (T, bool, error)

// RetryConfig configures retry behavior
type RetryConfig struct {
	OnRetry    func(attempt int, cause error)
	Op         string
	Port       string
	MaxRetries int
	RetryDelay time.Duration
}

// WithRetry executes an operation with retry logic, sleeping RetryDelay
// between attempts unless ctx is done first
func WithRetry[T any](ctx context.Context, config RetryConfig, operation RetryOperation[T]) (T, error) {
	var (
		zero  T
		cause error
	)

	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		result, shouldRetry, err := operation()
		if !shouldRetry {
			if err != nil {
				return zero, err
			}
			return result, nil
		}
		cause = err

		// If we should retry but we're at max attempts, break
		if attempt >= config.MaxRetries {
			break
		}

		if config.OnRetry != nil {
			config.OnRetry(attempt+1, cause)
		}

		if err := sleep(ctx, config.RetryDelay); err != nil {
			return zero, err
		}
	}

	return zero, retriesExhausted(config, cause)
}

// retriesExhausted builds the error returned once every attempt failed
func retriesExhausted(config RetryConfig, cause error) error {
	if cause == nil {
		cause = sensorlink.ErrLinkTimeout
	}
	return sensorlink.NewLinkError(config.Op, config.Port, cause, sensorlink.ErrorTypeTransient)
}

// TimeoutRetry executes an operation until it stops asking for a retry. Once
// timeout elapses it gives up with the zero value and no error, which is how
// links report that nothing arrived. Common pattern for polling a device
// until it has data
func TimeoutRetry[T any](ctx context.Context, timeout, interval time.Duration, operation RetryOperation[T]) (T, error) {
	var zero T
	deadline := time.Now().Add(timeout)

	for {
		result, shouldRetry, err := operation()
		if !shouldRetry {
			return result, err
		}
		if !time.Now().Before(deadline) {
			return zero, nil
		}
		if err := sleep(ctx, interval); err != nil {
			return zero, err
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
