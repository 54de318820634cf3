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
	"context"
	"math/rand"
	"time"
)

// RetryConfig configures retry behavior
type RetryConfig struct {
	MaxAttempts       int
	InitialBackoff    time.Duration
	MaxBackoff        time.Duration
	BackoffMultiplier float64
	Jitter            float64
	RetryTimeout      time.Duration
}

// DefaultRetryConfig returns the retry configuration used by links
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxAttempts:       3,
		InitialBackoff:    10 * time.Millisecond,
		MaxBackoff:        200 * time.Millisecond,
		BackoffMultiplier: 2.0,
		Jitter:            0.1,
		RetryTimeout:      2 * time.Second,
	}
}

// RetryWithConfig runs fn until it succeeds, fails with a non-retryable
// error, runs out of attempts or ctx is done
func RetryWithConfig(ctx context.Context, config *RetryConfig, fn func() error) error {
	if config == nil {
		config = DefaultRetryConfig()
	}
	if config.RetryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, config.RetryTimeout)
		defer cancel()
	}

	backoff := config.InitialBackoff
	var err error
	for attempt := 0; ; attempt++ {
		err = fn()
		if err == nil || !IsRetryable(err) {
			return err
		}
		if attempt+1 >= config.MaxAttempts {
			return err
		}

		debugf("retry %d/%d after: %v", attempt+1, config.MaxAttempts, err)

		select {
		case <-ctx.Done():
			return err
		case <-time.After(jittered(backoff, config.Jitter)):
		}

		backoff = nextBackoff(backoff, config)
	}
}

func nextBackoff(current time.Duration, config *RetryConfig) time.Duration {
	if config.BackoffMultiplier > 1 {
		current = time.Duration(float64(current) * config.BackoffMultiplier)
	}
	if config.MaxBackoff > 0 && current > config.MaxBackoff {
		current = config.MaxBackoff
	}
	return current
}

func jittered(d time.Duration, jitter float64) time.Duration {
	if d <= 0 || jitter <= 0 {
		return max(d, 0)
	}
	if jitter > 1 {
		jitter = 1
	}
	//nolint:gosec // jitter does not need a cryptographic source
	delta := (rand.Float64()*2 - 1) * jitter * float64(d)
	return max(d+time.Duration(delta), 0)
}
