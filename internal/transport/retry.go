// go-nfcreader
// Copyright (c) 2025 The Zaparoo Project Contributors.
// SPDX-License-Identifier: LGPL-3.0-or-later
//
// This file is part of go-nfcreader.
//
// go-nfcreader is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 3 of the License, or (at your option) any later version.
//
// go-nfcreader is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with go-nfcreader; if not, write to the Free Software Foundation,
// Inc., 51 Franklin Street, Fifth Floor, Boston, MA  02110-1301, USA.

// Package transport provides helpers shared by the front-end drivers
package transport

import (
	"context"
	"time"

	nfcreader "github.com/ZaparooProject/go-nfcreader"
)

// RetryOperation is one attempt of a retried operation. It returns the
// result, whether another attempt is wanted, and an error that stops the
// loop at once.
type RetryOperation[T any] func() (T, bool, error)

// RetryConfig configures WithRetry
type RetryConfig struct {
	// OnRetry runs before every new attempt, e.g. to flush a port.
	OnRetry func() error
	// OnRetryFailed runs once the attempts are exhausted; its error, if
	// any, replaces the default one.
	OnRetryFailed func() error
	Description   string
	Device        string
	MaxRetries    int
	RetryDelay    time.Duration
}

// WithRetry runs operation until it stops asking for a retry, fails, ctx is
// done or MaxRetries extra attempts have been made. Drivers use it for
// handshake loops such as entering binary mode.
func WithRetry[T any](ctx context.Context, config RetryConfig, operation RetryOperation[T]) (T, error) {
	var zero T

	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		result, shouldRetry, err := operation()
		if err != nil {
			return zero, err
		}
		if !shouldRetry {
			return result, nil
		}
		if attempt >= config.MaxRetries {
			break
		}

		if config.OnRetry != nil {
			if err := config.OnRetry(); err != nil {
				return zero, err
			}
		}
		if config.RetryDelay > 0 {
			select {
			case <-ctx.Done():
				return zero, ctx.Err()
			case <-time.After(config.RetryDelay):
			}
		}
	}

	return exhausted[T](config)
}

func exhausted[T any](config RetryConfig) (T, error) {
	var zero T

	if config.OnRetryFailed != nil {
		if err := config.OnRetryFailed(); err != nil {
			return zero, err
		}
	}

	op := config.Description
	if op == "" {
		op = "retry"
	}
	return zero, nfcreader.NewTransceiverError(op, config.Device, nfcreader.ErrNoResponse, nfcreader.ErrorTypeTransient)
}

// UntilDeadline repeats operation until it stops asking for a retry or
// timeout elapses. It polls every interval.
func UntilDeadline[T any](timeout, interval time.Duration, operation RetryOperation[T]) (T, error) {
	var zero T
	deadline := time.Now().Add(timeout)

	for time.Now().Before(deadline) {
		result, shouldRetry, err := operation()
		if err != nil {
			return zero, err
		}
		if !shouldRetry {
			return result, nil
		}
		time.Sleep(interval)
	}

	return zero, nfcreader.NewTimeoutError("wait", "")
}
