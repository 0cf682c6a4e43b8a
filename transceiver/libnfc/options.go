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


// Package libnfc drives any reader supported by libnfc in raw initiator
// mode. The cgo binding is only compiled with the libnfc build tag; without
// it New reports nfcreader.ErrNotSupported.
package libnfc

import (
	"fmt"
	"time"

	nfcreader "github.com/ZaparooProject/go-nfcreader"
	"github.com/rs/zerolog"
)

// DefaultTimeout bounds the wait for a card answer
const DefaultTimeout = 500 * time.Millisecond

// rxBufSize holds the largest ISO14443 frame plus CRC
const rxBufSize = 264

type settings struct {
	logger  zerolog.Logger
	timeout time.Duration
}

// Option configures the driver
type Option func(*settings) error

// WithLogger sets the logger
func WithLogger(logger zerolog.Logger) Option {
	return func(s *settings) error {
		s.logger = logger
		return nil
	}
}

// WithTimeout overrides DefaultTimeout. libnfc counts in milliseconds, so
// shorter values are rejected.
func WithTimeout(d time.Duration) Option {
	return func(s *settings) error {
		if d < time.Millisecond {
			return fmt.Errorf("%w: timeout %s", nfcreader.ErrInvalidParameter, d)
		}
		s.timeout = d
		return nil
	}
}

func newSettings(opts []Option) (settings, error) {
	s := settings{
		logger:  zerolog.Nop(),
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		if err := opt(&s); err != nil {
			return settings{}, err
		}
	}
	return s, nil
}
