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


package reader

import (
	"fmt"

	nfcreader "github.com/ZaparooProject/go-nfcreader"
	"github.com/ZaparooProject/go-nfcreader/internal/config"
	"github.com/ZaparooProject/go-nfcreader/iso14443"
	"github.com/ZaparooProject/go-nfcreader/iso15693"
	"github.com/rs/zerolog"
)

// Option is a functional option for configuring a Reader
type Option func(*Reader) error

// WithLogger sets the logger passed down to every session
func WithLogger(logger zerolog.Logger) Option {
	return func(r *Reader) error {
		r.logger = logger
		return nil
	}
}

// WithRetryConfig sets the retry policy used by Connect
func WithRetryConfig(cfg *nfcreader.RetryConfig) Option {
	return func(r *Reader) error {
		if cfg == nil {
			return fmt.Errorf("%w: nil retry config", nfcreader.ErrInvalidParameter)
		}
		r.retry = cfg
		return nil
	}
}

// WithSessionOptions adds options applied to every ISO14443 session
func WithSessionOptions(opts ...iso14443.Option) Option {
	return func(r *Reader) error {
		r.sessionOpts = append(r.sessionOpts, opts...)
		return nil
	}
}

// WithVicinityOptions adds options applied to every ISO15693 session
func WithVicinityOptions(opts ...iso15693.Option) Option {
	return func(r *Reader) error {
		r.vicinOpts = append(r.vicinOpts, opts...)
		return nil
	}
}

// WithActivation sets the RATS and PPS behavior of PollA and PollB
func WithActivation(opts iso14443.ActivationOptions) Option {
	return func(r *Reader) error {
		r.activation = opts
		return nil
	}
}

// WithConfig applies a loaded configuration file
func WithConfig(cfg config.Config) Option {
	return func(r *Reader) error {
		retry := cfg.Retry
		r.retry = &retry
		r.activation = cfg.Activation()
		r.sessionOpts = append(r.sessionOpts, iso14443.WithConfig(cfg.Session))
		return nil
	}
}
