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


// Package pcsc relays the APDUs an emulated card receives to a real card
// behind a PC/SC reader. The PC/SC binding needs the pcsc build tag.
package pcsc

import (
	"context"
	"fmt"
	"io"
	"sync"

	nfcreader "github.com/ZaparooProject/go-nfcreader"
	"github.com/ZaparooProject/go-nfcreader/iso7816"
	"github.com/rs/zerolog"
)

// Card carries raw APDUs to the relayed card
type Card interface {
	Transmit(cmd []byte) ([]byte, error)
}

// Relay is an iso14443.APDUHandler answering with a real card
type Relay struct {
	card    Card
	closer  io.Closer
	client  *iso7816.Client
	logger  zerolog.Logger
	name    string
	count   int
	mu      sync.Mutex
	resolve bool
}

// Option configures a Relay
type Option func(*Relay)

// WithLogger sets the logger
func WithLogger(logger zerolog.Logger) Option {
	return func(r *Relay) { r.logger = logger }
}

// WithTransportStatus passes 61xx and 6Cxx answers to the reader instead
// of resolving them against the card first
func WithTransportStatus() Option {
	return func(r *Relay) { r.resolve = false }
}

// NewRelay relays to card. name identifies the card in logs and errors.
func NewRelay(card Card, name string, opts ...Option) *Relay {
	r := &Relay{
		card:    card,
		name:    name,
		logger:  zerolog.Nop(),
		resolve: true,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.client = iso7816.NewClient(iso7816.TransmitterFunc(r.transmit), iso7816.WithClientLogger(r.logger))
	return r
}

// Name returns the relayed card name
func (r *Relay) Name() string {
	return r.name
}

// Count returns the number of APDUs relayed so far
func (r *Relay) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

// HandleAPDU forwards capdu and returns the card answer. Unless
// WithTransportStatus is set, GET RESPONSE and Le correction rounds are run
// against the card so the reader gets the complete answer at once.
func (r *Relay) HandleAPDU(ctx context.Context, capdu []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("relay cancelled: %w", err)
	}
	r.mu.Lock()
	r.count++
	r.mu.Unlock()

	if !r.resolve {
		return r.transmit(capdu)
	}
	cmd, err := iso7816.ParseCommandAPDU(capdu)
	if err != nil {
		r.logger.Debug().Err(err).Hex("capdu", capdu).Msg("forwarding unparsed command")
		return r.transmit(capdu)
	}
	trace, err := r.client.Send(cmd)
	if err != nil {
		return nil, err
	}
	return trace.Response().Bytes(), nil
}

func (r *Relay) transmit(cmd []byte) ([]byte, error) {
	resp, err := r.card.Transmit(cmd)
	if err != nil {
		return nil, nfcreader.NewTransceiverError("Transmit", r.name,
			fmt.Errorf("%w: %w", nfcreader.ErrDeviceError, err), nfcreader.ErrorTypePermanent)
	}
	if len(resp) < 2 {
		return nil, fmt.Errorf("%w: %s answered % X", nfcreader.ErrMalformedFrame, r.name, resp)
	}
	r.logger.Debug().Hex("capdu", cmd).Hex("rapdu", resp).Msg("relayed")
	return resp, nil
}

// Close releases the relayed card when the relay owns it
func (r *Relay) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}
