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


// Package reader binds one transceiver to the protocol sessions: it
// activates ISO14443 cards, carries APDUs to them and opens ISO15693
// sessions.
package reader

import (
	"context"
	"errors"
	"fmt"
	"sync"

	nfcreader "github.com/ZaparooProject/go-nfcreader"
	"github.com/ZaparooProject/go-nfcreader/iso14443"
	"github.com/ZaparooProject/go-nfcreader/iso15693"
	"github.com/ZaparooProject/go-nfcreader/iso7816"
	"github.com/rs/zerolog"
)

// ErrNoCard is returned by APDU operations before a card is activated
var ErrNoCard = errors.New("no card activated")

// Reader drives one front-end. Its methods are safe for concurrent use but
// run one at a time.
type Reader struct {
	tr          nfcreader.Transceiver
	session     *iso14443.Session
	card        *Card
	retry       *nfcreader.RetryConfig
	logger      zerolog.Logger
	sessionOpts []iso14443.Option
	vicinOpts   []iso15693.Option
	activation  iso14443.ActivationOptions
	mu          sync.Mutex
	mode        nfcreader.Mode
	modeSet     bool
}

// New creates a reader over tr
func New(tr nfcreader.Transceiver, opts ...Option) (*Reader, error) {
	if tr == nil {
		return nil, fmt.Errorf("%w: nil transceiver", nfcreader.ErrInvalidParameter)
	}
	r := &Reader{
		tr:     tr,
		logger: zerolog.Nop(),
		retry:  nfcreader.DefaultRetryConfig(),
	}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Transceiver returns the underlying front-end
func (r *Reader) Transceiver() nfcreader.Transceiver {
	return r.tr
}

// Connect opens the front-end link, retrying transient failures, and
// switches the field on.
func (r *Reader) Connect(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	err := nfcreader.RetryWithConfig(ctx, r.retry, func() error {
		if err := r.tr.Connect(); err != nil {
			return nfcreader.NewDeviceUnavailableError("Connect", string(r.tr.Type()), err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	if err := r.tr.FieldOn(); err != nil {
		return fmt.Errorf("field on: %w", err)
	}
	r.logger.Info().Str("transceiver", string(r.tr.Type())).Msg("front-end connected")
	return nil
}

// PollA activates a Type A card: REQA, anticollision, RATS and PPS.
func (r *Reader) PollA(ctx context.Context) (*Card, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, err := r.prepare(nfcreader.ModeISO14443A)
	if err != nil {
		return nil, err
	}
	info, err := s.ActivateA(ctx, r.activation)
	if err != nil {
		return nil, fmt.Errorf("poll type A: %w", err)
	}
	r.session = s
	r.card = cardFromTypeA(info)
	r.logger.Info().Hex("uid", r.card.UID).Msg("type A card activated")
	return r.card, nil
}

// PollB activates a Type B card: REQB, ATTRIB, RATS and PPS.
func (r *Reader) PollB(ctx context.Context) (*Card, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, err := r.prepare(nfcreader.ModeISO14443B)
	if err != nil {
		return nil, err
	}
	info, err := s.ActivateB(ctx, r.activation)
	if err != nil {
		return nil, fmt.Errorf("poll type B: %w", err)
	}
	r.session = s
	r.card = cardFromTypeB(info)
	r.logger.Info().Hex("pupi", r.card.UID).Msg("type B card activated")
	return r.card, nil
}

// Poll activates a card of the given mode
func (r *Reader) Poll(ctx context.Context, mode nfcreader.Mode) (*Card, error) {
	switch mode {
	case nfcreader.ModeISO14443A:
		return r.PollA(ctx)
	case nfcreader.ModeISO14443B:
		return r.PollB(ctx)
	default:
		return nil, fmt.Errorf("%w: cannot poll %s cards", nfcreader.ErrInvalidParameter, mode)
	}
}

// prepare drops any previous card, power cycling the field so it falls
// back to IDLE, and creates a fresh session in mode.
func (r *Reader) prepare(mode nfcreader.Mode) (*iso14443.Session, error) {
	if r.session != nil {
		r.session, r.card = nil, nil
		if err := r.cycleField(); err != nil {
			return nil, err
		}
	}
	if err := r.setMode(mode); err != nil {
		return nil, err
	}
	opts := append([]iso14443.Option{iso14443.WithLogger(r.logger)}, r.sessionOpts...)
	s, err := iso14443.NewSession(r.tr, opts...)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return s, nil
}

func (r *Reader) cycleField() error {
	if err := r.tr.FieldOff(); err != nil {
		return fmt.Errorf("field off: %w", err)
	}
	if err := r.tr.FieldOn(); err != nil {
		return fmt.Errorf("field on: %w", err)
	}
	return nil
}

func (r *Reader) setMode(mode nfcreader.Mode) error {
	if r.modeSet && r.mode == mode {
		return nil
	}
	if ms, ok := r.tr.(nfcreader.ModeSetter); ok {
		if err := ms.SetMode(mode); err != nil {
			return fmt.Errorf("set mode %s: %w", mode, err)
		}
	}
	r.mode, r.modeSet = mode, true
	return nil
}

// Card returns the activated card, nil when there is none
func (r *Reader) Card() *Card {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.card
}

// SendAPDU exchanges one APDU with the activated card
func (r *Reader) SendAPDU(ctx context.Context, apdu []byte) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.session == nil {
		return nil, ErrNoCard
	}
	return r.session.SendAPDU(ctx, apdu)
}

// Client returns an APDU client bound to the activated card. It resolves
// 61xx and 6Cxx status words.
func (r *Reader) Client(ctx context.Context) (*iso7816.Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.session == nil {
		return nil, ErrNoCard
	}
	return iso7816.NewClient(&sessionTransmitter{r: r, ctx: ctx}, iso7816.WithClientLogger(r.logger)), nil
}

type sessionTransmitter struct {
	r   *Reader
	ctx context.Context
}

func (t *sessionTransmitter) Transmit(cmd []byte) ([]byte, error) {
	return t.r.SendAPDU(t.ctx, cmd)
}

// Release deselects the activated card. It is a no-op without one.
func (r *Reader) Release(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.session == nil {
		return nil
	}
	s := r.session
	r.session, r.card = nil, nil
	if err := s.Deselect(ctx); err != nil {
		return fmt.Errorf("release card: %w", err)
	}
	return nil
}

// Vicinity switches the front-end to ISO15693 and returns a session. Any
// activated ISO14443 card is dropped.
func (r *Reader) Vicinity() (*iso15693.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.session, r.card = nil, nil
	if err := r.setMode(nfcreader.ModeISO15693); err != nil {
		return nil, err
	}
	opts := append([]iso15693.Option{iso15693.WithLogger(r.logger)}, r.vicinOpts...)
	s, err := iso15693.NewSession(r.tr, opts...)
	if err != nil {
		return nil, fmt.Errorf("create vicinity session: %w", err)
	}
	return s, nil
}

// Close switches the field off and closes the front-end
func (r *Reader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.session, r.card = nil, nil
	if err := r.tr.FieldOff(); err != nil {
		r.logger.Debug().Err(err).Msg("field off before close")
	}
	if err := r.tr.Close(); err != nil {
		return fmt.Errorf("close transceiver: %w", err)
	}
	return nil
}
