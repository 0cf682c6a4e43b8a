//go:build pcsc

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


package pcsc

import (
	"errors"
	"fmt"
	"strings"

	nfcreader "github.com/ZaparooProject/go-nfcreader"
	"github.com/ebfe/scard"
)

type scardCard struct {
	ctx  *scard.Context
	card *scard.Card
}

func (c *scardCard) Transmit(cmd []byte) ([]byte, error) {
	resp, err := c.card.Transmit(cmd)
	if err != nil {
		return nil, fmt.Errorf("scard transmit: %w", err)
	}
	return resp, nil
}

func (c *scardCard) Close() error {
	return errors.Join(c.card.Disconnect(scard.LeaveCard), c.ctx.Release())
}

// Open connects to the card in the first reader whose name contains
// reader, or the first reader when reader is empty
func Open(reader string, opts ...Option) (*Relay, error) {
	ctx, err := scard.EstablishContext()
	if err != nil {
		return nil, nfcreader.NewDeviceUnavailableError("EstablishContext", "pcsc", err)
	}

	readers, err := ctx.ListReaders()
	if err != nil {
		_ = ctx.Release()
		return nil, nfcreader.NewDeviceUnavailableError("ListReaders", "pcsc", err)
	}
	name := ""
	for _, r := range readers {
		if strings.Contains(r, reader) {
			name = r
			break
		}
	}
	if name == "" {
		_ = ctx.Release()
		return nil, fmt.Errorf("%w: no PC/SC reader matching %q among %q", nfcreader.ErrDeviceUnavailable, reader, readers)
	}

	card, err := ctx.Connect(name, scard.ShareShared, scard.ProtocolT0|scard.ProtocolT1)
	if err != nil {
		_ = ctx.Release()
		return nil, nfcreader.NewDeviceUnavailableError("Connect", name, err)
	}

	sc := &scardCard{ctx: ctx, card: card}
	r := NewRelay(sc, name, opts...)
	r.closer = sc
	r.logger.Info().Str("reader", name).Msg("relaying to PC/SC card")
	return r, nil
}
