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


package iso7816

import (
	"fmt"

	nfcreader "github.com/ZaparooProject/go-nfcreader"
	"github.com/rs/zerolog"
)

// DefaultMaxRounds bounds the GET RESPONSE and Le correction rounds of
// one command.
const DefaultMaxRounds = 16

// Transmitter carries one command APDU to the card and returns the raw
// response APDU.
type Transmitter interface {
	Transmit(cmd []byte) ([]byte, error)
}

// TransmitterFunc adapts a function to Transmitter
type TransmitterFunc func(cmd []byte) ([]byte, error)

// Transmit implements Transmitter
func (f TransmitterFunc) Transmit(cmd []byte) ([]byte, error) {
	return f(cmd)
}

// Client sends commands and resolves the transport status words: 61xx
// fetches the remaining data with GET RESPONSE, 6Cxx sends the command
// again with the Le the card asked for.
type Client struct {
	card      Transmitter
	logger    zerolog.Logger
	maxRounds int
}

// ClientOption configures a Client
type ClientOption func(*Client)

// WithClientLogger sets the logger
func WithClientLogger(logger zerolog.Logger) ClientOption {
	return func(c *Client) { c.logger = logger }
}

// WithMaxRounds overrides DefaultMaxRounds
func WithMaxRounds(n int) ClientOption {
	return func(c *Client) {
		if n > 0 {
			c.maxRounds = n
		}
	}
}

// NewClient creates a client over card
func NewClient(card Transmitter, opts ...ClientOption) *Client {
	c := &Client{card: card, logger: zerolog.Nop(), maxRounds: DefaultMaxRounds}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Send runs cmd to completion and returns every transaction it took. The
// trace is returned alongside any error.
func (c *Client) Send(cmd *CommandAPDU) (Trace, error) {
	var trace Trace
	current := cmd
	for round := 0; round < c.maxRounds; round++ {
		resp, err := c.transmit(current)
		if err != nil {
			return trace, err
		}
		trace = append(trace, Transaction{Command: current, Response: resp})

		switch resp.Status.SW1() {
		case 0x61:
			current = GetResponse(cmd.CLA, int(resp.Status.SW2()))
		case 0x6C:
			retry := *current
			retry.Ne = int(resp.Status.SW2())
			if retry.Ne == 0 {
				retry.Ne = MaxShortLe
			}
			current = &retry
		default:
			return trace, nil
		}
		c.logger.Debug().Stringer("sw", resp.Status).Int("round", round+1).Msg("continuing APDU exchange")
	}
	return trace, fmt.Errorf("%w: no final status after %d rounds", nfcreader.ErrDeviceError, c.maxRounds)
}

// Exchange runs cmd and returns the merged response. A failing status
// word is returned as a *StatusError along with the response.
func (c *Client) Exchange(cmd *CommandAPDU) (*ResponseAPDU, error) {
	trace, err := c.Send(cmd)
	if err != nil {
		return nil, err
	}
	resp := trace.Response()
	return resp, resp.Status.Err()
}

// Select selects an application by AID and parses the returned FCI
func (c *Client) Select(aid []byte) (*FCI, error) {
	resp, err := c.Exchange(SelectAID(aid))
	if err != nil {
		return nil, fmt.Errorf("select %X: %w", aid, err)
	}
	if len(resp.Data) == 0 {
		return &FCI{}, nil
	}
	return ParseFCI(resp.Data)
}

func (c *Client) transmit(cmd *CommandAPDU) (*ResponseAPDU, error) {
	raw, err := cmd.Bytes()
	if err != nil {
		return nil, fmt.Errorf("encode APDU: %w", err)
	}
	c.logger.Debug().Hex("capdu", raw).Msg("transmit")

	rx, err := c.card.Transmit(raw)
	if err != nil {
		return nil, fmt.Errorf("transmit APDU: %w", err)
	}
	c.logger.Debug().Hex("rapdu", rx).Msg("receive")
	return ParseResponseAPDU(rx)
}
