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

package iso14443

import (
	"context"
	"errors"
	"fmt"

	nfcreader "github.com/ZaparooProject/go-nfcreader"
	"github.com/ZaparooProject/go-nfcreader/internal/frame"
	"github.com/rs/zerolog"
)

// DefaultATS is answered to RATS when no other ATS is configured: FSCI 8,
// TA1 80, TB1 82, TC1 02 (CID supported), historical bytes 20 63 CB A3 A0.
var DefaultATS = []byte{0x0A, 0x78, 0x80, 0x82, 0x02, 0x20, 0x63, 0xCB, 0xA3, 0xA0}

// swUnknown is answered when the handler fails
var swUnknown = []byte{0x6F, 0x00}

// APDUHandler answers command APDUs received by an emulated card
type APDUHandler interface {
	HandleAPDU(ctx context.Context, capdu []byte) ([]byte, error)
}

// APDUHandlerFunc adapts a function to APDUHandler
type APDUHandlerFunc func(ctx context.Context, capdu []byte) ([]byte, error)

// HandleAPDU calls f
func (f APDUHandlerFunc) HandleAPDU(ctx context.Context, capdu []byte) ([]byte, error) {
	return f(ctx, capdu)
}

// CardEmulator answers reader-initiated frames as an ISO14443-4 card:
// RATS, I-blocks (reassembled and passed to the handler), R-blocks asking
// for the next chained block, and DESELECT.
type CardEmulator struct {
	em          nfcreader.Emulator
	handler     APDUHandler
	session     *Session
	reassembler *Reassembler
	logger      zerolog.Logger
	ats         []byte
	queue       []*TPDU
	lastBlock   byte
	atsSent     bool
}

// EmulatorOption configures a CardEmulator
type EmulatorOption func(*CardEmulator) error

// WithATS sets the ATS answered to RATS
func WithATS(ats []byte) EmulatorOption {
	return func(c *CardEmulator) error {
		if len(ats) == 0 || int(ats[0]) != len(ats) {
			return fmt.Errorf("%w: ATS length byte does not match %d bytes", nfcreader.ErrInvalidParameter, len(ats))
		}
		c.ats = append([]byte(nil), ats...)
		return nil
	}
}

// WithEmulatorLogger sets the emulator logger
func WithEmulatorLogger(logger zerolog.Logger) EmulatorOption {
	return func(c *CardEmulator) error {
		c.logger = logger
		c.session.logger = logger
		return nil
	}
}

// WithSessionOptions applies session options to the card side session
func WithSessionOptions(opts ...Option) EmulatorOption {
	return func(c *CardEmulator) error {
		for _, opt := range opts {
			if err := opt(c.session); err != nil {
				return err
			}
		}
		c.session.role = RolePICC
		c.session.ResetBlockNumber()
		return nil
	}
}

// NewCardEmulator creates an emulator answering through em
func NewCardEmulator(em nfcreader.Emulator, handler APDUHandler, opts ...EmulatorOption) (*CardEmulator, error) {
	if handler == nil {
		return nil, fmt.Errorf("%w: nil APDU handler", nfcreader.ErrInvalidParameter)
	}
	session, err := NewSession(nil, WithRole(RolePICC))
	if err != nil {
		return nil, err
	}

	c := &CardEmulator{
		em:      em,
		handler: handler,
		session: session,
		logger:  zerolog.Nop(),
		ats:     DefaultATS,
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	c.reassembler = NewReassembler(c.session.config.MaxResponseSize)
	return c, nil
}

// Run starts emulation and serves reader frames until ctx is done or the
// emulator reports an error.
func (c *CardEmulator) Run(ctx context.Context) error {
	if err := c.em.StartEmulation(); err != nil {
		return fmt.Errorf("start emulation: %w", err)
	}
	c.logger.Info().Msg("emulation started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		cmd, err := c.em.GetCommand()
		if err != nil {
			return fmt.Errorf("get command: %w", err)
		}

		resp, ok := c.Handle(ctx, cmd)
		if !ok {
			continue
		}
		c.logger.Debug().Hex("tx", resp).Msg("response")
		if err := c.em.SendResponse(resp, true); err != nil {
			return fmt.Errorf("send response: %w", err)
		}
	}
}

// Handle processes one reader event and returns the frame to answer, if
// any. The CRC is left to the transceiver.
func (c *CardEmulator) Handle(ctx context.Context, cmd *nfcreader.Command) ([]byte, bool) {
	switch cmd.Event {
	case nfcreader.FieldEventOn:
		c.logger.Info().Msg("field on")
		c.reset()
		return nil, false
	case nfcreader.FieldEventOff:
		c.logger.Info().Msg("field off")
		return nil, false
	case nfcreader.FieldEventNone:
	}

	data := cmd.Frame
	c.logger.Debug().Hex("rx", data).Msg("reader frame")
	if len(data) == 0 {
		return nil, false
	}

	if data[0] == frame.RATS && !c.atsSent {
		c.atsSent = true
		return append([]byte(nil), c.ats...), true
	}

	block, err := Decode(data)
	if err != nil {
		c.logger.Warn().Err(err).Hex("frame", data).Msg("dropping frame")
		return nil, false
	}

	switch block.Type() {
	case BlockR:
		return c.handleRBlock(block), true
	case BlockS:
		if block.IsDeselect() {
			c.logger.Info().Msg("deselected")
			c.reset()
			return (&TPDU{PCB: frame.PCBDeselect, CID: block.CID, HasCID: block.HasCID}).Encode(), true
		}
		return nil, false
	default:
		return c.handleIBlock(ctx, block)
	}
}

func (c *CardEmulator) handleRBlock(block *TPDU) []byte {
	if len(c.queue) > 0 {
		next := c.queue[0]
		c.queue = c.queue[1:]
		c.lastBlock = next.BlockNumber()
		return next.Encode()
	}
	ack := &TPDU{
		PCB:    frame.PCBRACK | c.lastBlock,
		CID:    block.CID,
		HasCID: block.HasCID,
	}
	return ack.Encode()
}

func (c *CardEmulator) handleIBlock(ctx context.Context, block *TPDU) ([]byte, bool) {
	c.session.config.CID, c.session.config.AddCID = block.CID, block.HasCID
	c.session.config.NAD, c.session.config.AddNAD = block.NAD, block.HasNAD
	c.session.syncBlockNumber(block.BlockNumber())
	c.lastBlock = block.BlockNumber()
	c.queue = nil

	done, err := c.reassembler.Add(block)
	if err != nil {
		c.logger.Warn().Err(err).Msg("dropping command")
		return nil, false
	}
	if !done {
		return c.session.RBlock(true, block.BlockNumber()).Encode(), true
	}

	capdu := c.reassembler.Take()
	rapdu, err := c.handler.HandleAPDU(ctx, capdu)
	if err != nil {
		c.logger.Error().Err(err).Hex("capdu", capdu).Msg("APDU handler failed")
		rapdu = swUnknown
	}
	c.logger.Info().Hex("capdu", capdu).Hex("rapdu", rapdu).Msg("APDU")

	blocks, err := c.session.Chain(rapdu)
	if err != nil {
		c.logger.Error().Err(err).Msg("chaining response")
		return nil, false
	}
	first := blocks[0]
	c.queue = blocks[1:]
	c.lastBlock = first.BlockNumber()
	return first.Encode(), true
}

func (c *CardEmulator) reset() {
	c.atsSent = false
	c.queue = nil
	c.reassembler.Reset()
	c.session.ResetBlockNumber()
}

// IsClosed reports whether err means the emulator stopped delivering frames
func IsClosed(err error) bool {
	return errors.Is(err, nfcreader.ErrTransceiverClosed)
}
