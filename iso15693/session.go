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

package iso15693

import (
	"context"
	"errors"
	"fmt"

	nfcreader "github.com/ZaparooProject/go-nfcreader"
	"github.com/rs/zerolog"
)

// DefaultRespLenHint is passed to the transceiver for every request
const DefaultRespLenHint = 16

// Session sends requests to vicinity tags through a transceiver already
// set to ISO15693 mode.
type Session struct {
	tr          nfcreader.TransceiverContext
	logger      zerolog.Logger
	respLenHint int
	crcTrailer  bool
}

// Option is a functional option for configuring a Session
type Option func(*Session) error

// WithLogger sets the session logger
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Session) error {
		s.logger = logger
		return nil
	}
}

// WithCRCTrailer makes the session strip a 2-byte CRC from every response,
// for transceivers that hand it back.
func WithCRCTrailer() Option {
	return func(s *Session) error {
		s.crcTrailer = true
		return nil
	}
}

// WithRespLenHint sets the response length hint given to the transceiver
func WithRespLenHint(n int) Option {
	return func(s *Session) error {
		if n < 0 {
			return fmt.Errorf("%w: response length hint %d", nfcreader.ErrInvalidParameter, n)
		}
		s.respLenHint = n
		return nil
	}
}

// NewSession creates a session over tr
func NewSession(tr nfcreader.Transceiver, opts ...Option) (*Session, error) {
	if tr == nil {
		return nil, fmt.Errorf("%w: nil transceiver", nfcreader.ErrInvalidParameter)
	}
	s := &Session{
		tr:          nfcreader.AsTransceiverContext(tr),
		logger:      zerolog.Nop(),
		respLenHint: DefaultRespLenHint,
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Transceive sends req and returns the raw response without CRC
func (s *Session) Transceive(ctx context.Context, req *Request) ([]byte, error) {
	tx := req.Bytes()
	s.logger.Debug().Str("command", req.Command.String()).Hex("tx", tx).Msg("request")

	rx, err := s.tr.WriteContext(ctx, tx, s.respLenHint, true)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", req.Command, err)
	}
	if s.crcTrailer && len(rx) >= 2 {
		rx = rx[:len(rx)-2]
	}
	s.logger.Debug().Hex("rx", rx).Msg("response")
	return rx, nil
}

// Do sends req and parses the response for its command. A tag error
// returns the Response with the *ResponseError.
func (s *Session) Do(ctx context.Context, req *Request) (*Response, error) {
	rx, err := s.Transceive(ctx, req)
	if err != nil {
		return nil, err
	}
	resp, err := ParseResponse(req, rx)
	if err != nil {
		var re *ResponseError
		if errors.As(err, &re) {
			s.logger.Warn().Uint8("code", re.Code).Str("message", re.Message()).Msg(req.Command.String())
		}
		return resp, err
	}
	return resp, nil
}

// Inventory runs a one slot inventory without AFI or mask
func (s *Session) Inventory(ctx context.Context) (*InventoryResponse, error) {
	return s.InventoryWith(ctx, DefaultInventoryFlags, nil, nil)
}

// InventoryWith runs an inventory with explicit flags, AFI and mask
func (s *Session) InventoryWith(ctx context.Context, flags byte, afi, mask []byte) (*InventoryResponse, error) {
	resp, err := s.Do(ctx, NewInventory(flags, afi, mask))
	if err != nil {
		return nil, err
	}
	s.logger.Info().Hex("uid", resp.Inventory.UID).Uint8("dsfid", resp.Inventory.DSFID).Msg("tag found")
	return resp.Inventory, nil
}

// StayQuiet sends the tag to the quiet state. The tag never answers, so a
// timeout is success.
func (s *Session) StayQuiet(ctx context.Context, uid []byte) error {
	req, err := NewStayQuiet(DefaultStayQuietFlags, uid)
	if err != nil {
		return err
	}
	if _, err := s.Transceive(ctx, req); err != nil &&
		!errors.Is(err, nfcreader.ErrTimeout) && !errors.Is(err, nfcreader.ErrNoResponse) {
		return err
	}
	return nil
}

// ReadSingleBlock reads one block with its security status. uid may be
// nil for a non-addressed request.
func (s *Session) ReadSingleBlock(ctx context.Context, uid []byte, block byte) (*BlockData, error) {
	req, err := NewReadSingleBlock(DefaultReadFlags, uid, block)
	if err != nil {
		return nil, err
	}
	resp, err := s.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	return resp.Block, nil
}

// WriteSingleBlock writes one block
func (s *Session) WriteSingleBlock(ctx context.Context, uid []byte, block byte, data []byte) error {
	req, err := NewWriteSingleBlock(DefaultWriteFlags, uid, block, data)
	if err != nil {
		return err
	}
	_, err = s.Do(ctx, req)
	return err
}

// ReadMultipleBlocks reads count+1 blocks starting at first
func (s *Session) ReadMultipleBlocks(ctx context.Context, uid []byte, first, count byte) ([]BlockData, error) {
	req, err := NewReadMultipleBlocks(DefaultReadFlags, uid, first, count)
	if err != nil {
		return nil, err
	}
	resp, err := s.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	return resp.Blocks, nil
}

// WriteMultipleBlocks writes count+1 blocks starting at first
func (s *Session) WriteMultipleBlocks(ctx context.Context, uid []byte, first, count byte, data []byte) error {
	req, err := NewWriteMultipleBlocks(DefaultWriteMultipleFlags, uid, first, count, data)
	if err != nil {
		return err
	}
	_, err = s.Do(ctx, req)
	return err
}

// Select puts the tag with uid in the selected state
func (s *Session) Select(ctx context.Context, uid []byte) error {
	req, err := NewSelect(DefaultSelectFlags, uid)
	if err != nil {
		return err
	}
	_, err = s.Do(ctx, req)
	return err
}

// ResetToReady returns the tag to the ready state
func (s *Session) ResetToReady(ctx context.Context, uid []byte) error {
	req, err := NewResetToReady(DefaultResetToReadyFlags, uid)
	if err != nil {
		return err
	}
	_, err = s.Do(ctx, req)
	return err
}

// GetSystemInfo reads the tag system information
func (s *Session) GetSystemInfo(ctx context.Context, uid []byte) (*SystemInfo, error) {
	req, err := NewGetSystemInfo(DefaultSystemInfoFlags, uid)
	if err != nil {
		return nil, err
	}
	resp, err := s.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	info := resp.SystemInfo
	s.logger.Info().
		Hex("uid", info.UID).
		Int("blocks", info.BlockCount).
		Int("block_size", info.BlockSize).
		Str("manufacturer", info.Manufacturer()).
		Msg("system information")
	return info, nil
}

// GetMultipleBlockSecurityStatus returns the security status of count+1
// blocks starting at first
func (s *Session) GetMultipleBlockSecurityStatus(ctx context.Context, uid []byte, first, count byte) ([]byte, error) {
	req, err := NewGetMultipleBlockSecurityStatus(DefaultSecurityStatusFlags, uid, first, count)
	if err != nil {
		return nil, err
	}
	resp, err := s.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	return resp.SecurityStatus, nil
}
