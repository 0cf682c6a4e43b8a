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
	"fmt"

	nfcreader "github.com/ZaparooProject/go-nfcreader"
)

// exchange sends one block and decodes the answer
func (s *Session) exchange(ctx context.Context, block *TPDU) (*TPDU, error) {
	tx := block.Encode()
	s.logger.Debug().Str("block", block.Type().String()).Hex("tx", tx).Msg("send block")

	rx, err := s.write(ctx, tx, s.config.RespLenHint, true)
	if err != nil {
		return nil, fmt.Errorf("%s-block exchange: %w", block.Type(), err)
	}
	s.logger.Debug().Hex("rx", rx).Msg("received block")

	resp, err := Decode(rx)
	if err != nil {
		return nil, fmt.Errorf("%s-block response: %w", block.Type(), err)
	}
	return resp, nil
}

// answerWTX acknowledges S(WTX) requests until the card sends something
// else, at most MaxWTX times.
func (s *Session) answerWTX(ctx context.Context, resp *TPDU) (*TPDU, error) {
	for n := 0; resp.IsWTX(); n++ {
		if n >= s.config.MaxWTX {
			return nil, fmt.Errorf("%w: %d requests", nfcreader.ErrWTXLimit, n)
		}
		s.logger.Debug().Uint8("wtxm", resp.WTXM()).Msg("waiting time extension")

		var err error
		resp, err = s.exchange(ctx, resp.WTXReply())
		if err != nil {
			return nil, err
		}
	}
	return resp, nil
}

// SendAPDU sends apdu as a chain of I-blocks and returns the reassembled
// response. Only the answer to the last block is inspected. WTX requests
// are acknowledged and chained responses are pulled with R(ACK).
func (s *Session) SendAPDU(ctx context.Context, apdu []byte) ([]byte, error) {
	chunks, err := Fragment(apdu, s.blockSize())
	if err != nil {
		return nil, err
	}
	if len(chunks) > 1 {
		s.logger.Debug().Int("blocks", len(chunks)).Msg("block chaining")
	}
	s.logger.Info().Hex("capdu", apdu).Msg("APDU command")

	// The block number is taken only when a block goes out, so a failed
	// exchange leaves the toggle on the last block the card saw.
	var resp *TPDU
	for i, chunk := range chunks {
		if resp, err = s.exchange(ctx, s.IBlock(chunk, i < len(chunks)-1)); err != nil {
			return nil, err
		}
	}

	reassembler := NewReassembler(s.config.MaxResponseSize)
	for {
		if resp, err = s.answerWTX(ctx, resp); err != nil {
			return nil, err
		}

		var done bool
		if done, err = reassembler.Add(resp); err != nil {
			return nil, err
		}
		if done {
			break
		}

		if resp, err = s.exchange(ctx, s.RBlock(true, resp.BlockNumber()^1)); err != nil {
			return nil, err
		}
	}

	rapdu := reassembler.Take()
	s.logger.Info().Hex("rapdu", rapdu).Msg("APDU response")
	return rapdu, nil
}

// Transmit implements iso7816.Transmitter so an activated card can be
// driven by an APDU client.
func (s *Session) Transmit(cmd []byte) ([]byte, error) {
	return s.SendAPDU(context.Background(), cmd)
}

// Deselect sends S(DESELECT) and waits for the card to confirm. The block
// number is reset for the next activation.
func (s *Session) Deselect(ctx context.Context) error {
	resp, err := s.exchange(ctx, s.DeselectBlock())
	if err != nil {
		return err
	}
	s.ResetBlockNumber()
	if !resp.IsDeselect() {
		return fmt.Errorf("%w: deselect answered with %s", nfcreader.ErrUnexpectedBlock, resp)
	}
	return nil
}

// SendRaw sends a frame outside the block protocol and returns the raw
// answer.
func (s *Session) SendRaw(ctx context.Context, data []byte, addCRC bool) ([]byte, error) {
	s.logger.Debug().Hex("tx", data).Bool("crc", addCRC).Msg("raw frame")
	rx, err := s.write(ctx, data, 0, addCRC)
	if err != nil {
		return nil, fmt.Errorf("raw exchange: %w", err)
	}
	s.logger.Debug().Hex("rx", rx).Msg("raw response")
	return rx, nil
}
