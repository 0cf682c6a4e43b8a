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
	"github.com/ZaparooProject/go-nfcreader/internal/frame"
	"github.com/rs/zerolog"
)

// Role selects which side of the link a Session plays
type Role int

const (
	// RolePCD is the reader side
	RolePCD Role = iota
	// RolePICC is the emulated card side
	RolePICC
)

// String returns the role name
func (r Role) String() string {
	if r == RolePICC {
		return "PICC"
	}
	return "PCD"
}

// Default session parameters
const (
	DefaultBlockSize = 16
	DefaultMaxWTX    = 16
	DefaultFSDI      = 8
)

// Config holds the negotiated and configured parameters of a Session.
type Config struct {
	// BlockSize is the largest information field sent in one I-block.
	BlockSize int
	// MaxFrameSize is the card frame size (FSC) learned from the ATS, 0
	// until RATS. It caps BlockSize.
	MaxFrameSize int
	// MaxWTX bounds consecutive S(WTX) requests answered in one exchange.
	MaxWTX int
	// MaxResponseSize bounds a reassembled response.
	MaxResponseSize int
	// FSDI is the frame size code announced in RATS.
	FSDI byte
	CID  byte
	NAD  byte
	// AddCID and AddNAD are set from the ATS TC1 byte after RATS.
	AddCID bool
	AddNAD bool
	// RespLenHint is passed to the transceiver for every block exchange.
	RespLenHint int
}

// DefaultConfig returns the configuration used before any negotiation
func DefaultConfig() Config {
	return Config{
		BlockSize:       DefaultBlockSize,
		MaxWTX:          DefaultMaxWTX,
		MaxResponseSize: DefaultMaxReassemblySize,
		FSDI:            DefaultFSDI,
		RespLenHint:     16,
	}
}

// Session is the state of one activated card: negotiated CID/NAD, frame
// size and the block number toggle. A Session is not safe for concurrent
// use; the protocol allows one exchange in flight.
type Session struct {
	tr     nfcreader.TransceiverContext
	logger zerolog.Logger
	config Config
	role   Role
	toggle byte
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

// WithRole sets the role of the session
func WithRole(role Role) Option {
	return func(s *Session) error {
		s.role = role
		return nil
	}
}

// WithBlockSize sets the largest information field per I-block
func WithBlockSize(size int) Option {
	return func(s *Session) error {
		if size < 1 || size > 256 {
			return fmt.Errorf("%w: block size %d", nfcreader.ErrInvalidParameter, size)
		}
		s.config.BlockSize = size
		return nil
	}
}

// WithMaxWTX bounds the number of WTX requests answered per exchange
func WithMaxWTX(n int) Option {
	return func(s *Session) error {
		if n < 0 {
			return fmt.Errorf("%w: max WTX %d", nfcreader.ErrInvalidParameter, n)
		}
		s.config.MaxWTX = n
		return nil
	}
}

// WithCID sets the card identifier and whether it is sent
func WithCID(cid byte, add bool) Option {
	return func(s *Session) error {
		if cid > 14 {
			return fmt.Errorf("%w: CID %d", nfcreader.ErrInvalidParameter, cid)
		}
		s.config.CID = cid
		s.config.AddCID = add
		return nil
	}
}

// WithNAD sets the node address and whether it is sent
func WithNAD(nad byte, add bool) Option {
	return func(s *Session) error {
		s.config.NAD = nad
		s.config.AddNAD = add
		return nil
	}
}

// WithFSDI sets the frame size code announced in RATS
func WithFSDI(fsdi byte) Option {
	return func(s *Session) error {
		if fsdi > 8 {
			return fmt.Errorf("%w: FSDI %d", nfcreader.ErrInvalidParameter, fsdi)
		}
		s.config.FSDI = fsdi
		return nil
	}
}

// WithConfig replaces the whole configuration
func WithConfig(cfg Config) Option {
	return func(s *Session) error {
		s.config = cfg
		return nil
	}
}

// NewSession creates a session over tr. tr may be nil for a session that
// only builds blocks, as the card emulator does.
func NewSession(tr nfcreader.Transceiver, opts ...Option) (*Session, error) {
	s := &Session{
		logger: zerolog.Nop(),
		config: DefaultConfig(),
	}
	if tr != nil {
		s.tr = nfcreader.AsTransceiverContext(tr)
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	s.ResetBlockNumber()
	return s, nil
}

// Config returns the current session parameters
func (s *Session) Config() Config {
	return s.config
}

// Role returns the session role
func (s *Session) Role() Role {
	return s.role
}

// ResetBlockNumber restores the block number to its state right after
// activation: the next I-block carries block number 0.
func (s *Session) ResetBlockNumber() {
	if s.role == RolePICC {
		s.toggle = 1
	} else {
		s.toggle = 0
	}
}

// nextBlockNumber flips the toggle and returns the block number for the
// next I-block. The role decides the polarity.
func (s *Session) nextBlockNumber() byte {
	s.toggle ^= 1
	if s.role == RolePICC {
		return s.toggle
	}
	return s.toggle ^ 1
}

// syncBlockNumber makes the next I-block carry n. The card side answers
// with the number of the block it received.
func (s *Session) syncBlockNumber(n byte) {
	if s.role == RolePICC {
		s.toggle = (n & 1) ^ 1
	} else {
		s.toggle = n & 1
	}
}

// IBlock builds the next I-block, consuming one block number
func (s *Session) IBlock(inf []byte, chaining bool) *TPDU {
	pcb := byte(frame.PCBIBlock) | s.nextBlockNumber()
	if chaining {
		pcb |= frame.PCBChaining
	}
	return &TPDU{
		PCB:    pcb,
		CID:    s.config.CID,
		NAD:    s.config.NAD,
		HasCID: s.config.AddCID,
		HasNAD: s.config.AddNAD,
		INF:    inf,
	}
}

// RBlock builds an R-block with the given block number. It does not touch
// the I-block toggle.
func (s *Session) RBlock(ack bool, blockNumber byte) *TPDU {
	pcb := byte(frame.PCBRACK)
	if !ack {
		pcb = frame.PCBRNAK
	}
	return &TPDU{
		PCB:    pcb | blockNumber&frame.PCBBlockNumber,
		CID:    s.config.CID,
		HasCID: s.config.AddCID,
	}
}

// DeselectBlock builds an S(DESELECT)
func (s *Session) DeselectBlock() *TPDU {
	return &TPDU{
		PCB:    frame.PCBDeselect,
		CID:    s.config.CID,
		HasCID: s.config.AddCID,
	}
}

// blockSize returns BlockSize capped by what fits in one card frame
// next to the header and CRC.
func (s *Session) blockSize() int {
	size := s.config.BlockSize
	if s.config.MaxFrameSize == 0 {
		return size
	}
	room := s.config.MaxFrameSize - 1 - frame.CRCLength
	if s.config.AddCID {
		room--
	}
	if s.config.AddNAD {
		room--
	}
	return max(min(size, room), 1)
}

// Chain fragments apdu into I-blocks of at most BlockSize bytes, the
// chaining bit set on all but the last. Every block consumes a block
// number up front, so it suits senders that queue the whole chain.
func (s *Session) Chain(apdu []byte) ([]*TPDU, error) {
	chunks, err := Fragment(apdu, s.blockSize())
	if err != nil {
		return nil, err
	}
	blocks := make([]*TPDU, 0, len(chunks))
	for i, chunk := range chunks {
		blocks = append(blocks, s.IBlock(chunk, i < len(chunks)-1))
	}
	return blocks, nil
}

func (s *Session) write(ctx context.Context, data []byte, respLenHint int, addCRC bool) ([]byte, error) {
	if s.tr == nil {
		return nil, fmt.Errorf("%w: session has no transceiver", nfcreader.ErrNotSupported)
	}
	return s.tr.WriteContext(ctx, data, respLenHint, addCRC)
}

func (s *Session) writeBits(ctx context.Context, data []byte, numBits int) ([]byte, error) {
	if s.tr == nil {
		return nil, fmt.Errorf("%w: session has no transceiver", nfcreader.ErrNotSupported)
	}
	return s.tr.WriteBitsContext(ctx, data, numBits)
}
