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

// Package iso14443 implements the ISO/IEC 14443-4 block protocol and the
// ISO/IEC 14443-3 activation sequences that precede it.
package iso14443

import (
	"fmt"

	nfcreader "github.com/ZaparooProject/go-nfcreader"
	"github.com/ZaparooProject/go-nfcreader/internal/frame"
)

// BlockType discriminates the three TPDU variants
type BlockType int

const (
	// BlockI carries application data
	BlockI BlockType = iota
	// BlockR acknowledges or requests retransmission
	BlockR
	// BlockS carries WTX and DESELECT supervisory requests
	BlockS
)

// String returns the short block type name
func (t BlockType) String() string {
	switch t {
	case BlockI:
		return "I"
	case BlockR:
		return "R"
	case BlockS:
		return "S"
	default:
		return "?"
	}
}

// TPDU is one ISO14443-4 block. The CRC trailer is not part of it.
type TPDU struct {
	INF    []byte
	PCB    byte
	CID    byte
	NAD    byte
	HasCID bool
	HasNAD bool
}

// blockTypeOf decodes bits 7-6 of the PCB
func blockTypeOf(pcb byte) (BlockType, error) {
	switch pcb & frame.BlockTypeMask {
	case frame.BlockTypeI:
		return BlockI, nil
	case frame.BlockTypeR:
		return BlockR, nil
	case frame.BlockTypeS:
		return BlockS, nil
	default:
		return 0, fmt.Errorf("%w: PCB %02X has no known block type", nfcreader.ErrMalformedFrame, pcb)
	}
}

// Decode parses a received frame, including its 2-byte CRC trailer, into a
// TPDU. The CRC is dropped without being checked.
func Decode(data []byte) (*TPDU, error) {
	if len(data) < 1+frame.CRCLength {
		return nil, fmt.Errorf("%w: %d bytes", nfcreader.ErrMalformedFrame, len(data))
	}

	pcb := data[0]
	bt, err := blockTypeOf(pcb)
	if err != nil {
		return nil, err
	}

	t := &TPDU{PCB: pcb}
	pos := 1
	t.HasCID = pcb&frame.PCBCID != 0
	t.HasNAD = bt == BlockI && pcb&frame.PCBNAD != 0

	header := 1
	if t.HasCID {
		header++
	}
	if t.HasNAD {
		header++
	}
	if len(data) < header+frame.CRCLength {
		return nil, fmt.Errorf("%w: %s-block needs %d bytes, got %d",
			nfcreader.ErrMalformedFrame, bt, header+frame.CRCLength, len(data))
	}

	if t.HasCID {
		t.CID = data[pos]
		pos++
	}
	if t.HasNAD {
		t.NAD = data[pos]
		pos++
	}

	t.INF = append([]byte{}, data[pos:len(data)-frame.CRCLength]...)
	return t, nil
}

// Encode serializes the TPDU as PCB, CID, NAD, INF. No CRC is appended.
// The presence bits of the PCB are derived from HasCID and HasNAD.
func (t *TPDU) Encode() []byte {
	pcb := t.PCB &^ (frame.PCBCID | frame.PCBNAD)
	if t.HasCID {
		pcb |= frame.PCBCID
	}
	if t.HasNAD && t.Type() == BlockI {
		pcb |= frame.PCBNAD
	}

	out := make([]byte, 0, 3+len(t.INF))
	out = append(out, pcb)
	if t.HasCID {
		out = append(out, t.CID)
	}
	if t.HasNAD && t.Type() == BlockI {
		out = append(out, t.NAD)
	}
	return append(out, t.INF...)
}

// Type returns the block type. Unknown types read as BlockS.
func (t *TPDU) Type() BlockType {
	bt, err := blockTypeOf(t.PCB)
	if err != nil {
		return BlockS
	}
	return bt
}

// IsChaining reports whether more I-blocks follow
func (t *TPDU) IsChaining() bool {
	return t.Type() == BlockI && t.PCB&frame.PCBChaining != 0
}

// BlockNumber returns the block number bit of an I or R block
func (t *TPDU) BlockNumber() byte {
	return t.PCB & frame.PCBBlockNumber
}

// IsWTX reports whether the block is an S(WTX) request
func (t *TPDU) IsWTX() bool {
	return t.PCB&frame.PCBWTXMask == frame.PCBWTX
}

// IsDeselect reports whether the block is an S(DESELECT)
func (t *TPDU) IsDeselect() bool {
	return t.Type() == BlockS && !t.IsWTX() && len(t.INF) == 0
}

// IsACK reports whether the block is an R(ACK)
func (t *TPDU) IsACK() bool {
	return t.Type() == BlockR && t.PCB&frame.PCBNAK == 0
}

// IsNAK reports whether the block is an R(NAK)
func (t *TPDU) IsNAK() bool {
	return t.Type() == BlockR && t.PCB&frame.PCBNAK != 0
}

// WTXM returns the requested waiting time multiplier
func (t *TPDU) WTXM() byte {
	if len(t.INF) == 0 {
		return 0
	}
	return t.INF[0] & frame.WTXMultiplier
}

// WTXReply builds the S(WTX) response to a WTX request: same PCB, CID and
// NAD, multiplier masked to 6 bits.
func (t *TPDU) WTXReply() *TPDU {
	return &TPDU{
		PCB:    t.PCB,
		CID:    t.CID,
		NAD:    t.NAD,
		HasCID: t.HasCID,
		HasNAD: t.HasNAD,
		INF:    []byte{t.WTXM()},
	}
}

// String formats the block for logs
func (t *TPDU) String() string {
	return fmt.Sprintf("%s-block PCB=%02X INF=% X", t.Type(), t.PCB, t.INF)
}
