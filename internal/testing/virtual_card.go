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

// Package testing provides simulated cards for exercising the protocol
// layers without hardware.
package testing

import (
	"sync"

	nfcreader "github.com/ZaparooProject/go-nfcreader"
	"github.com/ZaparooProject/go-nfcreader/internal/frame"
)

// Test identifiers
var (
	TestUID  = []byte{0x04, 0xA2, 0x3B, 0x91}
	TestPUPI = []byte{0x1A, 0x2B, 0x3C, 0x4D}
	TestATS  = []byte{0x0A, 0x78, 0x80, 0x82, 0x02, 0x20, 0x63, 0xCB, 0xA3, 0xA0}
	// TestATSNoTC1 announces FSCI 8 and no interface bytes
	TestATSNoTC1 = []byte{0x05, 0x08, 0x80, 0x73, 0xC8}
)

// VirtualCard simulates an ISO14443-4 card in front of a reader. It answers
// activation frames and runs the card side of the block protocol, handing
// complete APDUs to Handler. Responses carry a real CRC.
type VirtualCard struct {
	// Handler answers complete command APDUs. The default echoes the
	// command followed by 90 00.
	Handler func(capdu []byte) []byte

	UID  []byte
	ATQA []byte
	ATS  []byte
	PUPI []byte
	SAK  byte

	// BlockSize is the largest information field the card sends per block.
	BlockSize int
	// WTXCount is the number of S(WTX) requests sent before each response.
	WTXCount int
	// SilentRATS makes the card ignore RATS.
	SilentRATS bool
	// RejectPPS makes the card answer PPS with a wrong PPSS.
	RejectPPS bool

	received    [][]byte
	iNumbers    []byte
	wtxReplies  [][]byte
	pending     [][]byte
	inbound     []byte
	lastSent    []byte
	mu          sync.Mutex
	mode        nfcreader.Mode
	cid         byte
	hasCID      bool
	blockNumber byte
	wtxLeft     int
	present     bool
	fieldOn     bool
	deselected  bool
}

// NewVirtualCard creates a present Type A card with a 4-byte UID
func NewVirtualCard() *VirtualCard {
	return &VirtualCard{
		UID:         append([]byte(nil), TestUID...),
		ATQA:        []byte{0x04, 0x00},
		SAK:         frame.SAKISO14443_4,
		ATS:         append([]byte(nil), TestATS...),
		PUPI:        append([]byte(nil), TestPUPI...),
		BlockSize:   16,
		present:     true,
		blockNumber: 1,
	}
}

// SetPresent puts the card in or out of the field
func (v *VirtualCard) SetPresent(present bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.present = present
	if !present {
		v.reset()
	}
}

// Received returns every frame the card received
func (v *VirtualCard) Received() [][]byte {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([][]byte(nil), v.received...)
}

// IBlockNumbers returns the block number of every I-block received
func (v *VirtualCard) IBlockNumbers() []byte {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]byte(nil), v.iNumbers...)
}

// WTXReplies returns every S(WTX) response received
func (v *VirtualCard) WTXReplies() [][]byte {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([][]byte(nil), v.wtxReplies...)
}

// Deselected reports whether the card received S(DESELECT)
func (v *VirtualCard) Deselected() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.deselected
}

// Connect implements nfcreader.Transceiver
func (*VirtualCard) Connect() error { return nil }

// Close implements nfcreader.Transceiver
func (*VirtualCard) Close() error { return nil }

// Type implements nfcreader.Transceiver
func (*VirtualCard) Type() nfcreader.TransceiverType { return nfcreader.TransceiverMock }

// SetMode implements nfcreader.ModeSetter
func (v *VirtualCard) SetMode(mode nfcreader.Mode) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.mode = mode
	return nil
}

// FieldOn implements nfcreader.Transceiver
func (v *VirtualCard) FieldOn() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.fieldOn = true
	return nil
}

// FieldOff implements nfcreader.Transceiver. The card loses power.
func (v *VirtualCard) FieldOff() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.fieldOn = false
	v.reset()
	return nil
}

func (v *VirtualCard) reset() {
	v.pending = nil
	v.inbound = nil
	v.blockNumber = 1
	v.wtxLeft = 0
	v.hasCID = false
}

// WriteBits answers REQA and WUPA with the ATQA
func (v *VirtualCard) WriteBits(data []byte, _ int) ([]byte, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.received = append(v.received, append([]byte(nil), data...))

	if !v.present || v.mode != nfcreader.ModeISO14443A || len(data) == 0 {
		return nil, nil
	}
	if data[0] == frame.REQA || data[0] == frame.WUPA {
		return append([]byte(nil), v.ATQA...), nil
	}
	return nil, nil
}

// Write answers one reader frame
func (v *VirtualCard) Write(data []byte, _ int, _ bool) ([]byte, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.received = append(v.received, append([]byte(nil), data...))

	if !v.present || len(data) == 0 {
		return nil, nfcreader.NewTimeoutError("Write", "virtual")
	}

	if resp, ok := v.activation(data); ok {
		return resp, nil
	}
	return v.block(data), nil
}

func (v *VirtualCard) withCRC(data []byte) []byte {
	if v.mode == nfcreader.ModeISO14443B {
		return frame.AppendCRCB(data)
	}
	return frame.AppendCRCA(data)
}

// activation answers the ISO14443-3 frames and RATS/PPS
func (v *VirtualCard) activation(data []byte) ([]byte, bool) {
	switch {
	case len(data) == 2 && data[0] == frame.SelCL1 && data[1] == frame.NVBAnticollision:
		uid := v.UID[:4]
		return append(append([]byte(nil), uid...), uid[0]^uid[1]^uid[2]^uid[3]), true
	case len(data) >= 6 && data[0] == frame.SelCL1 && data[1] == frame.NVBSelect:
		return v.withCRC([]byte{v.SAK}), true
	case len(data) == 2 && data[0] == frame.RATS:
		if v.SilentRATS {
			return nil, true
		}
		v.blockNumber = 1
		return v.withCRC(v.ATS), true
	case data[0]&0xF0 == frame.PPSS && len(data) <= 3:
		ppss := data[0]
		if v.RejectPPS {
			ppss ^= 0x01
		}
		return v.withCRC([]byte{ppss}), true
	case len(data) == 3 && data[0] == frame.APF:
		atqb := append([]byte{0x50}, v.PUPI...)
		atqb = append(atqb, 0x00, 0x00, 0x00, 0x00, 0x00, 0x81, 0x81)
		return v.withCRC(atqb), true
	case len(data) == 9 && data[0] == frame.ATTRIB:
		return v.withCRC([]byte{0x00}), true
	}
	return nil, false
}

// block runs the card side of the ISO14443-4 block protocol
func (v *VirtualCard) block(data []byte) []byte {
	pcb := data[0]
	pos := 1
	hasCID := pcb&frame.PCBCID != 0
	if hasCID && len(data) > pos {
		v.cid = data[pos]
		pos++
	}
	v.hasCID = hasCID

	switch pcb & frame.BlockTypeMask {
	case frame.BlockTypeI:
		if pcb&frame.PCBNAD != 0 {
			pos++
		}
		n := pcb & frame.PCBBlockNumber
		v.iNumbers = append(v.iNumbers, n)
		v.blockNumber = n
		v.inbound = append(v.inbound, data[min(pos, len(data)):]...)

		if pcb&frame.PCBChaining != 0 {
			return v.send(v.header(frame.PCBRACK | n))
		}

		capdu := v.inbound
		v.inbound = nil
		v.pending = chunk(v.respond(capdu), v.BlockSize)
		v.wtxLeft = v.WTXCount
		return v.next()

	case frame.BlockTypeR:
		n := pcb & frame.PCBBlockNumber
		if n != v.blockNumber {
			v.blockNumber = n
			return v.next()
		}
		return v.send(v.lastSent)

	default:
		if pcb&frame.PCBWTXMask == frame.PCBWTX {
			v.wtxReplies = append(v.wtxReplies, append([]byte(nil), data...))
			return v.next()
		}
		v.deselected = true
		resp := v.send(v.header(frame.PCBDeselect))
		v.reset()
		return resp
	}
}

func (v *VirtualCard) respond(capdu []byte) []byte {
	if v.Handler != nil {
		return v.Handler(capdu)
	}
	return append(append([]byte(nil), capdu...), 0x90, 0x00)
}

// next sends a WTX request or the next pending response block
func (v *VirtualCard) next() []byte {
	if v.wtxLeft > 0 {
		v.wtxLeft--
		return v.send(append(v.header(frame.PCBSWTX), 0x01))
	}
	if len(v.pending) == 0 {
		return v.send(v.header(frame.PCBRACK | v.blockNumber))
	}

	inf := v.pending[0]
	v.pending = v.pending[1:]
	pcb := byte(frame.PCBIBlock) | v.blockNumber
	if len(v.pending) > 0 {
		pcb |= frame.PCBChaining
	}
	return v.send(append(v.header(pcb), inf...))
}

func (v *VirtualCard) header(pcb byte) []byte {
	if v.hasCID {
		return []byte{pcb | frame.PCBCID, v.cid}
	}
	return []byte{pcb}
}

func (v *VirtualCard) send(data []byte) []byte {
	v.lastSent = append([]byte(nil), data...)
	return v.withCRC(data)
}

func chunk(data []byte, size int) [][]byte {
	if size < 1 {
		size = 16
	}
	if len(data) == 0 {
		return [][]byte{{}}
	}
	var out [][]byte
	for len(data) > size {
		out = append(out, data[:size])
		data = data[size:]
	}
	return append(out, data)
}
