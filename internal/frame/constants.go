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

// Package frame provides wire constants and CRC helpers for ISO14443 and
// ISO15693 frames
package frame

// PCB block type, bits 7-6
const (
	BlockTypeMask = 0xC0
	BlockTypeI    = 0x00
	BlockTypeR    = 0x80
	BlockTypeS    = 0xC0
)

// PCB bit fields
const (
	PCBChaining    = 0x10 // I-block chaining
	PCBNAK         = 0x10 // R-block NAK
	PCBCID         = 0x08 // CID byte follows
	PCBNAD         = 0x04 // NAD byte follows (I-block only)
	PCBBlockNumber = 0x01
	PCBFixedBit    = 0x02
	PCBWTXMask     = 0xF0
	PCBWTX         = 0xF0
	PCBSTypeMask   = 0x30
	WTXMultiplier  = 0x3F
)

// Base PCB values
const (
	PCBIBlock   = 0x02
	PCBRACK     = 0xA2
	PCBRNAK     = 0xB2
	PCBDeselect = 0xC2
	PCBSWTX     = 0xF2
)

// CRCLength is the size of the CRC trailer on ISO14443 frames
const CRCLength = 2

// Type A activation
const (
	REQA     = 0x26
	WUPA     = 0x52
	ShortLen = 7 // bits in a REQA/WUPA frame

	SelCL1 = 0x93
	SelCL2 = 0x95
	SelCL3 = 0x97

	NVBAnticollision = 0x20 // two bytes sent
	NVBSelect        = 0x70 // seven bytes sent

	CascadeTag    = 0x88
	SAKUIDPending = 0x04
	SAKISO14443_4 = 0x20

	RATS = 0xE0
	PPSS = 0xD0
	PPS0 = 0x01
)

// ATS format byte T0 interface byte presence
const (
	ATSHasTA1   = 0x10
	ATSHasTB1   = 0x20
	ATSHasTC1   = 0x40
	ATSFSCIMask = 0x0F

	TC1NADSupported = 0x01
	TC1CIDSupported = 0x02
)

// Type B activation
const (
	APF    = 0x05
	ATTRIB = 0x1D
)

// FrameSizes maps FSDI/FSCI codes to frame sizes in bytes.
var FrameSizes = [...]int{16, 24, 32, 40, 48, 64, 96, 128, 256}

// FrameSize returns the frame size for an FSDI/FSCI code. Codes above 8
// are RFU and read as 256.
func FrameSize(code byte) int {
	if int(code) >= len(FrameSizes) {
		return FrameSizes[len(FrameSizes)-1]
	}
	return FrameSizes[code]
}
