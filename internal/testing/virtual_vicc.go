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

package testing

import (
	"sync"

	nfcreader "github.com/ZaparooProject/go-nfcreader"
)

// TestVICCUID is the UID of NewVirtualVICC, most significant byte first
var TestVICCUID = []byte{0xE0, 0x04, 0x01, 0x50, 0x12, 0x34, 0x56, 0x78}

// VirtualVICC simulates an ISO15693 tag. Responses carry no CRC.
type VirtualVICC struct {
	UID    []byte // most significant byte first
	Blocks [][]byte
	Locked []bool

	// EmptyReads is the number of read single block requests answered
	// with an empty frame before data is returned.
	EmptyReads int

	received  [][]byte
	mu        sync.Mutex
	DSFID     byte
	AFI       byte
	ICRef     byte
	present   bool
	quiet     bool
	blockSize int
}

// NewVirtualVICC creates a 16 block tag with 4-byte blocks
func NewVirtualVICC() *VirtualVICC {
	v := &VirtualVICC{
		UID:       append([]byte(nil), TestVICCUID...),
		DSFID:     0x00,
		AFI:       0x00,
		ICRef:     0x01,
		present:   true,
		blockSize: 4,
	}
	v.Blocks = make([][]byte, 16)
	v.Locked = make([]bool, 16)
	for i := range v.Blocks {
		v.Blocks[i] = []byte{byte(i), byte(i), byte(i), byte(i)}
	}
	return v
}

// SetMemory replaces the tag memory, padding the last block with zeros
func (v *VirtualVICC) SetMemory(data []byte, blocks int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.Blocks = make([][]byte, blocks)
	v.Locked = make([]bool, blocks)
	for i := range v.Blocks {
		b := make([]byte, v.blockSize)
		if off := i * v.blockSize; off < len(data) {
			copy(b, data[off:])
		}
		v.Blocks[i] = b
	}
}

// SetPresent puts the tag in or out of the field
func (v *VirtualVICC) SetPresent(present bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.present = present
	v.quiet = false
}

// Received returns every request the tag received
func (v *VirtualVICC) Received() [][]byte {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([][]byte(nil), v.received...)
}

// Connect implements nfcreader.Transceiver
func (*VirtualVICC) Connect() error { return nil }

// Close implements nfcreader.Transceiver
func (*VirtualVICC) Close() error { return nil }

// FieldOn implements nfcreader.Transceiver
func (*VirtualVICC) FieldOn() error { return nil }

// FieldOff implements nfcreader.Transceiver
func (v *VirtualVICC) FieldOff() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.quiet = false
	return nil
}

// Type implements nfcreader.Transceiver
func (*VirtualVICC) Type() nfcreader.TransceiverType { return nfcreader.TransceiverMock }

// WriteBits implements nfcreader.Transceiver. Vicinity tags ignore short frames.
func (*VirtualVICC) WriteBits([]byte, int) ([]byte, error) {
	return nil, nfcreader.ErrNoResponse
}

func (v *VirtualVICC) wireUID() []byte {
	out := make([]byte, len(v.UID))
	for i, b := range v.UID {
		out[len(out)-1-i] = b
	}
	return out
}

func viccError(code byte) []byte {
	return []byte{0x01, code}
}

// Write answers one request
func (v *VirtualVICC) Write(data []byte, _ int, _ bool) ([]byte, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.received = append(v.received, append([]byte(nil), data...))

	if !v.present || len(data) < 2 {
		return nil, nfcreader.NewTimeoutError("Write", "virtual-vicc")
	}

	flags, cmd := data[0], data[1]
	args := data[2:]

	if cmd == 0x01 {
		if v.quiet {
			return nil, nfcreader.NewTimeoutError("Write", "virtual-vicc")
		}
		return append([]byte{0x00, v.DSFID}, v.wireUID()...), nil
	}

	if flags&0x20 != 0 {
		if len(args) < 8 {
			return viccError(0x02), nil
		}
		if string(args[:8]) != string(v.wireUID()) {
			return nil, nfcreader.NewTimeoutError("Write", "virtual-vicc")
		}
		args = args[8:]
	}
	option := flags&0x40 != 0

	switch cmd {
	case 0x02:
		v.quiet = true
		return nil, nil
	case 0x20:
		return v.readSingle(args, option), nil
	case 0x21:
		return v.writeSingle(args), nil
	case 0x23:
		return v.readMultiple(args, option), nil
	case 0x24:
		return v.writeMultiple(args), nil
	case 0x25, 0x26:
		v.quiet = false
		return []byte{0x00}, nil
	case 0x2B:
		resp := []byte{0x00, 0x0F}
		resp = append(resp, v.wireUID()...)
		return append(resp, v.DSFID, v.AFI, byte(len(v.Blocks)-1), byte(v.blockSize-1), v.ICRef), nil
	case 0x2C:
		return v.securityStatus(args), nil
	default:
		return viccError(0x01), nil
	}
}

func (v *VirtualVICC) lockByte(n int) byte {
	if v.Locked[n] {
		return 0x01
	}
	return 0x00
}

func (v *VirtualVICC) readSingle(args []byte, option bool) []byte {
	if len(args) < 1 {
		return viccError(0x02)
	}
	n := int(args[0])
	if n >= len(v.Blocks) {
		return viccError(0x10)
	}
	if v.EmptyReads > 0 {
		v.EmptyReads--
		return []byte{}
	}
	resp := []byte{0x00}
	if option {
		resp = append(resp, v.lockByte(n))
	}
	return append(resp, v.Blocks[n]...)
}

func (v *VirtualVICC) writeSingle(args []byte) []byte {
	if len(args) < 1+v.blockSize {
		return viccError(0x02)
	}
	n := int(args[0])
	if n >= len(v.Blocks) {
		return viccError(0x10)
	}
	if v.Locked[n] {
		return viccError(0x12)
	}
	v.Blocks[n] = append([]byte(nil), args[1:1+v.blockSize]...)
	return []byte{0x00}
}

func (v *VirtualVICC) readMultiple(args []byte, option bool) []byte {
	if len(args) < 2 {
		return viccError(0x02)
	}
	first, count := int(args[0]), int(args[1])+1
	if first+count > len(v.Blocks) {
		return viccError(0x10)
	}
	resp := []byte{0x00}
	for n := first; n < first+count; n++ {
		if option {
			resp = append(resp, v.lockByte(n))
		}
		resp = append(resp, v.Blocks[n]...)
	}
	return resp
}

func (v *VirtualVICC) writeMultiple(args []byte) []byte {
	if len(args) < 2 {
		return viccError(0x02)
	}
	first, count := int(args[0]), int(args[1])+1
	data := args[2:]
	if first+count > len(v.Blocks) {
		return viccError(0x10)
	}
	if len(data) < count*v.blockSize {
		return viccError(0x02)
	}
	for i := 0; i < count; i++ {
		if v.Locked[first+i] {
			return viccError(0x12)
		}
		v.Blocks[first+i] = append([]byte(nil), data[i*v.blockSize:(i+1)*v.blockSize]...)
	}
	return []byte{0x00}
}

func (v *VirtualVICC) securityStatus(args []byte) []byte {
	if len(args) < 2 {
		return viccError(0x02)
	}
	first, count := int(args[0]), int(args[1])+1
	if first+count > len(v.Blocks) {
		return viccError(0x10)
	}
	resp := []byte{0x00}
	for n := first; n < first+count; n++ {
		resp = append(resp, v.lockByte(n))
	}
	return resp
}
