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


// Package iso7816 encodes command and response APDUs and drives a card
// through the transport level status words 61xx and 6Cxx.
//
// Any Transmitter can carry the APDUs. An activated iso14443.Session is
// one, a PC/SC card handle is another.
package iso7816

import (
	"bytes"
	"fmt"

	nfcreader "github.com/ZaparooProject/go-nfcreader"
)

// Length limits for short and extended encodings
const (
	MaxShortLc    = 255
	MaxShortLe    = 256 // encoded as 00
	MaxExtendedLc = 65535
	MaxExtendedLe = 65536 // encoded as 0000
)

// Instructions used by this package
const (
	InsSelect       = 0xA4
	InsReadBinary   = 0xB0
	InsReadRecord   = 0xB2
	InsGetResponse  = 0xC0
	InsGetData      = 0xCA
	InsUpdateBinary = 0xD6
)

// CommandAPDU is a command sent to the card. Ne is the expected response
// length, zero when no data is expected.
type CommandAPDU struct {
	Data []byte
	Ne   int
	CLA  byte
	INS  byte
	P1   byte
	P2   byte
}

// NewCommandAPDU creates a command
func NewCommandAPDU(cla, ins, p1, p2 byte, data []byte, ne int) *CommandAPDU {
	return &CommandAPDU{CLA: cla, INS: ins, P1: p1, P2: p2, Data: data, Ne: ne}
}

// SelectAID builds SELECT by DF name for the first occurrence, asking for
// the FCI.
func SelectAID(aid []byte) *CommandAPDU {
	return NewCommandAPDU(0x00, InsSelect, 0x04, 0x00, aid, MaxShortLe)
}

// GetResponse builds GET RESPONSE on the logical channel of cla
func GetResponse(cla byte, ne int) *CommandAPDU {
	if ne == 0 {
		ne = MaxShortLe
	}
	return NewCommandAPDU(cla&0x03, InsGetResponse, 0x00, 0x00, nil, ne)
}

// Extended reports whether the command needs extended length fields
func (c *CommandAPDU) Extended() bool {
	return len(c.Data) > MaxShortLc || c.Ne > MaxShortLe
}

// Bytes encodes the command, switching to extended lengths when Lc or Le
// do not fit in one byte.
func (c *CommandAPDU) Bytes() ([]byte, error) {
	nc, ne := len(c.Data), c.Ne
	if nc > MaxExtendedLc {
		return nil, fmt.Errorf("%w: %d bytes of command data", nfcreader.ErrDataTooLarge, nc)
	}
	if ne < 0 || ne > MaxExtendedLe {
		return nil, fmt.Errorf("%w: Ne %d", nfcreader.ErrInvalidParameter, ne)
	}

	var buf bytes.Buffer
	buf.Grow(4 + 3 + nc + 3)
	buf.Write([]byte{c.CLA, c.INS, c.P1, c.P2})

	extended := c.Extended()
	if nc > 0 {
		if extended {
			buf.Write([]byte{0x00, byte(nc >> 8), byte(nc)})
		} else {
			buf.WriteByte(byte(nc))
		}
		buf.Write(c.Data)
	}

	if ne > 0 {
		switch {
		case !extended:
			buf.WriteByte(byte(ne)) // 256 wraps to 00
		default:
			if nc == 0 {
				buf.WriteByte(0x00)
			}
			buf.Write([]byte{byte(ne >> 8), byte(ne)}) // 65536 wraps to 0000
		}
	}
	return buf.Bytes(), nil
}

// String returns a short description of the command
func (c *CommandAPDU) String() string {
	return fmt.Sprintf("CLA %02X INS %02X P1 %02X P2 %02X Lc %d Le %d",
		c.CLA, c.INS, c.P1, c.P2, len(c.Data), c.Ne)
}

// ParseCommandAPDU decodes a command received while emulating a card. All
// four cases are accepted in short and extended form.
func ParseCommandAPDU(raw []byte) (*CommandAPDU, error) {
	if len(raw) < 4 {
		return nil, fmt.Errorf("%w: command APDU of %d bytes", nfcreader.ErrMalformedFrame, len(raw))
	}
	c := &CommandAPDU{CLA: raw[0], INS: raw[1], P1: raw[2], P2: raw[3]}
	body := raw[4:]

	switch {
	case len(body) == 0:
		// case 1
	case len(body) == 1:
		c.Ne = shortLe(body[0])
	case body[0] != 0x00 || len(body) == 2:
		// short case 3 or 4 (a lone 00 Lc would be malformed)
		nc := int(body[0])
		if nc == 0 {
			return nil, fmt.Errorf("%w: zero Lc", nfcreader.ErrMalformedFrame)
		}
		switch len(body) {
		case 1 + nc:
		case 2 + nc:
			c.Ne = shortLe(body[1+nc])
		default:
			return nil, fmt.Errorf("%w: Lc %d with %d body bytes", nfcreader.ErrMalformedFrame, nc, len(body))
		}
		c.Data = append([]byte(nil), body[1:1+nc]...)
	case len(body) == 3:
		c.Ne = extendedLe(body[1], body[2])
	default:
		nc := int(body[1])<<8 | int(body[2])
		if nc == 0 {
			return nil, fmt.Errorf("%w: zero extended Lc", nfcreader.ErrMalformedFrame)
		}
		switch len(body) {
		case 3 + nc:
		case 5 + nc:
			c.Ne = extendedLe(body[3+nc], body[4+nc])
		default:
			return nil, fmt.Errorf("%w: extended Lc %d with %d body bytes",
				nfcreader.ErrMalformedFrame, nc, len(body))
		}
		c.Data = append([]byte(nil), body[3:3+nc]...)
	}
	return c, nil
}

func shortLe(b byte) int {
	if b == 0 {
		return MaxShortLe
	}
	return int(b)
}

func extendedLe(hi, lo byte) int {
	ne := int(hi)<<8 | int(lo)
	if ne == 0 {
		return MaxExtendedLe
	}
	return ne
}

// ResponseAPDU is the answer of the card: optional data and a status word.
type ResponseAPDU struct {
	Data   []byte
	Status StatusWord
}

// NewResponseAPDU builds a response, used by card emulation handlers
func NewResponseAPDU(data []byte, sw StatusWord) *ResponseAPDU {
	return &ResponseAPDU{Data: data, Status: sw}
}

// ParseResponseAPDU splits raw into data and status word
func ParseResponseAPDU(raw []byte) (*ResponseAPDU, error) {
	if len(raw) < 2 {
		return nil, fmt.Errorf("%w: response APDU of %d bytes", nfcreader.ErrMalformedFrame, len(raw))
	}
	n := len(raw) - 2
	return &ResponseAPDU{
		Data:   append([]byte(nil), raw[:n]...),
		Status: NewStatusWord(raw[n], raw[n+1]),
	}, nil
}

// Bytes encodes the response
func (r *ResponseAPDU) Bytes() []byte {
	out := make([]byte, 0, len(r.Data)+2)
	out = append(out, r.Data...)
	return append(out, r.Status.SW1(), r.Status.SW2())
}

// String returns a short description of the response
func (r *ResponseAPDU) String() string {
	return fmt.Sprintf("%d bytes, SW %s", len(r.Data), r.Status)
}
