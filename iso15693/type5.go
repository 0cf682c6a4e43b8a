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
	"github.com/hsanjuan/go-ndef"
)

// NFC Forum Type 5 capability container and TLV bytes
const (
	CCMagic       = 0xE1
	CCMagicLarge  = 0xE2
	TLVNull       = 0x00
	TLVNDEF       = 0x03
	TLVTerminator = 0xFE
)

// ErrNoNDEF is returned when the tag memory holds no NDEF message TLV
var ErrNoNDEF = errors.New("no NDEF message")

// ParseType5NDEF locates the NDEF message TLV in the memory of an NFC
// Forum Type 5 tag, starting with its capability container, and decodes it.
func ParseType5NDEF(mem []byte) (*ndef.Message, error) {
	if len(mem) < 4 {
		return nil, fmt.Errorf("%w: %d bytes of memory", nfcreader.ErrMalformedFrame, len(mem))
	}
	if mem[0] != CCMagic && mem[0] != CCMagicLarge {
		return nil, fmt.Errorf("%w: no capability container (magic %02X)", nfcreader.ErrUnsupportedOption, mem[0])
	}

	// an MLEN of zero means the 8-byte container
	pos := 4
	if mem[2] == 0 {
		pos = 8
	}

	for pos < len(mem) {
		tag := mem[pos]
		pos++
		switch tag {
		case TLVNull:
			continue
		case TLVTerminator:
			return nil, ErrNoNDEF
		}

		if pos >= len(mem) {
			break
		}
		length := int(mem[pos])
		pos++
		if length == 0xFF {
			if pos+2 > len(mem) {
				break
			}
			length = int(mem[pos])<<8 | int(mem[pos+1])
			pos += 2
		}
		if pos+length > len(mem) {
			return nil, fmt.Errorf("%w: TLV of %d bytes past end of memory", nfcreader.ErrMalformedFrame, length)
		}

		if tag == TLVNDEF {
			msg := &ndef.Message{}
			if _, err := msg.Unmarshal(mem[pos : pos+length]); err != nil {
				return nil, fmt.Errorf("%w: NDEF message: %w", nfcreader.ErrMalformedFrame, err)
			}
			return msg, nil
		}
		pos += length
	}
	return nil, fmt.Errorf("%w: truncated TLV area", nfcreader.ErrMalformedFrame)
}

// ReadNDEF dumps the tag and decodes its NDEF message
func (s *Session) ReadNDEF(ctx context.Context) (*ndef.Message, error) {
	dump, err := s.DumpMemory(ctx)
	if err != nil {
		return nil, err
	}
	msg, err := ParseType5NDEF(dump.Data())
	if err != nil {
		return nil, err
	}
	s.logger.Info().Int("records", len(msg.Records)).Msg("NDEF message")
	return msg, nil
}
