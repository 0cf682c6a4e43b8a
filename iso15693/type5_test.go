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
	"testing"

	nfcreader "github.com/ZaparooProject/go-nfcreader"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// uriRecord is a short URI record for https://example.com
var uriRecord = []byte{0xD1, 0x01, 0x0C, 0x55, 0x04, 'e', 'x', 'a', 'm', 'p', 'l', 'e', '.', 'c', 'o', 'm'}

func type5Memory(cc []byte, tlvs ...byte) []byte {
	return append(append([]byte(nil), cc...), tlvs...)
}

func TestParseType5NDEF(t *testing.T) {
	t.Parallel()

	ndefTLV := append([]byte{TLVNDEF, byte(len(uriRecord))}, uriRecord...)

	tests := []struct {
		name    string
		mem     []byte
		wantErr error
	}{
		{
			name: "4-byte container",
			mem:  type5Memory([]byte{0xE1, 0x40, 0x08, 0x01}, append(ndefTLV, TLVTerminator)...),
		},
		{
			name: "8-byte container",
			mem:  type5Memory([]byte{0xE2, 0x40, 0x00, 0x01, 0x00, 0x00, 0x01, 0x00}, append(ndefTLV, TLVTerminator)...),
		},
		{
			name: "null and unknown TLVs skipped",
			mem:  type5Memory([]byte{0xE1, 0x40, 0x08, 0x01}, append([]byte{TLVNull, 0xFD, 0x02, 0xAA, 0xBB}, ndefTLV...)...),
		},
		{
			name: "three byte length",
			mem:  type5Memory([]byte{0xE1, 0x40, 0x08, 0x01}, append([]byte{TLVNDEF, 0xFF, 0x00, byte(len(uriRecord))}, uriRecord...)...),
		},
		{
			name:    "no container",
			mem:     []byte{0x00, 0x00, 0x00, 0x00, 0x03, 0x00},
			wantErr: nfcreader.ErrUnsupportedOption,
		},
		{
			name:    "terminator first",
			mem:     []byte{0xE1, 0x40, 0x08, 0x01, TLVTerminator},
			wantErr: ErrNoNDEF,
		},
		{
			name:    "TLV past end",
			mem:     []byte{0xE1, 0x40, 0x08, 0x01, TLVNDEF, 0x20, 0xD1},
			wantErr: nfcreader.ErrMalformedFrame,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			msg, err := ParseType5NDEF(tt.mem)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Len(t, msg.Records, 1)
		})
	}
}

func TestReadNDEF(t *testing.T) {
	t.Parallel()
	s, tag := newTagSession(t)

	mem := type5Memory([]byte{0xE1, 0x40, 0x08, 0x01}, append(append([]byte{TLVNDEF, byte(len(uriRecord))}, uriRecord...), TLVTerminator)...)
	tag.SetMemory(mem, 16)

	msg, err := s.ReadNDEF(context.Background())
	require.NoError(t, err)
	assert.Len(t, msg.Records, 1)
}

func TestManufacturer(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "STMicroelectronics", Manufacturer(0x02))
	assert.Equal(t, "Texas Instruments", Manufacturer(0x07))
	assert.Equal(t, "unknown (0xEE)", Manufacturer(0xEE))
	assert.Equal(t, "NXP Semiconductors", ManufacturerFromUID(testUID))
	assert.Equal(t, "unknown", ManufacturerFromUID([]byte{0x04, 0x02}))
}
