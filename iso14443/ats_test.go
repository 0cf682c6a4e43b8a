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
	"testing"

	nfcreader "github.com/ZaparooProject/go-nfcreader"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseATS(t *testing.T) {
	t.Parallel()

	ats, err := ParseATS(crcA(0x0A, 0x78, 0x80, 0x82, 0x02, 0x20, 0x63, 0xCB, 0xA3, 0xA0))
	require.NoError(t, err)

	assert.Equal(t, byte(0x0A), ats.TL)
	assert.Equal(t, byte(0x78), ats.T0)
	assert.Equal(t, byte(8), ats.FSCI)
	assert.Equal(t, 256, ats.FSC())
	assert.True(t, ats.HasTA1)
	assert.Equal(t, byte(0x80), ats.TA1)
	assert.True(t, ats.HasTB1)
	assert.Equal(t, byte(0x82), ats.TB1)
	assert.Equal(t, byte(8), ats.FWI())
	assert.Equal(t, byte(2), ats.SFGI())
	assert.True(t, ats.HasTC1)
	assert.True(t, ats.CIDSupported())
	assert.False(t, ats.NADSupported())
	assert.Equal(t, []byte{0x20, 0x63, 0xCB, 0xA3, 0xA0}, ats.Historical)
	assert.Len(t, ats.Raw, 12)
}

func TestParseATSVariants(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		resp       []byte
		historical []byte
		fsci       byte
		hasT0      bool
		nad        bool
		cid        bool
	}{
		{
			name: "length byte only",
			resp: crcA(0x01),
			fsci: 2,
		},
		{
			name:  "format byte without interface bytes",
			resp:  crcA(0x02, 0x05),
			fsci:  5,
			hasT0: true,
		},
		{
			name:       "trailing bytes past TL are dropped",
			resp:       append(crcA(0x05, 0x08, 0x80, 0x73, 0xC8), 0xEE, 0xEE),
			fsci:       8,
			hasT0:      true,
			historical: []byte{0x80, 0x73, 0xC8},
		},
		{
			name:  "NAD and CID supported",
			resp:  crcA(0x03, 0x40, 0x03),
			fsci:  0,
			hasT0: true,
			nad:   true,
			cid:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ats, err := ParseATS(tt.resp)
			require.NoError(t, err)
			assert.Equal(t, tt.fsci, ats.FSCI)
			assert.Equal(t, tt.hasT0, ats.HasT0)
			assert.Equal(t, tt.nad, ats.NADSupported())
			assert.Equal(t, tt.cid, ats.CIDSupported())
			assert.Equal(t, tt.historical, ats.Historical)
		})
	}
}

func TestParseATSErrors(t *testing.T) {
	t.Parallel()

	_, err := ParseATS(nil)
	require.ErrorIs(t, err, nfcreader.ErrActivationFailed)

	// T0 announces TA1, TB1 and TC1 but TL only covers T0
	_, err = ParseATS(crcA(0x02, 0x70))
	require.ErrorIs(t, err, nfcreader.ErrMalformedFrame)
}

func TestParseATSWithoutLengthByte(t *testing.T) {
	t.Parallel()

	// the first byte is taken as TL and the second as T0
	ats, err := ParseATS([]byte{0x78, 0x80, 0x82, 0x02, 0x20, 0x63, 0xCB, 0xA3, 0xA0})
	require.NoError(t, err)
	assert.Equal(t, byte(0x78), ats.TL)
	assert.Equal(t, byte(0x80), ats.T0)
	assert.Equal(t, byte(0), ats.FSCI)
	assert.False(t, ats.HasTA1)
	assert.False(t, ats.HasTB1)
	assert.False(t, ats.HasTC1)
	assert.Len(t, ats.Raw, 9)
}
