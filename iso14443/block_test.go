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
	"github.com/ZaparooProject/go-nfcreader/internal/frame"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func crcA(data ...byte) []byte {
	return frame.AppendCRCA(data)
}

func TestDecode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		data    []byte
		want    *TPDU
		wantErr error
	}{
		{
			name: "I-block plain",
			data: crcA(0x02, 0x90, 0x00),
			want: &TPDU{PCB: 0x02, INF: []byte{0x90, 0x00}},
		},
		{
			name: "I-block with CID and NAD",
			data: crcA(0x0F, 0x01, 0x22, 0xAA, 0xBB),
			want: &TPDU{PCB: 0x0F, CID: 0x01, NAD: 0x22, HasCID: true, HasNAD: true, INF: []byte{0xAA, 0xBB}},
		},
		{
			name: "R-block ignores NAD bit",
			data: crcA(0xA6),
			want: &TPDU{PCB: 0xA6, INF: []byte{}},
		},
		{
			name: "S(WTX) with CID",
			data: crcA(0xFA, 0x03, 0x05),
			want: &TPDU{PCB: 0xFA, CID: 0x03, HasCID: true, INF: []byte{0x05}},
		},
		{
			name:    "too short",
			data:    []byte{0x02, 0x00},
			wantErr: nfcreader.ErrMalformedFrame,
		},
		{
			name:    "CID announced but missing",
			data:    []byte{0x0A, 0x00},
			wantErr: nfcreader.ErrMalformedFrame,
		},
		{
			name:    "unknown block type",
			data:    crcA(0x42, 0x00),
			wantErr: nfcreader.ErrMalformedFrame,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := Decode(tt.data)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEncode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		block *TPDU
		want  []byte
	}{
		{
			name:  "I-block",
			block: &TPDU{PCB: 0x03, INF: []byte{0x00, 0xA4}},
			want:  []byte{0x03, 0x00, 0xA4},
		},
		{
			name:  "presence bits follow flags",
			block: &TPDU{PCB: 0x02, CID: 0x01, NAD: 0x10, HasCID: true, HasNAD: true, INF: []byte{0x01}},
			want:  []byte{0x0E, 0x01, 0x10, 0x01},
		},
		{
			name:  "stale presence bits cleared",
			block: &TPDU{PCB: 0x0E, INF: []byte{0x01}},
			want:  []byte{0x02, 0x01},
		},
		{
			name:  "NAD never written on R-blocks",
			block: &TPDU{PCB: 0xA2, NAD: 0x10, HasNAD: true},
			want:  []byte{0xA2},
		},
		{
			name:  "deselect with CID",
			block: &TPDU{PCB: 0xC2, CID: 0x04, HasCID: true},
			want:  []byte{0xCA, 0x04},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.block.Encode())
		})
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	t.Parallel()

	block := &TPDU{PCB: 0x13, CID: 0x02, NAD: 0x21, HasCID: true, HasNAD: true, INF: []byte{1, 2, 3}}
	got, err := Decode(crcA(block.Encode()...))
	require.NoError(t, err)

	assert.Equal(t, BlockI, got.Type())
	assert.True(t, got.IsChaining())
	assert.Equal(t, byte(1), got.BlockNumber())
	assert.Equal(t, block.INF, got.INF)
	assert.Equal(t, block.CID, got.CID)
	assert.Equal(t, block.NAD, got.NAD)
}

func TestWTXReply(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		rx   []byte
		want []byte
		wtxm byte
	}{
		{name: "plain", rx: crcA(0xF2, 0x05), want: []byte{0xF2, 0x05}, wtxm: 5},
		{name: "with CID", rx: crcA(0xFA, 0x01, 0x3B), want: []byte{0xFA, 0x01, 0x3B}, wtxm: 0x3B},
		{name: "power level bits dropped", rx: crcA(0xF2, 0xC1), want: []byte{0xF2, 0x01}, wtxm: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			block, err := Decode(tt.rx)
			require.NoError(t, err)
			require.True(t, block.IsWTX())
			assert.False(t, block.IsDeselect())
			assert.Equal(t, tt.wtxm, block.WTXM())
			assert.Equal(t, tt.want, block.WTXReply().Encode())
		})
	}
}

func TestBlockPredicates(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		pcb      byte
		bt       BlockType
		ack      bool
		nak      bool
		deselect bool
	}{
		{name: "R(ACK) 0", pcb: 0xA2, bt: BlockR, ack: true},
		{name: "R(ACK) 1", pcb: 0xA3, bt: BlockR, ack: true},
		{name: "R(NAK)", pcb: 0xB2, bt: BlockR, nak: true},
		{name: "DESELECT", pcb: 0xC2, bt: BlockS, deselect: true},
		{name: "I-block", pcb: 0x02, bt: BlockI},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			block := &TPDU{PCB: tt.pcb}
			assert.Equal(t, tt.bt, block.Type())
			assert.Equal(t, tt.ack, block.IsACK())
			assert.Equal(t, tt.nak, block.IsNAK())
			assert.Equal(t, tt.deselect, block.IsDeselect())
		})
	}
}

func TestDecodeEncodeIdentity(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		header []byte
	}{
		{name: "I-block 0", header: []byte{0x02}},
		{name: "I-block 1", header: []byte{0x03}},
		{name: "chaining 0", header: []byte{0x12}},
		{name: "chaining 1", header: []byte{0x13}},
		{name: "CID", header: []byte{0x0A, 0x05}},
		{name: "CID chaining", header: []byte{0x1B, 0x0E}},
		{name: "NAD", header: []byte{0x06, 0x21}},
		{name: "CID and NAD", header: []byte{0x0E, 0x01, 0x12}},
		{name: "R(ACK) with CID", header: []byte{0xAB, 0x03}},
		{name: "S(WTX) with CID", header: []byte{0xFA, 0x02}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			for n := 8; n <= 64; n++ {
				b := append([]byte(nil), tt.header...)
				for i := range n {
					b = append(b, byte(i*31+n))
				}

				got, err := Decode(frame.AppendCRCA(append([]byte(nil), b...)))
				require.NoError(t, err, "INF length %d", n)
				assert.Equal(t, b, got.Encode(), "INF length %d", n)
			}
		})
	}
}
