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
	"testing"

	nfcreader "github.com/ZaparooProject/go-nfcreader"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testUID = []byte{0xE0, 0x04, 0x01, 0x50, 0x12, 0x34, 0x56, 0x78}

var testWireUID = []byte{0x78, 0x56, 0x34, 0x12, 0x50, 0x01, 0x04, 0xE0}

func TestInventoryRequest(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		afi  []byte
		mask []byte
		want []byte
	}{
		{name: "defaults", want: []byte{0x26, 0x01, 0x00}},
		{name: "with AFI", afi: []byte{0x07}, want: []byte{0x26, 0x01, 0x07, 0x00}},
		{name: "with mask", mask: []byte{0x78, 0x56}, want: []byte{0x26, 0x01, 0x10, 0x78, 0x56}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, NewInventory(DefaultInventoryFlags, tt.afi, tt.mask).Bytes())
		})
	}
}

func TestAddressedRequests(t *testing.T) {
	t.Parallel()

	build := func(r *Request, err error) []byte {
		require.NoError(t, err)
		return r.Bytes()
	}

	tests := []struct {
		name string
		got  []byte
		want []byte
	}{
		{
			name: "read single block unaddressed",
			got:  build(NewReadSingleBlock(DefaultReadFlags, nil, 0x05)),
			want: []byte{0x42, 0x20, 0x05},
		},
		{
			name: "read single block addressed",
			got:  build(NewReadSingleBlock(DefaultReadFlags, testUID, 0x05)),
			want: append(append([]byte{0x62, 0x20}, testWireUID...), 0x05),
		},
		{
			name: "system info addressed reverses UID",
			got:  build(NewGetSystemInfo(DefaultSystemInfoFlags, testUID)),
			want: append([]byte{0x22, 0x2B}, testWireUID...),
		},
		{
			name: "system info unaddressed clears address flag",
			got:  build(NewGetSystemInfo(DefaultSystemInfoFlags, nil)),
			want: []byte{0x02, 0x2B},
		},
		{
			name: "write single block",
			got:  build(NewWriteSingleBlock(DefaultWriteFlags, nil, 0x01, []byte{1, 2, 3, 4})),
			want: []byte{0x42, 0x21, 0x01, 1, 2, 3, 4},
		},
		{
			name: "read multiple blocks",
			got:  build(NewReadMultipleBlocks(DefaultReadFlags, nil, 0x00, 0x03)),
			want: []byte{0x42, 0x23, 0x00, 0x03},
		},
		{
			name: "write multiple blocks",
			got:  build(NewWriteMultipleBlocks(DefaultWriteMultipleFlags, nil, 0x02, 0x00, []byte{9, 9, 9, 9})),
			want: []byte{0x02, 0x24, 0x02, 0x00, 9, 9, 9, 9},
		},
		{
			name: "reset to ready",
			got:  build(NewResetToReady(DefaultResetToReadyFlags, nil)),
			want: []byte{0x02, 0x26},
		},
		{
			name: "select",
			got:  build(NewSelect(DefaultSelectFlags, testUID)),
			want: append([]byte{0x22, 0x25}, testWireUID...),
		},
		{
			name: "stay quiet",
			got:  build(NewStayQuiet(DefaultStayQuietFlags, testUID)),
			want: append([]byte{0x22, 0x02}, testWireUID...),
		},
		{
			name: "security status",
			got:  build(NewGetMultipleBlockSecurityStatus(DefaultSecurityStatusFlags, nil, 0x00, 0x0F)),
			want: []byte{0x02, 0x2C, 0x00, 0x0F},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.got)
		})
	}
}

func TestRequestValidation(t *testing.T) {
	t.Parallel()

	_, err := NewReadSingleBlock(DefaultReadFlags, []byte{1, 2, 3}, 0)
	require.ErrorIs(t, err, nfcreader.ErrInvalidParameter)

	_, err = NewSelect(DefaultSelectFlags, nil)
	require.ErrorIs(t, err, nfcreader.ErrInvalidParameter)

	_, err = NewStayQuiet(DefaultStayQuietFlags, nil)
	require.ErrorIs(t, err, nfcreader.ErrInvalidParameter)

	_, err = NewWriteSingleBlock(DefaultWriteFlags, nil, 0, nil)
	require.ErrorIs(t, err, nfcreader.ErrInvalidParameter)
}

func TestRequestOption(t *testing.T) {
	t.Parallel()

	read, err := NewReadSingleBlock(DefaultReadFlags, nil, 0)
	require.NoError(t, err)
	assert.True(t, read.Option())

	// bit 7 means something else for inventory requests
	assert.False(t, NewInventory(0x46, nil, nil).Option())

	assert.Equal(t, "Reset to ready", CmdResetToReady.String())
	assert.Equal(t, "command 0xA5", Command(0xA5).String())
}
