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


package main

import (
	"context"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"testing"

	nfcreader "github.com/ZaparooProject/go-nfcreader"
	"github.com/ZaparooProject/go-nfcreader/internal/frame"
	"github.com/ZaparooProject/go-nfcreader/iso14443"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	require.NoError(t, err)
	return b
}

func TestResponderBuiltin(t *testing.T) {
	t.Parallel()

	r := NewResponder(zerolog.Nop())

	resp, err := r.HandleAPDU(context.Background(), mustHex(t, selectPPSE))
	require.NoError(t, err)
	assert.Len(t, resp, 91)
	assert.Equal(t, []byte{0x90, 0x00}, resp[len(resp)-2:])
	assert.Equal(t, 1, r.Served(mustHex(t, selectPPSE)))

	resp, err = r.HandleAPDU(context.Background(), []byte{0x00, 0xB2, 0x01, 0x0C, 0x00})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x6F, 0x00}, resp)
}

func TestResponderParse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		data    string
		cmd     string
		want    string
		wantErr bool
	}{
		{
			name: "entry",
			data: "[[response]]\ncommand = \"00B2010C00\"\nresponse = \"700A9000\"\n",
			cmd:  "00B2010C00",
			want: "700A9000",
		},
		{
			name: "spaced hex",
			data: "[[response]]\ncommand = \"00 b2 01 0c 00\"\nresponse = \"90 00\"\n",
			cmd:  "00B2010C00",
			want: "9000",
		},
		{
			name: "default answer",
			data: "default = \"6A82\"\n",
			cmd:  "00B2010C00",
			want: "6A82",
		},
		{name: "unknown key", data: "answer = \"9000\"\n", wantErr: true},
		{name: "bad hex", data: "[[response]]\ncommand = \"00B2\"\nresponse = \"XX\"\n", wantErr: true},
		{name: "short command", data: "[[response]]\ncommand = \"00B2\"\nresponse = \"9000\"\n", wantErr: true},
		{name: "short default", data: "default = \"6A\"\n", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r := NewResponder(zerolog.Nop())
			err := r.Parse(tt.data)
			if tt.wantErr {
				require.ErrorIs(t, err, nfcreader.ErrInvalidParameter)
				return
			}
			require.NoError(t, err)

			resp, err := r.HandleAPDU(context.Background(), mustHex(t, tt.cmd))
			require.NoError(t, err)
			assert.Equal(t, mustHex(t, tt.want), resp)
		})
	}
}

func TestResponderLoad(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "responses.toml")
	data := "[[response]]\ncommand = \"" + selectPPSE + "\"\nresponse = \"6A82\"\n"
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	r := NewResponder(zerolog.Nop())
	require.NoError(t, r.Load(path))
	resp, err := r.HandleAPDU(context.Background(), mustHex(t, selectPPSE))
	require.NoError(t, err)
	assert.Equal(t, []byte{0x6A, 0x82}, resp)

	require.Error(t, r.Load(filepath.Join(t.TempDir(), "missing.toml")))
}

func TestResponderFallback(t *testing.T) {
	t.Parallel()

	r := NewResponder(zerolog.Nop())
	var forwarded [][]byte
	r.SetFallback(iso14443.APDUHandlerFunc(func(_ context.Context, capdu []byte) ([]byte, error) {
		forwarded = append(forwarded, capdu)
		if capdu[1] == 0x84 {
			return nil, errors.New("card gone")
		}
		return []byte{0x01, 0x02, 0x90, 0x00}, nil
	}))

	resp, err := r.HandleAPDU(context.Background(), mustHex(t, selectPPSE))
	require.NoError(t, err)
	assert.Len(t, resp, 91)
	assert.Empty(t, forwarded)

	resp, err = r.HandleAPDU(context.Background(), []byte{0x00, 0xB2, 0x01, 0x0C, 0x00})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01, 0x02, 0x90, 0x00}, resp)

	_, err = r.HandleAPDU(context.Background(), []byte{0x00, 0x84, 0x00, 0x00, 0x08})
	require.Error(t, err)
	assert.Len(t, forwarded, 2)
}

// The emulator answers RATS with the ATS and a PPSE SELECT with the built-in
// directory, chained in 16 byte blocks the reader pulls with R(ACK).
func TestResponderBehindCardEmulator(t *testing.T) {
	t.Parallel()

	mock := nfcreader.NewMockTransceiver()
	mock.QueueFieldEvent(nfcreader.FieldEventOn)
	mock.QueueCommand(frame.AppendCRCA([]byte{frame.RATS, 0x80}))
	mock.QueueCommand(frame.AppendCRCA(append([]byte{0x02}, mustHex(t, selectPPSE)...)))
	for _, ack := range []byte{0xA3, 0xA2, 0xA3, 0xA2, 0xA3} {
		mock.QueueCommand(frame.AppendCRCA([]byte{ack}))
	}

	em, err := iso14443.NewCardEmulator(mock, NewResponder(zerolog.Nop()))
	require.NoError(t, err)
	err = em.Run(context.Background())
	require.True(t, iso14443.IsClosed(err))

	responses := mock.Responses()
	require.Len(t, responses, 7)
	assert.Equal(t, iso14443.DefaultATS, responses[0].Data)

	tests := []struct {
		pcb byte
		inf int
	}{
		{pcb: 0x12, inf: 16},
		{pcb: 0x13, inf: 16},
		{pcb: 0x12, inf: 16},
		{pcb: 0x13, inf: 16},
		{pcb: 0x12, inf: 16},
		{pcb: 0x03, inf: 11},
	}
	var rapdu []byte
	for i, tt := range tests {
		block := responses[i+1].Data
		require.NotEmpty(t, block, "block %d", i)
		assert.Equal(t, tt.pcb, block[0], "block %d", i)
		assert.Len(t, block[1:], tt.inf, "block %d", i)
		rapdu = append(rapdu, block[1:]...)
	}
	assert.Equal(t, mustHex(t, ppseResponse), rapdu)
}

func TestEmulatorOptions(t *testing.T) {
	t.Parallel()

	emOpts, err := emulatorOptions(&options{ats: "0578807002"}, zerolog.Nop())
	require.NoError(t, err)
	assert.Len(t, emOpts, 2)

	emOpts, err = emulatorOptions(&options{ats: "0578"}, zerolog.Nop())
	require.NoError(t, err)
	_, err = iso14443.NewCardEmulator(nfcreader.NewMockTransceiver(), NewResponder(zerolog.Nop()), emOpts...)
	require.ErrorIs(t, err, nfcreader.ErrInvalidParameter)

	_, err = emulatorOptions(&options{ats: "zz"}, zerolog.Nop())
	require.ErrorIs(t, err, nfcreader.ErrInvalidParameter)
}
