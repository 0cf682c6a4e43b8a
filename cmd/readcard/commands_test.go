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
	"bytes"
	"fmt"
	"path/filepath"
	"testing"

	nfcreader "github.com/ZaparooProject/go-nfcreader"
	"github.com/ZaparooProject/go-nfcreader/iso7816"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandListSet(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		value   string
		want    []byte
		wantErr bool
	}{
		{name: "plain", value: "00A4040000", want: []byte{0x00, 0xA4, 0x04, 0x00, 0x00}},
		{name: "spaces", value: "00 b2 01 0c 00", want: []byte{0x00, 0xB2, 0x01, 0x0C, 0x00}},
		{name: "colons", value: "00:84:00:00:08", want: []byte{0x00, 0x84, 0x00, 0x00, 0x08}},
		{name: "bad hex", value: "00A4ZZ", wantErr: true},
		{name: "too short", value: "00A4", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var list commandList
			err := list.Set(tt.value)
			if tt.wantErr {
				require.Error(t, err)
				assert.Empty(t, list)
				return
			}
			require.NoError(t, err)
			require.Len(t, list, 1)
			assert.Equal(t, tt.want, list[0])
		})
	}
}

func TestDefaultCommands(t *testing.T) {
	t.Parallel()

	cmds, err := commandList(nil).commands()
	require.NoError(t, err)
	require.Len(t, cmds, 1+len(defaultAIDs))

	raw, err := cmds[0].Bytes()
	require.NoError(t, err)
	assert.Equal(t, "00A404000E325041592E5359532E444446303100", fmt.Sprintf("%X", raw))

	raw, err = cmds[1].Bytes()
	require.NoError(t, err)
	assert.Equal(t, "00A4040007A000000042101000", fmt.Sprintf("%X", raw))
}

func TestExplicitCommands(t *testing.T) {
	t.Parallel()

	var list commandList
	require.NoError(t, list.Set("00B2010C00"))
	cmds, err := list.commands()
	require.NoError(t, err)
	require.Len(t, cmds, 1)
	assert.Equal(t, byte(0xB2), cmds[0].INS)
	assert.Equal(t, "00B2010C00", list.String())
}

func TestPrintTrace(t *testing.T) {
	t.Parallel()

	fci := append([]byte{0x6F, 0x10, 0x84, 0x0E}, ppse...)
	cmd := iso7816.SelectAID([]byte(ppse))
	trace := iso7816.Trace{
		{Command: cmd, Response: iso7816.NewResponseAPDU(nil, 0x6110)},
		{Command: iso7816.GetResponse(0x00, 0x10), Response: iso7816.NewResponseAPDU(fci, iso7816.SWSuccess)},
	}

	var out bytes.Buffer
	printTrace(&out, cmd, trace)

	text := out.String()
	assert.Contains(t, text, "> 00 A4 04 00 0E")
	assert.Contains(t, text, "< 61 10")
	assert.Contains(t, text, "> 00 C0 00 00 10")
	assert.Contains(t, text, "DF name: 325041592E5359532E4444463031")
}

func TestLoadConfig(t *testing.T) {
	t.Parallel()

	cfg, err := loadConfig(&options{driver: "flipper", port: "/dev/ttyACM1", mode: "b", debug: true})
	require.NoError(t, err)
	assert.Equal(t, "flipper", cfg.Driver)
	assert.Equal(t, "/dev/ttyACM1", cfg.Port)
	assert.Equal(t, nfcreader.ModeISO14443B, cfg.Mode)
	assert.Equal(t, zerolog.DebugLevel, cfg.LogLevel)

	trace := filepath.Join(t.TempDir(), "trace.toml")
	cfg, err = loadConfig(&options{driver: "replay", port: trace})
	require.NoError(t, err)
	assert.Equal(t, trace, cfg.Trace)

	_, err = loadConfig(&options{mode: "felica"})
	require.ErrorIs(t, err, nfcreader.ErrInvalidParameter)

	_, err = loadConfig(&options{driver: "replay"})
	require.ErrorIs(t, err, nfcreader.ErrInvalidParameter)
}
