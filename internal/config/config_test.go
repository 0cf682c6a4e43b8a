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


package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	nfcreader "github.com/ZaparooProject/go-nfcreader"
	"github.com/ZaparooProject/go-nfcreader/iso14443"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fullConfig = `
driver = "flipper"
port = " /dev/ttyACM1 "
baud = 230400
mode = "b"
fsdi = 5
cid = 1
nad = 2
block_size = 32
max_wtx = 4
pps = true
dri = 2
dsi = 1
timeout = "250ms"
log_level = "DEBUG"
retry_attempts = 5
ignore_paths = ["/dev/ttyUSB0", " ", "/dev/ttyS0"]
`

func TestParseDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Parse("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, iso14443.DefaultConfig(), cfg.Session)
	assert.Equal(t, nfcreader.ModeISO14443A, cfg.Mode)
}

func TestParseOverrides(t *testing.T) {
	t.Parallel()

	cfg, err := Parse(fullConfig)
	require.NoError(t, err)

	assert.Equal(t, "flipper", cfg.Driver)
	assert.Equal(t, "/dev/ttyACM1", cfg.Port)
	assert.Equal(t, 230400, cfg.Baud)
	assert.Equal(t, nfcreader.ModeISO14443B, cfg.Mode)
	assert.Equal(t, byte(5), cfg.Session.FSDI)
	assert.Equal(t, byte(1), cfg.Session.CID)
	assert.True(t, cfg.Session.AddCID)
	assert.Equal(t, byte(2), cfg.Session.NAD)
	assert.True(t, cfg.Session.AddNAD)
	assert.Equal(t, 32, cfg.Session.BlockSize)
	assert.Equal(t, 4, cfg.Session.MaxWTX)
	assert.Equal(t, iso14443.PPSParams{SendPPS1: true, DRI: 2, DSI: 1}, cfg.PPS)
	assert.Equal(t, 250*time.Millisecond, cfg.Timeout)
	assert.Equal(t, zerolog.DebugLevel, cfg.LogLevel)
	assert.Equal(t, 5, cfg.Retry.MaxAttempts)
	assert.Equal(t, []string{"/dev/ttyUSB0", "/dev/ttyS0"}, cfg.IgnorePaths)

	// untouched keys keep their defaults
	assert.Equal(t, iso14443.DefaultMaxReassemblySize, cfg.Session.MaxResponseSize)
	assert.Equal(t, Default().Retry.InitialBackoff, cfg.Retry.InitialBackoff)

	assert.Equal(t, cfg.PPS, cfg.Activation().PPS)
}

func TestParseErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
	}{
		{name: "syntax", input: `driver = `},
		{name: "unknown key", input: `colour = "red"`},
		{name: "unknown driver", input: `driver = "pn532"`},
		{name: "replay without trace", input: `driver = "replay"`},
		{name: "bad mode", input: `mode = "c"`},
		{name: "fsdi out of range", input: `fsdi = 9`},
		{name: "cid out of range", input: `cid = 15`},
		{name: "negative nad", input: `nad = -1`},
		{name: "dri out of range", input: `dri = 4`},
		{name: "bad timeout", input: `timeout = "soon"`},
		{name: "zero timeout", input: `timeout = "0s"`},
		{name: "bad level", input: `log_level = "loud"`},
		{name: "zero baud", input: `baud = 0`},
		{name: "negative block size", input: `block_size = -1`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Parse(tt.input)
			require.Error(t, err)
		})
	}
}

func TestLoad(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "reader.toml")
	require.NoError(t, os.WriteFile(path, []byte("driver = \"replay\"\ntrace = \"session.toml\"\nmode = \"15693\"\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "replay", cfg.Driver)
	assert.Equal(t, "session.toml", cfg.Trace)
	assert.Equal(t, nfcreader.ModeISO15693, cfg.Mode)

	_, err = Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.Error(t, err)
}
