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


package frontend

import (
	"context"
	"path/filepath"
	"testing"

	nfcreader "github.com/ZaparooProject/go-nfcreader"
	"github.com/ZaparooProject/go-nfcreader/detection"
	"github.com/ZaparooProject/go-nfcreader/internal/config"
	"github.com/ZaparooProject/go-nfcreader/transceiver/replay"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.bug.st/serial/enumerator"
)

func lister(ports ...*enumerator.PortDetails) *detection.Options {
	return &detection.Options{
		Lister: func() ([]*enumerator.PortDetails, error) { return ports, nil },
	}
}

var (
	hydraPort   = &enumerator.PortDetails{Name: "/dev/ttyACM0", IsUSB: true, VID: "1D50", PID: "60A7"}
	flipperPort = &enumerator.PortDetails{Name: "/dev/ttyACM1", IsUSB: true, VID: "0483", PID: "5740"}
)

func TestOpenSerialDrivers(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		driver string
		port   string
		want   nfcreader.TransceiverType
	}{
		{name: "hydranfc detected", driver: "hydranfc", want: nfcreader.TransceiverHydraNFC},
		{name: "flipper detected", driver: "flipper", want: nfcreader.TransceiverFlipper},
		{name: "explicit port", driver: "hydranfc", port: "/dev/ttyUSB7", want: nfcreader.TransceiverHydraNFC},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := config.Default()
			cfg.Driver, cfg.Port = tt.driver, tt.port
			tr, err := open(context.Background(), cfg, zerolog.Nop(), lister(hydraPort, flipperPort))
			require.NoError(t, err)
			assert.Equal(t, tt.want, tr.Type())
		})
	}
}

func TestResolvePort(t *testing.T) {
	t.Parallel()

	port, err := resolvePort(context.Background(), nfcreader.TransceiverFlipper, "", lister(hydraPort, flipperPort))
	require.NoError(t, err)
	assert.Equal(t, "/dev/ttyACM1", port)

	port, err = resolvePort(context.Background(), nfcreader.TransceiverFlipper, "COM4", lister())
	require.NoError(t, err)
	assert.Equal(t, "COM4", port)

	_, err = resolvePort(context.Background(), nfcreader.TransceiverFlipper, "", lister(hydraPort))
	require.ErrorIs(t, err, detection.ErrNoDevicesFound)
}

func TestOpenReplay(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "trace.toml")
	trace := &replay.Trace{Exchanges: []replay.Exchange{{TX: "26", RX: "0400", Bits: 7}}}
	require.NoError(t, trace.Save(path))

	cfg := config.Default()
	cfg.Driver, cfg.Trace = "replay", path
	tr, err := Open(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	resp, err := tr.WriteBits([]byte{0x26}, 7)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x04, 0x00}, resp)

	cfg.Trace = filepath.Join(t.TempDir(), "missing.toml")
	_, err = Open(context.Background(), cfg, zerolog.Nop())
	require.Error(t, err)
}

func TestOpenUnknownDriver(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.Driver = "pn532"
	_, err := Open(context.Background(), cfg, zerolog.Nop())
	require.ErrorIs(t, err, nfcreader.ErrInvalidParameter)
}
