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


package detection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.bug.st/serial/enumerator"
)

const (
	hydraByID   = "/dev/serial/by-id/usb-Hydrabus_HydraBus_1.0_HYDRA0001-if00"
	flipperByID = "/dev/serial/by-id/usb-Flipper_Devices_Inc._Flipper_Ocari_flip_Ocari-if00"
)

func TestIsPathIgnored(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		path   string
		ignore []string
		want   bool
	}{
		{name: "nil list", path: "/dev/ttyACM0", ignore: nil, want: false},
		{name: "blank device path", path: "", ignore: []string{""}, want: false},
		{name: "hydrabus by-id", path: hydraByID, ignore: []string{hydraByID}, want: true},
		{name: "flipper by-id upper case", path: flipperByID, ignore: []string{"/DEV/SERIAL/BY-ID/USB-FLIPPER_DEVICES_INC._FLIPPER_OCARI_FLIP_OCARI-IF00"}, want: true},
		{name: "by-id does not match its tty", path: "/dev/ttyACM0", ignore: []string{flipperByID}, want: false},
		{name: "macOS cu vs tty node", path: "/dev/cu.usbmodemHYDRA1", ignore: []string{"/dev/tty.usbmodemHYDRA1"}, want: false},
		{name: "macOS cu node", path: "/dev/cu.usbmodemflip_Ocari1", ignore: []string{"/dev/cu.usbmodemflip_Ocari1"}, want: true},
		{name: "trailing slash cleaned", path: "/dev/ttyACM1/", ignore: []string{"/dev/ttyACM1"}, want: true},
		{name: "dot segments cleaned", path: "/dev/serial/../ttyACM1", ignore: []string{"/dev/ttyACM1"}, want: true},
		{name: "windows com port", path: "com7", ignore: []string{"COM3", "COM7"}, want: true},
		{name: "windows prefix is not a match", path: "COM17", ignore: []string{"COM1"}, want: false},
		{name: "blank ignore entries skipped", path: "/dev/ttyACM2", ignore: []string{"", " ", "/dev/ttyACM3"}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, IsPathIgnored(tt.path, tt.ignore))
		})
	}
}

func TestDetectAllIgnorePaths(t *testing.T) {
	t.Parallel()

	ports := listPorts(
		hydraBus(hydraByID),
		flipper("/dev/cu.usbmodemflip_Ocari1", "Flipper Ocari"),
		hydraBus("COM4"),
	)

	tests := []struct {
		name    string
		ignore  []string
		want    []string
		wantErr error
	}{
		{
			name: "nothing ignored",
			want: []string{"/dev/cu.usbmodemflip_Ocari1", hydraByID, "COM4"},
		},
		{
			name:   "flipper ignored",
			ignore: []string{"/dev/cu.usbmodemflip_Ocari1"},
			want:   []string{hydraByID, "COM4"},
		},
		{
			name:   "hydrabus ignored by id and com port",
			ignore: []string{hydraByID, "com4"},
			want:   []string{"/dev/cu.usbmodemflip_Ocari1"},
		},
		{
			name:    "everything ignored",
			ignore:  []string{hydraByID, "COM4", "/dev/cu.usbmodemflip_Ocari1"},
			wantErr: ErrNoDevicesFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			found, err := DetectAll(&Options{Lister: ports, IgnorePaths: tt.ignore})
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			paths := make([]string, 0, len(found))
			for _, d := range found {
				paths = append(paths, d.Path)
			}
			assert.Equal(t, tt.want, paths)
		})
	}
}

func TestDefaultOptionsIgnoreNothing(t *testing.T) {
	t.Parallel()

	opts := DefaultOptions()
	assert.Nil(t, opts.IgnorePaths)
	assert.NotNil(t, opts.Lister)

	opts.Lister = func() ([]*enumerator.PortDetails, error) {
		return []*enumerator.PortDetails{hydraBus("/dev/ttyACM0")}, nil
	}
	found, err := DetectAll(&opts)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "/dev/ttyACM0", found[0].Path)
}
