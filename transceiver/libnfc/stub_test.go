//go:build !libnfc

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


package libnfc

import (
	"testing"
	"time"

	nfcreader "github.com/ZaparooProject/go-nfcreader"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithoutLibNFC(t *testing.T) {
	t.Parallel()

	tr, err := New("pn532_uart:/dev/ttyUSB0")
	require.ErrorIs(t, err, nfcreader.ErrNotSupported)
	assert.Nil(t, tr)
	assert.Contains(t, err.Error(), "pn532_uart:/dev/ttyUSB0")

	_, err = New("", WithTimeout(0))
	assert.ErrorIs(t, err, nfcreader.ErrInvalidParameter)

	_, err = New("", WithTimeout(time.Second))
	assert.ErrorIs(t, err, nfcreader.ErrNotSupported)
}
