//go:build !pcsc

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


package pcsc

import (
	"fmt"

	nfcreader "github.com/ZaparooProject/go-nfcreader"
)

// Open reports that PC/SC support was not compiled in
func Open(reader string, _ ...Option) (*Relay, error) {
	return nil, fmt.Errorf("%w: PC/SC reader %q (build with -tags pcsc)", nfcreader.ErrNotSupported, reader)
}
