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
	"fmt"

	nfcreader "github.com/ZaparooProject/go-nfcreader"
)

// New reports that libnfc support was not compiled in. Options are still
// validated so configuration errors surface the same way on every build.
func New(conn string, opts ...Option) (nfcreader.Transceiver, error) {
	if _, err := newSettings(opts); err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("%w: libnfc device %q (build with -tags libnfc)", nfcreader.ErrNotSupported, conn)
}
