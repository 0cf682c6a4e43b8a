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

/*
Package nfcreader exchanges application commands with contactless cards and
tags, and emulates ISO/IEC 14443-4 cards, over any raw radio front-end.

The root package defines the Transceiver capability that front-end drivers
implement, the error taxonomy shared by every layer and the retry policy
used for link management. Protocol logic lives in sub-packages:

  - iso14443: block protocol (I/R/S blocks, chaining, WTX), Type A and
    Type B activation, card emulation
  - iso15693: vicinity card requests and response parsing
  - iso7816: APDU encoding and the GET RESPONSE/Le correction client
  - reader: a facade binding a transceiver to the protocol sessions
  - polling: a card presence monitor with detection and removal callbacks
  - detection: USB serial discovery of supported front-ends
  - relay/pcsc: an APDU handler forwarding emulated-card traffic to a
    PC/SC reader

Drivers live under transceiver/ (HydraNFC, Flipper Zero, libnfc, replay).
The libnfc driver and the PC/SC relay need cgo and are enabled with the
libnfc and pcsc build tags.

Basic Usage:

	import (
	    "github.com/ZaparooProject/go-nfcreader/reader"
	    "github.com/ZaparooProject/go-nfcreader/transceiver/hydranfc"
	)

	tr, err := hydranfc.New("/dev/ttyACM0")
	if err != nil {
	    log.Fatal(err)
	}
	defer tr.Close()

	r, err := reader.New(tr)
	if err != nil {
	    log.Fatal(err)
	}
	if err := r.Connect(ctx); err != nil {
	    log.Fatal(err)
	}

	card, err := r.PollA(ctx)
	if err != nil {
	    log.Fatal(err)
	}
	fmt.Printf("UID: %X\n", card.UID)

	rapdu, err := r.SendAPDU(ctx, []byte{0x00, 0xA4, 0x04, 0x00, 0x00})

Frames never carry a CRC computed by this module. The transceiver is told
per exchange whether to append one, and ISO14443 responses are handed back
with their two CRC bytes still attached.
*/
package nfcreader
