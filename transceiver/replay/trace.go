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


// Package replay serves a recorded session back to the protocol layers and
// records live sessions into the same TOML trace format.
//
// A trace looks like:
//
//	device = "hydranfc"
//
//	[[exchange]]
//	tx = "26"
//	bits = 7
//	rx = "0400"
//
//	[[exchange]]
//	tx = "e080"
//	crc = true
//	rx = "05788070029e5c"
//
// Frames are hex strings. An exchange with bits set was a short frame,
// error names a failed exchange ("timeout" or "device").
package replay

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/BurntSushi/toml"
	nfcreader "github.com/ZaparooProject/go-nfcreader"
)

// Recorded failure kinds
const (
	ErrorTimeout = "timeout"
	ErrorDevice  = "device"
)

// Exchange is one frame written and the answer received
type Exchange struct {
	TX    string `toml:"tx"`
	RX    string `toml:"rx"`
	Error string `toml:"error,omitempty"`
	Bits  int    `toml:"bits,omitempty"`
	CRC   bool   `toml:"crc,omitempty"`
}

// Trace is a recorded session
type Trace struct {
	Device    string     `toml:"device,omitempty"`
	Exchanges []Exchange `toml:"exchange"`
}

// Load reads a trace file
func Load(path string) (*Trace, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read trace: %w", err)
	}
	return Parse(string(data))
}

// Parse decodes a trace and checks every frame is valid hex
func Parse(data string) (*Trace, error) {
	var tr Trace
	meta, err := toml.Decode(data, &tr)
	if err != nil {
		return nil, fmt.Errorf("%w: trace: %w", nfcreader.ErrInvalidParameter, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("%w: unknown trace key %q", nfcreader.ErrInvalidParameter, undecoded[0].String())
	}
	for i, ex := range tr.Exchanges {
		if _, err := ex.frames(); err != nil {
			return nil, fmt.Errorf("exchange %d: %w", i, err)
		}
		switch ex.Error {
		case "", ErrorTimeout, ErrorDevice:
		default:
			return nil, fmt.Errorf("%w: exchange %d: unknown error %q", nfcreader.ErrInvalidParameter, i, ex.Error)
		}
	}
	return &tr, nil
}

// Encode writes the trace as TOML
func (t *Trace) Encode(w io.Writer) error {
	if err := toml.NewEncoder(w).Encode(t); err != nil {
		return fmt.Errorf("encode trace: %w", err)
	}
	return nil
}

// Save writes the trace to path
func (t *Trace) Save(path string) error {
	var buf bytes.Buffer
	if err := t.Encode(&buf); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("write trace: %w", err)
	}
	return nil
}

type decoded struct {
	tx, rx []byte
}

func (e Exchange) frames() (decoded, error) {
	tx, err := hex.DecodeString(e.TX)
	if err != nil {
		return decoded{}, fmt.Errorf("%w: tx %q: %w", nfcreader.ErrMalformedFrame, e.TX, err)
	}
	rx, err := hex.DecodeString(e.RX)
	if err != nil {
		return decoded{}, fmt.Errorf("%w: rx %q: %w", nfcreader.ErrMalformedFrame, e.RX, err)
	}
	return decoded{tx: tx, rx: rx}, nil
}

func newExchange(tx []byte, bits int, addCRC bool, rx []byte, err error) Exchange {
	ex := Exchange{
		TX:   hex.EncodeToString(tx),
		RX:   hex.EncodeToString(rx),
		Bits: bits,
		CRC:  addCRC,
	}
	switch {
	case err == nil:
	case nfcreader.GetErrorType(err) == nfcreader.ErrorTypeTimeout:
		ex.Error = ErrorTimeout
		ex.RX = ""
	default:
		ex.Error = ErrorDevice
		ex.RX = ""
	}
	return ex
}
