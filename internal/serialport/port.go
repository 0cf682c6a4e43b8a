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


// Package serialport opens the serial links of USB front-ends and reads
// from them with timeouts.
package serialport

import (
	"bytes"
	"fmt"
	"io"
	"time"

	nfcreader "github.com/ZaparooProject/go-nfcreader"
	"go.bug.st/serial"
)

// Port is the part of serial.Port the drivers use
type Port interface {
	io.ReadWriteCloser
	SetReadTimeout(t time.Duration) error
	ResetInputBuffer() error
	ResetOutputBuffer() error
}

// Opener opens a named port
type Opener func(name string, baud int) (Port, error)

// Open opens name at baud with 8N1 framing
func Open(name string, baud int) (Port, error) {
	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(name, mode)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	return port, nil
}

// ReadFull reads exactly n bytes. A read returning nothing means the
// port timed out.
func ReadFull(p Port, n int, device string) ([]byte, error) {
	buf := make([]byte, n)
	got := 0
	for got < n {
		m, err := p.Read(buf[got:])
		if err != nil {
			return buf[:got], nfcreader.NewTransceiverError("read", device, err, nfcreader.ErrorTypeTransient)
		}
		if m == 0 {
			return buf[:got], nfcreader.NewTimeoutError("read", device)
		}
		got += m
	}
	return buf, nil
}

// ReadLine reads up to and including the next newline. The line is
// returned without its line ending.
func ReadLine(p Port, device string) (string, error) {
	var line bytes.Buffer
	b := make([]byte, 1)
	for {
		n, err := p.Read(b)
		if err != nil {
			return line.String(), nfcreader.NewTransceiverError("read", device, err, nfcreader.ErrorTypeTransient)
		}
		if n == 0 {
			return line.String(), nfcreader.NewTimeoutError("read", device)
		}
		if b[0] == '\n' {
			return string(bytes.TrimRight(line.Bytes(), "\r")), nil
		}
		line.WriteByte(b[0])
	}
}
