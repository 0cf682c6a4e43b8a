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


package serialport

import (
	"bytes"
	"sync"
	"time"
)

// FakePort is an in-memory Port for driver tests. Every write is passed
// to Respond, whose return value becomes readable. Reads on an empty
// buffer return 0 bytes as a timed out serial port does.
type FakePort struct {
	Respond func(written []byte) []byte

	in      bytes.Buffer
	written [][]byte
	timeout time.Duration
	mu      sync.Mutex
	closed  bool
}

// Feed makes data readable
func (f *FakePort) Feed(data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.in.Write(data)
}

// Written returns every chunk written so far
func (f *FakePort) Written() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]byte(nil), f.written...)
}

// WrittenBytes returns everything written as one slice
func (f *FakePort) WrittenBytes() []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return bytes.Join(f.written, nil)
}

// Closed reports whether Close was called
func (f *FakePort) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// Timeout returns the last read timeout set
func (f *FakePort) Timeout() time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.timeout
}

// Read implements Port
func (f *FakePort) Read(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.in.Len() == 0 {
		return 0, nil
	}
	return f.in.Read(p)
}

// Write implements Port
func (f *FakePort) Write(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.written = append(f.written, append([]byte(nil), p...))
	if f.Respond != nil {
		f.in.Write(f.Respond(p))
	}
	return len(p), nil
}

// Close implements Port
func (f *FakePort) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

// SetReadTimeout implements Port
func (f *FakePort) SetReadTimeout(t time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.timeout = t
	return nil
}

// ResetInputBuffer implements Port
func (f *FakePort) ResetInputBuffer() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.in.Reset()
	return nil
}

// ResetOutputBuffer implements Port
func (*FakePort) ResetOutputBuffer() error { return nil }
