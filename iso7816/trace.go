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


package iso7816

// Transaction is one command and the response it got
type Transaction struct {
	Command  *CommandAPDU
	Response *ResponseAPDU
}

// Trace is every transaction run to complete one logical command,
// including GET RESPONSE and Le corrections.
type Trace []Transaction

// Last returns the final transaction, nil for an empty trace
func (t Trace) Last() *Transaction {
	if len(t) == 0 {
		return nil
	}
	return &t[len(t)-1]
}

// Status returns the status word of the final response
func (t Trace) Status() StatusWord {
	last := t.Last()
	if last == nil || last.Response == nil {
		return 0
	}
	return last.Response.Status
}

// IsSuccess reports whether the final response completed the command
func (t Trace) IsSuccess() bool {
	return t.Status() == SWSuccess
}

// Response merges the trace into the response of the logical command:
// the data of every GET RESPONSE round and the final status word. Data
// of a response answered with 6Cxx is dropped since the command was
// sent again.
func (t Trace) Response() *ResponseAPDU {
	if len(t) == 0 {
		return nil
	}
	var data []byte
	for _, tx := range t {
		if tx.Response == nil || tx.Response.Status.SW1() == 0x6C {
			continue
		}
		data = append(data, tx.Response.Data...)
	}
	return &ResponseAPDU{Data: data, Status: t.Status()}
}
