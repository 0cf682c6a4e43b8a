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

package iso14443

import (
	"bytes"
	"fmt"

	nfcreader "github.com/ZaparooProject/go-nfcreader"
)

// DefaultMaxReassemblySize bounds a reassembled APDU: an extended-length
// response of 65536 bytes plus its status word.
const DefaultMaxReassemblySize = 65538

// Fragment splits apdu into chunks of at most maxLen bytes. An empty apdu
// yields one empty chunk. When len(apdu) is a multiple of maxLen the last
// full chunk is the final one; no empty trailer is produced.
func Fragment(apdu []byte, maxLen int) ([][]byte, error) {
	if maxLen < 1 {
		return nil, fmt.Errorf("%w: fragment size %d", nfcreader.ErrInvalidParameter, maxLen)
	}
	if len(apdu) == 0 {
		return [][]byte{{}}, nil
	}

	chunks := make([][]byte, 0, (len(apdu)+maxLen-1)/maxLen)
	for offset := 0; offset < len(apdu); offset += maxLen {
		end := min(offset+maxLen, len(apdu))
		chunks = append(chunks, apdu[offset:end])
	}
	return chunks, nil
}

// Reassembler concatenates the information fields of a chained sequence
// of I-blocks in the order received.
type Reassembler struct {
	buffer     bytes.Buffer
	limit      int
	inProgress bool
}

// NewReassembler creates a reassembler rejecting data past limit bytes.
// A limit below one uses DefaultMaxReassemblySize.
func NewReassembler(limit int) *Reassembler {
	if limit < 1 {
		limit = DefaultMaxReassemblySize
	}
	return &Reassembler{limit: limit}
}

// Add appends the information field of block. It reports done once a
// block without the chaining bit arrives; Take then returns the data.
func (r *Reassembler) Add(block *TPDU) (bool, error) {
	if block.Type() != BlockI {
		r.Reset()
		return false, fmt.Errorf("%w: %s-block in chained sequence", nfcreader.ErrUnexpectedBlock, block.Type())
	}
	if r.buffer.Len()+len(block.INF) > r.limit {
		r.Reset()
		return false, fmt.Errorf("%w: reassembly exceeds %d bytes", nfcreader.ErrFrameTooLarge, r.limit)
	}

	r.inProgress = true
	_, _ = r.buffer.Write(block.INF)
	return !block.IsChaining(), nil
}

// Take returns the reassembled data and resets the reassembler
func (r *Reassembler) Take() []byte {
	result := make([]byte, r.buffer.Len())
	copy(result, r.buffer.Bytes())
	r.Reset()
	return result
}

// Reset drops any partial data
func (r *Reassembler) Reset() {
	r.buffer.Reset()
	r.inProgress = false
}

// InProgress returns true while a chained sequence is open
func (r *Reassembler) InProgress() bool {
	return r.inProgress
}
