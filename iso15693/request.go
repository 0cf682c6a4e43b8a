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

package iso15693

import (
	"fmt"

	nfcreader "github.com/ZaparooProject/go-nfcreader"
)

// Field is one optional request field. Empty fields are not sent.
type Field struct {
	Name  string
	Value []byte
}

// Request is an ISO15693 request: flags, command code, then the optional
// fields of that command in their fixed order.
type Request struct {
	Fields  []Field
	Command Command
	Flags   byte
}

// Bytes encodes the request. Only non-empty fields are emitted.
func (r *Request) Bytes() []byte {
	out := []byte{r.Flags, byte(r.Command)}
	for _, f := range r.Fields {
		out = append(out, f.Value...)
	}
	return out
}

// Field returns the value of the named field, nil when absent
func (r *Request) Field(name string) []byte {
	for _, f := range r.Fields {
		if f.Name == name {
			return f.Value
		}
	}
	return nil
}

// Option reports whether the request has the option flag set
func (r *Request) Option() bool {
	return r.Flags&FlagInventory == 0 && r.Flags&FlagOption != 0
}

func newRequest(cmd Command, flags byte, fields ...Field) *Request {
	return &Request{Command: cmd, Flags: flags, Fields: fields}
}

// wireUID converts a UID given most significant byte first into the
// least significant byte first order used on the air.
func wireUID(uid []byte) ([]byte, error) {
	if len(uid) == 0 {
		return nil, nil
	}
	if len(uid) != UIDLength {
		return nil, fmt.Errorf("%w: UID of %d bytes", nfcreader.ErrInvalidParameter, len(uid))
	}
	return reversed(uid), nil
}

func reversed(b []byte) []byte {
	out := make([]byte, len(b))
	for i, v := range b {
		out[len(b)-1-i] = v
	}
	return out
}

// NewInventory builds an Inventory request. The mask length byte is
// always present and counts bits; afi is sent only when non-empty.
func NewInventory(flags byte, afi, mask []byte) *Request {
	return newRequest(CmdInventory, flags,
		Field{Name: "afi", Value: afi},
		Field{Name: "mask_len", Value: []byte{byte(len(mask) * 8)}},
		Field{Name: "mask", Value: mask},
	)
}

// NewStayQuiet builds a Stay quiet request, always addressed
func NewStayQuiet(flags byte, uid []byte) (*Request, error) {
	if len(uid) == 0 {
		return nil, fmt.Errorf("%w: stay quiet needs a UID", nfcreader.ErrInvalidParameter)
	}
	w, err := wireUID(uid)
	if err != nil {
		return nil, err
	}
	return newRequest(CmdStayQuiet, addressed(flags, w), Field{Name: "uid", Value: w}), nil
}

// NewReadSingleBlock builds a Read single block request
func NewReadSingleBlock(flags byte, uid []byte, block byte) (*Request, error) {
	w, err := wireUID(uid)
	if err != nil {
		return nil, err
	}
	return newRequest(CmdReadSingleBlock, addressed(flags, w),
		Field{Name: "uid", Value: w},
		Field{Name: "block_nb", Value: []byte{block}},
	), nil
}

// NewWriteSingleBlock builds a Write single block request
func NewWriteSingleBlock(flags byte, uid []byte, block byte, data []byte) (*Request, error) {
	w, err := wireUID(uid)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty block data", nfcreader.ErrInvalidParameter)
	}
	return newRequest(CmdWriteSingleBlock, addressed(flags, w),
		Field{Name: "uid", Value: w},
		Field{Name: "block_nb", Value: []byte{block}},
		Field{Name: "data", Value: data},
	), nil
}

// NewReadMultipleBlocks builds a Read multiple blocks request. count is
// the number of blocks minus one, as sent on the air.
func NewReadMultipleBlocks(flags byte, uid []byte, first, count byte) (*Request, error) {
	w, err := wireUID(uid)
	if err != nil {
		return nil, err
	}
	return newRequest(CmdReadMultipleBlocks, addressed(flags, w),
		Field{Name: "uid", Value: w},
		Field{Name: "first_block_nb", Value: []byte{first}},
		Field{Name: "nb_blocks", Value: []byte{count}},
	), nil
}

// NewWriteMultipleBlocks builds a Write multiple blocks request
func NewWriteMultipleBlocks(flags byte, uid []byte, first, count byte, data []byte) (*Request, error) {
	w, err := wireUID(uid)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty block data", nfcreader.ErrInvalidParameter)
	}
	return newRequest(CmdWriteMultipleBlocks, addressed(flags, w),
		Field{Name: "uid", Value: w},
		Field{Name: "first_block_nb", Value: []byte{first}},
		Field{Name: "nb_blocks", Value: []byte{count}},
		Field{Name: "data", Value: data},
	), nil
}

// NewSelect builds a Select request, always addressed
func NewSelect(flags byte, uid []byte) (*Request, error) {
	if len(uid) == 0 {
		return nil, fmt.Errorf("%w: select needs a UID", nfcreader.ErrInvalidParameter)
	}
	w, err := wireUID(uid)
	if err != nil {
		return nil, err
	}
	return newRequest(CmdSelect, addressed(flags, w), Field{Name: "uid", Value: w}), nil
}

// NewResetToReady builds a Reset to ready request
func NewResetToReady(flags byte, uid []byte) (*Request, error) {
	w, err := wireUID(uid)
	if err != nil {
		return nil, err
	}
	return newRequest(CmdResetToReady, addressed(flags, w), Field{Name: "uid", Value: w}), nil
}

// NewGetSystemInfo builds a Get system information request
func NewGetSystemInfo(flags byte, uid []byte) (*Request, error) {
	w, err := wireUID(uid)
	if err != nil {
		return nil, err
	}
	return newRequest(CmdGetSystemInfo, addressed(flags, w), Field{Name: "uid", Value: w}), nil
}

// NewGetMultipleBlockSecurityStatus builds a Get multiple block security
// status request
func NewGetMultipleBlockSecurityStatus(flags byte, uid []byte, first, count byte) (*Request, error) {
	w, err := wireUID(uid)
	if err != nil {
		return nil, err
	}
	return newRequest(CmdGetMultipleBlockSecurityStatus, addressed(flags, w),
		Field{Name: "uid", Value: w},
		Field{Name: "first_block_nb", Value: []byte{first}},
		Field{Name: "nb_blocks", Value: []byte{count}},
	), nil
}
