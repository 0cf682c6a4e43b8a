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
	"errors"
	"fmt"

	nfcreader "github.com/ZaparooProject/go-nfcreader"
)

// Info flags of a Get system information response
const (
	InfoFlagDSFID      = 0x01
	InfoFlagAFI        = 0x02
	InfoFlagMemorySize = 0x04
	InfoFlagICRef      = 0x08
)

// InventoryResponse is the answer to Inventory
type InventoryResponse struct {
	UID   []byte // most significant byte first
	Flags byte
	DSFID byte
}

// BlockData is one block read from the tag
type BlockData struct {
	Data        []byte
	Security    byte
	HasSecurity bool
}

// Locked reports whether the block security status marks the block locked
func (b BlockData) Locked() bool {
	return b.HasSecurity && b.Security&0x01 != 0
}

// SystemInfo is the answer to Get system information
type SystemInfo struct {
	UID            []byte // most significant byte first
	BlockCount     int
	BlockSize      int
	InfoFlags      byte
	DSFID          byte
	AFI            byte
	ICReference    byte
	HasDSFID       bool
	HasAFI         bool
	HasMemorySize  bool
	HasICReference bool
}

// Manufacturer returns the IC manufacturer encoded in the UID
func (s *SystemInfo) Manufacturer() string {
	return ManufacturerFromUID(s.UID)
}

// Response is a raw answer with the view parsed for its command. Only the
// field matching the command is set. A response with the error flag set
// carries its code in ErrorCode and no parsed view.
type Response struct {
	Inventory      *InventoryResponse
	Block          *BlockData
	SystemInfo     *SystemInfo
	Raw            []byte
	Blocks         []BlockData
	SecurityStatus []byte
	Flags          byte
	ErrorCode      byte
}

// HasError reports whether the tag set the error flag
func (r *Response) HasError() bool {
	return r.Flags&ResponseFlagError != 0
}

// checkResponse rejects empty frames and turns the error flag into a
// ResponseError
func checkResponse(cmd Command, resp []byte) error {
	if len(resp) == 0 {
		return fmt.Errorf("%w: empty %s response", nfcreader.ErrMalformedFrame, cmd)
	}
	if resp[0]&ResponseFlagError == 0 {
		return nil
	}
	if len(resp) < 2 {
		return fmt.Errorf("%w: %s error response without code", nfcreader.ErrMalformedFrame, cmd)
	}
	return &ResponseError{Command: cmd, Code: resp[1]}
}

// ParseStatus checks a response that carries nothing but flags, as for
// writes, Select and Reset to ready
func ParseStatus(cmd Command, resp []byte) error {
	return checkResponse(cmd, resp)
}

// ParseInventory parses flags, DSFID and the UID, which is reversed from
// the wire order.
func ParseInventory(resp []byte) (*InventoryResponse, error) {
	if err := checkResponse(CmdInventory, resp); err != nil {
		return nil, err
	}
	if len(resp) < 2+UIDLength {
		return nil, fmt.Errorf("%w: inventory response of %d bytes", nfcreader.ErrMalformedFrame, len(resp))
	}
	return &InventoryResponse{
		Flags: resp[0],
		DSFID: resp[1],
		UID:   reversed(resp[2 : 2+UIDLength]),
	}, nil
}

// ParseReadSingleBlock parses a block. The security status byte is present
// only when the request had the option flag.
func ParseReadSingleBlock(resp []byte, option bool) (*BlockData, error) {
	if err := checkResponse(CmdReadSingleBlock, resp); err != nil {
		return nil, err
	}
	b := &BlockData{}
	pos := 1
	if option {
		if len(resp) < 2 {
			return nil, fmt.Errorf("%w: read single block response without security status", nfcreader.ErrMalformedFrame)
		}
		b.Security = resp[1]
		b.HasSecurity = true
		pos++
	}
	b.Data = append([]byte{}, resp[pos:]...)
	return b, nil
}

// ParseReadMultipleBlocks splits the payload into count+1 equal chunks,
// each starting with a security status byte when option is set.
func ParseReadMultipleBlocks(resp []byte, option bool, count byte) ([]BlockData, error) {
	if err := checkResponse(CmdReadMultipleBlocks, resp); err != nil {
		return nil, err
	}
	nb := int(count) + 1
	payload := resp[1:]
	chunk := len(payload) / nb
	minChunk := 1
	if option {
		minChunk = 2
	}
	if chunk < minChunk || chunk*nb != len(payload) {
		return nil, fmt.Errorf("%w: %d bytes for %d blocks", nfcreader.ErrMalformedFrame, len(payload), nb)
	}

	blocks := make([]BlockData, 0, nb)
	for off := 0; off < len(payload); off += chunk {
		part := payload[off : off+chunk]
		var b BlockData
		if option {
			b.Security = part[0]
			b.HasSecurity = true
			part = part[1:]
		}
		b.Data = append([]byte(nil), part...)
		blocks = append(blocks, b)
	}
	return blocks, nil
}

// ParseSystemInfo parses the info flags, the UID and the optional fields
// the info flags announce, in their fixed order.
func ParseSystemInfo(resp []byte) (*SystemInfo, error) {
	if err := checkResponse(CmdGetSystemInfo, resp); err != nil {
		return nil, err
	}
	if len(resp) < 2+UIDLength {
		return nil, fmt.Errorf("%w: system info response of %d bytes", nfcreader.ErrMalformedFrame, len(resp))
	}

	info := &SystemInfo{
		InfoFlags: resp[1],
		UID:       reversed(resp[2 : 2+UIDLength]),
	}
	pos := 2 + UIDLength
	need := func(n int, name string) error {
		if pos+n > len(resp) {
			return fmt.Errorf("%w: system info announces %s but has %d bytes", nfcreader.ErrMalformedFrame, name, len(resp))
		}
		return nil
	}

	if info.InfoFlags&InfoFlagDSFID != 0 {
		if err := need(1, "DSFID"); err != nil {
			return nil, err
		}
		info.DSFID, info.HasDSFID = resp[pos], true
		pos++
	}
	if info.InfoFlags&InfoFlagAFI != 0 {
		if err := need(1, "AFI"); err != nil {
			return nil, err
		}
		info.AFI, info.HasAFI = resp[pos], true
		pos++
	}
	if info.InfoFlags&InfoFlagMemorySize != 0 {
		if err := need(2, "memory size"); err != nil {
			return nil, err
		}
		info.BlockCount = int(resp[pos]) + 1
		info.BlockSize = int(resp[pos+1]&0x1F) + 1
		info.HasMemorySize = true
		pos += 2
	}
	if info.InfoFlags&InfoFlagICRef != 0 {
		if err := need(1, "IC reference"); err != nil {
			return nil, err
		}
		info.ICReference, info.HasICReference = resp[pos], true
	}
	return info, nil
}

// ParseSecurityStatus returns one status byte per requested block
func ParseSecurityStatus(resp []byte) ([]byte, error) {
	if err := checkResponse(CmdGetMultipleBlockSecurityStatus, resp); err != nil {
		return nil, err
	}
	return append([]byte{}, resp[1:]...), nil
}

// ParseResponse parses resp according to the command and flags of req.
// When the tag reports an error the Response is returned along with the
// *ResponseError so callers keep the raw frame and flags.
func ParseResponse(req *Request, resp []byte) (*Response, error) {
	r := &Response{Raw: append([]byte(nil), resp...)}
	if len(resp) > 0 {
		r.Flags = resp[0]
	}

	var err error
	switch req.Command {
	case CmdInventory:
		r.Inventory, err = ParseInventory(resp)
	case CmdReadSingleBlock:
		r.Block, err = ParseReadSingleBlock(resp, req.Option())
	case CmdReadMultipleBlocks:
		count := req.Field("nb_blocks")
		if len(count) != 1 {
			return nil, fmt.Errorf("%w: request has no block count", nfcreader.ErrInvalidParameter)
		}
		r.Blocks, err = ParseReadMultipleBlocks(resp, req.Option(), count[0])
	case CmdGetSystemInfo:
		r.SystemInfo, err = ParseSystemInfo(resp)
	case CmdGetMultipleBlockSecurityStatus:
		r.SecurityStatus, err = ParseSecurityStatus(resp)
	default:
		err = ParseStatus(req.Command, resp)
	}
	var re *ResponseError
	if errors.As(err, &re) {
		r.ErrorCode = re.Code
		return r, err
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}
