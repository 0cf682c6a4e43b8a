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
	"context"
	"fmt"
	"strings"

	nfcreader "github.com/ZaparooProject/go-nfcreader"
	"github.com/ZaparooProject/go-nfcreader/internal/transport"
)

// MemoryDump is the full content of a tag
type MemoryDump struct {
	Info   *SystemInfo
	UID    []byte
	Blocks []BlockData
}

// Data returns the concatenated block contents
func (d *MemoryDump) Data() []byte {
	var out []byte
	for _, b := range d.Blocks {
		out = append(out, b.Data...)
	}
	return out
}

// String formats the dump one block per line with its lock state and
// printable characters
func (d *MemoryDump) String() string {
	var sb strings.Builder
	for i, b := range d.Blocks {
		status := "Unlocked"
		if b.Locked() {
			status = "Locked  "
		}
		_, _ = fmt.Fprintf(&sb, "[%3d] - %s - % X | %s\n", i, status, b.Data, printable(b.Data))
	}
	return sb.String()
}

func printable(data []byte) string {
	out := make([]byte, len(data))
	for i, c := range data {
		if c >= 0x20 && c < 0x7F {
			out[i] = c
		} else {
			out[i] = '.'
		}
	}
	return string(out)
}

// DumpMemory finds the tag in the field, learns its memory layout and
// reads every block with its security status. An empty read is retried
// once.
func (s *Session) DumpMemory(ctx context.Context) (*MemoryDump, error) {
	inv, err := s.Inventory(ctx)
	if err != nil {
		return nil, err
	}

	info, err := s.GetSystemInfo(ctx, inv.UID)
	if err != nil {
		return nil, err
	}
	if !info.HasMemorySize {
		return nil, fmt.Errorf("%w: tag does not report its memory size", nfcreader.ErrUnsupportedOption)
	}

	dump := &MemoryDump{
		UID:    inv.UID,
		Info:   info,
		Blocks: make([]BlockData, 0, info.BlockCount),
	}
	for n := 0; n < info.BlockCount; n++ {
		block, err := s.readBlockRetry(ctx, inv.UID, byte(n))
		if err != nil {
			return nil, fmt.Errorf("block %d: %w", n, err)
		}
		dump.Blocks = append(dump.Blocks, *block)
	}

	s.logger.Info().Hex("uid", dump.UID).Int("blocks", len(dump.Blocks)).Msg("memory dump")
	return dump, nil
}

func (s *Session) readBlockRetry(ctx context.Context, uid []byte, n byte) (*BlockData, error) {
	req, err := NewReadSingleBlock(DefaultReadFlags, uid, n)
	if err != nil {
		return nil, err
	}

	return transport.WithRetry(ctx, transport.RetryConfig{
		Description: "read single block",
		Device:      "iso15693",
		MaxRetries:  1,
	}, func() (*BlockData, bool, error) {
		rx, err := s.Transceive(ctx, req)
		if err != nil {
			return nil, false, err
		}
		if len(rx) == 0 {
			s.logger.Debug().Uint8("block", n).Msg("empty read, retrying")
			return nil, true, nil
		}
		block, err := ParseReadSingleBlock(rx, req.Option())
		if err != nil {
			return nil, false, err
		}
		return block, false, nil
	})
}
