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

// Package iso15693 builds ISO/IEC 15693 vicinity card requests and parses
// their responses. Each request is a single frame answered by a single
// frame; there is no session state beyond the transceiver.
package iso15693

import "fmt"

// Request flags, bits 1 to 4
const (
	FlagSubCarrier  = 0x01
	FlagDataRate    = 0x02
	FlagInventory   = 0x04
	FlagProtocolExt = 0x08
)

// Request flags, bits 5 to 8, when FlagInventory is set
const (
	FlagAFI     = 0x10
	FlagNbSlots = 0x20 // one slot instead of sixteen
)

// Request flags, bits 5 to 8, when FlagInventory is clear
const (
	FlagSelect  = 0x10
	FlagAddress = 0x20
	FlagOption  = 0x40
)

// Response flags
const (
	ResponseFlagError = 0x01
)

// Default request flags per command
const (
	DefaultInventoryFlags      = 0x26
	DefaultStayQuietFlags      = 0x22
	DefaultReadFlags           = 0x42
	DefaultWriteFlags          = 0x42
	DefaultSystemInfoFlags     = 0x22
	DefaultWriteMultipleFlags  = 0x02
	DefaultSelectFlags         = 0x22
	DefaultResetToReadyFlags   = 0x02
	DefaultSecurityStatusFlags = 0x02
)

// UIDLength is the size of a VICC UID
const UIDLength = 8

// Command is an ISO15693 command code
type Command byte

// Mandatory and optional command codes
const (
	CmdInventory                      Command = 0x01
	CmdStayQuiet                      Command = 0x02
	CmdReadSingleBlock                Command = 0x20
	CmdWriteSingleBlock               Command = 0x21
	CmdReadMultipleBlocks             Command = 0x23
	CmdWriteMultipleBlocks            Command = 0x24
	CmdSelect                         Command = 0x25
	CmdResetToReady                   Command = 0x26
	CmdGetSystemInfo                  Command = 0x2B
	CmdGetMultipleBlockSecurityStatus Command = 0x2C
)

var commandNames = map[Command]string{
	CmdInventory:                      "Inventory",
	CmdStayQuiet:                      "Stay quiet",
	CmdReadSingleBlock:                "Read single block",
	CmdWriteSingleBlock:               "Write single block",
	CmdReadMultipleBlocks:             "Read multiple blocks",
	CmdWriteMultipleBlocks:            "Write multiple blocks",
	CmdSelect:                         "Select",
	CmdResetToReady:                   "Reset to ready",
	CmdGetSystemInfo:                  "Get system information",
	CmdGetMultipleBlockSecurityStatus: "Get multiple block security status",
}

// String returns the command name
func (c Command) String() string {
	if name, ok := commandNames[c]; ok {
		return name
	}
	return fmt.Sprintf("command 0x%02X", byte(c))
}

// addressed sets or clears FlagAddress depending on whether a UID is sent
func addressed(flags byte, uid []byte) byte {
	if len(uid) > 0 {
		return flags | FlagAddress
	}
	return flags &^ FlagAddress
}
