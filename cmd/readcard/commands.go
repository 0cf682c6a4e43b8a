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


package main

import (
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/ZaparooProject/go-nfcreader/iso7816"
	"github.com/hsanjuan/go-ndef"
)

// defaultAIDs are selected after the PPSE when no -apdu is given
var defaultAIDs = []string{
	"A0000000421010",
	"A0000000041010",
	"A0000000031010",
	"A000000003",
}

const ppse = "2PAY.SYS.DDF01"

// commandList collects repeated -apdu flags
type commandList [][]byte

func (c *commandList) String() string {
	parts := make([]string, 0, len(*c))
	for _, cmd := range *c {
		parts = append(parts, fmt.Sprintf("%X", cmd))
	}
	return strings.Join(parts, ",")
}

// Set accepts hex with optional spaces or colons
func (c *commandList) Set(value string) error {
	clean := strings.NewReplacer(" ", "", ":", "").Replace(value)
	raw, err := hex.DecodeString(clean)
	if err != nil {
		return fmt.Errorf("invalid APDU %q: %w", value, err)
	}
	if _, err := iso7816.ParseCommandAPDU(raw); err != nil {
		return fmt.Errorf("invalid APDU %q: %w", value, err)
	}
	*c = append(*c, raw)
	return nil
}

// defaultCommands selects the payment directory and the common payment AIDs
func defaultCommands() ([]*iso7816.CommandAPDU, error) {
	cmds := []*iso7816.CommandAPDU{iso7816.SelectAID([]byte(ppse))}
	for _, s := range defaultAIDs {
		aid, err := hex.DecodeString(s)
		if err != nil {
			return nil, fmt.Errorf("default AID %s: %w", s, err)
		}
		cmds = append(cmds, iso7816.SelectAID(aid))
	}
	return cmds, nil
}

func (c commandList) commands() ([]*iso7816.CommandAPDU, error) {
	if len(c) == 0 {
		return defaultCommands()
	}
	cmds := make([]*iso7816.CommandAPDU, 0, len(c))
	for _, raw := range c {
		cmd, err := iso7816.ParseCommandAPDU(raw)
		if err != nil {
			return nil, err
		}
		cmds = append(cmds, cmd)
	}
	return cmds, nil
}

// printTrace writes every transaction of trace, then the FCI of a
// successful SELECT
func printTrace(w io.Writer, cmd *iso7816.CommandAPDU, trace iso7816.Trace) {
	for _, tx := range trace {
		raw, err := tx.Command.Bytes()
		if err != nil {
			_, _ = fmt.Fprintf(w, "> %s\n", tx.Command)
		} else {
			_, _ = fmt.Fprintf(w, "> % X\n", raw)
		}
		if tx.Response != nil {
			_, _ = fmt.Fprintf(w, "< % X\n", tx.Response.Bytes())
		}
	}

	resp := trace.Response()
	if resp == nil {
		return
	}
	_, _ = fmt.Fprintf(w, "= %s\n", resp)
	if cmd.INS != iso7816.InsSelect || !trace.IsSuccess() || len(resp.Data) == 0 {
		return
	}
	fci, err := iso7816.ParseFCI(resp.Data)
	if err != nil {
		_, _ = fmt.Fprintf(w, "  FCI: %v\n", err)
		return
	}
	if len(fci.DFName) > 0 {
		_, _ = fmt.Fprintf(w, "  DF name: %X\n", fci.DFName)
	}
	if fci.Label != "" {
		_, _ = fmt.Fprintf(w, "  Label:   %s\n", fci.Label)
	}
}

func printNDEF(w io.Writer, msg *ndef.Message) {
	for i, rec := range msg.Records {
		_, _ = fmt.Fprintf(w, "Record %d: %s\n", i, rec)
	}
}
