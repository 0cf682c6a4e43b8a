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
	"fmt"

	nfcreader "github.com/ZaparooProject/go-nfcreader"
	"github.com/ZaparooProject/go-nfcreader/internal/frame"
)

// defaultFSCI applies when the ATS carries no format byte
const defaultFSCI = 2

// ATS is a parsed Answer To Select
type ATS struct {
	// Raw is the answer truncated to TL+2 bytes (length byte through CRC).
	Raw        []byte
	Historical []byte
	TL         byte
	T0         byte
	TA1        byte
	TB1        byte
	TC1        byte
	FSCI       byte
	HasT0      bool
	HasTA1     bool
	HasTB1     bool
	HasTC1     bool
}

// ParseATS parses a RATS answer. TL counts the ATS without its CRC, so the
// answer is cut to TL+2 bytes before the interface bytes are located.
func ParseATS(resp []byte) (*ATS, error) {
	if len(resp) == 0 {
		return nil, fmt.Errorf("%w: empty ATS", nfcreader.ErrActivationFailed)
	}

	tl := resp[0]
	raw := resp[:min(len(resp), int(tl)+frame.CRCLength)]
	ats := &ATS{
		Raw:  append([]byte(nil), raw...),
		TL:   tl,
		FSCI: defaultFSCI,
	}
	if tl < 2 || len(raw) < 2 {
		return ats, nil
	}

	ats.HasT0 = true
	ats.T0 = raw[1]
	ats.FSCI = ats.T0 & frame.ATSFSCIMask

	pos := 2
	next := func(name string) (byte, error) {
		if pos >= len(raw) {
			return 0, fmt.Errorf("%w: ATS announces %s but has %d bytes", nfcreader.ErrMalformedFrame, name, len(raw))
		}
		b := raw[pos]
		pos++
		return b, nil
	}

	var err error
	if ats.T0&frame.ATSHasTA1 != 0 {
		if ats.TA1, err = next("TA(1)"); err != nil {
			return nil, err
		}
		ats.HasTA1 = true
	}
	if ats.T0&frame.ATSHasTB1 != 0 {
		if ats.TB1, err = next("TB(1)"); err != nil {
			return nil, err
		}
		ats.HasTB1 = true
	}
	if ats.T0&frame.ATSHasTC1 != 0 {
		if ats.TC1, err = next("TC(1)"); err != nil {
			return nil, err
		}
		ats.HasTC1 = true
	}

	if end := len(raw) - frame.CRCLength; end > pos {
		ats.Historical = append([]byte(nil), raw[pos:end]...)
	}
	return ats, nil
}

// FSC returns the largest frame the card accepts
func (a *ATS) FSC() int {
	return frame.FrameSize(a.FSCI)
}

// NADSupported reports TC1 bit 0
func (a *ATS) NADSupported() bool {
	return a.HasTC1 && a.TC1&frame.TC1NADSupported != 0
}

// CIDSupported reports TC1 bit 1
func (a *ATS) CIDSupported() bool {
	return a.HasTC1 && a.TC1&frame.TC1CIDSupported != 0
}

// FWI returns the frame waiting time integer from TB1, 4 when absent
func (a *ATS) FWI() byte {
	if !a.HasTB1 {
		return 4
	}
	return a.TB1 >> 4
}

// SFGI returns the start-up frame guard time integer from TB1
func (a *ATS) SFGI() byte {
	return a.TB1 & 0x0F
}
