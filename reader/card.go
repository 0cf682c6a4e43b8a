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


package reader

import (
	"fmt"

	"github.com/ZaparooProject/go-nfcreader/iso14443"
)

// CardType is the air interface a card was activated on
type CardType string

const (
	CardTypeA CardType = "ISO14443A"
	CardTypeB CardType = "ISO14443B"
)

// Card describes an activated card. UID holds the Type A UID or the
// Type B PUPI.
type Card struct {
	ATS    *iso14443.ATS
	Type   CardType
	UID    []byte
	ATQA   []byte
	ATQB   []byte
	ATTRIB []byte
	SAK    byte
}

func cardFromTypeA(info *iso14443.TypeAInfo) *Card {
	return &Card{
		Type: CardTypeA,
		UID:  info.UID,
		ATQA: info.ATQA,
		SAK:  info.SAK,
		ATS:  info.ATS,
	}
}

func cardFromTypeB(info *iso14443.TypeBInfo) *Card {
	return &Card{
		Type:   CardTypeB,
		UID:    info.PUPI,
		ATQB:   info.ATQB,
		ATTRIB: info.ATTRIB,
		ATS:    info.ATS,
	}
}

// String returns a one line summary
func (c *Card) String() string {
	s := fmt.Sprintf("%s UID %X", c.Type, c.UID)
	if c.Type == CardTypeA {
		s += fmt.Sprintf(" ATQA %X SAK %02X", c.ATQA, c.SAK)
	}
	if c.ATS != nil {
		s += fmt.Sprintf(" ATS %X", c.ATS.Raw)
	}
	return s
}
