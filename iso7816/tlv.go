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

import (
	"fmt"
	"strings"

	nfcreader "github.com/ZaparooProject/go-nfcreader"
	"github.com/moov-io/bertlv"
)

// FCI tags
const (
	TagFCI            = "6F"
	TagDFName         = "84"
	TagProprietary    = "A5"
	TagLabel          = "50"
	TagPreferredName  = "9F12"
	TagPriority       = "87"
	TagLanguagePrefer = "5F2D"
)

// FCI is the file control information returned by SELECT
type FCI struct {
	DFName      []byte
	Label       string
	Proprietary []bertlv.TLV
	TLVs        []bertlv.TLV
}

// ParseFCI decodes SELECT response data. The 6F template is optional.
func ParseFCI(data []byte) (*FCI, error) {
	tlvs, err := DecodeTLV(data)
	if err != nil {
		return nil, err
	}
	fci := &FCI{TLVs: tlvs}
	scope := tlvs
	if t, ok := FindTLV(tlvs, TagFCI); ok {
		scope = t.TLVs
	}
	if t, ok := FindTLV(scope, TagDFName); ok {
		fci.DFName = t.Value
	}
	if t, ok := FindTLV(scope, TagProprietary); ok {
		fci.Proprietary = t.TLVs
		if l, ok := FindTLV(t.TLVs, TagLabel); ok {
			fci.Label = string(l.Value)
		}
	}
	return fci, nil
}

// DecodeTLV decodes BER-TLV data
func DecodeTLV(data []byte) ([]bertlv.TLV, error) {
	tlvs, err := bertlv.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: BER-TLV: %w", nfcreader.ErrMalformedFrame, err)
	}
	return tlvs, nil
}

// FindTLV returns the first object matching path. A single tag is looked
// up at the top level first, then in nested objects. Several tags descend
// through constructed objects, so FindTLV(tlvs, "6F", "84") only matches
// a DF name inside an FCI.
func FindTLV(tlvs []bertlv.TLV, path ...string) (bertlv.TLV, bool) {
	if len(path) == 0 {
		return bertlv.TLV{}, false
	}
	tag := strings.ToUpper(path[0])
	for _, t := range tlvs {
		if strings.ToUpper(t.Tag) == tag {
			if len(path) == 1 {
				return t, true
			}
			if found, ok := FindTLV(t.TLVs, path[1:]...); ok {
				return found, true
			}
		}
	}
	if len(path) == 1 {
		for _, t := range tlvs {
			if found, ok := FindTLV(t.TLVs, tag); ok {
				return found, true
			}
		}
	}
	return bertlv.TLV{}, false
}

// TLVValue returns the value of the first object matching path. A
// constructed object is encoded back to bytes.
func TLVValue(data []byte, path ...string) ([]byte, error) {
	tlvs, err := DecodeTLV(data)
	if err != nil {
		return nil, err
	}
	t, ok := FindTLV(tlvs, path...)
	if !ok {
		return nil, fmt.Errorf("%w: tag %s not found", nfcreader.ErrInvalidParameter, strings.Join(path, "/"))
	}
	if len(t.TLVs) > 0 {
		return bertlv.Encode(t.TLVs)
	}
	return t.Value, nil
}
