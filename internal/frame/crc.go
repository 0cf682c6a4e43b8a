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

package frame

// CRCA computes the ISO14443-3 Type A CRC, returned low byte first as sent
// on the air.
func CRCA(data []byte) [2]byte {
	return crc16(data, 0x6363, false)
}

// CRCB computes the ISO14443-3 Type B CRC. ISO15693 uses the same
// polynomial, preset and final inversion.
func CRCB(data []byte) [2]byte {
	return crc16(data, 0xFFFF, true)
}

// AppendCRCA returns data followed by its CRC_A
func AppendCRCA(data []byte) []byte {
	crc := CRCA(data)
	return append(append([]byte(nil), data...), crc[0], crc[1])
}

// AppendCRCB returns data followed by its CRC_B
func AppendCRCB(data []byte) []byte {
	crc := CRCB(data)
	return append(append([]byte(nil), data...), crc[0], crc[1])
}

// ValidateCRCA reports whether the last two bytes of frame are its CRC_A
func ValidateCRCA(frame []byte) bool {
	if len(frame) < CRCLength {
		return false
	}
	n := len(frame) - CRCLength
	crc := CRCA(frame[:n])
	return frame[n] == crc[0] && frame[n+1] == crc[1]
}

func crc16(data []byte, preset uint16, invert bool) [2]byte {
	crc := preset
	for _, b := range data {
		b ^= byte(crc & 0xFF)
		b ^= b << 4
		w := uint16(b)
		crc = (crc >> 8) ^ (w << 8) ^ (w << 3) ^ (w >> 4)
	}
	if invert {
		crc = ^crc
	}
	return [2]byte{byte(crc), byte(crc >> 8)}
}
