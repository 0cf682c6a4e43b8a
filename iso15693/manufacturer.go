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

import "fmt"

// manufacturers maps ISO/IEC 7816-6 IC manufacturer codes to names
var manufacturers = map[byte]string{
	0x01: "Motorola",
	0x02: "STMicroelectronics",
	0x03: "Hitachi",
	0x04: "NXP Semiconductors",
	0x05: "Infineon Technologies",
	0x06: "Cylink",
	0x07: "Texas Instruments",
	0x08: "Fujitsu",
	0x09: "Matsushita Electronics",
	0x0A: "NEC",
	0x0B: "Oki Electric",
	0x0C: "Toshiba",
	0x0D: "Mitsubishi Electric",
	0x0E: "Samsung Electronics",
	0x0F: "Hynix",
	0x10: "LG Semiconductors",
	0x11: "Emosyn-EM Microelectronics",
	0x12: "INSIDE Technology",
	0x13: "ORGA Kartensysteme",
	0x14: "Sharp",
	0x15: "Atmel",
	0x16: "EM Microelectronic-Marin",
	0x17: "KSW Microtec",
	0x18: "ZMD",
	0x19: "Xicor",
	0x1A: "Sony",
	0x1B: "Malaysia Microelectronic Solutions",
	0x1C: "Emosyn",
	0x1D: "Shanghai Fudan Microelectronics",
	0x1E: "Magellan Technology",
	0x1F: "Melexis",
	0x20: "Renesas Technology",
	0x21: "TAGSYS",
	0x22: "Transcore",
	0x23: "Shanghai Belling",
	0x24: "Masktech",
	0x25: "Innovision Research and Technology",
	0x26: "Hitachi ULSI Systems",
	0x27: "Cypak",
	0x28: "Ricoh",
	0x29: "ASK",
	0x2A: "Unicore Microsystems",
	0x2B: "Dallas Semiconductor/Maxim",
	0x2C: "Impinj",
	0x2D: "RightPlug Alliance",
	0x2E: "Broadcom",
	0x2F: "MStar Semiconductor",
	0x30: "BeeDar Technology",
	0x31: "RFIDsec",
	0x32: "Schweizer Electronic",
	0x33: "AMIC Technology",
	0x34: "Mikron",
	0x35: "Fraunhofer IPMS",
	0x36: "IDS Microchip",
	0x37: "Kovio",
	0x38: "HMT Microelectronic",
	0x39: "Silicon Craft Technology",
	0x3A: "Advanced Film Device",
	0x3B: "Nitecrest",
	0x3C: "Verayo",
	0x3D: "HID Global",
	0x3E: "Productivity Engineering",
	0x3F: "Austriamicrosystems",
	0x40: "Gemalto",
	0x41: "Renesas Electronics",
	0x42: "3Alogics",
	0x43: "Top TroniQ Asia",
	0x44: "Gentag",
}

// Manufacturer returns the name registered for an IC manufacturer code
func Manufacturer(code byte) string {
	if name, ok := manufacturers[code]; ok {
		return name
	}
	return fmt.Sprintf("unknown (0x%02X)", code)
}

// ManufacturerFromUID decodes the manufacturer from a UID given most
// significant byte first. Byte 0 is always E0, byte 1 the code.
func ManufacturerFromUID(uid []byte) string {
	if len(uid) < 2 || uid[0] != 0xE0 {
		return "unknown"
	}
	return Manufacturer(uid[1])
}
