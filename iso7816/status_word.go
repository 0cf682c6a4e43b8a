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
	"errors"
	"fmt"

	nfcreader "github.com/ZaparooProject/go-nfcreader"
)

// StatusWord is the SW1-SW2 trailer of a response
type StatusWord uint16

// Common status words
const (
	SWSuccess              StatusWord = 0x9000
	SWWarningNoInfo        StatusWord = 0x6200
	SWEndOfFile            StatusWord = 0x6282
	SWWrongLength          StatusWord = 0x6700
	SWSecurityNotSatisfied StatusWord = 0x6982
	SWConditionsNotMet     StatusWord = 0x6985
	SWWrongData            StatusWord = 0x6A80
	SWFuncNotSupported     StatusWord = 0x6A81
	SWFileNotFound         StatusWord = 0x6A82
	SWRecordNotFound       StatusWord = 0x6A83
	SWWrongP1P2            StatusWord = 0x6A86
	SWInsNotSupported      StatusWord = 0x6D00
	SWClaNotSupported      StatusWord = 0x6E00
	SWUnknown              StatusWord = 0x6F00
)

var statusMessages = map[StatusWord]string{
	SWSuccess:              "success",
	SWWarningNoInfo:        "warning, memory unchanged",
	SWEndOfFile:            "end of file reached before Le bytes",
	SWWrongLength:          "wrong length",
	SWSecurityNotSatisfied: "security status not satisfied",
	SWConditionsNotMet:     "conditions of use not satisfied",
	SWWrongData:            "incorrect parameters in the data field",
	SWFuncNotSupported:     "function not supported",
	SWFileNotFound:         "file or application not found",
	SWRecordNotFound:       "record not found",
	SWWrongP1P2:            "incorrect parameters P1-P2",
	SWInsNotSupported:      "instruction not supported",
	SWClaNotSupported:      "class not supported",
	SWUnknown:              "no precise diagnosis",
}

// NewStatusWord joins SW1 and SW2
func NewStatusWord(sw1, sw2 byte) StatusWord {
	return StatusWord(uint16(sw1)<<8 | uint16(sw2))
}

// SW1 returns the high byte
func (sw StatusWord) SW1() byte { return byte(sw >> 8) }

// SW2 returns the low byte
func (sw StatusWord) SW2() byte { return byte(sw) }

// IsSuccess reports 9000, and 61xx which means more data is waiting.
func (sw StatusWord) IsSuccess() bool {
	return sw == SWSuccess || sw.SW1() == 0x61
}

// IsWarning reports 62xx and 63xx
func (sw StatusWord) IsWarning() bool {
	return sw.SW1() == 0x62 || sw.SW1() == 0x63
}

// IsError reports execution and checking errors, 64xx to 6Fxx
func (sw StatusWord) IsError() bool {
	return sw.SW1() >= 0x64 && sw.SW1() <= 0x6F
}

// Counter returns the retry counter of a 63Cx status
func (sw StatusWord) Counter() (int, bool) {
	if sw.SW1() != 0x63 || sw.SW2()&0xF0 != 0xC0 {
		return 0, false
	}
	return int(sw.SW2() & 0x0F), true
}

// Message describes the status word
func (sw StatusWord) Message() string {
	if msg, ok := statusMessages[sw]; ok {
		return msg
	}
	if n, ok := sw.Counter(); ok {
		return fmt.Sprintf("verification failed, %d tries left", n)
	}
	switch sw.SW1() {
	case 0x61:
		return fmt.Sprintf("%d response bytes available", sw.SW2())
	case 0x6C:
		return fmt.Sprintf("wrong Le, %d bytes available", sw.SW2())
	case 0x62, 0x63:
		return "warning"
	case 0x64, 0x65, 0x66:
		return "execution error"
	case 0x67, 0x68, 0x69, 0x6A, 0x6B:
		return "checking error"
	}
	return "unknown status"
}

// String returns the status word in hex
func (sw StatusWord) String() string {
	return fmt.Sprintf("%04X", uint16(sw))
}

// Err returns nil for success and warnings, a *StatusError otherwise.
func (sw StatusWord) Err() error {
	if sw.IsSuccess() || sw.IsWarning() {
		return nil
	}
	return &StatusError{Status: sw}
}

// StatusError is a response whose status word reports a failure.
type StatusError struct {
	Status StatusWord
}

// Error implements the error interface
func (e *StatusError) Error() string {
	return fmt.Sprintf("card returned %s: %s", e.Status, e.Status.Message())
}

// Is maps unsupported instruction and class statuses to
// ErrUnsupportedOption and everything else to ErrDeviceError.
func (e *StatusError) Is(target error) bool {
	switch e.Status {
	case SWFuncNotSupported, SWInsNotSupported, SWClaNotSupported:
		return target == nfcreader.ErrUnsupportedOption
	}
	return target == nfcreader.ErrDeviceError
}

// StatusOf extracts the status word carried by err
func StatusOf(err error) (StatusWord, bool) {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Status, true
	}
	return 0, false
}
