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
	"fmt"

	nfcreader "github.com/ZaparooProject/go-nfcreader"
)

// Error codes returned with the error flag
const (
	ErrCodeNotSupported       = 0x01
	ErrCodeNotRecognised      = 0x02
	ErrCodeOptionNotSupported = 0x03
	ErrCodeUnknown            = 0x0F
	ErrCodeBlockNotAvailable  = 0x10
	ErrCodeAlreadyLocked      = 0x11
	ErrCodeBlockLocked        = 0x12
	ErrCodeNotProgrammed      = 0x13
	ErrCodeNotLocked          = 0x14

	errCodeCustomFirst = 0xA0
	errCodeCustomLast  = 0xDF
)

var errorMessages = map[byte]string{
	0x01: "the command is not supported, the request code is not recognised",
	0x02: "the command is not recognised, for example a format error occurred",
	0x03: "the option is not supported",
	0x04: "unknown error",
	0x05: "the specified block is not available",
	0x06: "the specified block is already locked and cannot be locked again",
	0x0F: "unknown error",
	0x10: "the specified block is not available",
	0x11: "the specified block is already locked and cannot be locked again",
	0x12: "the specified block is locked and its content cannot be changed",
	0x13: "the specified block was not successfully programmed",
	0x14: "the specified block was not successfully locked",
}

// ErrorMessage returns the description of an error code
func ErrorMessage(code byte) string {
	if code == 0 {
		return "no error"
	}
	if msg, ok := errorMessages[code]; ok {
		return msg
	}
	if code >= errCodeCustomFirst && code <= errCodeCustomLast {
		return "custom command error code"
	}
	return "DFU"
}

// ResponseError is a response with the error flag set
type ResponseError struct {
	Command Command
	Code    byte
}

// Error implements the error interface
func (e *ResponseError) Error() string {
	return fmt.Sprintf("%s: error 0x%02X: %s", e.Command, e.Code, e.Message())
}

// Message returns the table description of the code
func (e *ResponseError) Message() string {
	return ErrorMessage(e.Code)
}

// Is maps codes 0x01 to 0x03 to ErrUnsupportedOption and everything else
// to ErrDeviceError.
func (e *ResponseError) Is(target error) bool {
	switch target {
	case nfcreader.ErrUnsupportedOption:
		return e.Code >= ErrCodeNotSupported && e.Code <= ErrCodeOptionNotSupported
	case nfcreader.ErrDeviceError:
		return e.Code < ErrCodeNotSupported || e.Code > ErrCodeOptionNotSupported
	default:
		return false
	}
}
