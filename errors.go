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

package nfcreader

import (
	"errors"
	"fmt"
)

// Protocol errors
var (
	// ErrMalformedFrame is returned when a frame is shorter than its header
	// plus CRC, or its PCB encodes an unknown block type.
	ErrMalformedFrame = errors.New("malformed frame")

	// ErrActivationFailed is returned when REQA, REQB, RATS or ATTRIB get
	// no usable answer. The whole activation may be retried from REQA.
	ErrActivationFailed = errors.New("activation failed")

	// ErrWTXLimit is returned when the card keeps requesting waiting time
	// extensions past the configured maximum.
	ErrWTXLimit = errors.New("too many waiting time extensions")

	// ErrFrameTooLarge is returned when reassembled data exceeds its limit.
	ErrFrameTooLarge = errors.New("frame too large")

	// ErrUnexpectedBlock is returned when the card answers with a block
	// type the exchange does not allow at that point.
	ErrUnexpectedBlock = errors.New("unexpected block")
)

// Device errors
var (
	// ErrDeviceUnavailable is returned when the front-end cannot be reached.
	ErrDeviceUnavailable = errors.New("device unavailable")

	// ErrDeviceError is returned when the card or front-end reports an error.
	ErrDeviceError = errors.New("device error")

	// ErrUnsupportedOption is returned when the card rejects a command or
	// option it does not implement.
	ErrUnsupportedOption = errors.New("unsupported option")

	// ErrTransceiverClosed is returned when using a closed transceiver.
	ErrTransceiverClosed = errors.New("transceiver closed")

	// ErrTimeout is returned when the card does not answer in time.
	ErrTimeout = errors.New("timeout")

	// ErrNotSupported is returned when the transceiver lacks a capability.
	ErrNotSupported = errors.New("not supported by transceiver")

	// ErrNoResponse is returned when the card stays silent.
	ErrNoResponse = errors.New("no response")
)

// Validation errors
var (
	ErrInvalidParameter = errors.New("invalid parameter")
	ErrDataTooLarge     = errors.New("data too large")
)

// ErrorType classifies errors for retry decisions
type ErrorType int

const (
	// ErrorTypePermanent errors are not worth retrying
	ErrorTypePermanent ErrorType = iota
	// ErrorTypeTransient errors may go away on retry
	ErrorTypeTransient
	// ErrorTypeTimeout errors are timeouts
	ErrorTypeTimeout
)

// String returns a readable name for the error type
func (t ErrorType) String() string {
	switch t {
	case ErrorTypeTransient:
		return "transient"
	case ErrorTypeTimeout:
		return "timeout"
	default:
		return "permanent"
	}
}

// TransceiverError wraps an error raised while talking to a front-end.
type TransceiverError struct {
	Err       error
	Op        string
	Device    string
	Type      ErrorType
	Retryable bool
}

// Error implements the error interface
func (e *TransceiverError) Error() string {
	if e.Device != "" {
		return fmt.Sprintf("%s %s: %v", e.Device, e.Op, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error
func (e *TransceiverError) Unwrap() error {
	return e.Err
}

// NewTransceiverError creates a new transceiver error
func NewTransceiverError(op, device string, err error, errType ErrorType) *TransceiverError {
	return &TransceiverError{
		Op:        op,
		Device:    device,
		Err:       err,
		Type:      errType,
		Retryable: errType == ErrorTypeTransient || errType == ErrorTypeTimeout,
	}
}

// NewTimeoutError creates a timeout error for the given operation
func NewTimeoutError(op, device string) *TransceiverError {
	return NewTransceiverError(op, device, ErrTimeout, ErrorTypeTimeout)
}

// NewDeviceUnavailableError wraps a connection failure
func NewDeviceUnavailableError(op, device string, cause error) *TransceiverError {
	return NewTransceiverError(op, device, fmt.Errorf("%w: %w", ErrDeviceUnavailable, cause), ErrorTypeTransient)
}

// IsRetryable reports whether err is worth retrying. Only direct sentinel
// errors and TransceiverError values are classified.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var te *TransceiverError
	if errors.As(err, &te) {
		return te.Retryable
	}

	switch err {
	case ErrTimeout, ErrNoResponse, ErrDeviceUnavailable:
		return true
	default:
		return false
	}
}

// GetErrorType returns the type of err
func GetErrorType(err error) ErrorType {
	if err == nil {
		return ErrorTypePermanent
	}

	var te *TransceiverError
	if errors.As(err, &te) {
		return te.Type
	}

	switch {
	case errors.Is(err, ErrTimeout):
		return ErrorTypeTimeout
	case errors.Is(err, ErrNoResponse), errors.Is(err, ErrDeviceUnavailable):
		return ErrorTypeTransient
	default:
		return ErrorTypePermanent
	}
}
