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
	"context"
	"fmt"
)

// Transceiver is the capability the protocol layers consume. It turns byte
// frames into RF and back. Implementations are hardware specific
// (HydraNFC, Flipper Zero, libnfc) or simulated.
type Transceiver interface {
	// Connect establishes the link to the front-end.
	Connect() error

	// FieldOn enables the RF field
	FieldOn() error

	// FieldOff disables the RF field
	FieldOff() error

	// Write transmits a complete frame and blocks for the response.
	// addCRC tells the transceiver to append the frame CRC. Responses are
	// returned as received, CRC trailer included for ISO14443 frames.
	Write(data []byte, respLenHint int, addCRC bool) ([]byte, error)

	// WriteBits transmits a short frame of numBits bits (REQA, WUPA).
	WriteBits(data []byte, numBits int) ([]byte, error)

	// Close releases the front-end.
	Close() error

	// Type returns the transceiver type
	Type() TransceiverType
}

// Emulator is implemented by transceivers that can act as a card. The
// protocol layer reacts to reader-initiated frames instead of initiating them.
type Emulator interface {
	// StartEmulation puts the front-end in card emulation mode.
	StartEmulation() error

	// GetCommand blocks until the reader sends a frame or a field event
	// occurs. Field events are reported through the Event field.
	GetCommand() (*Command, error)

	// SendResponse transmits a frame back to the reader.
	SendResponse(frame []byte, addCRC bool) error
}

// FieldEvent is a change of the reader field seen while emulating.
type FieldEvent int

const (
	// FieldEventNone means the command carries a frame.
	FieldEventNone FieldEvent = iota
	// FieldEventOn is reported when a reader field appears.
	FieldEventOn
	// FieldEventOff is reported when the reader field disappears.
	FieldEventOff
)

// String returns a readable name for the event
func (e FieldEvent) String() string {
	switch e {
	case FieldEventOn:
		return "on"
	case FieldEventOff:
		return "off"
	default:
		return "frame"
	}
}

// Command is one reader-initiated event received in emulation mode.
type Command struct {
	Frame []byte
	Event FieldEvent
}

// Mode selects the RF protocol a front-end is configured for.
type Mode int

const (
	// ModeISO14443A selects ISO/IEC 14443 Type A.
	ModeISO14443A Mode = iota
	// ModeISO14443B selects ISO/IEC 14443 Type B.
	ModeISO14443B
	// ModeISO15693 selects ISO/IEC 15693 vicinity cards.
	ModeISO15693
)

// String returns the mode name used in configuration files
func (m Mode) String() string {
	switch m {
	case ModeISO14443A:
		return "a"
	case ModeISO14443B:
		return "b"
	case ModeISO15693:
		return "15693"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// ParseMode converts a configuration value into a Mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "a", "A", "14443a", "iso14443a":
		return ModeISO14443A, nil
	case "b", "B", "14443b", "iso14443b":
		return ModeISO14443B, nil
	case "15693", "v", "iso15693":
		return ModeISO15693, nil
	default:
		return 0, fmt.Errorf("%w: unknown mode %q", ErrInvalidParameter, s)
	}
}

// ModeSetter is implemented by transceivers whose front-end must be told
// which protocol to speak.
type ModeSetter interface {
	SetMode(mode Mode) error
}

// TransceiverType represents the type of transceiver
type TransceiverType string

const (
	// TransceiverHydraNFC is a HydraNFC v2 shield in BBIO mode.
	TransceiverHydraNFC TransceiverType = "hydranfc"
	// TransceiverFlipper is a Flipper Zero driven through its CLI.
	TransceiverFlipper TransceiverType = "flipper"
	// TransceiverLibNFC is any reader supported by libnfc.
	TransceiverLibNFC TransceiverType = "libnfc"
	// TransceiverReplay replays a recorded session.
	TransceiverReplay TransceiverType = "replay"
	// TransceiverMock represents a mock transceiver for testing
	TransceiverMock TransceiverType = "mock"
)

// TransceiverWithRetry wraps a Transceiver with retry capabilities.
// Only Connect and field control are retried; a frame exchange is never
// replayed because the block toggle of the peer has already moved.
type TransceiverWithRetry struct {
	Transceiver
	config *RetryConfig
}

// NewTransceiverWithRetry creates a new transceiver wrapper with retry logic
func NewTransceiverWithRetry(tr Transceiver, config *RetryConfig) *TransceiverWithRetry {
	if config == nil {
		config = DefaultRetryConfig()
	}
	return &TransceiverWithRetry{
		Transceiver: tr,
		config:      config,
	}
}

// Connect connects with retry logic
func (t *TransceiverWithRetry) Connect() error {
	return t.retry("Connect", t.Transceiver.Connect)
}

// FieldOn enables the field with retry logic
func (t *TransceiverWithRetry) FieldOn() error {
	return t.retry("FieldOn", t.Transceiver.FieldOn)
}

// FieldOff disables the field with retry logic
func (t *TransceiverWithRetry) FieldOff() error {
	return t.retry("FieldOff", t.Transceiver.FieldOff)
}

// SetMode forwards to the underlying transceiver when it supports modes
func (t *TransceiverWithRetry) SetMode(mode Mode) error {
	ms, ok := t.Transceiver.(ModeSetter)
	if !ok {
		return nil
	}
	return t.retry("SetMode", func() error { return ms.SetMode(mode) })
}

// Close closes the underlying transceiver
func (t *TransceiverWithRetry) Close() error {
	if err := t.Transceiver.Close(); err != nil {
		return fmt.Errorf("failed to close underlying transceiver: %w", err)
	}
	return nil
}

// SetRetryConfig updates the retry configuration
func (t *TransceiverWithRetry) SetRetryConfig(config *RetryConfig) {
	t.config = config
}

func (t *TransceiverWithRetry) retry(op string, fn func() error) error {
	return RetryWithConfig(context.Background(), t.config, func() error {
		if err := fn(); err != nil {
			return &TransceiverError{
				Op:        op,
				Device:    string(t.Type()),
				Err:       err,
				Type:      GetErrorType(err),
				Retryable: IsRetryable(err),
			}
		}
		return nil
	})
}
