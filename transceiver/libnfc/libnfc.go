//go:build libnfc

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


package libnfc

import (
	"errors"
	"fmt"
	"sync"

	nfcreader "github.com/ZaparooProject/go-nfcreader"
	"github.com/clausecker/nfc/v2"
)

// Transceiver is a libnfc initiator with CRC and framing handled on the
// host side.
type Transceiver struct {
	dev  *nfc.Device
	conn string
	settings
	mode nfcreader.Mode
	mu   sync.Mutex
}

// New creates a driver for the libnfc connection string conn. An empty
// string selects the first device libnfc finds. The device is opened by
// Connect.
func New(conn string, opts ...Option) (nfcreader.Transceiver, error) {
	s, err := newSettings(opts)
	if err != nil {
		return nil, err
	}
	return &Transceiver{conn: conn, settings: s}, nil
}

// Type implements nfcreader.Transceiver
func (*Transceiver) Type() nfcreader.TransceiverType {
	return nfcreader.TransceiverLibNFC
}

// raw initiator properties, applied after InitiatorInit
var rawProperties = []struct {
	property int
	value    bool
}{
	{nfc.ACTIVATE_FIELD, false},
	{nfc.HANDLE_CRC, false},
	{nfc.HANDLE_PARITY, true},
	{nfc.EASY_FRAMING, false},
	{nfc.AUTO_ISO14443_4, false},
	{nfc.INFINITE_SELECT, false},
}

// Connect opens the device and puts it in raw initiator mode with the
// field off
func (t *Transceiver) Connect() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.dev != nil {
		return nil
	}
	dev, err := nfc.Open(t.conn)
	if err != nil {
		return nfcreader.NewDeviceUnavailableError("Connect", t.conn, err)
	}
	if err := dev.InitiatorInit(); err != nil {
		_ = dev.Close()
		return nfcreader.NewDeviceUnavailableError("InitiatorInit", t.conn, err)
	}
	for _, p := range rawProperties {
		if err := dev.SetPropertyBool(p.property, p.value); err != nil {
			_ = dev.Close()
			return t.mapError("Connect", err)
		}
	}
	t.dev = dev
	t.logger.Info().Str("device", dev.String()).Msg("libnfc initiator ready")
	return nil
}

// SetMode implements nfcreader.ModeSetter. ISO15693 is not reachable
// through the libnfc initiator API.
func (t *Transceiver) SetMode(mode nfcreader.Mode) error {
	var property int
	switch mode {
	case nfcreader.ModeISO14443A:
		property = nfc.FORCE_ISO14443_A
	case nfcreader.ModeISO14443B:
		property = nfc.FORCE_ISO14443_B
	default:
		return fmt.Errorf("%w: mode %s", nfcreader.ErrNotSupported, mode)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.dev == nil {
		return nfcreader.ErrTransceiverClosed
	}
	if err := t.dev.SetPropertyBool(property, true); err != nil {
		return t.mapError("SetMode", err)
	}
	t.mode = mode
	return nil
}

// FieldOn implements nfcreader.Transceiver
func (t *Transceiver) FieldOn() error {
	return t.field("FieldOn", true)
}

// FieldOff implements nfcreader.Transceiver
func (t *Transceiver) FieldOff() error {
	return t.field("FieldOff", false)
}

func (t *Transceiver) field(op string, on bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.dev == nil {
		return nfcreader.ErrTransceiverClosed
	}
	if err := t.dev.SetPropertyBool(nfc.ACTIVATE_FIELD, on); err != nil {
		return t.mapError(op, err)
	}
	return nil
}

// Write implements nfcreader.Transceiver. The CRC is computed here because
// libnfc is told not to handle it, which also keeps it on the answer.
func (t *Transceiver) Write(data []byte, _ int, addCRC bool) ([]byte, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty frame", nfcreader.ErrInvalidParameter)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.dev == nil {
		return nil, nfcreader.ErrTransceiverClosed
	}

	tx := append([]byte(nil), data...)
	if addCRC {
		if t.mode == nfcreader.ModeISO14443B {
			tx = nfc.AppendISO14443bCRC(tx)
		} else {
			tx = nfc.AppendISO14443aCRC(tx)
		}
	}
	if len(tx) > rxBufSize {
		return nil, fmt.Errorf("%w: frame of %d bytes", nfcreader.ErrFrameTooLarge, len(tx))
	}

	t.logger.Debug().Hex("tx", tx).Msg("libnfc write")
	rx := make([]byte, rxBufSize)
	n, err := t.dev.InitiatorTransceiveBytes(tx, rx, int(t.timeout.Milliseconds()))
	if err != nil {
		return t.silence("Write", err)
	}
	t.logger.Debug().Hex("rx", rx[:n]).Msg("libnfc answer")
	return rx[:n], nil
}

// WriteBits implements nfcreader.Transceiver
func (t *Transceiver) WriteBits(data []byte, numBits int) ([]byte, error) {
	if numBits <= 0 || numBits > len(data)*8 {
		return nil, fmt.Errorf("%w: %d bits in %d bytes", nfcreader.ErrInvalidParameter, numBits, len(data))
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.dev == nil {
		return nil, nfcreader.ErrTransceiverClosed
	}

	tx := append([]byte(nil), data...)
	txPar := make([]byte, len(tx))
	rx := make([]byte, rxBufSize)
	rxPar := make([]byte, rxBufSize)
	bits, err := t.dev.InitiatorTransceiveBits(tx, txPar, uint(numBits), rx, rxPar)
	if err != nil {
		return t.silence("WriteBits", err)
	}
	// libnfc reports received bits here
	n := (bits + 7) / 8
	return rx[:n], nil
}

// silence turns a timeout into the empty answer of a silent card
func (t *Transceiver) silence(op string, err error) ([]byte, error) {
	var code nfc.Error
	if errors.As(err, &code) && code == nfc.ETIMEOUT {
		return []byte{}, nil
	}
	return nil, t.mapError(op, err)
}

func (t *Transceiver) mapError(op string, err error) error {
	var code nfc.Error
	if !errors.As(err, &code) {
		return nfcreader.NewTransceiverError(op, t.conn, err, nfcreader.ErrorTypePermanent)
	}
	switch code {
	case nfc.ETIMEOUT:
		return nfcreader.NewTimeoutError(op, t.conn)
	case nfc.ERFTRANS:
		return nfcreader.NewTransceiverError(op, t.conn, err, nfcreader.ErrorTypeTransient)
	case nfc.EIO, nfc.ENOTSUCHDEV:
		return nfcreader.NewDeviceUnavailableError(op, t.conn, err)
	case nfc.EDEVNOTSUPP, nfc.ENOTIMPL:
		return nfcreader.NewTransceiverError(op, t.conn,
			fmt.Errorf("%w: %w", nfcreader.ErrNotSupported, err), nfcreader.ErrorTypePermanent)
	default:
		return nfcreader.NewTransceiverError(op, t.conn,
			fmt.Errorf("%w: %w", nfcreader.ErrDeviceError, err), nfcreader.ErrorTypePermanent)
	}
}

// Close implements nfcreader.Transceiver
func (t *Transceiver) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.dev == nil {
		return nil
	}
	err := t.dev.Close()
	t.dev = nil
	if err != nil {
		return fmt.Errorf("close %s: %w", t.conn, err)
	}
	return nil
}
