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


// Package hydranfc drives a HydraNFC v2 shield through the HydraBus
// binary (BBIO) interface.
package hydranfc

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"

	nfcreader "github.com/ZaparooProject/go-nfcreader"
	"github.com/ZaparooProject/go-nfcreader/internal/frame"
	"github.com/ZaparooProject/go-nfcreader/internal/serialport"
	"github.com/ZaparooProject/go-nfcreader/internal/transport"
	"github.com/rs/zerolog"
)

// BBIO command bytes
const (
	cmdReset      = 0x00
	cmdFieldOff   = 0x02
	cmdFieldOn    = 0x03
	cmdWrite      = 0x05
	cmdModeA      = 0x06
	cmdMode15693  = 0x07
	cmdWriteBits  = 0x08
	cmdModeB      = 0x09
	cmdReaderMode = 0x0E
)

const (
	// DefaultBaud is the HydraBus USB CDC rate
	DefaultBaud = 115200
	// DefaultTimeout bounds the wait for a card answer
	DefaultTimeout = time.Second

	bbioAttempts = 20
	bbioTimeout  = 10 * time.Millisecond
)

var (
	bbioBanner   = []byte("BBIO1")
	readerBanner = []byte("NFC2")
)

// Transceiver is a HydraNFC v2 front-end
type Transceiver struct {
	port     serialport.Port
	open     serialport.Opener
	logger   zerolog.Logger
	portName string
	baud     int
	timeout  time.Duration
	mu       sync.Mutex
}

// Option configures a Transceiver
type Option func(*Transceiver) error

// WithLogger sets the logger
func WithLogger(logger zerolog.Logger) Option {
	return func(t *Transceiver) error {
		t.logger = logger
		return nil
	}
}

// WithBaud overrides DefaultBaud
func WithBaud(baud int) Option {
	return func(t *Transceiver) error {
		if baud <= 0 {
			return fmt.Errorf("%w: baud %d", nfcreader.ErrInvalidParameter, baud)
		}
		t.baud = baud
		return nil
	}
}

// WithTimeout overrides DefaultTimeout
func WithTimeout(d time.Duration) Option {
	return func(t *Transceiver) error {
		if d <= 0 {
			return fmt.Errorf("%w: timeout %s", nfcreader.ErrInvalidParameter, d)
		}
		t.timeout = d
		return nil
	}
}

// WithOpener replaces the serial port opener
func WithOpener(open serialport.Opener) Option {
	return func(t *Transceiver) error {
		t.open = open
		return nil
	}
}

// New creates a driver for the shield on portName. The port is opened by
// Connect.
func New(portName string, opts ...Option) (*Transceiver, error) {
	t := &Transceiver{
		portName: portName,
		open:     serialport.Open,
		logger:   zerolog.Nop(),
		baud:     DefaultBaud,
		timeout:  DefaultTimeout,
	}
	for _, opt := range opts {
		if err := opt(t); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// Type implements nfcreader.Transceiver
func (*Transceiver) Type() nfcreader.TransceiverType {
	return nfcreader.TransceiverHydraNFC
}

// Connect opens the port, enters BBIO and then the NFC reader mode
func (t *Transceiver) Connect() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.port != nil {
		return nil
	}
	port, err := t.open(t.portName, t.baud)
	if err != nil {
		return nfcreader.NewDeviceUnavailableError("Connect", t.portName, err)
	}
	t.port = port

	if err := t.enterBBIO(); err != nil {
		_ = port.Close()
		t.port = nil
		return err
	}
	t.logger.Info().Str("port", t.portName).Msg("HydraNFC in reader mode")
	return nil
}

func (t *Transceiver) enterBBIO() error {
	if err := t.port.SetReadTimeout(bbioTimeout); err != nil {
		return fmt.Errorf("set read timeout: %w", err)
	}

	_, err := transport.WithRetry(context.Background(), transport.RetryConfig{
		Description: "enter BBIO",
		Device:      t.portName,
		MaxRetries:  bbioAttempts - 1,
	}, func() (struct{}, bool, error) {
		if _, err := t.port.Write([]byte{cmdReset}); err != nil {
			return struct{}{}, false, fmt.Errorf("write BBIO reset: %w", err)
		}
		got, _ := serialport.ReadFull(t.port, len(bbioBanner), t.portName)
		return struct{}{}, !bytes.Contains(got, bbioBanner), nil
	})
	if err != nil {
		return fmt.Errorf("%w: BBIO mode not entered: %w", nfcreader.ErrDeviceUnavailable, err)
	}

	if err := t.port.ResetInputBuffer(); err != nil {
		return fmt.Errorf("flush input: %w", err)
	}
	if err := t.port.SetReadTimeout(t.timeout); err != nil {
		return fmt.Errorf("set read timeout: %w", err)
	}
	if _, err := t.port.Write([]byte{cmdReaderMode}); err != nil {
		return fmt.Errorf("write reader mode: %w", err)
	}
	banner, err := serialport.ReadFull(t.port, len(readerBanner), t.portName)
	if err != nil || !bytes.Equal(banner, readerBanner) {
		return fmt.Errorf("%w: reader mode answered %q", nfcreader.ErrDeviceError, banner)
	}
	return nil
}

// SetMode implements nfcreader.ModeSetter
func (t *Transceiver) SetMode(mode nfcreader.Mode) error {
	var cmd byte
	switch mode {
	case nfcreader.ModeISO14443A:
		cmd = cmdModeA
	case nfcreader.ModeISO14443B:
		cmd = cmdModeB
	case nfcreader.ModeISO15693:
		cmd = cmdMode15693
	default:
		return fmt.Errorf("%w: mode %s", nfcreader.ErrNotSupported, mode)
	}
	return t.command("SetMode", cmd)
}

// FieldOn implements nfcreader.Transceiver
func (t *Transceiver) FieldOn() error {
	return t.command("FieldOn", cmdFieldOn)
}

// FieldOff implements nfcreader.Transceiver
func (t *Transceiver) FieldOff() error {
	return t.command("FieldOff", cmdFieldOff)
}

func (t *Transceiver) command(op string, cmd byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.port == nil {
		return nfcreader.ErrTransceiverClosed
	}
	t.logger.Debug().Str("op", op).Msg("hydranfc command")
	if _, err := t.port.Write([]byte{cmd}); err != nil {
		return nfcreader.NewTransceiverError(op, t.portName, err, nfcreader.ErrorTypeTransient)
	}
	return nil
}

// WriteBits sends REQA. The firmware builds the short frame itself, so
// only REQA is accepted.
func (t *Transceiver) WriteBits(data []byte, numBits int) ([]byte, error) {
	if len(data) != 1 || data[0] != frame.REQA || numBits != frame.ShortLen {
		return nil, fmt.Errorf("%w: short frame % X", nfcreader.ErrNotSupported, data)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.port == nil {
		return nil, nfcreader.ErrTransceiverClosed
	}
	if _, err := t.port.Write([]byte{cmdWriteBits}); err != nil {
		return nil, nfcreader.NewTransceiverError("WriteBits", t.portName, err, nfcreader.ErrorTypeTransient)
	}
	return t.readAnswer()
}

// Write implements nfcreader.Transceiver. The frame is sent as
// 05, CRC flag, length, data.
func (t *Transceiver) Write(data []byte, _ int, addCRC bool) ([]byte, error) {
	if len(data) > 0xFF {
		return nil, fmt.Errorf("%w: frame of %d bytes", nfcreader.ErrFrameTooLarge, len(data))
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.port == nil {
		return nil, nfcreader.ErrTransceiverClosed
	}

	crc := byte(0)
	if addCRC {
		crc = 1
	}
	cmd := make([]byte, 0, 3+len(data))
	cmd = append(cmd, cmdWrite, crc, byte(len(data)))
	cmd = append(cmd, data...)

	t.logger.Debug().Hex("tx", data).Bool("crc", addCRC).Msg("hydranfc write")
	if _, err := t.port.Write(cmd); err != nil {
		return nil, nfcreader.NewTransceiverError("Write", t.portName, err, nfcreader.ErrorTypeTransient)
	}
	return t.readAnswer()
}

// readAnswer reads a length byte and that many bytes. A silent card is
// reported as an empty answer.
func (t *Transceiver) readAnswer() ([]byte, error) {
	n, err := serialport.ReadFull(t.port, 1, t.portName)
	if err != nil {
		return nil, err
	}
	if n[0] == 0 {
		return []byte{}, nil
	}
	resp, err := serialport.ReadFull(t.port, int(n[0]), t.portName)
	if err != nil {
		return nil, err
	}
	t.logger.Debug().Hex("rx", resp).Msg("hydranfc answer")
	return resp, nil
}

// Close implements nfcreader.Transceiver
func (t *Transceiver) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.port == nil {
		return nil
	}
	err := t.port.Close()
	t.port = nil
	if err != nil {
		return fmt.Errorf("close %s: %w", t.portName, err)
	}
	return nil
}
