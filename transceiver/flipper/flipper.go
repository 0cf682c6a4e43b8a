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


// Package flipper drives a Flipper Zero running the NFC CLI application
// over its USB serial console. It works as a reader and as an emulated
// ISO14443-4 card.
package flipper

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	nfcreader "github.com/ZaparooProject/go-nfcreader"
	"github.com/ZaparooProject/go-nfcreader/internal/frame"
	"github.com/ZaparooProject/go-nfcreader/internal/serialport"
	"github.com/ZaparooProject/go-nfcreader/internal/transport"
	"github.com/rs/zerolog"
)

const (
	// DefaultBaud is the console rate
	DefaultBaud = 115200
	// DefaultBannerTimeout bounds the wait for the firmware banner
	DefaultBannerTimeout = 5 * time.Second
	// DefaultLineTimeout is the silence that ends a command output
	DefaultLineTimeout = 100 * time.Millisecond

	bannerMarker  = "Firmware version:"
	pollInterval  = 20 * time.Millisecond
	fieldOffReply = "Field is off"
	modeAReply    = "Set mode ISO 14443 A"
)

// Transceiver is a Flipper Zero front-end
type Transceiver struct {
	port          serialport.Port
	open          serialport.Opener
	logger        zerolog.Logger
	portName      string
	baud          int
	bannerTimeout time.Duration
	lineTimeout   time.Duration
	mu            sync.Mutex
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

// WithOpener replaces the serial port opener
func WithOpener(open serialport.Opener) Option {
	return func(t *Transceiver) error {
		t.open = open
		return nil
	}
}

// WithBannerTimeout overrides DefaultBannerTimeout
func WithBannerTimeout(d time.Duration) Option {
	return func(t *Transceiver) error {
		if d <= 0 {
			return fmt.Errorf("%w: banner timeout %s", nfcreader.ErrInvalidParameter, d)
		}
		t.bannerTimeout = d
		return nil
	}
}

// WithLineTimeout overrides DefaultLineTimeout
func WithLineTimeout(d time.Duration) Option {
	return func(t *Transceiver) error {
		if d <= 0 {
			return fmt.Errorf("%w: line timeout %s", nfcreader.ErrInvalidParameter, d)
		}
		t.lineTimeout = d
		return nil
	}
}

// New creates a driver for the Flipper on portName
func New(portName string, opts ...Option) (*Transceiver, error) {
	t := &Transceiver{
		portName:      portName,
		open:          serialport.Open,
		logger:        zerolog.Nop(),
		baud:          DefaultBaud,
		bannerTimeout: DefaultBannerTimeout,
		lineTimeout:   DefaultLineTimeout,
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
	return nfcreader.TransceiverFlipper
}

// Connect opens the console and waits for the firmware banner
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
	if err := port.SetReadTimeout(t.lineTimeout); err != nil {
		_ = port.Close()
		return fmt.Errorf("set read timeout: %w", err)
	}

	_, err = transport.UntilDeadline(t.bannerTimeout, pollInterval, func() (string, bool, error) {
		line, err := serialport.ReadLine(port, t.portName)
		if err != nil && !errors.Is(err, nfcreader.ErrTimeout) {
			return "", false, err
		}
		return line, !strings.Contains(line, bannerMarker), nil
	})
	if err != nil {
		_ = port.Close()
		return nfcreader.NewDeviceUnavailableError("Connect", t.portName, fmt.Errorf("no firmware banner: %w", err))
	}

	// the line after the banner is the prompt
	_, _ = serialport.ReadLine(port, t.portName)
	t.port = port
	t.logger.Info().Str("port", t.portName).Msg("Flipper Zero console ready")
	return nil
}

// run sends one CLI command and returns every line it printed, the echo
// of the command first.
func (t *Transceiver) run(cmd string) ([]string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.port == nil {
		return nil, nfcreader.ErrTransceiverClosed
	}
	if err := t.port.ResetInputBuffer(); err != nil {
		return nil, fmt.Errorf("flush input: %w", err)
	}
	if err := t.port.ResetOutputBuffer(); err != nil {
		return nil, fmt.Errorf("flush output: %w", err)
	}

	t.logger.Debug().Str("cmd", cmd).Msg("flipper command")
	if _, err := t.port.Write([]byte(cmd + "\r\n")); err != nil {
		return nil, nfcreader.NewTransceiverError(cmd, t.portName, err, nfcreader.ErrorTypeTransient)
	}

	var lines []string
	for {
		line, err := serialport.ReadLine(t.port, t.portName)
		if errors.Is(err, nfcreader.ErrTimeout) {
			if line != "" {
				lines = append(lines, line)
			}
			return lines, nil
		}
		if err != nil {
			return lines, err
		}
		lines = append(lines, line)
	}
}

// answer returns the hex payload printed on the line after the echo
func (t *Transceiver) answer(cmd string) ([]byte, error) {
	lines, err := t.run(cmd)
	if err != nil {
		return nil, err
	}
	if len(lines) < 2 {
		return []byte{}, nil
	}
	data, err := hex.DecodeString(strings.TrimSpace(lines[1]))
	if err != nil {
		return nil, fmt.Errorf("%w: %q is not hex", nfcreader.ErrMalformedFrame, lines[1])
	}
	t.logger.Debug().Hex("rx", data).Msg("flipper answer")
	return data, nil
}

func (t *Transceiver) expect(cmd, reply string) error {
	lines, err := t.run(cmd)
	if err != nil {
		return err
	}
	if reply != "" && !strings.Contains(strings.Join(lines, "\n"), reply) {
		return fmt.Errorf("%w: %q did not print %q", nfcreader.ErrDeviceError, cmd, reply)
	}
	return nil
}

// SetMode implements nfcreader.ModeSetter
func (t *Transceiver) SetMode(mode nfcreader.Mode) error {
	switch mode {
	case nfcreader.ModeISO14443A:
		return t.expect("nfc mode_14443_a", modeAReply)
	case nfcreader.ModeISO14443B:
		return t.expect("nfc mode_14443_b", "")
	case nfcreader.ModeISO15693:
		return t.expect("nfc mode_15693", "")
	default:
		return fmt.Errorf("%w: mode %s", nfcreader.ErrNotSupported, mode)
	}
}

// FieldOn implements nfcreader.Transceiver
func (t *Transceiver) FieldOn() error {
	return t.expect("nfc on", "")
}

// FieldOff implements nfcreader.Transceiver
func (t *Transceiver) FieldOff() error {
	return t.expect("nfc off", fieldOffReply)
}

// WriteBits sends REQA, the only short frame the CLI knows
func (t *Transceiver) WriteBits(data []byte, numBits int) ([]byte, error) {
	if len(data) != 1 || data[0] != frame.REQA || numBits != frame.ShortLen {
		return nil, fmt.Errorf("%w: short frame % X", nfcreader.ErrNotSupported, data)
	}
	return t.answer("nfc reqa")
}

// Write implements nfcreader.Transceiver
func (t *Transceiver) Write(data []byte, _ int, addCRC bool) ([]byte, error) {
	return t.answer(fmt.Sprintf("nfc send %d %s", crcFlag(addCRC), hex.EncodeToString(data)))
}

// StartEmulation implements nfcreader.Emulator
func (t *Transceiver) StartEmulation() error {
	return t.expect("nfc emu_14443_a", "")
}

// GetCommand implements nfcreader.Emulator. It polls the CLI until the
// reader sends a frame or the field changes.
func (t *Transceiver) GetCommand() (*nfcreader.Command, error) {
	for {
		lines, err := t.run("nfc emu_get_cmd")
		if err != nil {
			return nil, err
		}
		if len(lines) >= 2 {
			return parseCommand(strings.TrimSpace(lines[1]))
		}
		time.Sleep(pollInterval)
	}
}

func parseCommand(line string) (*nfcreader.Command, error) {
	switch line {
	case "on":
		return &nfcreader.Command{Event: nfcreader.FieldEventOn}, nil
	case "off":
		return &nfcreader.Command{Event: nfcreader.FieldEventOff}, nil
	}
	data, err := hex.DecodeString(line)
	if err != nil {
		return nil, fmt.Errorf("%w: %q is not hex", nfcreader.ErrMalformedFrame, line)
	}
	return &nfcreader.Command{Frame: data}, nil
}

// SendResponse implements nfcreader.Emulator
func (t *Transceiver) SendResponse(data []byte, addCRC bool) error {
	_, err := t.run(fmt.Sprintf("nfc emu_send %d %s", crcFlag(addCRC), hex.EncodeToString(data)))
	return err
}

func crcFlag(addCRC bool) int {
	if addCRC {
		return 1
	}
	return 0
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
