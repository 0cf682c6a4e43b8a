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


package replay

import (
	"bytes"
	"errors"
	"fmt"
	"sync"

	nfcreader "github.com/ZaparooProject/go-nfcreader"
	"github.com/rs/zerolog"
)

// ErrTraceMismatch is returned when a written frame differs from the trace
var ErrTraceMismatch = errors.New("frame differs from trace")

const deviceName = "replay"

// Transceiver answers writes from a trace, in order
type Transceiver struct {
	trace   *Trace
	logger  zerolog.Logger
	pos     int
	lenient bool
	mu      sync.Mutex
	closed  bool
}

// Option configures a Transceiver
type Option func(*Transceiver)

// WithLogger sets the logger
func WithLogger(logger zerolog.Logger) Option {
	return func(t *Transceiver) {
		t.logger = logger
	}
}

// WithLenient serves recorded answers without comparing written frames
func WithLenient() Option {
	return func(t *Transceiver) {
		t.lenient = true
	}
}

// New creates a Transceiver replaying trace
func New(trace *Trace, opts ...Option) (*Transceiver, error) {
	if trace == nil {
		return nil, fmt.Errorf("%w: nil trace", nfcreader.ErrInvalidParameter)
	}
	t := &Transceiver{
		trace:  trace,
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// Open loads the trace at path and replays it
func Open(path string, opts ...Option) (*Transceiver, error) {
	trace, err := Load(path)
	if err != nil {
		return nil, err
	}
	return New(trace, opts...)
}

// Type implements nfcreader.Transceiver
func (*Transceiver) Type() nfcreader.TransceiverType {
	return nfcreader.TransceiverReplay
}

// Remaining returns the number of exchanges not yet replayed
func (t *Transceiver) Remaining() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.trace.Exchanges) - t.pos
}

// Connect implements nfcreader.Transceiver
func (t *Transceiver) Connect() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nfcreader.ErrTransceiverClosed
	}
	return nil
}

// FieldOn implements nfcreader.Transceiver
func (t *Transceiver) FieldOn() error {
	return t.setField(true)
}

// FieldOff implements nfcreader.Transceiver
func (t *Transceiver) FieldOff() error {
	return t.setField(false)
}

func (t *Transceiver) setField(on bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nfcreader.ErrTransceiverClosed
	}
	t.logger.Debug().Bool("on", on).Msg("replay field")
	return nil
}

// Write implements nfcreader.Transceiver
func (t *Transceiver) Write(data []byte, _ int, addCRC bool) ([]byte, error) {
	return t.next("Write", data, 0, addCRC)
}

// WriteBits implements nfcreader.Transceiver
func (t *Transceiver) WriteBits(data []byte, numBits int) ([]byte, error) {
	return t.next("WriteBits", data, numBits, false)
}

func (t *Transceiver) next(op string, data []byte, bits int, addCRC bool) ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil, nfcreader.ErrTransceiverClosed
	}
	if t.pos >= len(t.trace.Exchanges) {
		return nil, nfcreader.NewTransceiverError(op, deviceName, nfcreader.ErrNoResponse, nfcreader.ErrorTypePermanent)
	}
	index := t.pos
	ex := t.trace.Exchanges[index]
	t.pos++

	frames, err := ex.frames()
	if err != nil {
		return nil, err
	}
	if !t.lenient && (!bytes.Equal(frames.tx, data) || ex.Bits != bits || ex.CRC != addCRC) {
		return nil, fmt.Errorf("%w: exchange %d sent % X (bits %d, crc %t), recorded % X (bits %d, crc %t)",
			ErrTraceMismatch, index, data, bits, addCRC, frames.tx, ex.Bits, ex.CRC)
	}

	t.logger.Debug().Int("exchange", index).Hex("tx", data).Hex("rx", frames.rx).Msg("replay")
	switch ex.Error {
	case ErrorTimeout:
		return nil, nfcreader.NewTimeoutError(op, deviceName)
	case ErrorDevice:
		return nil, nfcreader.NewTransceiverError(op, deviceName, nfcreader.ErrDeviceError, nfcreader.ErrorTypePermanent)
	}
	return frames.rx, nil
}

// Close implements nfcreader.Transceiver
func (t *Transceiver) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	return nil
}

// Recorder passes every call to a live transceiver and records the
// exchanges into a Trace
type Recorder struct {
	nfcreader.Transceiver
	trace Trace
	mu    sync.Mutex
}

// NewRecorder wraps tr
func NewRecorder(tr nfcreader.Transceiver) *Recorder {
	return &Recorder{
		Transceiver: tr,
		trace:       Trace{Device: string(tr.Type())},
	}
}

// SetMode forwards to the wrapped transceiver when it supports modes
func (r *Recorder) SetMode(mode nfcreader.Mode) error {
	ms, ok := r.Transceiver.(nfcreader.ModeSetter)
	if !ok {
		return nil
	}
	return ms.SetMode(mode)
}

// Write implements nfcreader.Transceiver
func (r *Recorder) Write(data []byte, respLenHint int, addCRC bool) ([]byte, error) {
	resp, err := r.Transceiver.Write(data, respLenHint, addCRC)
	r.record(newExchange(data, 0, addCRC, resp, err))
	return resp, err
}

// WriteBits implements nfcreader.Transceiver
func (r *Recorder) WriteBits(data []byte, numBits int) ([]byte, error) {
	resp, err := r.Transceiver.WriteBits(data, numBits)
	r.record(newExchange(data, numBits, false, resp, err))
	return resp, err
}

func (r *Recorder) record(ex Exchange) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.trace.Exchanges = append(r.trace.Exchanges, ex)
}

// Trace returns a copy of what has been recorded so far
func (r *Recorder) Trace() *Trace {
	r.mu.Lock()
	defer r.mu.Unlock()
	return &Trace{
		Device:    r.trace.Device,
		Exchanges: append([]Exchange(nil), r.trace.Exchanges...),
	}
}
