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
	"sync"
	"time"
)

// MockFrame is one frame written to a MockTransceiver.
type MockFrame struct {
	Data    []byte
	NumBits int
	AddCRC  bool
}

type mockReply struct {
	err  error
	data []byte
}

// MockTransceiver is a scripted transceiver for tests. Responses are served
// in order from a queue unless ResponseFunc is set. Every frame written is
// recorded.
type MockTransceiver struct {
	ResponseFunc func(data []byte, addCRC bool) ([]byte, error)
	ConnectErr   error
	replies      []mockReply
	bitReplies   []mockReply
	sent         []MockFrame
	commands     []Command
	responses    []MockFrame
	modes        []Mode
	mu           sync.Mutex
	connected    bool
	fieldOn      bool
	emulating    bool
	closed       bool
}

// NewMockTransceiver creates an empty mock transceiver
func NewMockTransceiver() *MockTransceiver {
	return &MockTransceiver{}
}

// QueueResponse appends responses served by Write in order
func (m *MockTransceiver) QueueResponse(responses ...[]byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range responses {
		m.replies = append(m.replies, mockReply{data: append([]byte(nil), r...)})
	}
}

// QueueError makes the next Write fail with err
func (m *MockTransceiver) QueueError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replies = append(m.replies, mockReply{err: err})
}

// QueueBitsResponse appends responses served by WriteBits in order
func (m *MockTransceiver) QueueBitsResponse(responses ...[]byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range responses {
		m.bitReplies = append(m.bitReplies, mockReply{data: append([]byte(nil), r...)})
	}
}

// QueueCommand appends a reader frame returned by GetCommand
func (m *MockTransceiver) QueueCommand(frame []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.commands = append(m.commands, Command{Frame: append([]byte(nil), frame...)})
}

// QueueFieldEvent appends a field event returned by GetCommand
func (m *MockTransceiver) QueueFieldEvent(ev FieldEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.commands = append(m.commands, Command{Event: ev})
}

// Sent returns a copy of every frame written so far
func (m *MockTransceiver) Sent() []MockFrame {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]MockFrame(nil), m.sent...)
}

// SentData returns the payload of every frame written so far
func (m *MockTransceiver) SentData() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]byte, 0, len(m.sent))
	for _, f := range m.sent {
		out = append(out, f.Data)
	}
	return out
}

// Responses returns every frame sent back to the reader in emulation mode
func (m *MockTransceiver) Responses() []MockFrame {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]MockFrame(nil), m.responses...)
}

// Modes returns every mode set on the mock
func (m *MockTransceiver) Modes() []Mode {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Mode(nil), m.modes...)
}

// Pending returns the number of queued Write responses not yet consumed
func (m *MockTransceiver) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.replies)
}

// IsFieldOn reports the simulated field state
func (m *MockTransceiver) IsFieldOn() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fieldOn
}

// Connect implements Transceiver
func (m *MockTransceiver) Connect() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ConnectErr != nil {
		return m.ConnectErr
	}
	m.connected = true
	return nil
}

// FieldOn implements Transceiver
func (m *MockTransceiver) FieldOn() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrTransceiverClosed
	}
	m.fieldOn = true
	return nil
}

// FieldOff implements Transceiver
func (m *MockTransceiver) FieldOff() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrTransceiverClosed
	}
	m.fieldOn = false
	return nil
}

// SetMode implements ModeSetter
func (m *MockTransceiver) SetMode(mode Mode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.modes = append(m.modes, mode)
	return nil
}

// Write implements Transceiver
func (m *MockTransceiver) Write(data []byte, _ int, addCRC bool) ([]byte, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, ErrTransceiverClosed
	}
	m.sent = append(m.sent, MockFrame{Data: append([]byte(nil), data...), AddCRC: addCRC})
	fn := m.ResponseFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(data, addCRC)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return pop(&m.replies)
}

// WriteBits implements Transceiver
func (m *MockTransceiver) WriteBits(data []byte, numBits int) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrTransceiverClosed
	}
	m.sent = append(m.sent, MockFrame{Data: append([]byte(nil), data...), NumBits: numBits})
	return pop(&m.bitReplies)
}

func pop(queue *[]mockReply) ([]byte, error) {
	if len(*queue) == 0 {
		return nil, ErrNoResponse
	}
	r := (*queue)[0]
	*queue = (*queue)[1:]
	return r.data, r.err
}

// StartEmulation implements Emulator
func (m *MockTransceiver) StartEmulation() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.emulating = true
	return nil
}

// GetCommand implements Emulator. It returns ErrTransceiverClosed once the
// command queue is drained so emulation loops terminate.
func (m *MockTransceiver) GetCommand() (*Command, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.commands) == 0 {
		return nil, ErrTransceiverClosed
	}
	cmd := m.commands[0]
	m.commands = m.commands[1:]
	return &cmd, nil
}

// SendResponse implements Emulator
func (m *MockTransceiver) SendResponse(frame []byte, addCRC bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, MockFrame{Data: append([]byte(nil), frame...), AddCRC: addCRC})
	return nil
}

// Close implements Transceiver
func (m *MockTransceiver) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.connected = false
	return nil
}

// Type returns TransceiverMock
func (*MockTransceiver) Type() TransceiverType {
	return TransceiverMock
}

// BlockingMockTransceiver blocks every Write until Unblock is called, the
// timeout expires or it is closed. It is used for cancellation tests.
type BlockingMockTransceiver struct {
	MockTransceiver
	blockChan chan struct{}
	timeout   time.Duration
	bmu       sync.Mutex
	bclosed   bool
}

// NewBlockingMockTransceiver creates a new blocking mock transceiver
func NewBlockingMockTransceiver() *BlockingMockTransceiver {
	return &BlockingMockTransceiver{
		blockChan: make(chan struct{}),
		timeout:   5 * time.Second,
	}
}

// SetTimeout configures how long Write blocks before timing out
func (m *BlockingMockTransceiver) SetTimeout(timeout time.Duration) {
	m.bmu.Lock()
	defer m.bmu.Unlock()
	m.timeout = timeout
}

// Write blocks until Unblock, timeout or Close
func (m *BlockingMockTransceiver) Write(data []byte, respLenHint int, addCRC bool) ([]byte, error) {
	m.bmu.Lock()
	blockChan := m.blockChan
	closed := m.bclosed
	timeout := m.timeout
	m.bmu.Unlock()

	if closed {
		return nil, ErrTransceiverClosed
	}

	select {
	case <-blockChan:
	case <-time.After(timeout):
		return nil, NewTimeoutError("Write", "mock")
	}

	m.bmu.Lock()
	closed = m.bclosed
	m.bmu.Unlock()
	if closed {
		return nil, ErrTransceiverClosed
	}
	return m.MockTransceiver.Write(data, respLenHint, addCRC)
}

// Unblock allows one blocked Write to proceed
func (m *BlockingMockTransceiver) Unblock() {
	m.bmu.Lock()
	defer m.bmu.Unlock()
	if !m.bclosed {
		close(m.blockChan)
		m.blockChan = make(chan struct{})
	}
}

// Close unblocks all operations and marks the transceiver as closed
func (m *BlockingMockTransceiver) Close() error {
	m.bmu.Lock()
	if !m.bclosed {
		m.bclosed = true
		close(m.blockChan)
	}
	m.bmu.Unlock()
	return m.MockTransceiver.Close()
}
