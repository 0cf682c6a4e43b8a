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

package iso14443

import (
	"context"
	"errors"
	"testing"

	nfcreader "github.com/ZaparooProject/go-nfcreader"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func echoHandler() APDUHandler {
	return APDUHandlerFunc(func(_ context.Context, capdu []byte) ([]byte, error) {
		return append(append([]byte(nil), capdu...), 0x90, 0x00), nil
	})
}

func newTestEmulator(t *testing.T, handler APDUHandler, opts ...EmulatorOption) *CardEmulator {
	t.Helper()
	c, err := NewCardEmulator(nfcreader.NewMockTransceiver(), handler, opts...)
	require.NoError(t, err)
	return c
}

func handle(t *testing.T, c *CardEmulator, frame []byte) []byte {
	t.Helper()
	resp, ok := c.Handle(context.Background(), &nfcreader.Command{Frame: frame})
	require.True(t, ok, "no answer to % X", frame)
	return resp
}

func TestEmulatorRun(t *testing.T) {
	t.Parallel()
	mock := nfcreader.NewMockTransceiver()
	mock.QueueFieldEvent(nfcreader.FieldEventOn)
	mock.QueueCommand(crcA(0xE0, 0x80))
	mock.QueueCommand(crcA(0x02, 0x00, 0xA4, 0x04, 0x00))
	mock.QueueCommand(crcA(0xC2))
	mock.QueueFieldEvent(nfcreader.FieldEventOff)

	c, err := NewCardEmulator(mock, echoHandler())
	require.NoError(t, err)

	err = c.Run(context.Background())
	require.Error(t, err)
	assert.True(t, IsClosed(err))

	responses := mock.Responses()
	require.Len(t, responses, 3)
	assert.Equal(t, DefaultATS, responses[0].Data)
	assert.Equal(t, []byte{0x02, 0x00, 0xA4, 0x04, 0x00, 0x90, 0x00}, responses[1].Data)
	assert.Equal(t, []byte{0xC2}, responses[2].Data)
	for _, r := range responses {
		assert.True(t, r.AddCRC)
	}
}

func TestEmulatorRunCancelled(t *testing.T) {
	t.Parallel()
	mock := nfcreader.NewMockTransceiver()
	c, err := NewCardEmulator(mock, echoHandler())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, c.Run(ctx), context.Canceled)
}

func TestEmulatorHandlerError(t *testing.T) {
	t.Parallel()
	c := newTestEmulator(t, APDUHandlerFunc(func(context.Context, []byte) ([]byte, error) {
		return nil, errors.New("boom")
	}))

	assert.Equal(t, []byte{0x02, 0x6F, 0x00}, handle(t, c, crcA(0x02, 0x00, 0xB0)))
}

func TestEmulatorChainedCommand(t *testing.T) {
	t.Parallel()
	var got []byte
	c := newTestEmulator(t, APDUHandlerFunc(func(_ context.Context, capdu []byte) ([]byte, error) {
		got = capdu
		return []byte{0x90, 0x00}, nil
	}))

	assert.Equal(t, []byte{0xA2}, handle(t, c, crcA(0x12, 0xAA)))
	assert.Equal(t, []byte{0x03, 0x90, 0x00}, handle(t, c, crcA(0x03, 0xBB)))
	assert.Equal(t, []byte{0xAA, 0xBB}, got)
}

func TestEmulatorChainedResponse(t *testing.T) {
	t.Parallel()
	c := newTestEmulator(t, APDUHandlerFunc(func(context.Context, []byte) ([]byte, error) {
		return make([]byte, 40), nil
	}))

	first := handle(t, c, crcA(0x02, 0x00))
	assert.Equal(t, byte(0x12), first[0])
	assert.Len(t, first, 17)

	second := handle(t, c, crcA(0xA3))
	assert.Equal(t, byte(0x13), second[0])
	assert.Len(t, second, 17)

	third := handle(t, c, crcA(0xA2))
	assert.Equal(t, byte(0x02), third[0])
	assert.Len(t, third, 9)

	// nothing left: acknowledge with the last block number
	assert.Equal(t, []byte{0xA2}, handle(t, c, crcA(0xA3)))
}

func TestEmulatorCID(t *testing.T) {
	t.Parallel()
	c := newTestEmulator(t, echoHandler())

	assert.Equal(t, []byte{0x0A, 0x01, 0x00, 0x90, 0x00}, handle(t, c, crcA(0x0A, 0x01, 0x00)))
	assert.Equal(t, []byte{0xCA, 0x01}, handle(t, c, crcA(0xCA, 0x01)))
}

func TestEmulatorFieldResetsState(t *testing.T) {
	t.Parallel()
	c := newTestEmulator(t, echoHandler(), WithATS([]byte{0x05, 0x78, 0x80, 0x70, 0x02}))

	assert.Equal(t, []byte{0x05, 0x78, 0x80, 0x70, 0x02}, handle(t, c, crcA(0xE0, 0x80)))

	// a second RATS in the same activation is not an ATS request
	_, ok := c.Handle(context.Background(), &nfcreader.Command{Frame: crcA(0xE0, 0x80)})
	assert.False(t, ok)

	_, ok = c.Handle(context.Background(), &nfcreader.Command{Event: nfcreader.FieldEventOn})
	assert.False(t, ok)
	assert.Equal(t, []byte{0x05, 0x78, 0x80, 0x70, 0x02}, handle(t, c, crcA(0xE0, 0x80)))
}

func TestEmulatorDropsMalformedFrames(t *testing.T) {
	t.Parallel()
	c := newTestEmulator(t, echoHandler())

	for _, f := range [][]byte{nil, {0x02}, crcA(0x42)} {
		_, ok := c.Handle(context.Background(), &nfcreader.Command{Frame: f})
		assert.False(t, ok)
	}
}

func TestNewCardEmulatorValidation(t *testing.T) {
	t.Parallel()

	_, err := NewCardEmulator(nfcreader.NewMockTransceiver(), nil)
	require.ErrorIs(t, err, nfcreader.ErrInvalidParameter)

	_, err = NewCardEmulator(nfcreader.NewMockTransceiver(), echoHandler(), WithATS([]byte{0x05, 0x78}))
	require.ErrorIs(t, err, nfcreader.ErrInvalidParameter)

	_, err = NewCardEmulator(nfcreader.NewMockTransceiver(), echoHandler(), WithATS(nil))
	require.ErrorIs(t, err, nfcreader.ErrInvalidParameter)
}
