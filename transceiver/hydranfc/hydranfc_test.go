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


package hydranfc

import (
	"bytes"
	"context"
	"errors"
	"testing"

	nfcreader "github.com/ZaparooProject/go-nfcreader"
	"github.com/ZaparooProject/go-nfcreader/internal/serialport"
	testutil "github.com/ZaparooProject/go-nfcreader/internal/testing"
	"github.com/ZaparooProject/go-nfcreader/reader"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// firmware emulates the HydraNFC BBIO interface in front of a card
type firmware struct {
	card        nfcreader.Transceiver
	readerReply []byte
	silentBBIO  int
	resets      int
}

func (f *firmware) respond(w []byte) []byte {
	switch w[0] {
	case cmdReset:
		f.resets++
		if f.resets <= f.silentBBIO {
			return nil
		}
		return []byte("BBIO1")
	case cmdReaderMode:
		if f.readerReply != nil {
			return f.readerReply
		}
		return []byte("NFC2")
	case cmdModeA, cmdModeB, cmdMode15693:
		if ms, ok := f.card.(nfcreader.ModeSetter); ok {
			mode := map[byte]nfcreader.Mode{
				cmdModeA:     nfcreader.ModeISO14443A,
				cmdModeB:     nfcreader.ModeISO14443B,
				cmdMode15693: nfcreader.ModeISO15693,
			}[w[0]]
			_ = ms.SetMode(mode)
		}
	case cmdFieldOn:
		_ = f.card.FieldOn()
	case cmdFieldOff:
		_ = f.card.FieldOff()
	case cmdWriteBits:
		atqa, _ := f.card.WriteBits([]byte{0x26}, 7)
		return append([]byte{byte(len(atqa))}, atqa...)
	case cmdWrite:
		resp, err := f.card.Write(w[3:3+int(w[2])], 0, w[1] == 1)
		if err != nil {
			return []byte{0x00}
		}
		return append([]byte{byte(len(resp))}, resp...)
	}
	return nil
}

func newDriver(t *testing.T, fw *firmware) (*Transceiver, *serialport.FakePort) {
	t.Helper()
	port := &serialport.FakePort{Respond: fw.respond}
	tr, err := New("/dev/ttyACM0", WithOpener(func(name string, baud int) (serialport.Port, error) {
		assert.Equal(t, "/dev/ttyACM0", name)
		assert.Equal(t, DefaultBaud, baud)
		return port, nil
	}))
	require.NoError(t, err)
	return tr, port
}

func TestConnectEntersReaderMode(t *testing.T) {
	t.Parallel()
	fw := &firmware{card: testutil.NewVirtualCard(), silentBBIO: 3}
	tr, port := newDriver(t, fw)

	require.NoError(t, tr.Connect())
	assert.Equal(t, 4, fw.resets)
	assert.Equal(t, []byte{0x00, 0x00, 0x00, 0x00, 0x0E}, port.WrittenBytes())
	assert.Equal(t, DefaultTimeout, port.Timeout())
	assert.Equal(t, nfcreader.TransceiverHydraNFC, tr.Type())

	require.NoError(t, tr.Connect())
	assert.Len(t, port.Written(), 5)
}

func TestConnectFailures(t *testing.T) {
	t.Parallel()

	t.Run("no BBIO banner", func(t *testing.T) {
		t.Parallel()
		fw := &firmware{card: testutil.NewVirtualCard(), silentBBIO: 100}
		tr, port := newDriver(t, fw)
		err := tr.Connect()
		require.ErrorIs(t, err, nfcreader.ErrDeviceUnavailable)
		require.ErrorIs(t, err, nfcreader.ErrNoResponse)
		assert.Equal(t, bbioAttempts, fw.resets)
		assert.True(t, port.Closed())
	})

	t.Run("wrong reader banner", func(t *testing.T) {
		t.Parallel()
		fw := &firmware{card: testutil.NewVirtualCard(), readerReply: []byte("NFC1")}
		tr, _ := newDriver(t, fw)
		require.ErrorIs(t, tr.Connect(), nfcreader.ErrDeviceError)
	})

	t.Run("port missing", func(t *testing.T) {
		t.Parallel()
		tr, err := New("/dev/none", WithOpener(func(string, int) (serialport.Port, error) {
			return nil, errors.New("no such file")
		}))
		require.NoError(t, err)
		require.ErrorIs(t, tr.Connect(), nfcreader.ErrDeviceUnavailable)
	})
}

func TestWriteFraming(t *testing.T) {
	t.Parallel()
	mock := nfcreader.NewMockTransceiver()
	mock.QueueResponse([]byte{0x04, 0xA2, 0x3B, 0x91, 0x0C})
	tr, port := newDriver(t, &firmware{card: mock})
	require.NoError(t, tr.Connect())

	resp, err := tr.Write([]byte{0x93, 0x20}, 5, false)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x04, 0xA2, 0x3B, 0x91, 0x0C}, resp)

	written := port.Written()
	assert.Equal(t, []byte{0x05, 0x00, 0x02, 0x93, 0x20}, written[len(written)-1])
	assert.Equal(t, []nfcreader.MockFrame{{Data: []byte{0x93, 0x20}}}, mock.Sent())

	// an empty queue makes the mock silent
	resp, err = tr.Write([]byte{0xE0, 0x80}, 16, true)
	require.NoError(t, err)
	assert.Empty(t, resp)
	assert.True(t, mock.Sent()[1].AddCRC)
}

func TestWriteValidation(t *testing.T) {
	t.Parallel()
	tr, _ := newDriver(t, &firmware{card: testutil.NewVirtualCard()})

	_, err := tr.Write([]byte{0x02}, 0, true)
	require.ErrorIs(t, err, nfcreader.ErrTransceiverClosed)
	require.ErrorIs(t, tr.FieldOn(), nfcreader.ErrTransceiverClosed)

	require.NoError(t, tr.Connect())
	_, err = tr.Write(bytes.Repeat([]byte{0x00}, 256), 0, true)
	require.ErrorIs(t, err, nfcreader.ErrFrameTooLarge)

	_, err = tr.WriteBits([]byte{0x52}, 7)
	require.ErrorIs(t, err, nfcreader.ErrNotSupported)

	require.ErrorIs(t, tr.SetMode(nfcreader.Mode(9)), nfcreader.ErrNotSupported)

	require.NoError(t, tr.Close())
	require.NoError(t, tr.Close())
}

func TestOptionsValidation(t *testing.T) {
	t.Parallel()
	_, err := New("/dev/ttyACM0", WithBaud(0))
	require.ErrorIs(t, err, nfcreader.ErrInvalidParameter)
	_, err = New("/dev/ttyACM0", WithTimeout(0))
	require.ErrorIs(t, err, nfcreader.ErrInvalidParameter)
}

func TestReaderOverHydraNFC(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	card := testutil.NewVirtualCard()
	tr, port := newDriver(t, &firmware{card: card})

	r, err := reader.New(tr)
	require.NoError(t, err)
	require.NoError(t, r.Connect(ctx))

	info, err := r.PollA(ctx)
	require.NoError(t, err)
	assert.Equal(t, testutil.TestUID, info.UID)

	rapdu, err := r.SendAPDU(ctx, []byte{0x00, 0xA4, 0x04, 0x00, 0x00})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00, 0xA4, 0x04, 0x00, 0x00, 0x90, 0x00}, rapdu)

	assert.Contains(t, port.Written(), []byte{cmdModeA})
	assert.Contains(t, port.Written(), []byte{cmdWriteBits})
	require.NoError(t, r.Close())
	assert.True(t, port.Closed())
}
