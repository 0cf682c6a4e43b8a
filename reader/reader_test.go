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


package reader

import (
	"context"
	"errors"
	"testing"
	"time"

	nfcreader "github.com/ZaparooProject/go-nfcreader"
	testutil "github.com/ZaparooProject/go-nfcreader/internal/testing"
	"github.com/ZaparooProject/go-nfcreader/iso14443"
	"github.com/ZaparooProject/go-nfcreader/iso7816"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newConnectedReader(t *testing.T, tr nfcreader.Transceiver, opts ...Option) *Reader {
	t.Helper()
	r, err := New(tr, opts...)
	require.NoError(t, err)
	require.NoError(t, r.Connect(context.Background()))
	return r
}

func TestNewRejectsNilTransceiver(t *testing.T) {
	t.Parallel()
	_, err := New(nil)
	require.ErrorIs(t, err, nfcreader.ErrInvalidParameter)

	_, err = New(testutil.NewVirtualCard(), WithRetryConfig(nil))
	require.ErrorIs(t, err, nfcreader.ErrInvalidParameter)
}

func TestPollAAndSendAPDU(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	card := testutil.NewVirtualCard()
	r := newConnectedReader(t, card)

	_, err := r.SendAPDU(ctx, []byte{0x00, 0xA4, 0x04, 0x00})
	require.ErrorIs(t, err, ErrNoCard)

	info, err := r.PollA(ctx)
	require.NoError(t, err)
	assert.Equal(t, CardTypeA, info.Type)
	assert.Equal(t, testutil.TestUID, info.UID)
	assert.Equal(t, []byte{0x04, 0x00}, info.ATQA)
	require.NotNil(t, info.ATS)
	assert.Same(t, info, r.Card())
	assert.Contains(t, info.String(), "ISO14443A UID 04A23B91")

	rapdu, err := r.SendAPDU(ctx, []byte{0x00, 0xA4, 0x04, 0x00})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00, 0xA4, 0x04, 0x00, 0x90, 0x00}, rapdu)

	require.NoError(t, r.Release(ctx))
	assert.True(t, card.Deselected())
	assert.Nil(t, r.Card())

	_, err = r.SendAPDU(ctx, []byte{0x00, 0xA4, 0x04, 0x00})
	require.ErrorIs(t, err, ErrNoCard)
	require.NoError(t, r.Release(ctx))
}

func TestPollTwiceCyclesField(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	card := testutil.NewVirtualCard()
	r := newConnectedReader(t, card)

	_, err := r.PollA(ctx)
	require.NoError(t, err)
	_, err = r.SendAPDU(ctx, []byte{0x00, 0xB0, 0x00, 0x00, 0x02})
	require.NoError(t, err)

	_, err = r.Poll(ctx, nfcreader.ModeISO14443A)
	require.NoError(t, err)
	_, err = r.SendAPDU(ctx, []byte{0x00, 0xB0, 0x00, 0x00, 0x02})
	require.NoError(t, err)

	// both activations start from block number 0
	assert.Equal(t, []byte{0, 0}, card.IBlockNumbers())
}

func TestPollB(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	card := testutil.NewVirtualCard()
	r := newConnectedReader(t, card)

	info, err := r.PollB(ctx)
	require.NoError(t, err)
	assert.Equal(t, CardTypeB, info.Type)
	assert.Equal(t, testutil.TestPUPI, info.UID)
	assert.NotEmpty(t, info.ATTRIB)

	rapdu, err := r.SendAPDU(ctx, []byte{0x80, 0xCA, 0x9F, 0x7F, 0x00})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x80, 0xCA, 0x9F, 0x7F, 0x00, 0x90, 0x00}, rapdu)
}

func TestPollNoCard(t *testing.T) {
	t.Parallel()
	card := testutil.NewVirtualCard()
	card.SetPresent(false)
	r := newConnectedReader(t, card)

	_, err := r.PollA(context.Background())
	require.ErrorIs(t, err, nfcreader.ErrActivationFailed)
	assert.Nil(t, r.Card())

	_, err = r.Poll(context.Background(), nfcreader.ModeISO15693)
	require.ErrorIs(t, err, nfcreader.ErrInvalidParameter)
}

func TestPollWithActivationOptions(t *testing.T) {
	t.Parallel()
	card := testutil.NewVirtualCard()
	r := newConnectedReader(t, card,
		WithActivation(iso14443.ActivationOptions{PPS: iso14443.PPSParams{SendPPS1: true, DRI: 1, DSI: 1}}),
		WithSessionOptions(iso14443.WithMaxWTX(2)),
	)

	_, err := r.PollA(context.Background())
	require.NoError(t, err)

	received := card.Received()
	assert.Equal(t, []byte{0xD0, 0x01, 0x11}, received[len(received)-1])
}

func TestClientResolvesGetResponse(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	card := testutil.NewVirtualCard()
	card.Handler = func(capdu []byte) []byte {
		if capdu[1] == iso7816.InsGetResponse {
			return []byte{0xCA, 0xFE, 0x90, 0x00}
		}
		return []byte{0x61, 0x02}
	}
	r := newConnectedReader(t, card)

	_, err := r.Client(ctx)
	require.ErrorIs(t, err, ErrNoCard)

	_, err = r.PollA(ctx)
	require.NoError(t, err)
	client, err := r.Client(ctx)
	require.NoError(t, err)

	resp, err := client.Exchange(iso7816.SelectAID([]byte{0xA0, 0x00, 0x00, 0x00, 0x03}))
	require.NoError(t, err)
	assert.Equal(t, []byte{0xCA, 0xFE}, resp.Data)
}

func TestVicinity(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	tag := testutil.NewVirtualVICC()
	r := newConnectedReader(t, tag)

	s, err := r.Vicinity()
	require.NoError(t, err)
	inv, err := s.Inventory(ctx)
	require.NoError(t, err)
	assert.Equal(t, testutil.TestVICCUID, inv.UID)
}

func TestConnectRetries(t *testing.T) {
	t.Parallel()
	mock := nfcreader.NewMockTransceiver()
	mock.ConnectErr = errors.New("port busy")

	r, err := New(mock, WithRetryConfig(&nfcreader.RetryConfig{
		MaxAttempts:    2,
		InitialBackoff: time.Millisecond,
	}))
	require.NoError(t, err)

	err = r.Connect(context.Background())
	require.ErrorIs(t, err, nfcreader.ErrDeviceUnavailable)
	assert.False(t, mock.IsFieldOn())
}

func TestCloseSwitchesFieldOff(t *testing.T) {
	t.Parallel()
	mock := nfcreader.NewMockTransceiver()
	r := newConnectedReader(t, mock)
	assert.True(t, mock.IsFieldOn())

	require.NoError(t, r.Close())
	assert.False(t, mock.IsFieldOn())
	_, err := mock.Write([]byte{0x00}, 0, false)
	require.ErrorIs(t, err, nfcreader.ErrTransceiverClosed)
}
