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

// TransceiverContext is a Transceiver whose blocking exchanges honor a context.
type TransceiverContext interface {
	Transceiver

	// WriteContext is Write with cancellation support
	WriteContext(ctx context.Context, data []byte, respLenHint int, addCRC bool) ([]byte, error)

	// WriteBitsContext is WriteBits with cancellation support
	WriteBitsContext(ctx context.Context, data []byte, numBits int) ([]byte, error)
}

// transceiverContextAdapter wraps a Transceiver to provide context support.
// The exchange keeps running in the background after cancellation; its
// result is dropped.
type transceiverContextAdapter struct {
	Transceiver
}

type exchangeResult struct {
	err  error
	data []byte
}

// WriteContext implements TransceiverContext
func (t *transceiverContextAdapter) WriteContext(
	ctx context.Context, data []byte, respLenHint int, addCRC bool,
) ([]byte, error) {
	return runContext(ctx, func() ([]byte, error) {
		return t.Write(data, respLenHint, addCRC)
	})
}

// WriteBitsContext implements TransceiverContext
func (t *transceiverContextAdapter) WriteBitsContext(ctx context.Context, data []byte, numBits int) ([]byte, error) {
	return runContext(ctx, func() ([]byte, error) {
		return t.WriteBits(data, numBits)
	})
}

func runContext(ctx context.Context, fn func() ([]byte, error)) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("context cancelled before sending frame: %w", ctx.Err())
	default:
	}

	resultChan := make(chan exchangeResult, 1)
	go func() {
		data, err := fn()
		resultChan <- exchangeResult{err: err, data: data}
	}()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("context cancelled while waiting for response: %w", ctx.Err())
	case res := <-resultChan:
		return res.data, res.err
	}
}

// AsTransceiverContext converts a Transceiver to TransceiverContext
func AsTransceiverContext(t Transceiver) TransceiverContext {
	if tc, ok := t.(TransceiverContext); ok {
		return tc
	}
	return &transceiverContextAdapter{Transceiver: t}
}
