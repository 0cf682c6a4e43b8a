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


package polling

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	nfcreader "github.com/ZaparooProject/go-nfcreader"
	"github.com/ZaparooProject/go-nfcreader/reader"
	"github.com/rs/zerolog"
)

// Poller activates a card of the given mode. *reader.Reader is one.
type Poller interface {
	Poll(ctx context.Context, mode nfcreader.Mode) (*reader.Card, error)
}

// Metrics counts what the monitor has done
type Metrics struct {
	PollCycles      int64
	PollErrors      int64
	CardsDetected   int64
	CallbackErrors  int64
	LastPollLatency time.Duration
}

// Monitor polls a reader and reports card arrival, change and removal.
// Callbacks run on the polling goroutine while the card is still
// activated, so OnCardDetected and OnCardChanged may exchange APDUs.
type Monitor struct {
	poller         Poller
	config         *Config
	OnCardDetected func(ctx context.Context, card *reader.Card) error
	OnCardChanged  func(ctx context.Context, card *reader.Card) error
	OnCardRemoved  func()
	logger         zerolog.Logger
	lastCard       time.Time
	state          CardState
	pollCycles     atomic.Int64
	pollErrors     atomic.Int64
	cardsDetected  atomic.Int64
	callbackErrors atomic.Int64
	lastLatency    atomic.Int64
	mu             sync.Mutex
	paused         atomic.Bool
}

// MonitorOption configures a Monitor
type MonitorOption func(*Monitor)

// WithLogger sets the logger
func WithLogger(logger zerolog.Logger) MonitorOption {
	return func(m *Monitor) { m.logger = logger }
}

// NewMonitor creates a monitor over poller. A nil config uses
// DefaultConfig.
func NewMonitor(poller Poller, config *Config, opts ...MonitorOption) (*Monitor, error) {
	if poller == nil {
		return nil, fmt.Errorf("%w: nil poller", nfcreader.ErrInvalidParameter)
	}
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	m := &Monitor{
		poller: poller,
		config: config,
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Start polls until ctx is done or the reader is closed
func (m *Monitor) Start(ctx context.Context) error {
	m.lastCard = time.Now()
	for {
		if !m.paused.Load() {
			if err := m.cycle(ctx); err != nil {
				return err
			}
		}

		timer := time.NewTimer(m.config.interval(time.Since(m.lastCard)))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Pause suspends polling. A card present when paused is not reported
// removed until polling resumes.
func (m *Monitor) Pause() {
	m.paused.Store(true)
}

// Resume restarts polling after Pause
func (m *Monitor) Resume() {
	m.mu.Lock()
	if m.state.Present {
		m.state.LastSeenTime = time.Now()
	}
	m.mu.Unlock()
	m.paused.Store(false)
}

// GetState returns a copy of the tracked card state
func (m *Monitor) GetState() CardState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// GetMetrics returns the counters so far
func (m *Monitor) GetMetrics() Metrics {
	return Metrics{
		PollCycles:      m.pollCycles.Load(),
		PollErrors:      m.pollErrors.Load(),
		CardsDetected:   m.cardsDetected.Load(),
		CallbackErrors:  m.callbackErrors.Load(),
		LastPollLatency: time.Duration(m.lastLatency.Load()),
	}
}

// cycle tries every mode once. Only a closed transceiver or a cancelled
// context ends the monitor.
func (m *Monitor) cycle(ctx context.Context) error {
	m.pollCycles.Add(1)
	start := time.Now()
	card, err := m.poll(ctx)
	m.lastLatency.Store(int64(time.Since(start)))
	if err != nil {
		return err
	}

	if card == nil {
		m.miss(time.Now())
		return nil
	}
	m.lastCard = time.Now()
	m.found(ctx, card)
	return nil
}

func (m *Monitor) poll(ctx context.Context) (*reader.Card, error) {
	for _, mode := range m.config.Modes {
		card, err := m.poller.Poll(ctx, mode)
		switch {
		case err == nil:
			return card, nil
		case errors.Is(err, nfcreader.ErrTransceiverClosed):
			return nil, fmt.Errorf("poll %s: %w", mode, err)
		case ctx.Err() != nil:
			return nil, ctx.Err()
		case isAbsent(err):
		default:
			m.pollErrors.Add(1)
			m.logger.Warn().Err(err).Stringer("mode", mode).Msg("poll failed")
		}
	}
	return nil, nil
}

// isAbsent reports errors that only mean nothing answered
func isAbsent(err error) bool {
	return errors.Is(err, nfcreader.ErrActivationFailed) ||
		nfcreader.GetErrorType(err) == nfcreader.ErrorTypeTimeout
}

func (m *Monitor) found(ctx context.Context, card *reader.Card) {
	m.mu.Lock()
	same := m.state.SameCard(card)
	changed := m.state.Present && !same
	m.state.TransitionToDetected(card, time.Now())
	if same {
		m.mu.Unlock()
		return
	}
	m.state.TransitionToReading()
	m.mu.Unlock()

	m.cardsDetected.Add(1)
	callback := m.OnCardDetected
	if changed {
		m.logger.Info().Hex("uid", card.UID).Msg("card changed")
		callback = m.OnCardChanged
	} else {
		m.logger.Info().Hex("uid", card.UID).Msg("card detected")
	}
	if callback != nil {
		if err := callback(ctx, card); err != nil {
			m.callbackErrors.Add(1)
			m.logger.Error().Err(err).Hex("uid", card.UID).Msg("card callback failed")
		}
	}

	m.mu.Lock()
	m.state.TransitionToDetected(card, time.Now())
	m.mu.Unlock()
}

func (m *Monitor) miss(now time.Time) {
	m.mu.Lock()
	if !m.state.Expired(now, m.config.CardRemovalTimeout) {
		m.mu.Unlock()
		return
	}
	uid := m.state.Card.UID
	m.state.TransitionToIdle()
	m.mu.Unlock()

	m.logger.Info().Hex("uid", uid).Msg("card removed")
	if m.OnCardRemoved != nil {
		m.OnCardRemoved()
	}
}
