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
	"bytes"
	"time"

	"github.com/ZaparooProject/go-nfcreader/reader"
)

// CardDetectionState is the state of the card on the reader
type CardDetectionState int

const (
	StateIdle CardDetectionState = iota
	StateTagDetected
	StateReading
)

// String returns the state name
func (s CardDetectionState) String() string {
	switch s {
	case StateTagDetected:
		return "detected"
	case StateReading:
		return "reading"
	default:
		return "idle"
	}
}

// CardState tracks the card currently on the reader
type CardState struct {
	LastSeenTime   time.Time
	Card           *reader.Card
	DetectionState CardDetectionState
	Present        bool
}

// SameCard reports whether card is the one already tracked
func (cs *CardState) SameCard(card *reader.Card) bool {
	return cs.Present && cs.Card != nil && card != nil &&
		cs.Card.Type == card.Type && bytes.Equal(cs.Card.UID, card.UID)
}

// TransitionToDetected records card as present at now
func (cs *CardState) TransitionToDetected(card *reader.Card, now time.Time) {
	cs.DetectionState = StateTagDetected
	cs.Present = true
	cs.Card = card
	cs.LastSeenTime = now
}

// TransitionToReading marks the card busy with a callback. A card being
// read is never reported removed.
func (cs *CardState) TransitionToReading() {
	cs.DetectionState = StateReading
}

// TransitionToIdle forgets the card
func (cs *CardState) TransitionToIdle() {
	*cs = CardState{}
}

// Expired reports whether a present card has been silent for longer than
// timeout
func (cs *CardState) Expired(now time.Time, timeout time.Duration) bool {
	return cs.Present && cs.DetectionState != StateReading && now.Sub(cs.LastSeenTime) >= timeout
}
