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


// Package polling watches a reader for cards coming and going. Every cycle
// runs a full activation, so a card that is still there answers again and
// a card that left stops answering.
package polling

import (
	"fmt"
	"time"

	nfcreader "github.com/ZaparooProject/go-nfcreader"
)

// Config tunes the polling loop
type Config struct {
	// Modes are tried in order every cycle
	Modes []nfcreader.Mode
	// PollInterval is the pause between cycles while cards are around
	PollInterval time.Duration
	// IdleInterval replaces PollInterval once no card has been seen for
	// IdleAfter
	IdleInterval time.Duration
	IdleAfter    time.Duration
	// CardRemovalTimeout is how long a card may stay silent before it is
	// reported removed
	CardRemovalTimeout time.Duration
}

// DefaultConfig polls Type A cards every 100ms
func DefaultConfig() *Config {
	return &Config{
		Modes:              []nfcreader.Mode{nfcreader.ModeISO14443A},
		PollInterval:       100 * time.Millisecond,
		IdleInterval:       500 * time.Millisecond,
		IdleAfter:          5 * time.Second,
		CardRemovalTimeout: 300 * time.Millisecond,
	}
}

// Validate checks the configuration is usable
func (c *Config) Validate() error {
	if len(c.Modes) == 0 {
		return fmt.Errorf("%w: no poll modes", nfcreader.ErrInvalidParameter)
	}
	for _, mode := range c.Modes {
		if mode != nfcreader.ModeISO14443A && mode != nfcreader.ModeISO14443B {
			return fmt.Errorf("%w: cannot poll %s cards", nfcreader.ErrInvalidParameter, mode)
		}
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("%w: poll interval %s", nfcreader.ErrInvalidParameter, c.PollInterval)
	}
	if c.IdleInterval < 0 || c.IdleAfter < 0 || c.CardRemovalTimeout < 0 {
		return fmt.Errorf("%w: negative duration", nfcreader.ErrInvalidParameter)
	}
	return nil
}

// interval returns the pause before the next cycle
func (c *Config) interval(sinceCard time.Duration) time.Duration {
	if c.IdleInterval > 0 && c.IdleAfter > 0 && sinceCard >= c.IdleAfter {
		return max(c.IdleInterval, c.PollInterval)
	}
	return c.PollInterval
}
