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


package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
	nfcreader "github.com/ZaparooProject/go-nfcreader"
	"github.com/ZaparooProject/go-nfcreader/iso14443"
	"github.com/rs/zerolog"
)

// Answers of the built-in payment directory
const (
	selectPPSE   = "00A404000E325041592E5359532E444446303100"
	ppseResponse = "6F57840E325041592E5359532E4444463031A545BF0C42611B4F07A0000000421010" +
		"500243428701019F2808400200000000000061234F07A0000000041010500A4D4153" +
		"544552434152448701029F280840002000000000009000"
)

// unknownCommand is answered to commands missing from the table
const unknownCommand = "6F00"

// responseFile is the TOML layout of a -responses file:
//
//	default = "6A82"
//
//	[[response]]
//	command = "00A404000E325041592E5359532E444446303100"
//	response = "6F...9000"
type responseFile struct {
	Default   string          `toml:"default"`
	Responses []responseEntry `toml:"response"`
}

type responseEntry struct {
	Command  string `toml:"command"`
	Response string `toml:"response"`
}

// Responder answers command APDUs from a table keyed by the exact command
// bytes. Commands not in the table go to the fallback handler when one is
// set, else get the default answer.
type Responder struct {
	fallback  iso14443.APDUHandler
	responses map[string][]byte
	logger    zerolog.Logger
	notFound  []byte
	served    map[string]int
	mu        sync.Mutex
}

// NewResponder creates a responder holding the built-in PPSE answer
func NewResponder(logger zerolog.Logger) *Responder {
	r := &Responder{
		responses: make(map[string][]byte),
		served:    make(map[string]int),
		logger:    logger,
	}
	r.notFound, _ = hex.DecodeString(unknownCommand)
	resp, _ := hex.DecodeString(ppseResponse)
	cmd, _ := hex.DecodeString(selectPPSE)
	r.Set(cmd, resp)
	return r
}

// Set answers cmd with resp
func (r *Responder) Set(cmd, resp []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.responses[key(cmd)] = append([]byte(nil), resp...)
}

// SetFallback sends unknown commands to h
func (r *Responder) SetFallback(h iso14443.APDUHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fallback = h
}

// Served returns how many times cmd was answered from the table
func (r *Responder) Served(cmd []byte) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.served[key(cmd)]
}

// Load adds the entries of a TOML responses file
func (r *Responder) Load(path string) error {
	var raw responseFile
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return fmt.Errorf("load responses: %w", err)
	}
	return r.apply(raw, meta)
}

// Parse adds the entries of TOML text
func (r *Responder) Parse(data string) error {
	var raw responseFile
	meta, err := toml.Decode(data, &raw)
	if err != nil {
		return fmt.Errorf("parse responses: %w", err)
	}
	return r.apply(raw, meta)
}

func (r *Responder) apply(raw responseFile, meta toml.MetaData) error {
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return fmt.Errorf("%w: unknown key %q", nfcreader.ErrInvalidParameter, undecoded[0].String())
	}

	var notFound []byte
	if raw.Default != "" {
		b, err := decodeHex("default", raw.Default)
		if err != nil {
			return err
		}
		if len(b) < 2 {
			return fmt.Errorf("%w: default answer needs a status word", nfcreader.ErrInvalidParameter)
		}
		notFound = b
	}

	table := make(map[string][]byte, len(raw.Responses))
	for i, e := range raw.Responses {
		cmd, err := decodeHex(fmt.Sprintf("response %d command", i), e.Command)
		if err != nil {
			return err
		}
		resp, err := decodeHex(fmt.Sprintf("response %d", i), e.Response)
		if err != nil {
			return err
		}
		if len(cmd) < 4 || len(resp) < 2 {
			return fmt.Errorf("%w: response %d needs a command header and a status word",
				nfcreader.ErrInvalidParameter, i)
		}
		table[key(cmd)] = resp
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if notFound != nil {
		r.notFound = notFound
	}
	for k, v := range table {
		r.responses[k] = v
	}
	return nil
}

// HandleAPDU implements iso14443.APDUHandler
func (r *Responder) HandleAPDU(ctx context.Context, capdu []byte) ([]byte, error) {
	k := key(capdu)

	r.mu.Lock()
	resp, ok := r.responses[k]
	if ok {
		r.served[k]++
	}
	fallback := r.fallback
	notFound := r.notFound
	r.mu.Unlock()

	if ok {
		r.logger.Debug().Hex("capdu", capdu).Msg("answered from table")
		return append([]byte(nil), resp...), nil
	}
	if fallback != nil {
		return fallback.HandleAPDU(ctx, capdu)
	}
	r.logger.Debug().Hex("capdu", capdu).Msg("unknown command")
	return append([]byte(nil), notFound...), nil
}

func key(b []byte) string {
	return strings.ToUpper(hex.EncodeToString(b))
}

func decodeHex(field, s string) ([]byte, error) {
	clean := strings.NewReplacer(" ", "", ":", "").Replace(s)
	b, err := hex.DecodeString(clean)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", nfcreader.ErrInvalidParameter, field, err)
	}
	return b, nil
}
