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
	"flag"
	"fmt"
	"os"
	"os/signal"

	nfcreader "github.com/ZaparooProject/go-nfcreader"
	"github.com/ZaparooProject/go-nfcreader/internal/config"
	"github.com/ZaparooProject/go-nfcreader/internal/frontend"
	"github.com/ZaparooProject/go-nfcreader/internal/logging"
	"github.com/ZaparooProject/go-nfcreader/iso14443"
	"github.com/ZaparooProject/go-nfcreader/relay/pcsc"
	"github.com/rs/zerolog"
)

type options struct {
	configPath  string
	driver      string
	port        string
	ats         string
	responses   string
	relay       string
	relayStatus bool
	debug       bool
}

func parseFlags() *options {
	opts := &options{}
	flag.StringVar(&opts.configPath, "config", "", "TOML configuration file")
	flag.StringVar(&opts.driver, "driver", string(nfcreader.TransceiverFlipper), "Front-end driver able to emulate")
	flag.StringVar(&opts.port, "port", "", "Serial port. Leave empty for auto-detection.")
	flag.StringVar(&opts.ats, "ats", "", "ATS answered to RATS, in hex, starting with its length byte")
	flag.StringVar(&opts.responses, "responses", "", "TOML file of command/response pairs")
	flag.StringVar(&opts.relay, "relay", "",
		"Forward commands missing from the table to the PC/SC reader whose name contains this")
	flag.BoolVar(&opts.relayStatus, "relay-status", false,
		"Return 61xx and 6Cxx from the relayed card instead of resolving them")
	flag.BoolVar(&opts.debug, "debug", false, "Enable debug output")
	flag.Parse()
	return opts
}

func loadConfig(opts *options) (config.Config, error) {
	cfg := config.Default()
	if opts.configPath != "" {
		loaded, err := config.Load(opts.configPath)
		if err != nil {
			return config.Config{}, err
		}
		cfg = loaded
	}
	if opts.driver != "" {
		cfg.Driver = opts.driver
	}
	if opts.port != "" {
		cfg.Port = opts.port
	}
	if opts.debug {
		cfg.LogLevel = zerolog.DebugLevel
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func emulatorOptions(opts *options, logger zerolog.Logger) ([]iso14443.EmulatorOption, error) {
	emOpts := []iso14443.EmulatorOption{iso14443.WithEmulatorLogger(logger)}
	if opts.ats != "" {
		ats, err := decodeHex("ats", opts.ats)
		if err != nil {
			return nil, err
		}
		emOpts = append(emOpts, iso14443.WithATS(ats))
	}
	return emOpts, nil
}

func main() {
	opts := parseFlags()
	if err := run(opts); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "emulate: %v\n", err)
		os.Exit(1)
	}
}

func run(opts *options) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	logger := logging.New("emulate", cfg.LogLevel)

	responder := NewResponder(logger)
	if opts.responses != "" {
		if err := responder.Load(opts.responses); err != nil {
			return err
		}
	}
	if opts.relay != "" {
		relayOpts := []pcsc.Option{pcsc.WithLogger(logger)}
		if opts.relayStatus {
			relayOpts = append(relayOpts, pcsc.WithTransportStatus())
		}
		relay, err := pcsc.Open(opts.relay, relayOpts...)
		if err != nil {
			return err
		}
		defer func() {
			logger.Info().Int("apdus", relay.Count()).Msg("relay closed")
			_ = relay.Close()
		}()
		logger.Info().Str("reader", relay.Name()).Msg("relaying to PC/SC card")
		responder.SetFallback(relay)
	}

	emOpts, err := emulatorOptions(opts, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	tr, err := frontend.Open(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = tr.Close() }()

	em, ok := tr.(nfcreader.Emulator)
	if !ok {
		return fmt.Errorf("%w: %s front-end cannot emulate", nfcreader.ErrNotSupported, tr.Type())
	}
	emulator, err := iso14443.NewCardEmulator(em, responder, emOpts...)
	if err != nil {
		return err
	}

	if err := nfcreader.NewTransceiverWithRetry(tr, &cfg.Retry).Connect(); err != nil {
		return fmt.Errorf("connect: %w", err)
	}

	// GetCommand blocks on the front-end; closing it ends Run
	go func() {
		<-ctx.Done()
		_ = tr.Close()
	}()

	_, _ = fmt.Println("Emulating card, press Ctrl+C to stop")
	err = emulator.Run(ctx)
	if ctx.Err() != nil {
		return nil
	}
	return err
}
