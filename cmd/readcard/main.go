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
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	nfcreader "github.com/ZaparooProject/go-nfcreader"
	"github.com/ZaparooProject/go-nfcreader/internal/config"
	"github.com/ZaparooProject/go-nfcreader/internal/frontend"
	"github.com/ZaparooProject/go-nfcreader/internal/logging"
	"github.com/ZaparooProject/go-nfcreader/iso15693"
	"github.com/ZaparooProject/go-nfcreader/iso7816"
	"github.com/ZaparooProject/go-nfcreader/polling"
	"github.com/ZaparooProject/go-nfcreader/reader"
	"github.com/ZaparooProject/go-nfcreader/transceiver/replay"
	"github.com/rs/zerolog"
)

type options struct {
	configPath string
	driver     string
	port       string
	mode       string
	record     string
	commands   commandList
	timeout    time.Duration
	debug      bool
	watch      bool
}

func parseFlags() *options {
	opts := &options{}
	flag.StringVar(&opts.configPath, "config", "", "TOML configuration file")
	flag.StringVar(&opts.driver, "driver", "", "Front-end driver: hydranfc, flipper, libnfc or replay")
	flag.StringVar(&opts.port, "port", "",
		"Serial port (e.g., /dev/ttyACM0 or COM3). Leave empty for auto-detection.")
	flag.StringVar(&opts.mode, "mode", "", "Air interface: a, b or 15693")
	flag.StringVar(&opts.record, "record", "", "Save every exchange to this trace file")
	flag.Var(&opts.commands, "apdu", "Command APDU in hex, may be repeated (default: PPSE and payment AIDs)")
	flag.DurationVar(&opts.timeout, "timeout", 30*time.Second, "Timeout for the whole read")
	flag.BoolVar(&opts.debug, "debug", false, "Enable debug output")
	flag.BoolVar(&opts.watch, "watch", false, "Keep polling and read every card presented")
	flag.Parse()
	return opts
}

// loadConfig reads the file, if any, and applies flag overrides
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
		if cfg.Driver == string(nfcreader.TransceiverReplay) {
			cfg.Trace = opts.port
		}
	}
	if opts.mode != "" {
		mode, err := nfcreader.ParseMode(opts.mode)
		if err != nil {
			return config.Config{}, err
		}
		cfg.Mode = mode
	}
	if opts.debug {
		cfg.LogLevel = zerolog.DebugLevel
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func main() {
	opts := parseFlags()
	if err := run(opts); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "readcard: %v\n", err)
		os.Exit(1)
	}
}

func run(opts *options) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	cmds, err := opts.commands.commands()
	if err != nil {
		return err
	}
	logger := logging.New("readcard", cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if !opts.watch {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.timeout)
		defer cancel()
	}

	tr, err := frontend.Open(ctx, cfg, logger)
	if err != nil {
		return err
	}
	if opts.record != "" {
		rec := replay.NewRecorder(tr)
		tr = rec
		defer func() {
			if err := rec.Trace().Save(opts.record); err != nil {
				logger.Error().Err(err).Msg("saving trace")
				return
			}
			logger.Info().Str("path", opts.record).Msg("trace saved")
		}()
	}

	r, err := reader.New(tr, reader.WithConfig(cfg), reader.WithLogger(logger))
	if err != nil {
		_ = tr.Close()
		return err
	}
	defer func() { _ = r.Close() }()

	if err := r.Connect(ctx); err != nil {
		return err
	}

	switch {
	case cfg.Mode == nfcreader.ModeISO15693:
		return readVicinity(ctx, r)
	case opts.watch:
		return watch(ctx, r, cfg.Mode, cmds, logger)
	default:
		card, err := r.Poll(ctx, cfg.Mode)
		if err != nil {
			return fmt.Errorf("no card found: %w", err)
		}
		return readCard(ctx, r, card, cmds)
	}
}

func readCard(ctx context.Context, r *reader.Reader, card *reader.Card, cmds []*iso7816.CommandAPDU) error {
	_, _ = fmt.Printf("\n=== %s ===\n", card)
	if card.ATS != nil {
		_, _ = fmt.Printf("FSCI: %d, historical bytes: % X\n", card.ATS.FSCI, card.ATS.Historical)
	}

	client, err := r.Client(ctx)
	if err != nil {
		return err
	}
	for _, cmd := range cmds {
		trace, err := client.Send(cmd)
		if err != nil {
			return fmt.Errorf("send %s: %w", cmd, err)
		}
		printTrace(os.Stdout, cmd, trace)
	}
	return r.Release(ctx)
}

func readVicinity(ctx context.Context, r *reader.Reader) error {
	s, err := r.Vicinity()
	if err != nil {
		return err
	}
	dump, err := s.DumpMemory(ctx)
	if err != nil {
		return err
	}
	_, _ = fmt.Printf("\n=== ISO15693 UID %X (%s) ===\n", dump.UID, iso15693.ManufacturerFromUID(dump.UID))
	if dump.Info != nil {
		_, _ = fmt.Printf("%d blocks of %d bytes\n", dump.Info.BlockCount, dump.Info.BlockSize)
	}
	_, _ = fmt.Print(dump.String())

	msg, err := iso15693.ParseType5NDEF(dump.Data())
	if err != nil {
		_, _ = fmt.Printf("No NDEF message: %v\n", err)
		return nil
	}
	printNDEF(os.Stdout, msg)
	return nil
}

func watch(
	ctx context.Context, r *reader.Reader, mode nfcreader.Mode, cmds []*iso7816.CommandAPDU, logger zerolog.Logger,
) error {
	pollCfg := polling.DefaultConfig()
	pollCfg.Modes = []nfcreader.Mode{mode}

	monitor, err := polling.NewMonitor(r, pollCfg, polling.WithLogger(logger))
	if err != nil {
		return err
	}
	read := func(ctx context.Context, card *reader.Card) error {
		return readCard(ctx, r, card, cmds)
	}
	monitor.OnCardDetected = read
	monitor.OnCardChanged = read
	monitor.OnCardRemoved = func() {
		_, _ = fmt.Println("Card removed - ready for next card...")
	}

	_, _ = fmt.Println("Waiting for cards, press Ctrl+C to stop")
	err = monitor.Start(ctx)
	if errors.Is(err, context.Canceled) {
		m := monitor.GetMetrics()
		_, _ = fmt.Printf("%d cards read in %d poll cycles\n", m.CardsDetected, m.PollCycles)
		return nil
	}
	return err
}
