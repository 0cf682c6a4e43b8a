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


// Package frontend opens the transceiver a configuration names, finding
// the serial port when none is given.
package frontend

import (
	"context"
	"fmt"

	nfcreader "github.com/ZaparooProject/go-nfcreader"
	"github.com/ZaparooProject/go-nfcreader/detection"
	"github.com/ZaparooProject/go-nfcreader/internal/config"
	"github.com/ZaparooProject/go-nfcreader/transceiver/flipper"
	"github.com/ZaparooProject/go-nfcreader/transceiver/hydranfc"
	"github.com/ZaparooProject/go-nfcreader/transceiver/libnfc"
	"github.com/ZaparooProject/go-nfcreader/transceiver/replay"
	"github.com/rs/zerolog"
)

// Open creates the transceiver for cfg.Driver. It is not connected.
func Open(ctx context.Context, cfg config.Config, logger zerolog.Logger) (nfcreader.Transceiver, error) {
	opts := detection.DefaultOptions()
	opts.IgnorePaths = cfg.IgnorePaths
	return open(ctx, cfg, logger, &opts)
}

func open(
	ctx context.Context, cfg config.Config, logger zerolog.Logger, detect *detection.Options,
) (nfcreader.Transceiver, error) {
	driver := nfcreader.TransceiverType(cfg.Driver)
	switch driver {
	case nfcreader.TransceiverReplay:
		tr, err := replay.Open(cfg.Trace, replay.WithLogger(logger))
		if err != nil {
			return nil, fmt.Errorf("open replay trace: %w", err)
		}
		return tr, nil
	case nfcreader.TransceiverLibNFC:
		return libnfc.New(cfg.Port, libnfc.WithLogger(logger), libnfc.WithTimeout(cfg.Timeout))
	case nfcreader.TransceiverHydraNFC, nfcreader.TransceiverFlipper:
	default:
		return nil, fmt.Errorf("%w: unknown driver %q", nfcreader.ErrInvalidParameter, cfg.Driver)
	}

	port, err := resolvePort(ctx, driver, cfg.Port, detect)
	if err != nil {
		return nil, err
	}
	logger.Info().Str("driver", cfg.Driver).Str("port", port).Msg("opening front-end")

	if driver == nfcreader.TransceiverFlipper {
		tr, err := flipper.New(port, flipper.WithLogger(logger))
		if err != nil {
			return nil, err
		}
		return tr, nil
	}
	tr, err := hydranfc.New(port,
		hydranfc.WithLogger(logger),
		hydranfc.WithBaud(cfg.Baud),
		hydranfc.WithTimeout(cfg.Timeout),
	)
	if err != nil {
		return nil, err
	}
	return tr, nil
}

// resolvePort returns port, or the first detected device for driver when
// port is empty
func resolvePort(
	ctx context.Context, driver nfcreader.TransceiverType, port string, opts *detection.Options,
) (string, error) {
	if port != "" {
		return port, nil
	}
	opts.Drivers = []nfcreader.TransceiverType{driver}
	dev, err := detection.DetectFirst(ctx, opts)
	if err != nil {
		return "", fmt.Errorf("detect %s: %w", driver, err)
	}
	return dev.Path, nil
}
