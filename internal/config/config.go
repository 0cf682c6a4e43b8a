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


// Package config loads reader settings from TOML files. Keys missing
// from the file keep their defaults.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	nfcreader "github.com/ZaparooProject/go-nfcreader"
	"github.com/ZaparooProject/go-nfcreader/iso14443"
	"github.com/rs/zerolog"
)

// Config holds everything needed to open a front-end and activate a card
type Config struct {
	Driver      string
	Port        string
	Trace       string
	IgnorePaths []string
	Session     iso14443.Config
	PPS         iso14443.PPSParams
	Baud        int
	Timeout     time.Duration
	Retry       nfcreader.RetryConfig
	Mode        nfcreader.Mode
	LogLevel    zerolog.Level
	SkipPPS     bool
}

// Default returns the settings used when no file is given
func Default() Config {
	return Config{
		Driver:   "hydranfc",
		Baud:     115200,
		Mode:     nfcreader.ModeISO14443A,
		Session:  iso14443.DefaultConfig(),
		Timeout:  time.Second,
		Retry:    *nfcreader.DefaultRetryConfig(),
		LogLevel: zerolog.InfoLevel,
	}
}

type fileConfig struct {
	Driver        string   `toml:"driver"`
	Port          string   `toml:"port"`
	Trace         string   `toml:"trace"`
	Mode          string   `toml:"mode"`
	Timeout       string   `toml:"timeout"`
	LogLevel      string   `toml:"log_level"`
	IgnorePaths   []string `toml:"ignore_paths"`
	Baud          int      `toml:"baud"`
	FSDI          int      `toml:"fsdi"`
	CID           int      `toml:"cid"`
	NAD           int      `toml:"nad"`
	BlockSize     int      `toml:"block_size"`
	MaxWTX        int      `toml:"max_wtx"`
	DRI           int      `toml:"dri"`
	DSI           int      `toml:"dsi"`
	RetryAttempts int      `toml:"retry_attempts"`
	PPS           bool     `toml:"pps"`
}

// Load reads path over the defaults
func Load(path string) (Config, error) {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	return apply(raw, meta)
}

// Parse reads TOML text over the defaults
func Parse(data string) (Config, error) {
	var raw fileConfig
	meta, err := toml.Decode(data, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	return apply(raw, meta)
}

func apply(raw fileConfig, meta toml.MetaData) (Config, error) {
	cfg := Default()

	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("%w: unknown key %q", nfcreader.ErrInvalidParameter, undecoded[0].String())
	}

	if meta.IsDefined("driver") {
		cfg.Driver = strings.ToLower(strings.TrimSpace(raw.Driver))
	}
	if meta.IsDefined("port") {
		cfg.Port = strings.TrimSpace(raw.Port)
	}
	if meta.IsDefined("trace") {
		cfg.Trace = strings.TrimSpace(raw.Trace)
	}
	if meta.IsDefined("baud") {
		cfg.Baud = raw.Baud
	}
	if meta.IsDefined("mode") {
		mode, err := nfcreader.ParseMode(strings.TrimSpace(raw.Mode))
		if err != nil {
			return Config{}, fmt.Errorf("parse mode: %w", err)
		}
		cfg.Mode = mode
	}
	if meta.IsDefined("fsdi") {
		v, err := byteValue("fsdi", raw.FSDI, 8)
		if err != nil {
			return Config{}, err
		}
		cfg.Session.FSDI = v
	}
	if meta.IsDefined("cid") {
		v, err := byteValue("cid", raw.CID, 14)
		if err != nil {
			return Config{}, err
		}
		cfg.Session.CID, cfg.Session.AddCID = v, true
	}
	if meta.IsDefined("nad") {
		v, err := byteValue("nad", raw.NAD, 0xFF)
		if err != nil {
			return Config{}, err
		}
		cfg.Session.NAD, cfg.Session.AddNAD = v, true
	}
	if meta.IsDefined("block_size") {
		cfg.Session.BlockSize = raw.BlockSize
	}
	if meta.IsDefined("max_wtx") {
		cfg.Session.MaxWTX = raw.MaxWTX
	}
	if meta.IsDefined("pps") {
		cfg.PPS.SendPPS1 = raw.PPS
	}
	if meta.IsDefined("dri") {
		v, err := byteValue("dri", raw.DRI, 3)
		if err != nil {
			return Config{}, err
		}
		cfg.PPS.DRI = v
	}
	if meta.IsDefined("dsi") {
		v, err := byteValue("dsi", raw.DSI, 3)
		if err != nil {
			return Config{}, err
		}
		cfg.PPS.DSI = v
	}
	if meta.IsDefined("timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.Timeout))
		if err != nil {
			return Config{}, fmt.Errorf("parse timeout: %w", err)
		}
		cfg.Timeout = d
	}
	if meta.IsDefined("log_level") {
		lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(raw.LogLevel)))
		if err != nil {
			return Config{}, fmt.Errorf("parse log_level: %w", err)
		}
		cfg.LogLevel = lvl
	}
	if meta.IsDefined("retry_attempts") {
		cfg.Retry.MaxAttempts = raw.RetryAttempts
	}
	if meta.IsDefined("ignore_paths") {
		cfg.IgnorePaths = normalizePaths(raw.IgnorePaths)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks values that cannot be range checked while decoding
func (c Config) Validate() error {
	switch c.Driver {
	case "hydranfc", "flipper", "libnfc":
	case "replay":
		if c.Trace == "" {
			return fmt.Errorf("%w: replay driver needs a trace file", nfcreader.ErrInvalidParameter)
		}
	default:
		return fmt.Errorf("%w: unknown driver %q", nfcreader.ErrInvalidParameter, c.Driver)
	}
	if c.Baud <= 0 {
		return fmt.Errorf("%w: baud %d", nfcreader.ErrInvalidParameter, c.Baud)
	}
	if c.Session.BlockSize < 0 || c.Session.MaxWTX < 0 {
		return fmt.Errorf("%w: negative block_size or max_wtx", nfcreader.ErrInvalidParameter)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("%w: timeout %s", nfcreader.ErrInvalidParameter, c.Timeout)
	}
	return nil
}

// Activation returns the activation options matching the file
func (c Config) Activation() iso14443.ActivationOptions {
	return iso14443.ActivationOptions{PPS: c.PPS, SkipPPS: c.SkipPPS}
}

func byteValue(key string, v, maxValue int) (byte, error) {
	if v < 0 || v > maxValue {
		return 0, fmt.Errorf("%w: %s %d out of range 0..%d", nfcreader.ErrInvalidParameter, key, v, maxValue)
	}
	return byte(v), nil
}

func normalizePaths(in []string) []string {
	out := make([]string, 0, len(in))
	for _, p := range in {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	return out
}
