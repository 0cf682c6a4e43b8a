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


// Package detection finds serial front-ends by their USB identifiers.
package detection

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"

	nfcreader "github.com/ZaparooProject/go-nfcreader"
	"go.bug.st/serial/enumerator"
)

// ErrNoDevicesFound is returned when no supported front-end is attached
var ErrNoDevicesFound = errors.New("no supported devices found")

// KnownDevices maps USB VID:PID to the driver speaking to it
var KnownDevices = map[string]nfcreader.TransceiverType{
	"1D50:60A7": nfcreader.TransceiverHydraNFC, // HydraBus
	"0483:5740": nfcreader.TransceiverFlipper,  // Flipper Zero CDC
}

// DeviceInfo describes a detected front-end
type DeviceInfo struct {
	Path         string
	Product      string
	SerialNumber string
	VIDPID       string
	Driver       nfcreader.TransceiverType
}

// String returns a one-line description
func (d DeviceInfo) String() string {
	if d.Product != "" {
		return fmt.Sprintf("%s at %s (%s, %s)", d.Driver, d.Path, d.Product, d.VIDPID)
	}
	return fmt.Sprintf("%s at %s (%s)", d.Driver, d.Path, d.VIDPID)
}

// PortLister enumerates serial ports
type PortLister func() ([]*enumerator.PortDetails, error)

// Options configures detection
type Options struct {
	// Lister replaces the platform enumerator
	Lister PortLister
	// Blocklist holds VID:PID pairs to skip
	Blocklist []string
	// IgnorePaths holds port paths to skip
	IgnorePaths []string
	// Drivers restricts results to these drivers when set
	Drivers []nfcreader.TransceiverType
}

// DefaultOptions returns options using the platform enumerator and
// DefaultBlocklist
func DefaultOptions() Options {
	return Options{
		Lister:    enumerator.GetDetailedPortsList,
		Blocklist: DefaultBlocklist(),
	}
}

// DetectAll is DetectAllContext with a background context
func DetectAll(opts *Options) ([]DeviceInfo, error) {
	return DetectAllContext(context.Background(), opts)
}

// DetectAllContext lists serial ports and returns every supported
// front-end, sorted by path
func DetectAllContext(ctx context.Context, opts *Options) ([]DeviceInfo, error) {
	if opts == nil {
		def := DefaultOptions()
		opts = &def
	}
	if err := ValidateBlocklist(opts.Blocklist); err != nil {
		return nil, fmt.Errorf("%w: %w", nfcreader.ErrInvalidParameter, err)
	}
	lister := opts.Lister
	if lister == nil {
		lister = enumerator.GetDetailedPortsList
	}

	ports, err := lister()
	if err != nil {
		return nil, fmt.Errorf("list serial ports: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("detection cancelled: %w", err)
	}

	var found []DeviceInfo
	for _, port := range ports {
		dev, ok := match(port, opts)
		if ok {
			found = append(found, dev)
		}
	}
	if len(found) == 0 {
		return nil, ErrNoDevicesFound
	}
	sort.Slice(found, func(i, j int) bool { return found[i].Path < found[j].Path })
	return found, nil
}

// DetectFirst returns the first front-end DetectAllContext finds
func DetectFirst(ctx context.Context, opts *Options) (DeviceInfo, error) {
	found, err := DetectAllContext(ctx, opts)
	if err != nil {
		return DeviceInfo{}, err
	}
	return found[0], nil
}

func match(port *enumerator.PortDetails, opts *Options) (DeviceInfo, bool) {
	if port == nil || !port.IsUSB || IsPathIgnored(port.Name, opts.IgnorePaths) {
		return DeviceInfo{}, false
	}
	vidpid := FormatVIDPID(port.VID, port.PID)
	if IsBlocked(vidpid, opts.Blocklist) {
		return DeviceInfo{}, false
	}
	driver, ok := KnownDevices[vidpid]
	if !ok || (len(opts.Drivers) > 0 && !slices.Contains(opts.Drivers, driver)) {
		return DeviceInfo{}, false
	}
	// 0483:5740 is ST's generic virtual COM port
	if driver == nfcreader.TransceiverFlipper && port.Product != "" &&
		!strings.Contains(strings.ToLower(port.Product), "flip") {
		return DeviceInfo{}, false
	}
	return DeviceInfo{
		Path:         port.Name,
		Product:      port.Product,
		SerialNumber: port.SerialNumber,
		VIDPID:       vidpid,
		Driver:       driver,
	}, true
}
