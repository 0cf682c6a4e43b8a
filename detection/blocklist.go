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


package detection

import (
	"fmt"
	"path/filepath"
	"strings"
)

// DefaultBlocklist returns the VID:PID pairs skipped unless the caller
// supplies its own list. It is empty until a front-end firmware is found to
// misbehave on open.
func DefaultBlocklist() []string {
	return []string{}
}

// FormatVIDPID renders USB identifiers as the upper-case VID:PID used by
// blocklists
func FormatVIDPID(vid, pid string) string {
	if vid == "" || pid == "" {
		return ""
	}
	return strings.ToUpper(vid) + ":" + strings.ToUpper(pid)
}

// ParseVIDPID normalizes a blocklist entry. It accepts "1D50:60A7",
// "VID:1D50 PID:60A7" and "vid=1d50 pid=60a7" and returns "" for anything
// else.
func ParseVIDPID(entry string) string {
	entry = strings.ToUpper(strings.TrimSpace(entry))

	vid, pid := field(entry, "VID:", "VID="), field(entry, "PID:", "PID=")
	if vid != "" && pid != "" {
		return vid + ":" + pid
	}

	parts := strings.Split(entry, ":")
	if len(parts) == 2 && isHex(parts[0]) && isHex(parts[1]) {
		return entry
	}
	return ""
}

// field returns the hex digits after the first of the given prefixes
func field(s string, prefixes ...string) string {
	for _, prefix := range prefixes {
		idx := strings.Index(s, prefix)
		if idx < 0 {
			continue
		}
		rest := s[idx+len(prefix):]
		end := strings.IndexFunc(rest, func(r rune) bool { return !isHexRune(r) })
		if end < 0 {
			end = len(rest)
		}
		return rest[:end]
	}
	return ""
}

func isHexRune(r rune) bool {
	return (r >= '0' && r <= '9') || (r >= 'A' && r <= 'F') || (r >= 'a' && r <= 'f')
}

func isHex(s string) bool {
	return s != "" && strings.IndexFunc(s, func(r rune) bool { return !isHexRune(r) }) < 0
}

// IsBlocked reports whether vidpid matches an entry of blocklist
func IsBlocked(vidpid string, blocklist []string) bool {
	vidpid = ParseVIDPID(vidpid)
	if vidpid == "" {
		return false
	}
	for _, entry := range blocklist {
		if ParseVIDPID(entry) == vidpid {
			return true
		}
	}
	return false
}

// ValidateBlocklist rejects entries ParseVIDPID cannot read
func ValidateBlocklist(blocklist []string) error {
	for _, entry := range blocklist {
		if ParseVIDPID(entry) == "" {
			return fmt.Errorf("invalid blocklist entry %q", entry)
		}
	}
	return nil
}

// IsPathIgnored reports whether devicePath is in ignorePaths. Paths are
// compared cleaned and case-insensitively, so "COM3" matches "com3".
func IsPathIgnored(devicePath string, ignorePaths []string) bool {
	if devicePath == "" {
		return false
	}
	want := normalizedPath(devicePath)
	for _, p := range ignorePaths {
		if p != "" && normalizedPath(p) == want {
			return true
		}
	}
	return false
}

func normalizedPath(path string) string {
	return strings.ToLower(filepath.Clean(path))
}
