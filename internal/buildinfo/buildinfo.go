// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package buildinfo carries version metadata stamped in at build time.
package buildinfo

import (
	"encoding/json"
	"fmt"
	"runtime"
)

// Populated via -ldflags at release build time.
var (
	Version = "dev"
	Commit  = ""
	Date    = ""
)

// UserAgent identifies this build in outbound HTTP requests.
var UserAgent string

func init() {
	UserAgent = fmt.Sprintf("gapwatch/%s (%s %s)", Version, runtime.GOOS, runtime.GOARCH)
}

// String returns a human-readable multi-line version summary.
func String() string {
	return fmt.Sprintf("Version: %s\nCommit: %s\nBuild date: %s\n", Version, Commit, Date)
}

// JSON returns the version metadata as a JSON document.
func JSON() ([]byte, error) {
	return json.Marshal(struct {
		Version string `json:"version"`
		Commit  string `json:"commit"`
		Date    string `json:"date"`
	}{
		Version: Version,
		Commit:  Commit,
		Date:    Date,
	})
}
