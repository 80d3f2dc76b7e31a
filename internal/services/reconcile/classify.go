// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package reconcile computes which catalog items are absent from the local
// library: movie credits of tracked persons and episodes of library shows.
package reconcile

import (
	"time"

	"github.com/autobrr/gapwatch/internal/models"
)

// DefaultNewWindowDays is how long a released item still counts as "new"
// rather than plain "missing".
const DefaultNewWindowDays = 90

const isoDateLayout = "2006-01-02"

func parseISODate(value string) (time.Time, bool) {
	if value == "" {
		return time.Time{}, false
	}
	parsed, err := time.Parse(isoDateLayout, value)
	if err != nil {
		return time.Time{}, false
	}
	return parsed, true
}

// Classify buckets an absent item by its release or air date. Items with an
// unparseable date are unknown and never surface as missing; future dates are
// upcoming; dates inside the new-window are new; everything older is missing.
func Classify(date string, now time.Time, newWindowDays int) models.MissingStatus {
	parsed, ok := parseISODate(date)
	if !ok {
		return models.StatusUnknown
	}
	if parsed.After(now) {
		return models.StatusUpcoming
	}
	if !parsed.Before(now.AddDate(0, 0, -newWindowDays)) {
		return models.StatusNew
	}
	return models.StatusMissing
}
