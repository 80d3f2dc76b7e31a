// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package metrics exposes Prometheus instrumentation for scan activity.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ScannedEntities counts entities processed by missing-scans, by kind
	// (person or show).
	ScannedEntities = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gapwatch_scanned_entities_total",
		Help: "Entities processed by missing-scans.",
	}, []string{"kind"})

	// ScanFailures counts entities whose missing-scan failed.
	ScanFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gapwatch_scan_failures_total",
		Help: "Entities whose missing-scan failed.",
	}, []string{"kind"})

	// OutstandingItems tracks how many missing items the latest scans left
	// outstanding, by kind (movie or episode).
	OutstandingItems = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "gapwatch_outstanding_items",
		Help: "Missing items recorded by the most recent scans.",
	}, []string{"kind"})

	// SnapshotItems tracks library snapshot sizes, by kind (person, movie,
	// show or episode).
	SnapshotItems = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "gapwatch_snapshot_items",
		Help: "Items in the current library snapshot.",
	}, []string{"kind"})
)

// Handler serves the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
