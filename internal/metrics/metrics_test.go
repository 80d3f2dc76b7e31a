// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandlerExposesScanMetrics(t *testing.T) {
	ScannedEntities.WithLabelValues("person").Inc()
	ScanFailures.WithLabelValues("show").Inc()
	OutstandingItems.WithLabelValues("movie").Set(3)
	SnapshotItems.WithLabelValues("episode").Set(42)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `gapwatch_scanned_entities_total{kind="person"}`)
	assert.Contains(t, body, `gapwatch_scan_failures_total{kind="show"}`)
	assert.Contains(t, body, `gapwatch_outstanding_items{kind="movie"} 3`)
	assert.Contains(t, body, `gapwatch_snapshot_items{kind="episode"} 42`)
}
