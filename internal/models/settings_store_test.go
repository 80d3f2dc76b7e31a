// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package models

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autobrr/gapwatch/internal/testdb"
)

func TestSettingsStoreRoundTrip(t *testing.T) {
	t.Parallel()

	db := testdb.Open(t)
	store := NewSettingsStore(db)
	ctx := context.Background()

	var missing time.Time
	found, err := store.Get(ctx, SettingLastMovieScanAt, &missing)
	require.NoError(t, err)
	assert.False(t, found)

	scannedAt := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.Set(ctx, SettingLastMovieScanAt, scannedAt))

	var got time.Time
	found, err = store.Get(ctx, SettingLastMovieScanAt, &got)
	require.NoError(t, err)
	require.True(t, found)
	assert.True(t, got.Equal(scannedAt))

	// Overwriting replaces the value in place.
	later := scannedAt.Add(time.Hour)
	require.NoError(t, store.Set(ctx, SettingLastMovieScanAt, later))
	found, err = store.Get(ctx, SettingLastMovieScanAt, &got)
	require.NoError(t, err)
	require.True(t, found)
	assert.True(t, got.Equal(later))

	require.NoError(t, store.Delete(ctx, SettingLastMovieScanAt))
	found, err = store.Get(ctx, SettingLastMovieScanAt, &got)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestSettingsStoreScanLogNewestFirst(t *testing.T) {
	t.Parallel()

	db := testdb.Open(t)
	store := NewSettingsStore(db)
	ctx := context.Background()

	logs, err := store.ScanLogs(ctx, SettingMovieScanLogs)
	require.NoError(t, err)
	assert.Empty(t, logs)

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err = store.AppendScanLog(ctx, SettingMovieScanLogs, ScanLogEntry{ScannedAt: base, Persons: 1})
	require.NoError(t, err)
	logs, err = store.AppendScanLog(ctx, SettingMovieScanLogs, ScanLogEntry{ScannedAt: base.Add(time.Hour), Persons: 2})
	require.NoError(t, err)

	require.Len(t, logs, 2)
	assert.Equal(t, 2, logs[0].Persons, "newest entry first")
	assert.Equal(t, 1, logs[1].Persons)

	got, err := store.ScanLogs(ctx, SettingMovieScanLogs)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.True(t, got[0].ScannedAt.Equal(base.Add(time.Hour)))
}

func TestSettingsStoreScanLogCapped(t *testing.T) {
	t.Parallel()

	db := testdb.Open(t)
	store := NewSettingsStore(db)
	ctx := context.Background()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < scanLogLimit+5; i++ {
		_, err := store.AppendScanLog(ctx, SettingShowScanLogs, ScanLogEntry{
			ScannedAt: base.Add(time.Duration(i) * time.Minute),
			Shows:     i,
		})
		require.NoError(t, err)
	}

	logs, err := store.ScanLogs(ctx, SettingShowScanLogs)
	require.NoError(t, err)
	require.Len(t, logs, scanLogLimit)
	assert.Equal(t, scanLogLimit+4, logs[0].Shows, "newest entry kept")
	assert.Equal(t, 5, logs[len(logs)-1].Shows, "oldest overflow dropped")
}
