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

func TestShowStoreListCountsEpisodes(t *testing.T) {
	t.Parallel()

	db := testdb.Open(t)
	showStore := NewShowStore(db)
	episodeStore := NewEpisodeStore(db)
	ctx := context.Background()

	now := time.Now().UTC()
	year := 2022
	require.NoError(t, showStore.ReplaceAll(ctx, db, []*LibraryShow{
		{ID: "show-severance", Title: "Severance", Year: &year, NormalizedTitle: "severance", UpdatedAt: now},
		{ID: "show-barry", Title: "Barry", NormalizedTitle: "barry", UpdatedAt: now},
	}))
	require.NoError(t, episodeStore.ReplaceAll(ctx, db, []*LibraryEpisode{
		{ID: "ep-1", ShowID: "show-severance", SeasonNumber: 1, EpisodeNumber: 1, Title: "Good News About Hell", NormalizedTitle: "good news about hell", UpdatedAt: now},
		{ID: "ep-2", ShowID: "show-severance", SeasonNumber: 1, EpisodeNumber: 2, Title: "Half Loop", NormalizedTitle: "half loop", UpdatedAt: now},
		{ID: "ep-3", ShowID: "show-barry", SeasonNumber: 1, EpisodeNumber: 1, Title: "Make Your Mark", NormalizedTitle: "make your mark", UpdatedAt: now},
	}))

	shows, err := showStore.List(ctx)
	require.NoError(t, err)
	require.Len(t, shows, 2)
	assert.Equal(t, "show-severance", shows[0].ID, "most local episodes first")
	assert.Equal(t, 2, shows[0].EpisodesInLibrary)
	assert.Equal(t, 1, shows[1].EpisodesInLibrary)
	require.NotNil(t, shows[0].Year)
	assert.Equal(t, 2022, *shows[0].Year)

	byID, err := showStore.GetByIDs(ctx, []string{"show-barry", "show-unknown"})
	require.NoError(t, err)
	require.Len(t, byID, 1)
	assert.Equal(t, "Barry", byID["show-barry"].Title)

	_, err = showStore.Get(ctx, "show-unknown")
	assert.ErrorIs(t, err, ErrShowNotFound)
}

func TestShowStoreSetCatalogShowID(t *testing.T) {
	t.Parallel()

	db := testdb.Open(t)
	store := NewShowStore(db)
	ctx := context.Background()

	existing := "/w300/old.jpg"
	resolved := "/w300/new.jpg"
	now := time.Now().UTC()
	require.NoError(t, store.ReplaceAll(ctx, db, []*LibraryShow{
		{ID: "show-with-image", Title: "With Image", NormalizedTitle: "with image", ImageURL: &existing, UpdatedAt: now},
		{ID: "show-without-image", Title: "Without Image", NormalizedTitle: "without image", UpdatedAt: now},
	}))

	require.NoError(t, store.SetCatalogShowID(ctx, "show-with-image", 95396, &resolved))
	got, err := store.Get(ctx, "show-with-image")
	require.NoError(t, err)
	require.NotNil(t, got.CatalogShowID)
	assert.Equal(t, int64(95396), *got.CatalogShowID)
	require.NotNil(t, got.ImageURL)
	assert.Equal(t, existing, *got.ImageURL, "known image survives resolution")

	require.NoError(t, store.SetCatalogShowID(ctx, "show-without-image", 95397, &resolved))
	got, err = store.Get(ctx, "show-without-image")
	require.NoError(t, err)
	require.NotNil(t, got.ImageURL)
	assert.Equal(t, resolved, *got.ImageURL)

	err = store.SetCatalogShowID(ctx, "show-unknown", 1, nil)
	assert.ErrorIs(t, err, ErrShowNotFound)
}

func TestShowStoreUpdateMissingAggregates(t *testing.T) {
	t.Parallel()

	db := testdb.Open(t)
	store := NewShowStore(db)
	ctx := context.Background()

	now := time.Now().UTC()
	require.NoError(t, store.ReplaceAll(ctx, db, []*LibraryShow{
		{ID: "show-severance", Title: "Severance", NormalizedTitle: "severance", UpdatedAt: now},
	}))

	scannedAt := time.Date(2024, 3, 3, 9, 0, 0, 0, time.UTC)
	agg := ShowMissingAggregates{
		HasMissingEpisodes:   true,
		MissingEpisodeCount:  2,
		MissingNewCount:      1,
		MissingOldCount:      1,
		MissingUpcomingCount: 1,
		UpcomingAirDates:     `["2099-01-01"]`,
	}
	require.NoError(t, store.UpdateMissingAggregates(ctx, db, "show-severance", agg, scannedAt))

	got, err := store.Get(ctx, "show-severance")
	require.NoError(t, err)
	require.NotNil(t, got.HasMissingEpisodes)
	assert.True(t, *got.HasMissingEpisodes)
	require.NotNil(t, got.MissingEpisodeCount)
	assert.Equal(t, 2, *got.MissingEpisodeCount)
	require.NotNil(t, got.MissingOldCount)
	assert.Equal(t, 1, *got.MissingOldCount)
	require.NotNil(t, got.MissingUpcomingAirDates)
	assert.JSONEq(t, `["2099-01-01"]`, *got.MissingUpcomingAirDates)
	require.NotNil(t, got.MissingScanAt)
	assert.True(t, got.MissingScanAt.Equal(scannedAt))

	err = store.UpdateMissingAggregates(ctx, db, "show-unknown", agg, scannedAt)
	assert.ErrorIs(t, err, ErrShowNotFound)
}
