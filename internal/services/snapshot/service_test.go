// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package snapshot

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autobrr/gapwatch/internal/database"
	"github.com/autobrr/gapwatch/internal/models"
	"github.com/autobrr/gapwatch/internal/testdb"
)

type fakeServer struct {
	persons  []*models.TrackedPerson
	movies   []*models.LibraryMovie
	shows    []*models.LibraryShow
	episodes []*models.LibraryEpisode
	err      error
}

func (f *fakeServer) FetchMovieSnapshot(_ context.Context, _ []models.Role) ([]*models.TrackedPerson, []*models.LibraryMovie, error) {
	return f.persons, f.movies, f.err
}

func (f *fakeServer) FetchShowSnapshot(_ context.Context) ([]*models.LibraryShow, []*models.LibraryEpisode, error) {
	return f.shows, f.episodes, f.err
}

func newSnapshotEnv(t *testing.T) (*Service, *fakeServer, Deps, *database.DB) {
	t.Helper()

	db := testdb.Open(t)
	server := &fakeServer{}
	deps := Deps{
		DB:            db,
		Server:        server,
		PersonStore:   models.NewPersonStore(db),
		MovieStore:    models.NewMovieStore(db),
		ShowStore:     models.NewShowStore(db),
		EpisodeStore:  models.NewEpisodeStore(db),
		SettingsStore: models.NewSettingsStore(db),
	}
	return NewService(deps), server, deps, db
}

func TestRefreshMoviesCarriesForwardResolvedState(t *testing.T) {
	svc, server, deps, db := newSnapshotEnv(t)
	ctx := context.Background()

	scanAt := time.Date(2023, 11, 2, 12, 0, 0, 0, time.UTC)
	existing := &models.TrackedPerson{
		ID:                "jane-doe",
		Name:              "Jane Doe",
		Role:              models.RoleActor,
		Appearances:       2,
		CatalogPersonID:   int64Ptr(77),
		ImageURL:          strPtr("https://images.example/jane.jpg"),
		MissingMovieCount: intPtr(4),
		MissingScanAt:     &scanAt,
		UpdatedAt:         time.Now().UTC(),
	}
	require.NoError(t, deps.PersonStore.ReplaceAll(ctx, db, []*models.TrackedPerson{existing}))

	server.persons = []*models.TrackedPerson{
		{ID: "jane-doe", Name: "Jane Doe", Role: models.RoleActor, Appearances: 3, UpdatedAt: time.Now().UTC()},
		{ID: "john-roe", Name: "John Roe", Role: models.RoleActor, Appearances: 1, UpdatedAt: time.Now().UTC()},
	}
	server.movies = []*models.LibraryMovie{
		{ID: "101", Title: "A", NormalizedTitle: "a", Year: intPtr(2020), UpdatedAt: time.Now().UTC()},
	}

	result, err := svc.RefreshMovies(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Persons)
	assert.Equal(t, 1, result.Movies)

	jane, err := deps.PersonStore.Get(ctx, "jane-doe")
	require.NoError(t, err)
	assert.Equal(t, 3, jane.Appearances)
	require.NotNil(t, jane.CatalogPersonID)
	assert.Equal(t, int64(77), *jane.CatalogPersonID)
	require.NotNil(t, jane.ImageURL)
	require.NotNil(t, jane.MissingMovieCount)
	assert.Equal(t, 4, *jane.MissingMovieCount)
	require.NotNil(t, jane.MissingScanAt)
	assert.True(t, jane.MissingScanAt.Equal(scanAt))

	john, err := deps.PersonStore.Get(ctx, "john-roe")
	require.NoError(t, err)
	assert.Nil(t, john.CatalogPersonID)
	assert.Nil(t, john.MissingMovieCount)

	var lastScan time.Time
	found, err := deps.SettingsStore.Get(ctx, models.SettingLastMovieScanAt, &lastScan)
	require.NoError(t, err)
	assert.True(t, found)

	logs, err := deps.SettingsStore.ScanLogs(ctx, models.SettingMovieScanLogs)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, 2, logs[0].Persons)
	assert.Equal(t, 1, logs[0].Movies)
}

func TestRefreshMoviesDropsVanishedPersons(t *testing.T) {
	svc, server, deps, db := newSnapshotEnv(t)
	ctx := context.Background()

	require.NoError(t, deps.PersonStore.ReplaceAll(ctx, db, []*models.TrackedPerson{
		{ID: "gone", Name: "Gone", Role: models.RoleDirector, Appearances: 1, UpdatedAt: time.Now().UTC()},
	}))

	server.persons = []*models.TrackedPerson{
		{ID: "jane-doe", Name: "Jane Doe", Role: models.RoleActor, Appearances: 1, UpdatedAt: time.Now().UTC()},
	}

	_, err := svc.RefreshMovies(ctx, []models.Role{models.RoleActor})
	require.NoError(t, err)

	_, err = deps.PersonStore.Get(ctx, "gone")
	assert.ErrorIs(t, err, models.ErrPersonNotFound)
}

func TestRefreshShowsCarriesForwardResolvedState(t *testing.T) {
	svc, server, deps, db := newSnapshotEnv(t)
	ctx := context.Background()

	airDates := `["2099-01-01"]`
	require.NoError(t, deps.ShowStore.ReplaceAll(ctx, db, []*models.LibraryShow{
		{
			ID:                      "201",
			Title:                   "Severance",
			NormalizedTitle:         "severance",
			CatalogShowID:           int64Ptr(95396),
			HasMissingEpisodes:      boolPtr(true),
			MissingEpisodeCount:     intPtr(2),
			MissingUpcomingAirDates: &airDates,
			UpdatedAt:               time.Now().UTC(),
		},
	}))

	server.shows = []*models.LibraryShow{
		{ID: "201", Title: "Severance", NormalizedTitle: "severance", UpdatedAt: time.Now().UTC()},
	}
	server.episodes = []*models.LibraryEpisode{
		{ID: "301", ShowID: "201", SeasonNumber: 1, EpisodeNumber: 1, Title: "Good News About Hell", UpdatedAt: time.Now().UTC()},
	}

	result, err := svc.RefreshShows(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Shows)
	assert.Equal(t, 1, result.Episodes)

	show, err := deps.ShowStore.Get(ctx, "201")
	require.NoError(t, err)
	require.NotNil(t, show.CatalogShowID)
	assert.Equal(t, int64(95396), *show.CatalogShowID)
	require.NotNil(t, show.HasMissingEpisodes)
	assert.True(t, *show.HasMissingEpisodes)
	require.NotNil(t, show.MissingUpcomingAirDates)
	assert.Equal(t, airDates, *show.MissingUpcomingAirDates)

	episodes, err := deps.EpisodeStore.ListForShow(ctx, "201")
	require.NoError(t, err)
	assert.Len(t, episodes, 1)

	logs, err := deps.SettingsStore.ScanLogs(ctx, models.SettingShowScanLogs)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, 1, logs[0].Shows)
	assert.Equal(t, 1, logs[0].Episodes)
}

func intPtr(v int) *int { return &v }

func int64Ptr(v int64) *int64 { return &v }

func strPtr(v string) *string { return &v }

func boolPtr(v bool) *bool { return &v }
