// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package snapshot refreshes the local library mirror from the media server.
package snapshot

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/autobrr/gapwatch/internal/dbinterface"
	"github.com/autobrr/gapwatch/internal/metrics"
	"github.com/autobrr/gapwatch/internal/models"
)

// MediaServer is the subset of the media server client a refresh needs.
type MediaServer interface {
	FetchMovieSnapshot(ctx context.Context, roles []models.Role) ([]*models.TrackedPerson, []*models.LibraryMovie, error)
	FetchShowSnapshot(ctx context.Context) ([]*models.LibraryShow, []*models.LibraryEpisode, error)
}

// Deps wires a snapshot Service.
type Deps struct {
	DB     dbinterface.TxBeginner
	Server MediaServer

	PersonStore   *models.PersonStore
	MovieStore    *models.MovieStore
	ShowStore     *models.ShowStore
	EpisodeStore  *models.EpisodeStore
	SettingsStore *models.SettingsStore
}

// Service swaps the stored library snapshot for a fresh one.
type Service struct {
	deps Deps

	now func() time.Time
}

// NewService creates a snapshot Service.
func NewService(deps Deps) *Service {
	return &Service{
		deps: deps,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// MovieRefreshResult summarizes one movie snapshot refresh.
type MovieRefreshResult struct {
	Persons   int       `json:"persons"`
	Movies    int       `json:"movies"`
	ScannedAt time.Time `json:"scanned_at"`
}

// RefreshMovies replaces the tracked person and movie snapshot with a fresh
// crawl of the movie libraries. Catalog ids and missing-scan aggregates of
// persons that survive the refresh are carried forward.
func (s *Service) RefreshMovies(ctx context.Context, roles []models.Role) (*MovieRefreshResult, error) {
	if len(roles) == 0 {
		roles = models.AllRoles
	}

	persons, movies, err := s.deps.Server.FetchMovieSnapshot(ctx, roles)
	if err != nil {
		return nil, err
	}

	previous, err := s.deps.PersonStore.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	carryForwardPersons(persons, previous)

	tx, err := s.deps.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin snapshot transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.deps.PersonStore.ReplaceAll(ctx, tx, persons); err != nil {
		return nil, err
	}
	if err := s.deps.MovieStore.ReplaceAll(ctx, tx, movies); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit snapshot transaction: %w", err)
	}

	scannedAt := s.now()
	s.recordScan(ctx, models.SettingLastMovieScanAt, models.SettingMovieScanLogs, models.ScanLogEntry{
		ScannedAt: scannedAt,
		Persons:   len(persons),
		Movies:    len(movies),
	})

	metrics.SnapshotItems.WithLabelValues("person").Set(float64(len(persons)))
	metrics.SnapshotItems.WithLabelValues("movie").Set(float64(len(movies)))
	log.Info().Int("persons", len(persons)).Int("movies", len(movies)).Msg("movie snapshot refreshed")

	return &MovieRefreshResult{Persons: len(persons), Movies: len(movies), ScannedAt: scannedAt}, nil
}

// ShowRefreshResult summarizes one show snapshot refresh.
type ShowRefreshResult struct {
	Shows     int       `json:"shows"`
	Episodes  int       `json:"episodes"`
	ScannedAt time.Time `json:"scanned_at"`
}

// RefreshShows replaces the show and episode snapshot with a fresh crawl of
// the TV libraries.
func (s *Service) RefreshShows(ctx context.Context) (*ShowRefreshResult, error) {
	shows, episodes, err := s.deps.Server.FetchShowSnapshot(ctx)
	if err != nil {
		return nil, err
	}

	previous, err := s.deps.ShowStore.List(ctx)
	if err != nil {
		return nil, err
	}
	carryForwardShows(shows, previous)

	tx, err := s.deps.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin snapshot transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.deps.ShowStore.ReplaceAll(ctx, tx, shows); err != nil {
		return nil, err
	}
	if err := s.deps.EpisodeStore.ReplaceAll(ctx, tx, episodes); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit snapshot transaction: %w", err)
	}

	scannedAt := s.now()
	s.recordScan(ctx, models.SettingLastShowScanAt, models.SettingShowScanLogs, models.ScanLogEntry{
		ScannedAt: scannedAt,
		Shows:     len(shows),
		Episodes:  len(episodes),
	})

	metrics.SnapshotItems.WithLabelValues("show").Set(float64(len(shows)))
	metrics.SnapshotItems.WithLabelValues("episode").Set(float64(len(episodes)))
	log.Info().Int("shows", len(shows)).Int("episodes", len(episodes)).Msg("show snapshot refreshed")

	return &ShowRefreshResult{Shows: len(shows), Episodes: len(episodes), ScannedAt: scannedAt}, nil
}

// recordScan updates the last-scan timestamp and scan history. Both are best
// effort, a failed bookkeeping write never fails the refresh.
func (s *Service) recordScan(ctx context.Context, timestampKey, logKey string, entry models.ScanLogEntry) {
	if err := s.deps.SettingsStore.Set(ctx, timestampKey, entry.ScannedAt); err != nil {
		log.Warn().Err(err).Str("key", timestampKey).Msg("failed to record snapshot timestamp")
	}
	if _, err := s.deps.SettingsStore.AppendScanLog(ctx, logKey, entry); err != nil {
		log.Warn().Err(err).Str("key", logKey).Msg("failed to record snapshot history")
	}
}
