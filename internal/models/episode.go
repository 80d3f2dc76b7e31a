// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package models

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/autobrr/gapwatch/internal/dbinterface"
)

// LibraryEpisode is one episode from the local media library snapshot. The
// (show, season, episode) triple is unique within a show.
type LibraryEpisode struct {
	ID               string    `json:"id"`
	ShowID           string    `json:"show_id"`
	SeasonNumber     int       `json:"season_number"`
	EpisodeNumber    int       `json:"episode_number"`
	Title            string    `json:"title"`
	NormalizedTitle  string    `json:"-"`
	CatalogEpisodeID *int64    `json:"catalog_episode_id,omitempty"`
	SeasonWebURL     *string   `json:"season_web_url,omitempty"`
	WebURL           *string   `json:"web_url,omitempty"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// EpisodeKey identifies an episode by season and episode number within a show.
type EpisodeKey struct {
	Season  int
	Episode int
}

// EpisodeStore manages the library episode snapshot in the database.
type EpisodeStore struct {
	db dbinterface.TxBeginner
}

// NewEpisodeStore creates a new EpisodeStore.
func NewEpisodeStore(db dbinterface.TxBeginner) *EpisodeStore {
	return &EpisodeStore{db: db}
}

const episodeColumns = `
	id, show_id, season_number, episode_number, title, normalized_title,
	catalog_episode_id, season_web_url, web_url, updated_at
`

// ReplaceAll deletes the episode snapshot and inserts the given rows. Pass the
// transaction that also replaces the show rows so both land atomically.
func (s *EpisodeStore) ReplaceAll(ctx context.Context, q dbinterface.Querier, episodes []*LibraryEpisode) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM library_episodes`); err != nil {
		return fmt.Errorf("failed to clear library episodes: %w", err)
	}

	query := `
		INSERT INTO library_episodes (` + episodeColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	for _, episode := range episodes {
		_, err := q.ExecContext(ctx, query,
			episode.ID,
			episode.ShowID,
			episode.SeasonNumber,
			episode.EpisodeNumber,
			episode.Title,
			episode.NormalizedTitle,
			episode.CatalogEpisodeID,
			episode.SeasonWebURL,
			episode.WebURL,
			episode.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert library episode %s: %w", episode.ID, err)
		}
	}

	return nil
}

// ListForShow retrieves every local episode of one show.
func (s *EpisodeStore) ListForShow(ctx context.Context, showID string) ([]*LibraryEpisode, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+episodeColumns+` FROM library_episodes WHERE show_id = ?`, showID)
	if err != nil {
		return nil, fmt.Errorf("failed to list episodes: %w", err)
	}
	defer rows.Close()

	return collectEpisodes(rows)
}

// ListForSeason retrieves the local episodes of one show season.
func (s *EpisodeStore) ListForSeason(ctx context.Context, showID string, seasonNumber int) ([]*LibraryEpisode, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+episodeColumns+` FROM library_episodes WHERE show_id = ? AND season_number = ?`,
		showID, seasonNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to list season episodes: %w", err)
	}
	defer rows.Close()

	return collectEpisodes(rows)
}

// KeysForShows returns the set of (season, episode) keys present locally for
// each requested show. Rows with non-positive numbers are skipped.
func (s *EpisodeStore) KeysForShows(ctx context.Context, showIDs []string) (map[string]map[EpisodeKey]struct{}, error) {
	keys := make(map[string]map[EpisodeKey]struct{}, len(showIDs))
	for _, id := range showIDs {
		keys[id] = make(map[EpisodeKey]struct{})
	}
	if len(showIDs) == 0 {
		return keys, nil
	}

	placeholders := ""
	args := make([]any, 0, len(showIDs))
	for i, id := range showIDs {
		if i > 0 {
			placeholders += ","
		}
		placeholders += "?"
		args = append(args, id)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT show_id, season_number, episode_number
		FROM library_episodes
		WHERE show_id IN (`+placeholders+`)
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query episode keys: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var showID string
		var season, episode int
		if err := rows.Scan(&showID, &season, &episode); err != nil {
			return nil, fmt.Errorf("failed to scan episode key: %w", err)
		}
		if season <= 0 || episode <= 0 {
			continue
		}
		if _, ok := keys[showID]; !ok {
			keys[showID] = make(map[EpisodeKey]struct{})
		}
		keys[showID][EpisodeKey{Season: season, Episode: episode}] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating episode keys: %w", err)
	}

	return keys, nil
}

func collectEpisodes(rows *sql.Rows) ([]*LibraryEpisode, error) {
	episodes := make([]*LibraryEpisode, 0)
	for rows.Next() {
		var episode LibraryEpisode
		err := rows.Scan(
			&episode.ID,
			&episode.ShowID,
			&episode.SeasonNumber,
			&episode.EpisodeNumber,
			&episode.Title,
			&episode.NormalizedTitle,
			&episode.CatalogEpisodeID,
			&episode.SeasonWebURL,
			&episode.WebURL,
			&episode.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan library episode: %w", err)
		}
		episodes = append(episodes, &episode)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating library episodes: %w", err)
	}
	return episodes, nil
}
