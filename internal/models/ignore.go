// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package models

import (
	"context"
	"fmt"
	"time"

	"github.com/autobrr/gapwatch/internal/dbinterface"
)

// IgnoreStore tracks user-suppressed missing items. Entries live until the
// user clears them or a later scan's outstanding set no longer contains the
// key, at which point they are garbage-collected.
type IgnoreStore struct {
	db dbinterface.TxBeginner
}

// NewIgnoreStore creates a new IgnoreStore.
func NewIgnoreStore(db dbinterface.TxBeginner) *IgnoreStore {
	return &IgnoreStore{db: db}
}

// SetMovie marks or unmarks a (person, catalog movie) pair as ignored.
func (s *IgnoreStore) SetMovie(ctx context.Context, personID string, catalogMovieID int64, ignored bool) error {
	if ignored {
		now := time.Now().UTC()
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO ignored_movies (person_id, catalog_movie_id, created_at, updated_at)
			VALUES (?, ?, ?, ?)
			ON CONFLICT (person_id, catalog_movie_id)
			DO UPDATE SET updated_at = excluded.updated_at
		`, personID, catalogMovieID, now, now)
		if err != nil {
			return fmt.Errorf("failed to ignore movie: %w", err)
		}
		return nil
	}

	_, err := s.db.ExecContext(ctx,
		`DELETE FROM ignored_movies WHERE person_id = ? AND catalog_movie_id = ?`,
		personID, catalogMovieID)
	if err != nil {
		return fmt.Errorf("failed to unignore movie: %w", err)
	}
	return nil
}

// MovieIDs returns the set of ignored catalog movie ids for one person.
func (s *IgnoreStore) MovieIDs(ctx context.Context, personID string) (map[int64]struct{}, error) {
	return s.movieIDs(ctx, s.db, personID)
}

// movieIDs reads through q so callers holding the single write connection in a
// transaction do not block on a pool read.
func (s *IgnoreStore) movieIDs(ctx context.Context, q dbinterface.Querier, personID string) (map[int64]struct{}, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT catalog_movie_id FROM ignored_movies WHERE person_id = ?`, personID)
	if err != nil {
		return nil, fmt.Errorf("failed to query ignored movies: %w", err)
	}
	defer rows.Close()

	ids := make(map[int64]struct{})
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan ignored movie id: %w", err)
		}
		ids[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ignored movies: %w", err)
	}

	return ids, nil
}

// PruneMovies deletes every ignored-movie entry of one person whose catalog
// movie id is not in keep. Called after a missing-scan replaced the person's
// outstanding set.
func (s *IgnoreStore) PruneMovies(ctx context.Context, q dbinterface.Querier, personID string, keep map[int64]struct{}) error {
	existing, err := s.movieIDs(ctx, q, personID)
	if err != nil {
		return err
	}

	for id := range existing {
		if _, ok := keep[id]; ok {
			continue
		}
		if _, err := q.ExecContext(ctx,
			`DELETE FROM ignored_movies WHERE person_id = ? AND catalog_movie_id = ?`,
			personID, id); err != nil {
			return fmt.Errorf("failed to prune ignored movie %d: %w", id, err)
		}
	}

	return nil
}

// SetEpisode marks or unmarks a (show, season, episode) triple as ignored.
func (s *IgnoreStore) SetEpisode(ctx context.Context, showID string, seasonNumber, episodeNumber int, ignored bool) error {
	if ignored {
		now := time.Now().UTC()
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO ignored_episodes (show_id, season_number, episode_number, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT (show_id, season_number, episode_number)
			DO UPDATE SET updated_at = excluded.updated_at
		`, showID, seasonNumber, episodeNumber, now, now)
		if err != nil {
			return fmt.Errorf("failed to ignore episode: %w", err)
		}
		return nil
	}

	_, err := s.db.ExecContext(ctx,
		`DELETE FROM ignored_episodes WHERE show_id = ? AND season_number = ? AND episode_number = ?`,
		showID, seasonNumber, episodeNumber)
	if err != nil {
		return fmt.Errorf("failed to unignore episode: %w", err)
	}
	return nil
}

// EpisodeKeys returns the set of ignored (season, episode) keys for one show.
func (s *IgnoreStore) EpisodeKeys(ctx context.Context, showID string) (map[EpisodeKey]struct{}, error) {
	return s.episodeKeys(ctx, s.db, showID)
}

func (s *IgnoreStore) episodeKeys(ctx context.Context, q dbinterface.Querier, showID string) (map[EpisodeKey]struct{}, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT season_number, episode_number FROM ignored_episodes WHERE show_id = ?`, showID)
	if err != nil {
		return nil, fmt.Errorf("failed to query ignored episodes: %w", err)
	}
	defer rows.Close()

	keys := make(map[EpisodeKey]struct{})
	for rows.Next() {
		var key EpisodeKey
		if err := rows.Scan(&key.Season, &key.Episode); err != nil {
			return nil, fmt.Errorf("failed to scan ignored episode key: %w", err)
		}
		keys[key] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ignored episodes: %w", err)
	}

	return keys, nil
}

// SeasonEpisodeKeys returns the ignored keys restricted to one season.
func (s *IgnoreStore) SeasonEpisodeKeys(ctx context.Context, showID string, seasonNumber int) (map[EpisodeKey]struct{}, error) {
	keys, err := s.EpisodeKeys(ctx, showID)
	if err != nil {
		return nil, err
	}

	seasonKeys := make(map[EpisodeKey]struct{})
	for key := range keys {
		if key.Season == seasonNumber {
			seasonKeys[key] = struct{}{}
		}
	}
	return seasonKeys, nil
}

// PruneEpisodes deletes every ignored-episode entry of one show whose key is
// not in keep.
func (s *IgnoreStore) PruneEpisodes(ctx context.Context, q dbinterface.Querier, showID string, keep map[EpisodeKey]struct{}) error {
	existing, err := s.episodeKeys(ctx, q, showID)
	if err != nil {
		return err
	}

	return s.deleteEpisodeKeys(ctx, q, showID, existing, keep)
}

// DeleteEpisodeKeys removes the given ignored-episode keys outright. Used to
// drop stale entries whose episodes turned up in the library snapshot.
func (s *IgnoreStore) DeleteEpisodeKeys(ctx context.Context, showID string, remove map[EpisodeKey]struct{}) error {
	return s.deleteEpisodeKeys(ctx, s.db, showID, remove, nil)
}

func (s *IgnoreStore) deleteEpisodeKeys(ctx context.Context, q dbinterface.Querier, showID string, candidates, keep map[EpisodeKey]struct{}) error {
	for key := range candidates {
		if keep != nil {
			if _, ok := keep[key]; ok {
				continue
			}
		}
		if _, err := q.ExecContext(ctx,
			`DELETE FROM ignored_episodes WHERE show_id = ? AND season_number = ? AND episode_number = ?`,
			showID, key.Season, key.Episode); err != nil {
			return fmt.Errorf("failed to delete ignored episode S%02dE%02d: %w", key.Season, key.Episode, err)
		}
	}
	return nil
}
