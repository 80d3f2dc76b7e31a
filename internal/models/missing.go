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

// MissingStatus classifies a catalog item that is not present in the library.
type MissingStatus string

const (
	StatusUnknown   MissingStatus = "unknown"
	StatusUpcoming  MissingStatus = "upcoming"
	StatusNew       MissingStatus = "new"
	StatusMissing   MissingStatus = "missing"
	StatusIgnored   MissingStatus = "ignored"
	StatusInLibrary MissingStatus = "in_library"
)

// Priority orders statuses for display and tie-breaks. Higher wins.
func (s MissingStatus) Priority() int {
	switch s {
	case StatusNew:
		return 3
	case StatusUpcoming:
		return 2
	case StatusMissing:
		return 1
	default:
		return 0
	}
}

// MissingMovie is one outstanding catalog movie credit for a tracked person,
// as of that person's last missing-scan.
type MissingMovie struct {
	PersonID       string        `json:"person_id"`
	CatalogMovieID int64         `json:"catalog_movie_id"`
	Title          string        `json:"title"`
	ReleaseDate    string        `json:"release_date"`
	PosterURL      *string       `json:"poster_url,omitempty"`
	Status         MissingStatus `json:"status"`
	Ignored        bool          `json:"ignored"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

// MissingEpisode is one outstanding catalog episode for a library show, as of
// that show's last missing-scan.
type MissingEpisode struct {
	ShowID        string        `json:"show_id"`
	SeasonNumber  int           `json:"season_number"`
	EpisodeNumber int           `json:"episode_number"`
	Title         string        `json:"title"`
	AirDate       string        `json:"air_date"`
	Status        MissingStatus `json:"status"`
	Ignored       bool          `json:"ignored"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// CalendarEvent is a dated missing item projected for the release calendar.
type CalendarEvent struct {
	Date      string  `json:"date"`
	Type      string  `json:"type"`
	Title     string  `json:"title"`
	PosterURL *string `json:"poster_url,omitempty"`
}

// MissingMovieStore manages persisted missing-movie detail rows.
type MissingMovieStore struct {
	db dbinterface.TxBeginner
}

// NewMissingMovieStore creates a new MissingMovieStore.
func NewMissingMovieStore(db dbinterface.TxBeginner) *MissingMovieStore {
	return &MissingMovieStore{db: db}
}

// ReplaceForPerson replaces every missing-movie row of one person with the
// newly computed outstanding set.
func (s *MissingMovieStore) ReplaceForPerson(ctx context.Context, q dbinterface.Querier, personID string, rows []*MissingMovie) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM missing_movies WHERE person_id = ?`, personID); err != nil {
		return fmt.Errorf("failed to clear missing movies: %w", err)
	}

	query := `
		INSERT INTO missing_movies (person_id, catalog_movie_id, title, release_date, poster_url, status, ignored, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	for _, row := range rows {
		_, err := q.ExecContext(ctx, query,
			row.PersonID,
			row.CatalogMovieID,
			row.Title,
			row.ReleaseDate,
			row.PosterURL,
			row.Status,
			row.Ignored,
			row.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert missing movie %d: %w", row.CatalogMovieID, err)
		}
	}

	return nil
}

// ListForPerson retrieves the outstanding movie rows of one person, oldest
// release first.
func (s *MissingMovieStore) ListForPerson(ctx context.Context, personID string) ([]*MissingMovie, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT person_id, catalog_movie_id, title, release_date, poster_url, status, ignored, updated_at
		FROM missing_movies
		WHERE person_id = ?
		ORDER BY release_date ASC, title ASC
	`, personID)
	if err != nil {
		return nil, fmt.Errorf("failed to list missing movies: %w", err)
	}
	defer rows.Close()

	return collectMissingMovies(rows)
}

// EventsInRange returns non-ignored missing movies with a release date inside
// [start, end], deduplicated by catalog movie id.
func (s *MissingMovieStore) EventsInRange(ctx context.Context, start, end string) ([]CalendarEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT m.release_date, MIN(m.title), MIN(m.poster_url)
		FROM missing_movies m
		WHERE m.release_date >= ? AND m.release_date <= ? AND m.ignored = 0
		GROUP BY m.catalog_movie_id, m.release_date
		ORDER BY m.release_date ASC, MIN(m.title) ASC
	`, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query movie calendar events: %w", err)
	}
	defer rows.Close()

	events := make([]CalendarEvent, 0)
	for rows.Next() {
		var event CalendarEvent
		if err := rows.Scan(&event.Date, &event.Title, &event.PosterURL); err != nil {
			return nil, fmt.Errorf("failed to scan movie calendar event: %w", err)
		}
		event.Type = "movie"
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating movie calendar events: %w", err)
	}

	return events, nil
}

func collectMissingMovies(rows *sql.Rows) ([]*MissingMovie, error) {
	movies := make([]*MissingMovie, 0)
	for rows.Next() {
		var movie MissingMovie
		var status string
		err := rows.Scan(
			&movie.PersonID,
			&movie.CatalogMovieID,
			&movie.Title,
			&movie.ReleaseDate,
			&movie.PosterURL,
			&status,
			&movie.Ignored,
			&movie.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan missing movie: %w", err)
		}
		movie.Status = MissingStatus(status)
		movies = append(movies, &movie)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating missing movies: %w", err)
	}
	return movies, nil
}

// MissingEpisodeStore manages persisted missing-episode detail rows.
type MissingEpisodeStore struct {
	db dbinterface.TxBeginner
}

// NewMissingEpisodeStore creates a new MissingEpisodeStore.
func NewMissingEpisodeStore(db dbinterface.TxBeginner) *MissingEpisodeStore {
	return &MissingEpisodeStore{db: db}
}

// ReplaceForShow replaces every missing-episode row of one show with the newly
// computed outstanding set.
func (s *MissingEpisodeStore) ReplaceForShow(ctx context.Context, q dbinterface.Querier, showID string, rows []*MissingEpisode) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM missing_episodes WHERE show_id = ?`, showID); err != nil {
		return fmt.Errorf("failed to clear missing episodes: %w", err)
	}

	query := `
		INSERT INTO missing_episodes (show_id, season_number, episode_number, title, air_date, status, ignored, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	for _, row := range rows {
		_, err := q.ExecContext(ctx, query,
			row.ShowID,
			row.SeasonNumber,
			row.EpisodeNumber,
			row.Title,
			row.AirDate,
			row.Status,
			row.Ignored,
			row.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert missing episode S%02dE%02d: %w", row.SeasonNumber, row.EpisodeNumber, err)
		}
	}

	return nil
}

// ListForShow retrieves the outstanding episode rows of one show in airing order.
func (s *MissingEpisodeStore) ListForShow(ctx context.Context, showID string) ([]*MissingEpisode, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT show_id, season_number, episode_number, title, air_date, status, ignored, updated_at
		FROM missing_episodes
		WHERE show_id = ?
		ORDER BY season_number ASC, episode_number ASC
	`, showID)
	if err != nil {
		return nil, fmt.Errorf("failed to list missing episodes: %w", err)
	}
	defer rows.Close()

	episodes := make([]*MissingEpisode, 0)
	for rows.Next() {
		var episode MissingEpisode
		var status string
		err := rows.Scan(
			&episode.ShowID,
			&episode.SeasonNumber,
			&episode.EpisodeNumber,
			&episode.Title,
			&episode.AirDate,
			&status,
			&episode.Ignored,
			&episode.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan missing episode: %w", err)
		}
		episode.Status = MissingStatus(status)
		episodes = append(episodes, &episode)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating missing episodes: %w", err)
	}

	return episodes, nil
}

// EventsInRange returns non-ignored missing episodes airing inside [start, end]
// with their show titles and images joined in.
func (s *MissingEpisodeStore) EventsInRange(ctx context.Context, start, end string) ([]CalendarEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT e.air_date, s.title, s.image_url, e.season_number, e.episode_number, e.title
		FROM missing_episodes e
		JOIN library_shows s ON s.id = e.show_id
		WHERE e.air_date >= ? AND e.air_date <= ? AND e.ignored = 0
		ORDER BY e.air_date ASC, s.title ASC, e.season_number ASC, e.episode_number ASC
	`, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query episode calendar events: %w", err)
	}
	defer rows.Close()

	events := make([]CalendarEvent, 0)
	for rows.Next() {
		var event CalendarEvent
		var showTitle, episodeTitle string
		var season, episode int
		if err := rows.Scan(&event.Date, &showTitle, &event.PosterURL, &season, &episode, &episodeTitle); err != nil {
			return nil, fmt.Errorf("failed to scan episode calendar event: %w", err)
		}
		event.Type = "show"
		event.Title = fmt.Sprintf("%s S%02dE%02d - %s", showTitle, season, episode, episodeTitle)
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating episode calendar events: %w", err)
	}

	return events, nil
}
