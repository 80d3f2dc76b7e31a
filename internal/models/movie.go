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

// LibraryMovie is one movie from the local media library snapshot. The
// normalized titles are always derived at snapshot time, never user-supplied.
type LibraryMovie struct {
	ID                      string    `json:"id"`
	SectionID               *string   `json:"section_id,omitempty"`
	Title                   string    `json:"title"`
	OriginalTitle           *string   `json:"original_title,omitempty"`
	Year                    *int      `json:"year,omitempty"`
	CatalogMovieID          *int64    `json:"catalog_movie_id,omitempty"`
	IMDBID                  *string   `json:"imdb_id,omitempty"`
	NormalizedTitle         string    `json:"-"`
	NormalizedOriginalTitle *string   `json:"-"`
	WebURL                  *string   `json:"web_url,omitempty"`
	UpdatedAt               time.Time `json:"updated_at"`
}

// MovieStore manages the library movie snapshot in the database.
type MovieStore struct {
	db dbinterface.TxBeginner
}

// NewMovieStore creates a new MovieStore.
func NewMovieStore(db dbinterface.TxBeginner) *MovieStore {
	return &MovieStore{db: db}
}

const movieColumns = `
	id, section_id, title, original_title, year, catalog_movie_id, imdb_id,
	normalized_title, normalized_original_title, web_url, updated_at
`

// ReplaceAll deletes the movie snapshot and inserts the given rows. Pass the
// transaction that also replaces the person rows so both land atomically.
func (s *MovieStore) ReplaceAll(ctx context.Context, q dbinterface.Querier, movies []*LibraryMovie) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM library_movies`); err != nil {
		return fmt.Errorf("failed to clear library movies: %w", err)
	}

	query := `
		INSERT INTO library_movies (` + movieColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	for _, movie := range movies {
		_, err := q.ExecContext(ctx, query,
			movie.ID,
			movie.SectionID,
			movie.Title,
			movie.OriginalTitle,
			movie.Year,
			movie.CatalogMovieID,
			movie.IMDBID,
			movie.NormalizedTitle,
			movie.NormalizedOriginalTitle,
			movie.WebURL,
			movie.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert library movie %s: %w", movie.ID, err)
		}
	}

	return nil
}

// List retrieves the full movie snapshot.
func (s *MovieStore) List(ctx context.Context) ([]*LibraryMovie, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+movieColumns+` FROM library_movies`)
	if err != nil {
		return nil, fmt.Errorf("failed to list library movies: %w", err)
	}
	defer rows.Close()

	movies := make([]*LibraryMovie, 0)
	for rows.Next() {
		movie, err := scanMovie(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan library movie: %w", err)
		}
		movies = append(movies, movie)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating library movies: %w", err)
	}

	return movies, nil
}

func scanMovie(rows *sql.Rows) (*LibraryMovie, error) {
	var movie LibraryMovie
	err := rows.Scan(
		&movie.ID,
		&movie.SectionID,
		&movie.Title,
		&movie.OriginalTitle,
		&movie.Year,
		&movie.CatalogMovieID,
		&movie.IMDBID,
		&movie.NormalizedTitle,
		&movie.NormalizedOriginalTitle,
		&movie.WebURL,
		&movie.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &movie, nil
}
