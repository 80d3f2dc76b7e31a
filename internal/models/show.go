// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package models

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/autobrr/gapwatch/internal/dbinterface"
)

var ErrShowNotFound = errors.New("show not found")

// LibraryShow is one show from the local media library snapshot. The missing
// counters and scan metadata are derived by episode missing-scans and survive
// snapshot replacement through carry-forward.
type LibraryShow struct {
	ID                      string     `json:"id"`
	Title                   string     `json:"title"`
	Year                    *int       `json:"year,omitempty"`
	CatalogShowID           *int64     `json:"catalog_show_id,omitempty"`
	NormalizedTitle         string     `json:"-"`
	ImageURL                *string    `json:"image_url,omitempty"`
	WebURL                  *string    `json:"web_url,omitempty"`
	HasMissingEpisodes      *bool      `json:"has_missing_episodes"`
	MissingEpisodeCount     *int       `json:"missing_episode_count"`
	MissingNewCount         *int       `json:"missing_new_count"`
	MissingOldCount         *int       `json:"missing_old_count"`
	MissingUpcomingCount    *int       `json:"missing_upcoming_count"`
	MissingScanAt           *time.Time `json:"missing_scan_at"`
	MissingUpcomingAirDates *string    `json:"missing_upcoming_air_dates,omitempty"`
	UpdatedAt               time.Time  `json:"updated_at"`

	// EpisodesInLibrary is populated by List from the episode snapshot.
	EpisodesInLibrary int `json:"episodes_in_library"`
}

// ShowMissingAggregates holds the per-show counters computed by an episode
// missing-scan. UpcomingAirDates is stored serialized as JSON.
type ShowMissingAggregates struct {
	HasMissingEpisodes   bool
	MissingEpisodeCount  int
	MissingNewCount      int
	MissingOldCount      int
	MissingUpcomingCount int
	UpcomingAirDates     string
}

// ShowStore manages the library show snapshot in the database.
type ShowStore struct {
	db dbinterface.TxBeginner
}

// NewShowStore creates a new ShowStore.
func NewShowStore(db dbinterface.TxBeginner) *ShowStore {
	return &ShowStore{db: db}
}

const showColumns = `
	id, title, year, catalog_show_id, normalized_title, image_url, web_url,
	has_missing_episodes, missing_episode_count, missing_new_count,
	missing_old_count, missing_upcoming_count, missing_scan_at,
	missing_upcoming_air_dates, updated_at
`

// ReplaceAll deletes the show snapshot and inserts the given rows. Pass the
// transaction that also replaces the episode rows so both land atomically.
func (s *ShowStore) ReplaceAll(ctx context.Context, q dbinterface.Querier, shows []*LibraryShow) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM library_shows`); err != nil {
		return fmt.Errorf("failed to clear library shows: %w", err)
	}

	query := `
		INSERT INTO library_shows (` + showColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	for _, show := range shows {
		_, err := q.ExecContext(ctx, query,
			show.ID,
			show.Title,
			show.Year,
			show.CatalogShowID,
			show.NormalizedTitle,
			show.ImageURL,
			show.WebURL,
			show.HasMissingEpisodes,
			show.MissingEpisodeCount,
			show.MissingNewCount,
			show.MissingOldCount,
			show.MissingUpcomingCount,
			show.MissingScanAt,
			show.MissingUpcomingAirDates,
			show.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert library show %s: %w", show.ID, err)
		}
	}

	return nil
}

// Get retrieves a show by id.
func (s *ShowStore) Get(ctx context.Context, id string) (*LibraryShow, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+showColumns+` FROM library_shows WHERE id = ?`, id)

	show, err := scanShow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrShowNotFound
		}
		return nil, fmt.Errorf("failed to get show: %w", err)
	}
	return show, nil
}

// GetByIDs retrieves the shows with the given ids, keyed by id. Ids without a
// snapshot row are simply absent from the result.
func (s *ShowStore) GetByIDs(ctx context.Context, ids []string) (map[string]*LibraryShow, error) {
	if len(ids) == 0 {
		return map[string]*LibraryShow{}, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, 0, len(ids))
	for _, id := range ids {
		args = append(args, id)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+showColumns+` FROM library_shows WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get shows: %w", err)
	}
	defer rows.Close()

	shows := make(map[string]*LibraryShow, len(ids))
	for rows.Next() {
		show, err := scanShow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan show: %w", err)
		}
		shows[show.ID] = show
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating shows: %w", err)
	}

	return shows, nil
}

// List retrieves the full show snapshot with per-show episode counts, shows
// with the most local episodes first.
func (s *ShowStore) List(ctx context.Context) ([]*LibraryShow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT
			s.id, s.title, s.year, s.catalog_show_id, s.normalized_title,
			s.image_url, s.web_url, s.has_missing_episodes,
			s.missing_episode_count, s.missing_new_count, s.missing_old_count,
			s.missing_upcoming_count, s.missing_scan_at,
			s.missing_upcoming_air_dates, s.updated_at,
			COUNT(e.id) AS episodes_in_library
		FROM library_shows s
		LEFT JOIN library_episodes e ON e.show_id = s.id
		GROUP BY s.id
		ORDER BY episodes_in_library DESC, s.title ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list library shows: %w", err)
	}
	defer rows.Close()

	shows := make([]*LibraryShow, 0)
	for rows.Next() {
		var show LibraryShow
		err := rows.Scan(
			&show.ID,
			&show.Title,
			&show.Year,
			&show.CatalogShowID,
			&show.NormalizedTitle,
			&show.ImageURL,
			&show.WebURL,
			&show.HasMissingEpisodes,
			&show.MissingEpisodeCount,
			&show.MissingNewCount,
			&show.MissingOldCount,
			&show.MissingUpcomingCount,
			&show.MissingScanAt,
			&show.MissingUpcomingAirDates,
			&show.UpdatedAt,
			&show.EpisodesInLibrary,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan library show: %w", err)
		}
		shows = append(shows, &show)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating library shows: %w", err)
	}

	return shows, nil
}

// SetCatalogShowID stores a resolved catalog show id, keeping any existing
// image unless none was known before.
func (s *ShowStore) SetCatalogShowID(ctx context.Context, id string, catalogShowID int64, imageURL *string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE library_shows
		SET catalog_show_id = ?, image_url = COALESCE(image_url, ?), updated_at = ?
		WHERE id = ?
	`, catalogShowID, imageURL, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to set catalog show id: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrShowNotFound
	}

	return nil
}

// UpdateMissingAggregates writes the counters computed by an episode missing-scan.
func (s *ShowStore) UpdateMissingAggregates(ctx context.Context, q dbinterface.Querier, id string, agg ShowMissingAggregates, scannedAt time.Time) error {
	result, err := q.ExecContext(ctx, `
		UPDATE library_shows
		SET
			has_missing_episodes = ?,
			missing_episode_count = ?,
			missing_new_count = ?,
			missing_old_count = ?,
			missing_upcoming_count = ?,
			missing_scan_at = ?,
			missing_upcoming_air_dates = ?,
			updated_at = ?
		WHERE id = ?
	`,
		agg.HasMissingEpisodes,
		agg.MissingEpisodeCount,
		agg.MissingNewCount,
		agg.MissingOldCount,
		agg.MissingUpcomingCount,
		scannedAt,
		agg.UpcomingAirDates,
		scannedAt,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to update show aggregates: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrShowNotFound
	}

	return nil
}

func scanShow(row rowScanner) (*LibraryShow, error) {
	var show LibraryShow
	err := row.Scan(
		&show.ID,
		&show.Title,
		&show.Year,
		&show.CatalogShowID,
		&show.NormalizedTitle,
		&show.ImageURL,
		&show.WebURL,
		&show.HasMissingEpisodes,
		&show.MissingEpisodeCount,
		&show.MissingNewCount,
		&show.MissingOldCount,
		&show.MissingUpcomingCount,
		&show.MissingScanAt,
		&show.MissingUpcomingAirDates,
		&show.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &show, nil
}
