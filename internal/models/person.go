// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package models

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/autobrr/gapwatch/internal/dbinterface"
)

var ErrPersonNotFound = errors.New("person not found")

// TrackedPerson is a cast or crew member whose filmography is monitored for
// missing items. Identity (ID, Name, Role, Appearances) is recomputed on every
// library scan; the remaining fields are derived by missing-scans and survive
// snapshot replacement through carry-forward.
type TrackedPerson struct {
	ID                      string     `json:"id"`
	Name                    string     `json:"name"`
	Role                    Role       `json:"role"`
	Appearances             int        `json:"appearances"`
	CatalogPersonID         *int64     `json:"catalog_person_id,omitempty"`
	ImageURL                *string    `json:"image_url,omitempty"`
	MoviesInLibraryCount    *int       `json:"movies_in_library_count"`
	MissingMovieCount       *int       `json:"missing_movie_count"`
	MissingNewCount         *int       `json:"missing_new_count"`
	MissingUpcomingCount    *int       `json:"missing_upcoming_count"`
	FirstReleaseDate        *string    `json:"first_release_date"`
	NextUpcomingReleaseDate *string    `json:"next_upcoming_release_date"`
	MissingScanAt           *time.Time `json:"missing_scan_at"`
	UpdatedAt               time.Time  `json:"updated_at"`
}

// PersonMissingAggregates holds the per-person counters computed by a movie
// missing-scan.
type PersonMissingAggregates struct {
	MoviesInLibraryCount    int
	MissingMovieCount       int
	MissingNewCount         int
	MissingUpcomingCount    int
	FirstReleaseDate        *string
	NextUpcomingReleaseDate *string
}

// PersonStore manages tracked persons in the database.
type PersonStore struct {
	db dbinterface.TxBeginner
}

// NewPersonStore creates a new PersonStore.
func NewPersonStore(db dbinterface.TxBeginner) *PersonStore {
	return &PersonStore{db: db}
}

const personColumns = `
	id, name, role, appearances, catalog_person_id, image_url,
	movies_in_library_count, missing_movie_count, missing_new_count,
	missing_upcoming_count, first_release_date, next_upcoming_release_date,
	missing_scan_at, updated_at
`

// ReplaceAll deletes every tracked person and inserts the given rows. Callers
// are expected to have merged carry-forward fields into rows beforehand, and
// to pass the transaction that also replaces the movie snapshot.
func (s *PersonStore) ReplaceAll(ctx context.Context, q dbinterface.Querier, persons []*TrackedPerson) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM persons`); err != nil {
		return fmt.Errorf("failed to clear persons: %w", err)
	}

	query := `
		INSERT INTO persons (` + personColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	for _, person := range persons {
		_, err := q.ExecContext(ctx, query,
			person.ID,
			person.Name,
			person.Role,
			person.Appearances,
			person.CatalogPersonID,
			person.ImageURL,
			person.MoviesInLibraryCount,
			person.MissingMovieCount,
			person.MissingNewCount,
			person.MissingUpcomingCount,
			person.FirstReleaseDate,
			person.NextUpcomingReleaseDate,
			person.MissingScanAt,
			person.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert person %s: %w", person.ID, err)
		}
	}

	return nil
}

// Get retrieves a tracked person by id.
func (s *PersonStore) Get(ctx context.Context, id string) (*TrackedPerson, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+personColumns+` FROM persons WHERE id = ?`, id)

	person, err := scanPerson(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPersonNotFound
		}
		return nil, fmt.Errorf("failed to get person: %w", err)
	}
	return person, nil
}

// List retrieves all tracked persons with the given role, most appearances first.
func (s *PersonStore) List(ctx context.Context, role Role) ([]*TrackedPerson, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+personColumns+`
		FROM persons
		WHERE role = ?
		ORDER BY appearances DESC, name ASC
	`, role)
	if err != nil {
		return nil, fmt.Errorf("failed to list persons: %w", err)
	}
	defer rows.Close()

	return collectPersons(rows)
}

// ListAll retrieves every tracked person regardless of role.
func (s *PersonStore) ListAll(ctx context.Context) ([]*TrackedPerson, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+personColumns+` FROM persons`)
	if err != nil {
		return nil, fmt.Errorf("failed to list persons: %w", err)
	}
	defer rows.Close()

	return collectPersons(rows)
}

// CountByRole returns the number of tracked persons per role.
func (s *PersonStore) CountByRole(ctx context.Context) (map[Role]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT role, COUNT(*) FROM persons GROUP BY role`)
	if err != nil {
		return nil, fmt.Errorf("failed to count persons by role: %w", err)
	}
	defer rows.Close()

	totals := map[Role]int{RoleActor: 0, RoleDirector: 0, RoleWriter: 0}
	for rows.Next() {
		var roleStr string
		var total int
		if err := rows.Scan(&roleStr, &total); err != nil {
			return nil, fmt.Errorf("failed to scan role count: %w", err)
		}
		role, err := ParseRole(roleStr)
		if err != nil {
			continue
		}
		totals[role] = total
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating role counts: %w", err)
	}

	return totals, nil
}

// SetCatalogPerson stores a resolved catalog person id, keeping any existing
// image unless none was known before.
func (s *PersonStore) SetCatalogPerson(ctx context.Context, id string, catalogPersonID int64, imageURL *string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE persons
		SET catalog_person_id = ?, image_url = COALESCE(image_url, ?), updated_at = ?
		WHERE id = ?
	`, catalogPersonID, imageURL, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to set catalog person id: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrPersonNotFound
	}

	return nil
}

// UpdateMissingAggregates writes the counters computed by a movie missing-scan.
func (s *PersonStore) UpdateMissingAggregates(ctx context.Context, q dbinterface.Querier, id string, agg PersonMissingAggregates, scannedAt time.Time) error {
	result, err := q.ExecContext(ctx, `
		UPDATE persons
		SET
			movies_in_library_count = ?,
			missing_movie_count = ?,
			missing_new_count = ?,
			missing_upcoming_count = ?,
			first_release_date = ?,
			next_upcoming_release_date = ?,
			missing_scan_at = ?,
			updated_at = ?
		WHERE id = ?
	`,
		agg.MoviesInLibraryCount,
		agg.MissingMovieCount,
		agg.MissingNewCount,
		agg.MissingUpcomingCount,
		agg.FirstReleaseDate,
		agg.NextUpcomingReleaseDate,
		scannedAt,
		scannedAt,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to update person aggregates: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrPersonNotFound
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPerson(row rowScanner) (*TrackedPerson, error) {
	var person TrackedPerson
	var roleStr string
	err := row.Scan(
		&person.ID,
		&person.Name,
		&roleStr,
		&person.Appearances,
		&person.CatalogPersonID,
		&person.ImageURL,
		&person.MoviesInLibraryCount,
		&person.MissingMovieCount,
		&person.MissingNewCount,
		&person.MissingUpcomingCount,
		&person.FirstReleaseDate,
		&person.NextUpcomingReleaseDate,
		&person.MissingScanAt,
		&person.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	role, err := ParseRole(roleStr)
	if err != nil {
		role = RoleActor
	}
	person.Role = role

	return &person, nil
}

func collectPersons(rows *sql.Rows) ([]*TrackedPerson, error) {
	persons := make([]*TrackedPerson, 0)
	for rows.Next() {
		person, err := scanPerson(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan person: %w", err)
		}
		persons = append(persons, person)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating persons: %w", err)
	}
	return persons, nil
}
