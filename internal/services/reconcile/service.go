// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package reconcile

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/autobrr/gapwatch/internal/catalog"
	"github.com/autobrr/gapwatch/internal/dbinterface"
	"github.com/autobrr/gapwatch/internal/metrics"
	"github.com/autobrr/gapwatch/internal/models"
)

// CatalogClient is the subset of the catalog API the reconciler needs.
type CatalogClient interface {
	SearchPerson(ctx context.Context, name string, role models.Role) (*catalog.Person, error)
	PersonMovieCredits(ctx context.Context, personID int64, role models.Role) ([]catalog.Credit, error)
	SearchShow(ctx context.Context, title string, year *int) (*catalog.Show, error)
	ShowSeasons(ctx context.Context, showID int64) ([]catalog.Season, error)
	SeasonEpisodes(ctx context.Context, showID int64, seasonNumber int) ([]catalog.Episode, error)
}

// LibraryResolver cross-resolves catalog ids from the media server when the
// stored snapshot carries none and the catalog search comes up empty.
type LibraryResolver interface {
	ResolveShowCatalogIDs(ctx context.Context, showIDs []string) (map[string]int64, error)
}

// Deps wires a reconcile Service.
type Deps struct {
	DB      dbinterface.TxBeginner
	Catalog CatalogClient
	Library LibraryResolver

	PersonStore         *models.PersonStore
	MovieStore          *models.MovieStore
	ShowStore           *models.ShowStore
	EpisodeStore        *models.EpisodeStore
	MissingMovieStore   *models.MissingMovieStore
	MissingEpisodeStore *models.MissingEpisodeStore
	IgnoreStore         *models.IgnoreStore

	// NewWindowDays defaults to DefaultNewWindowDays when zero.
	NewWindowDays int
	// SeasonWorkers caps concurrent season fetches per show. Defaults to 4.
	SeasonWorkers int
}

// Service reconciles tracked persons and library shows against the catalog.
type Service struct {
	deps Deps

	// creditsGroup collapses concurrent credit lookups for the same person
	// into one catalog round trip.
	creditsGroup singleflight.Group

	now func() time.Time
}

// NewService creates a reconcile Service.
func NewService(deps Deps) *Service {
	if deps.NewWindowDays <= 0 {
		deps.NewWindowDays = DefaultNewWindowDays
	}
	if deps.SeasonWorkers <= 0 {
		deps.SeasonWorkers = 4
	}
	return &Service{
		deps: deps,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// MovieItem is one catalog credit of a tracked person, resolved against the
// library snapshot and classified.
type MovieItem struct {
	catalog.Credit

	InLibrary bool                 `json:"in_library"`
	LibraryID *string              `json:"library_id,omitempty"`
	SectionID *string              `json:"section_id,omitempty"`
	WebURL    *string              `json:"web_url,omitempty"`
	Status    models.MissingStatus `json:"status"`
	Ignored   bool                 `json:"ignored"`
}

// MovieItemFilter narrows the items returned by PersonMovieItems.
type MovieItemFilter struct {
	MissingOnly   bool
	InLibraryOnly bool
	NewOnly       bool
	UpcomingOnly  bool
}

func (f MovieItemFilter) includes(item MovieItem) bool {
	if f.MissingOnly && item.Status != models.StatusMissing && item.Status != models.StatusNew {
		return false
	}
	if f.InLibraryOnly && !item.InLibrary {
		return false
	}
	if f.NewOnly && item.Status != models.StatusNew {
		return false
	}
	if f.UpcomingOnly && item.Status != models.StatusUpcoming {
		return false
	}
	return true
}

// PersonMovies is a person's classified filmography.
type PersonMovies struct {
	Person *models.TrackedPerson `json:"person"`
	Items  []MovieItem           `json:"items"`
}

// PersonMovieItems resolves one tracked person's full filmography against the
// library snapshot and classifies every credit. The person's catalog id is
// looked up and persisted on first use.
func (s *Service) PersonMovieItems(ctx context.Context, personID string, filter MovieItemFilter) (*PersonMovies, error) {
	person, err := s.deps.PersonStore.Get(ctx, personID)
	if err != nil {
		return nil, err
	}

	if person.CatalogPersonID == nil {
		found, err := s.deps.Catalog.SearchPerson(ctx, person.Name, person.Role)
		if err != nil {
			return nil, err
		}
		if found == nil {
			return &PersonMovies{Person: person, Items: []MovieItem{}}, nil
		}
		if err := s.deps.PersonStore.SetCatalogPerson(ctx, person.ID, found.ID, found.ImageURL); err != nil {
			return nil, err
		}
		person.CatalogPersonID = &found.ID
		if person.ImageURL == nil {
			person.ImageURL = found.ImageURL
		}
	}

	items, err := s.classifiedCredits(ctx, person)
	if err != nil {
		return nil, err
	}

	filtered := make([]MovieItem, 0, len(items))
	for _, item := range items {
		if filter.includes(item) {
			filtered = append(filtered, item)
		}
	}

	return &PersonMovies{Person: person, Items: filtered}, nil
}

func (s *Service) classifiedCredits(ctx context.Context, person *models.TrackedPerson) ([]MovieItem, error) {
	result, err, _ := s.creditsGroup.Do(person.ID, func() (any, error) {
		return s.buildCredits(ctx, person)
	})
	if err != nil {
		return nil, err
	}
	return result.([]MovieItem), nil
}

func (s *Service) buildCredits(ctx context.Context, person *models.TrackedPerson) ([]MovieItem, error) {
	movies, err := s.deps.MovieStore.List(ctx)
	if err != nil {
		return nil, err
	}
	ignoredIDs, err := s.deps.IgnoreStore.MovieIDs(ctx, person.ID)
	if err != nil {
		return nil, err
	}

	credits, err := s.deps.Catalog.PersonMovieCredits(ctx, *person.CatalogPersonID, person.Role)
	if err != nil {
		return nil, err
	}

	idx := newMovieIndex(movies)
	now := s.now()

	items := make([]MovieItem, 0, len(credits))
	for _, credit := range credits {
		item := MovieItem{Credit: credit}
		if matched := idx.Match(credit); matched != nil {
			item.InLibrary = true
			id := matched.ID
			item.LibraryID = &id
			item.SectionID = matched.SectionID
			item.WebURL = matched.WebURL
		}

		if item.InLibrary {
			item.Status = models.StatusInLibrary
		} else {
			item.Status = Classify(credit.ReleaseDate, now, s.deps.NewWindowDays)
			if item.Status == models.StatusMissing {
				if _, ignored := ignoredIDs[credit.CatalogMovieID]; ignored {
					item.Status = models.StatusIgnored
					item.Ignored = true
				}
			}
		}
		items = append(items, item)
	}

	return items, nil
}

// MovieScanItem is the per-person entry in a movie missing-scan report.
type MovieScanItem struct {
	PersonID                string     `json:"person_id"`
	MoviesInLibraryCount    *int       `json:"movies_in_library_count"`
	MissingMovieCount       *int       `json:"missing_movie_count"`
	MissingNewCount         *int       `json:"missing_new_count"`
	MissingUpcomingCount    *int       `json:"missing_upcoming_count"`
	FirstReleaseDate        *string    `json:"first_release_date"`
	NextUpcomingReleaseDate *string    `json:"next_upcoming_release_date"`
	MissingScanAt           *time.Time `json:"missing_scan_at"`
	HasMissingMovies        *bool      `json:"has_missing_movies"`
	Error                   string     `json:"error,omitempty"`
}

// ScanReport summarizes a batch missing-scan. Items carries exactly one entry
// per requested id, failures included.
type ScanReport[T any] struct {
	Scanned     int `json:"scanned"`
	Failed      int `json:"failed"`
	WithMissing int `json:"with_missing"`
	Items       []T `json:"items"`
}

type personScanResult struct {
	aggregates models.PersonMissingAggregates
	rows       []*models.MissingMovie
	keepIDs    map[int64]struct{}
}

// ScanPersonsMissing runs a movie missing-scan over the given persons.
// Failures are isolated per person, except a missing catalog key which aborts
// the whole batch. All writes land in one transaction after every person has
// been processed.
func (s *Service) ScanPersonsMissing(ctx context.Context, personIDs []string) (*ScanReport[MovieScanItem], error) {
	ids := dedupeIDs(personIDs)
	if len(ids) == 0 {
		return nil, errors.New("no persons selected for missing scan")
	}

	report := &ScanReport[MovieScanItem]{Items: make([]MovieScanItem, 0, len(ids))}
	resultsByID := make(map[string]personScanResult, len(ids))
	scannedAt := s.now()
	outstanding := 0

	for _, personID := range ids {
		report.Scanned++
		metrics.ScannedEntities.WithLabelValues("person").Inc()

		result, err := s.scanPerson(ctx, personID, scannedAt)
		if err != nil {
			if errors.Is(err, catalog.ErrNotConfigured) {
				return nil, err
			}
			log.Error().Err(err).Str("person_id", personID).Msg("movie missing-scan failed for person")
			report.Failed++
			metrics.ScanFailures.WithLabelValues("person").Inc()
			report.Items = append(report.Items, MovieScanItem{
				PersonID: personID,
				Error:    "unable to scan this person right now",
			})
			continue
		}

		resultsByID[personID] = result
		outstanding += len(result.rows)

		agg := result.aggregates
		hasMissing := agg.MissingMovieCount+agg.MissingUpcomingCount > 0
		if hasMissing {
			report.WithMissing++
		}
		at := scannedAt
		report.Items = append(report.Items, MovieScanItem{
			PersonID:                personID,
			MoviesInLibraryCount:    &agg.MoviesInLibraryCount,
			MissingMovieCount:       &agg.MissingMovieCount,
			MissingNewCount:         &agg.MissingNewCount,
			MissingUpcomingCount:    &agg.MissingUpcomingCount,
			FirstReleaseDate:        agg.FirstReleaseDate,
			NextUpcomingReleaseDate: agg.NextUpcomingReleaseDate,
			MissingScanAt:           &at,
			HasMissingMovies:        &hasMissing,
		})
	}

	if len(resultsByID) > 0 {
		if err := s.persistPersonResults(ctx, resultsByID, scannedAt); err != nil {
			return nil, err
		}
		metrics.OutstandingItems.WithLabelValues("movie").Set(float64(outstanding))
	}

	return report, nil
}

func (s *Service) scanPerson(ctx context.Context, personID string, scannedAt time.Time) (personScanResult, error) {
	payload, err := s.PersonMovieItems(ctx, personID, MovieItemFilter{})
	if err != nil {
		return personScanResult{}, err
	}

	var (
		agg           models.PersonMissingAggregates
		releaseDates  []string
		upcomingDates []string
		rows          []*models.MissingMovie
		keepIDs       = make(map[int64]struct{})
	)

	for _, item := range payload.Items {
		if item.InLibrary {
			agg.MoviesInLibraryCount++
		}
		if item.ReleaseDate != "" {
			releaseDates = append(releaseDates, item.ReleaseDate)
		}

		switch item.Status {
		case models.StatusNew:
			agg.MissingNewCount++
		case models.StatusMissing:
			agg.MissingMovieCount++
			keepIDs[item.CatalogMovieID] = struct{}{}
		case models.StatusIgnored:
			keepIDs[item.CatalogMovieID] = struct{}{}
		case models.StatusUpcoming:
			agg.MissingUpcomingCount++
			if item.ReleaseDate != "" {
				upcomingDates = append(upcomingDates, item.ReleaseDate)
			}
		}

		if !item.InLibrary && item.ReleaseDate != "" && item.CatalogMovieID > 0 {
			switch item.Status {
			case models.StatusMissing, models.StatusNew, models.StatusUpcoming, models.StatusIgnored:
				rows = append(rows, &models.MissingMovie{
					PersonID:       personID,
					CatalogMovieID: item.CatalogMovieID,
					Title:          item.Title,
					ReleaseDate:    item.ReleaseDate,
					PosterURL:      item.PosterURL,
					Status:         item.Status,
					Ignored:        item.Status == models.StatusIgnored,
					UpdatedAt:      scannedAt,
				})
			}
		}
	}

	// The missing counter is released gaps only; upcoming stays separate.
	agg.MissingMovieCount += agg.MissingNewCount
	agg.FirstReleaseDate = minString(releaseDates)
	agg.NextUpcomingReleaseDate = minString(upcomingDates)

	return personScanResult{
		aggregates: agg,
		rows:       dedupeMissingMovies(rows),
		keepIDs:    keepIDs,
	}, nil
}

// dedupeMissingMovies collapses repeated catalog movie ids within one
// person's credit list. The first occurrence wins unless a later one is
// ignored, because the persisted ignore flag must survive the dedupe.
func dedupeMissingMovies(rows []*models.MissingMovie) []*models.MissingMovie {
	if len(rows) < 2 {
		return rows
	}

	deduped := make([]*models.MissingMovie, 0, len(rows))
	indexByID := make(map[int64]int, len(rows))
	for _, row := range rows {
		if at, dup := indexByID[row.CatalogMovieID]; dup {
			if row.Ignored && !deduped[at].Ignored {
				deduped[at] = row
			}
			continue
		}
		indexByID[row.CatalogMovieID] = len(deduped)
		deduped = append(deduped, row)
	}
	return deduped
}

func (s *Service) persistPersonResults(ctx context.Context, results map[string]personScanResult, scannedAt time.Time) error {
	tx, err := s.deps.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin missing-scan transaction: %w", err)
	}
	defer tx.Rollback()

	for personID, result := range results {
		if err := s.deps.IgnoreStore.PruneMovies(ctx, tx, personID, result.keepIDs); err != nil {
			return err
		}
		if err := s.deps.MissingMovieStore.ReplaceForPerson(ctx, tx, personID, result.rows); err != nil {
			return err
		}
		if err := s.deps.PersonStore.UpdateMissingAggregates(ctx, tx, personID, result.aggregates, scannedAt); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit missing-scan transaction: %w", err)
	}
	return nil
}

func dedupeIDs(ids []string) []string {
	unique := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		trimmed := strings.TrimSpace(id)
		if trimmed == "" {
			continue
		}
		if _, dup := seen[trimmed]; dup {
			continue
		}
		seen[trimmed] = struct{}{}
		unique = append(unique, trimmed)
	}
	return unique
}

func minString(values []string) *string {
	if len(values) == 0 {
		return nil
	}
	smallest := values[0]
	for _, value := range values[1:] {
		if value < smallest {
			smallest = value
		}
	}
	return &smallest
}
