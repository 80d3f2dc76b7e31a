// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package reconcile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/autobrr/gapwatch/internal/catalog"
	"github.com/autobrr/gapwatch/internal/metrics"
	"github.com/autobrr/gapwatch/internal/models"
)

var errNoCatalogMatch = errors.New("no catalog match for show")

// resolveShowCatalogID returns the show's catalog id, looking it up and
// persisting it on first use. The catalog title search is tried first, then a
// best-effort guid resolution against the media server.
func (s *Service) resolveShowCatalogID(ctx context.Context, show *models.LibraryShow) (int64, error) {
	if show.CatalogShowID != nil {
		return *show.CatalogShowID, nil
	}

	found, err := s.deps.Catalog.SearchShow(ctx, show.Title, show.Year)
	if err != nil {
		return 0, err
	}

	var (
		catalogID int64
		posterURL *string
	)
	if found != nil {
		catalogID = found.ID
		posterURL = found.PosterURL
	} else {
		resolved, err := s.deps.Library.ResolveShowCatalogIDs(ctx, []string{show.ID})
		if err != nil {
			log.Debug().Err(err).Str("show_id", show.ID).Msg("guid resolution against media server failed")
		}
		id, ok := resolved[show.ID]
		if !ok {
			return 0, errNoCatalogMatch
		}
		catalogID = id
	}

	if err := s.deps.ShowStore.SetCatalogShowID(ctx, show.ID, catalogID, posterURL); err != nil {
		return 0, err
	}
	show.CatalogShowID = &catalogID
	return catalogID, nil
}

// catalogSeasonSet is the episode inventory of one catalog show: every
// (season, episode) key plus air dates and titles where the catalog has them.
type catalogSeasonSet struct {
	keys     map[models.EpisodeKey]struct{}
	airDates map[models.EpisodeKey]string
	titles   map[models.EpisodeKey]string
}

// fetchCatalogEpisodes pulls every regular season of a show, fanning season
// requests out over a bounded worker pool. Season 0 specials are skipped. The
// result is only assembled once every season fetch has succeeded.
func (s *Service) fetchCatalogEpisodes(ctx context.Context, catalogShowID int64) (*catalogSeasonSet, error) {
	seasons, err := s.deps.Catalog.ShowSeasons(ctx, catalogShowID)
	if err != nil {
		return nil, err
	}

	var seasonNumbers []int
	for _, season := range seasons {
		if season.SeasonNumber > 0 {
			seasonNumbers = append(seasonNumbers, season.SeasonNumber)
		}
	}

	set := &catalogSeasonSet{
		keys:     make(map[models.EpisodeKey]struct{}),
		airDates: make(map[models.EpisodeKey]string),
		titles:   make(map[models.EpisodeKey]string),
	}
	if len(seasonNumbers) == 0 {
		return set, nil
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(s.deps.SeasonWorkers, len(seasonNumbers)))

	for _, seasonNumber := range seasonNumbers {
		g.Go(func() error {
			episodes, err := s.deps.Catalog.SeasonEpisodes(gctx, catalogShowID, seasonNumber)
			if err != nil {
				return err
			}

			mu.Lock()
			defer mu.Unlock()
			for _, episode := range episodes {
				if episode.EpisodeNumber <= 0 {
					continue
				}
				key := models.EpisodeKey{Season: seasonNumber, Episode: episode.EpisodeNumber}
				set.keys[key] = struct{}{}
				set.titles[key] = episode.Title
				if episode.AirDate != "" {
					set.airDates[key] = episode.AirDate
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return set, nil
}

// ShowScanItem is the per-show entry in an episode missing-scan report.
type ShowScanItem struct {
	ShowID                  string     `json:"show_id"`
	HasMissingEpisodes      *bool      `json:"has_missing_episodes"`
	MissingEpisodeCount     *int       `json:"missing_episode_count"`
	MissingNewCount         *int       `json:"missing_new_count"`
	MissingOldCount         *int       `json:"missing_old_count"`
	MissingUpcomingCount    *int       `json:"missing_upcoming_count"`
	MissingScanAt           *time.Time `json:"missing_scan_at"`
	MissingUpcomingAirDates []string   `json:"missing_upcoming_air_dates"`
	Error                   string     `json:"error,omitempty"`
}

type showScanResult struct {
	aggregates models.ShowMissingAggregates
	rows       []*models.MissingEpisode
	keepKeys   map[models.EpisodeKey]struct{}
	upcoming   []string
}

// ScanShowsMissing runs an episode missing-scan over the given shows.
// Failures are isolated per show, except a missing catalog key which aborts
// the whole batch. All writes land in one transaction after every show has
// been processed.
func (s *Service) ScanShowsMissing(ctx context.Context, showIDs []string) (*ScanReport[ShowScanItem], error) {
	ids := dedupeIDs(showIDs)
	if len(ids) == 0 {
		return nil, errors.New("no shows selected for missing scan")
	}

	showsByID, err := s.deps.ShowStore.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	libraryKeysByShow, err := s.deps.EpisodeStore.KeysForShows(ctx, ids)
	if err != nil {
		return nil, err
	}

	report := &ScanReport[ShowScanItem]{Items: make([]ShowScanItem, 0, len(ids))}
	resultsByID := make(map[string]showScanResult, len(ids))
	scannedAt := s.now()
	outstanding := 0

	for _, showID := range ids {
		show, known := showsByID[showID]
		if !known {
			report.Failed++
			report.Items = append(report.Items, ShowScanItem{
				ShowID:                  showID,
				MissingUpcomingAirDates: []string{},
				Error:                   "show not found in local snapshot",
			})
			continue
		}

		report.Scanned++
		metrics.ScannedEntities.WithLabelValues("show").Inc()

		result, err := s.scanShow(ctx, show, libraryKeysByShow[showID], scannedAt)
		if err != nil {
			if errors.Is(err, catalog.ErrNotConfigured) {
				return nil, err
			}

			report.Failed++
			metrics.ScanFailures.WithLabelValues("show").Inc()
			item := ShowScanItem{ShowID: showID, MissingUpcomingAirDates: []string{}}
			if errors.Is(err, errNoCatalogMatch) {
				item.Error = "catalog match not found"
			} else {
				log.Error().Err(err).Str("show_id", showID).Msg("episode missing-scan failed for show")
				item.Error = "unable to scan this show right now"
			}
			report.Items = append(report.Items, item)
			continue
		}

		resultsByID[showID] = result
		outstanding += len(result.rows)

		agg := result.aggregates
		if agg.HasMissingEpisodes {
			report.WithMissing++
		}
		at := scannedAt
		report.Items = append(report.Items, ShowScanItem{
			ShowID:                  showID,
			HasMissingEpisodes:      &agg.HasMissingEpisodes,
			MissingEpisodeCount:     &agg.MissingEpisodeCount,
			MissingNewCount:         &agg.MissingNewCount,
			MissingOldCount:         &agg.MissingOldCount,
			MissingUpcomingCount:    &agg.MissingUpcomingCount,
			MissingScanAt:           &at,
			MissingUpcomingAirDates: result.upcoming,
		})
	}

	if len(resultsByID) > 0 {
		if err := s.persistShowResults(ctx, resultsByID, scannedAt); err != nil {
			return nil, err
		}
		metrics.OutstandingItems.WithLabelValues("episode").Set(float64(outstanding))
	}

	return report, nil
}

func (s *Service) scanShow(ctx context.Context, show *models.LibraryShow, libraryKeys map[models.EpisodeKey]struct{}, scannedAt time.Time) (showScanResult, error) {
	catalogShowID, err := s.resolveShowCatalogID(ctx, show)
	if err != nil {
		return showScanResult{}, err
	}

	ignoredKeys, err := s.deps.IgnoreStore.EpisodeKeys(ctx, show.ID)
	if err != nil {
		return showScanResult{}, err
	}

	inventory, err := s.fetchCatalogEpisodes(ctx, catalogShowID)
	if err != nil {
		return showScanResult{}, err
	}

	missingKeys := make([]models.EpisodeKey, 0)
	keepKeys := make(map[models.EpisodeKey]struct{})
	for key := range inventory.keys {
		if _, present := libraryKeys[key]; present {
			continue
		}
		missingKeys = append(missingKeys, key)
		keepKeys[key] = struct{}{}
	}
	sort.Slice(missingKeys, func(i, j int) bool {
		if missingKeys[i].Season != missingKeys[j].Season {
			return missingKeys[i].Season < missingKeys[j].Season
		}
		return missingKeys[i].Episode < missingKeys[j].Episode
	})

	var (
		agg         models.ShowMissingAggregates
		rows        []*models.MissingEpisode
		upcomingSet = make(map[string]struct{})
		now         = s.now()
	)
	for _, key := range missingKeys {
		airDate := inventory.airDates[key]
		_, ignored := ignoredKeys[key]

		status := Classify(airDate, now, s.deps.NewWindowDays)
		if ignored && status == models.StatusMissing {
			status = models.StatusIgnored
		}
		if airDate != "" && !ignored {
			upcomingSet[airDate] = struct{}{}
		}

		switch status {
		case models.StatusNew:
			agg.MissingNewCount++
		case models.StatusUpcoming:
			agg.MissingUpcomingCount++
		case models.StatusMissing:
			agg.MissingOldCount++
		}

		// Episodes without an air date stay out of counters and rows.
		if airDate == "" {
			continue
		}
		switch status {
		case models.StatusMissing, models.StatusNew, models.StatusUpcoming:
			title := inventory.titles[key]
			if title == "" {
				title = fmt.Sprintf("Episode %d", key.Episode)
			}
			rows = append(rows, &models.MissingEpisode{
				ShowID:        show.ID,
				SeasonNumber:  key.Season,
				EpisodeNumber: key.Episode,
				Title:         title,
				AirDate:       airDate,
				Status:        status,
				UpdatedAt:     scannedAt,
			})
		}
	}

	// Headline missing counter is released gaps only; upcoming is separate.
	agg.MissingEpisodeCount = agg.MissingNewCount + agg.MissingOldCount
	agg.HasMissingEpisodes = agg.MissingEpisodeCount+agg.MissingUpcomingCount > 0

	upcoming := make([]string, 0, len(upcomingSet))
	for date := range upcomingSet {
		upcoming = append(upcoming, date)
	}
	sort.Strings(upcoming)

	serialized, err := json.Marshal(upcoming)
	if err != nil {
		return showScanResult{}, fmt.Errorf("failed to serialize upcoming air dates: %w", err)
	}
	agg.UpcomingAirDates = string(serialized)

	return showScanResult{
		aggregates: agg,
		rows:       rows,
		keepKeys:   keepKeys,
		upcoming:   upcoming,
	}, nil
}

func (s *Service) persistShowResults(ctx context.Context, results map[string]showScanResult, scannedAt time.Time) error {
	tx, err := s.deps.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin missing-scan transaction: %w", err)
	}
	defer tx.Rollback()

	for showID, result := range results {
		if err := s.deps.IgnoreStore.PruneEpisodes(ctx, tx, showID, result.keepKeys); err != nil {
			return err
		}
		if err := s.deps.MissingEpisodeStore.ReplaceForShow(ctx, tx, showID, result.rows); err != nil {
			return err
		}
		if err := s.deps.ShowStore.UpdateMissingAggregates(ctx, tx, showID, result.aggregates, scannedAt); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit missing-scan transaction: %w", err)
	}
	return nil
}
