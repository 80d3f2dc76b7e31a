// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package reconcile

import (
	"context"
	"errors"

	"github.com/autobrr/gapwatch/internal/catalog"
	"github.com/autobrr/gapwatch/internal/models"
)

// SeasonItem is one catalog season of a show, diffed live against the
// library episode snapshot.
type SeasonItem struct {
	catalog.Season

	InLibrary            bool                 `json:"in_library"`
	EpisodesInLibrary    int                  `json:"episodes_in_library"`
	CountOverflow        bool                 `json:"count_overflow"`
	WebURL               *string              `json:"web_url,omitempty"`
	NextUpcomingAirDate  *string              `json:"next_upcoming_air_date"`
	MissingNewCount      int                  `json:"missing_new_count"`
	MissingOldCount      int                  `json:"missing_old_count"`
	MissingUpcomingCount int                  `json:"missing_upcoming_count"`
	Status               models.MissingStatus `json:"status"`
}

// ShowSeasons is a show's live per-season view.
type ShowSeasons struct {
	Show  *models.LibraryShow `json:"show"`
	Items []SeasonItem        `json:"items"`
}

// SeasonOverview computes the live per-season state of one show: for every
// catalog season, how many episodes the library already has and how many are
// new, missing or upcoming. Ignored episodes drop out of the counters
// entirely.
func (s *Service) SeasonOverview(ctx context.Context, showID string, filter MovieItemFilter) (*ShowSeasons, error) {
	show, err := s.deps.ShowStore.Get(ctx, showID)
	if err != nil {
		return nil, err
	}

	catalogShowID, err := s.resolveShowCatalogID(ctx, show)
	if err != nil {
		if errors.Is(err, errNoCatalogMatch) {
			return &ShowSeasons{Show: show, Items: []SeasonItem{}}, nil
		}
		return nil, err
	}

	episodes, err := s.deps.EpisodeStore.ListForShow(ctx, showID)
	if err != nil {
		return nil, err
	}
	ignoredKeys, err := s.deps.IgnoreStore.EpisodeKeys(ctx, showID)
	if err != nil {
		return nil, err
	}

	librarySeasons := make(map[int]map[int]struct{})
	seasonWebURLs := make(map[int]*string)
	for _, episode := range episodes {
		if librarySeasons[episode.SeasonNumber] == nil {
			librarySeasons[episode.SeasonNumber] = make(map[int]struct{})
		}
		librarySeasons[episode.SeasonNumber][episode.EpisodeNumber] = struct{}{}
		if episode.SeasonWebURL != nil && seasonWebURLs[episode.SeasonNumber] == nil {
			seasonWebURLs[episode.SeasonNumber] = episode.SeasonWebURL
		}
	}

	seasons, err := s.deps.Catalog.ShowSeasons(ctx, catalogShowID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	items := make([]SeasonItem, 0, len(seasons))
	for _, season := range seasons {
		libraryEpisodes := librarySeasons[season.SeasonNumber]

		item := SeasonItem{
			Season:            season,
			EpisodesInLibrary: len(libraryEpisodes),
			CountOverflow:     len(libraryEpisodes) > season.EpisodeCount,
			WebURL:            seasonWebURLs[season.SeasonNumber],
		}
		if item.WebURL == nil {
			item.WebURL = show.WebURL
		}

		catalogEpisodes, err := s.deps.Catalog.SeasonEpisodes(ctx, catalogShowID, season.SeasonNumber)
		if err != nil {
			return nil, err
		}

		var upcomingDates []string
		for _, episode := range catalogEpisodes {
			if episode.EpisodeNumber <= 0 {
				continue
			}
			if _, present := libraryEpisodes[episode.EpisodeNumber]; present {
				continue
			}

			status := Classify(episode.AirDate, now, s.deps.NewWindowDays)
			key := models.EpisodeKey{Season: season.SeasonNumber, Episode: episode.EpisodeNumber}
			if status == models.StatusMissing {
				if _, ignored := ignoredKeys[key]; ignored {
					continue
				}
			}

			switch status {
			case models.StatusNew:
				item.MissingNewCount++
			case models.StatusUpcoming:
				item.MissingUpcomingCount++
				if episode.AirDate != "" {
					upcomingDates = append(upcomingDates, episode.AirDate)
				}
			case models.StatusMissing:
				item.MissingOldCount++
			}
		}
		item.NextUpcomingAirDate = minString(upcomingDates)
		item.InLibrary = item.MissingNewCount+item.MissingOldCount+item.MissingUpcomingCount == 0

		switch {
		case item.MissingNewCount > 0:
			item.Status = models.StatusNew
		case item.MissingUpcomingCount > 0:
			item.Status = models.StatusUpcoming
		case item.MissingOldCount > 0:
			item.Status = models.StatusMissing
		default:
			item.Status = models.StatusInLibrary
		}

		if seasonIncluded(item, filter) {
			items = append(items, item)
		}
	}

	return &ShowSeasons{Show: show, Items: items}, nil
}

func seasonIncluded(item SeasonItem, filter MovieItemFilter) bool {
	if filter.MissingOnly && item.MissingOldCount+item.MissingNewCount <= 0 {
		return false
	}
	if filter.InLibraryOnly && !item.InLibrary {
		return false
	}
	if filter.NewOnly && item.MissingNewCount <= 0 {
		return false
	}
	if filter.UpcomingOnly && item.MissingUpcomingCount <= 0 {
		return false
	}
	return true
}

// EpisodeItem is one catalog episode of a season, resolved against the
// library snapshot and classified.
type EpisodeItem struct {
	catalog.Episode

	InLibrary bool                 `json:"in_library"`
	LibraryID *string              `json:"library_id,omitempty"`
	WebURL    *string              `json:"web_url,omitempty"`
	Status    models.MissingStatus `json:"status"`
	Ignored   bool                 `json:"ignored"`
}

// SeasonEpisodes is a season's live episode view.
type SeasonEpisodes struct {
	Show         *models.LibraryShow `json:"show"`
	SeasonNumber int                 `json:"season_number"`
	Items        []EpisodeItem       `json:"items"`
}

// SeasonEpisodeItems computes the live episode list of one season. Ignore
// rows pointing at episodes that meanwhile landed in the library are pruned
// on the way through.
func (s *Service) SeasonEpisodeItems(ctx context.Context, showID string, seasonNumber int, filter MovieItemFilter) (*SeasonEpisodes, error) {
	show, err := s.deps.ShowStore.Get(ctx, showID)
	if err != nil {
		return nil, err
	}

	catalogShowID, err := s.resolveShowCatalogID(ctx, show)
	if err != nil {
		if errors.Is(err, errNoCatalogMatch) {
			return &SeasonEpisodes{Show: show, SeasonNumber: seasonNumber, Items: []EpisodeItem{}}, nil
		}
		return nil, err
	}

	episodes, err := s.deps.EpisodeStore.ListForSeason(ctx, showID, seasonNumber)
	if err != nil {
		return nil, err
	}
	ignoredKeys, err := s.deps.IgnoreStore.SeasonEpisodeKeys(ctx, showID, seasonNumber)
	if err != nil {
		return nil, err
	}

	byNumber := make(map[int]*models.LibraryEpisode, len(episodes))
	byCatalogID := make(map[int64]*models.LibraryEpisode)
	libraryKeys := make(map[models.EpisodeKey]struct{}, len(episodes))
	for _, episode := range episodes {
		byNumber[episode.EpisodeNumber] = episode
		if episode.CatalogEpisodeID != nil {
			byCatalogID[*episode.CatalogEpisodeID] = episode
		}
		if episode.EpisodeNumber > 0 {
			libraryKeys[models.EpisodeKey{Season: seasonNumber, Episode: episode.EpisodeNumber}] = struct{}{}
		}
	}

	// Ignore rows for episodes that are now in the library are stale.
	stale := make(map[models.EpisodeKey]struct{})
	for key := range ignoredKeys {
		if _, present := libraryKeys[key]; present {
			stale[key] = struct{}{}
			delete(ignoredKeys, key)
		}
	}
	if len(stale) > 0 {
		if err := s.deps.IgnoreStore.DeleteEpisodeKeys(ctx, showID, stale); err != nil {
			return nil, err
		}
	}

	catalogEpisodes, err := s.deps.Catalog.SeasonEpisodes(ctx, catalogShowID, seasonNumber)
	if err != nil {
		return nil, err
	}

	now := s.now()
	items := make([]EpisodeItem, 0, len(catalogEpisodes))
	for _, episode := range catalogEpisodes {
		item := EpisodeItem{Episode: episode}

		matched := byCatalogID[episode.CatalogEpisodeID]
		if matched == nil {
			matched = byNumber[episode.EpisodeNumber]
		}
		if matched != nil {
			item.InLibrary = true
			id := matched.ID
			item.LibraryID = &id
			item.WebURL = matched.WebURL
		}

		if item.InLibrary {
			item.Status = models.StatusInLibrary
		} else {
			item.Status = Classify(episode.AirDate, now, s.deps.NewWindowDays)
			if item.Status == models.StatusMissing {
				key := models.EpisodeKey{Season: seasonNumber, Episode: episode.EpisodeNumber}
				if _, ignored := ignoredKeys[key]; ignored {
					item.Status = models.StatusIgnored
					item.Ignored = true
				}
			}
		}

		if filter.includes(MovieItem{InLibrary: item.InLibrary, Status: item.Status}) {
			items = append(items, item)
		}
	}

	return &SeasonEpisodes{Show: show, SeasonNumber: seasonNumber, Items: items}, nil
}
