// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package snapshot

import (
	"github.com/autobrr/gapwatch/internal/models"
)

// carryForwardPersons copies fields a snapshot refresh cannot recompute,
// catalog ids, resolved images and missing-scan aggregates, from the previous
// person rows onto the fresh ones. Fresh values win where the refresh
// produced any.
func carryForwardPersons(fresh, previous []*models.TrackedPerson) {
	if len(previous) == 0 {
		return
	}

	prevByID := make(map[string]*models.TrackedPerson, len(previous))
	for _, person := range previous {
		prevByID[person.ID] = person
	}

	for _, person := range fresh {
		prev, ok := prevByID[person.ID]
		if !ok {
			continue
		}

		if person.CatalogPersonID == nil {
			person.CatalogPersonID = prev.CatalogPersonID
		}
		if person.ImageURL == nil {
			person.ImageURL = prev.ImageURL
		}
		person.MoviesInLibraryCount = prev.MoviesInLibraryCount
		person.MissingMovieCount = prev.MissingMovieCount
		person.MissingNewCount = prev.MissingNewCount
		person.MissingUpcomingCount = prev.MissingUpcomingCount
		person.FirstReleaseDate = prev.FirstReleaseDate
		person.NextUpcomingReleaseDate = prev.NextUpcomingReleaseDate
		person.MissingScanAt = prev.MissingScanAt
	}
}

// carryForwardShows does the same for show rows: catalog ids, posters and
// episode missing-scan aggregates survive the snapshot swap.
func carryForwardShows(fresh, previous []*models.LibraryShow) {
	if len(previous) == 0 {
		return
	}

	prevByID := make(map[string]*models.LibraryShow, len(previous))
	for _, show := range previous {
		prevByID[show.ID] = show
	}

	for _, show := range fresh {
		prev, ok := prevByID[show.ID]
		if !ok {
			continue
		}

		if show.CatalogShowID == nil {
			show.CatalogShowID = prev.CatalogShowID
		}
		if show.ImageURL == nil {
			show.ImageURL = prev.ImageURL
		}
		show.HasMissingEpisodes = prev.HasMissingEpisodes
		show.MissingEpisodeCount = prev.MissingEpisodeCount
		show.MissingNewCount = prev.MissingNewCount
		show.MissingOldCount = prev.MissingOldCount
		show.MissingUpcomingCount = prev.MissingUpcomingCount
		show.MissingScanAt = prev.MissingScanAt
		show.MissingUpcomingAirDates = prev.MissingUpcomingAirDates
	}
}
