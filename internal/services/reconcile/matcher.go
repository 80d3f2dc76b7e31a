// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package reconcile

import (
	"github.com/autobrr/gapwatch/internal/catalog"
	"github.com/autobrr/gapwatch/internal/models"
	"github.com/autobrr/gapwatch/pkg/titlenorm"
)

type titleYearKey struct {
	title   string
	year    int
	hasYear bool
}

func newTitleYearKey(title string, year *int) titleYearKey {
	key := titleYearKey{title: title}
	if year != nil {
		key.year = *year
		key.hasYear = true
	}
	return key
}

// movieIndex holds lookup structures over one library movie snapshot. Buckets
// preserve snapshot order so fuzzy fallbacks are deterministic.
type movieIndex struct {
	byCatalogID       map[int64]*models.LibraryMovie
	byTitleYear       map[titleYearKey]*models.LibraryMovie
	byOriginalKey     map[titleYearKey]*models.LibraryMovie
	titleBuckets      map[string][]*models.LibraryMovie
	originalTitleBkts map[string][]*models.LibraryMovie
}

func newMovieIndex(movies []*models.LibraryMovie) *movieIndex {
	idx := &movieIndex{
		byCatalogID:       make(map[int64]*models.LibraryMovie),
		byTitleYear:       make(map[titleYearKey]*models.LibraryMovie),
		byOriginalKey:     make(map[titleYearKey]*models.LibraryMovie),
		titleBuckets:      make(map[string][]*models.LibraryMovie),
		originalTitleBkts: make(map[string][]*models.LibraryMovie),
	}

	for _, movie := range movies {
		if movie.CatalogMovieID != nil {
			idx.byCatalogID[*movie.CatalogMovieID] = movie
		}
		idx.byTitleYear[newTitleYearKey(movie.NormalizedTitle, movie.Year)] = movie
		idx.titleBuckets[movie.NormalizedTitle] = append(idx.titleBuckets[movie.NormalizedTitle], movie)
		if movie.NormalizedOriginalTitle != nil {
			idx.byOriginalKey[newTitleYearKey(*movie.NormalizedOriginalTitle, movie.Year)] = movie
			idx.originalTitleBkts[*movie.NormalizedOriginalTitle] = append(idx.originalTitleBkts[*movie.NormalizedOriginalTitle], movie)
		}
	}

	return idx
}

// fuzzyPick selects from a title bucket: prefer candidates within one year of
// the credit, first snapshot entry wins; without a credit year any candidate
// does.
func fuzzyPick(candidates []*models.LibraryMovie, year *int) *models.LibraryMovie {
	if len(candidates) == 0 {
		return nil
	}
	if year == nil {
		return candidates[0]
	}
	for _, candidate := range candidates {
		if candidate.Year != nil && abs(*candidate.Year-*year) <= 1 {
			return candidate
		}
	}
	return nil
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// Match resolves a catalog credit against the library snapshot. Credits
// without a valid release date never match: title-only fallbacks on undated
// credits produce false positives. External id wins, then exact title+year,
// then original-title+year, then the fuzzy title buckets.
func (idx *movieIndex) Match(credit catalog.Credit) *models.LibraryMovie {
	if _, ok := parseISODate(credit.ReleaseDate); !ok {
		return nil
	}

	if movie, ok := idx.byCatalogID[credit.CatalogMovieID]; ok {
		return movie
	}

	normalized := titlenorm.Normalize(credit.Title)
	var normalizedOriginal string
	if credit.OriginalTitle != "" {
		normalizedOriginal = titlenorm.Normalize(credit.OriginalTitle)
	}

	if movie, ok := idx.byTitleYear[newTitleYearKey(normalized, credit.Year)]; ok {
		return movie
	}

	if normalizedOriginal != "" && normalizedOriginal != normalized {
		if movie, ok := idx.byTitleYear[newTitleYearKey(normalizedOriginal, credit.Year)]; ok {
			return movie
		}
		if movie, ok := idx.byOriginalKey[newTitleYearKey(normalizedOriginal, credit.Year)]; ok {
			return movie
		}
	}

	if movie := fuzzyPick(idx.titleBuckets[normalized], credit.Year); movie != nil {
		return movie
	}

	originalBucketKey := normalizedOriginal
	if originalBucketKey == "" {
		originalBucketKey = normalized
	}
	return fuzzyPick(idx.originalTitleBkts[originalBucketKey], credit.Year)
}
