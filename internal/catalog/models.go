// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package catalog

// Person is a catalog person search result.
type Person struct {
	ID       int64   `json:"id"`
	Name     string  `json:"name"`
	ImageURL *string `json:"image_url,omitempty"`
}

// Credit is one movie credit from a person's filmography.
type Credit struct {
	CatalogMovieID int64   `json:"catalog_movie_id"`
	Title          string  `json:"title"`
	OriginalTitle  string  `json:"original_title,omitempty"`
	Year           *int    `json:"year,omitempty"`
	ReleaseDate    string  `json:"release_date,omitempty"`
	PosterURL      *string `json:"poster_url,omitempty"`
}

// Show is a catalog show search result.
type Show struct {
	ID        int64   `json:"id"`
	Name      string  `json:"name"`
	Year      *int    `json:"year,omitempty"`
	PosterURL *string `json:"poster_url,omitempty"`
}

// Season is one season of a catalog show. Season 0 carries specials and is
// skipped by missing-scans.
type Season struct {
	SeasonNumber int     `json:"season_number"`
	Name         string  `json:"name"`
	EpisodeCount int     `json:"episode_count"`
	AirDate      string  `json:"air_date,omitempty"`
	PosterURL    *string `json:"poster_url,omitempty"`
}

// Episode is one episode of a catalog show season.
type Episode struct {
	CatalogEpisodeID int64  `json:"catalog_episode_id"`
	SeasonNumber     int    `json:"season_number"`
	EpisodeNumber    int    `json:"episode_number"`
	Title            string `json:"title"`
	AirDate          string `json:"air_date,omitempty"`
}

// Wire payloads (TMDB JSON).

type personSearchResponse struct {
	Results []personResult `json:"results"`
}

type personResult struct {
	ID                 int64   `json:"id"`
	Name               string  `json:"name"`
	KnownForDepartment string  `json:"known_for_department"`
	Popularity         float64 `json:"popularity"`
	ProfilePath        string  `json:"profile_path"`
}

type movieCreditsResponse struct {
	Cast []movieCredit `json:"cast"`
	Crew []movieCredit `json:"crew"`
}

type movieCredit struct {
	ID            int64  `json:"id"`
	Title         string `json:"title"`
	OriginalTitle string `json:"original_title"`
	ReleaseDate   string `json:"release_date"`
	PosterPath    string `json:"poster_path"`
	Department    string `json:"department"`
	Job           string `json:"job"`
}

type showSearchResponse struct {
	Results []showResult `json:"results"`
}

type showResult struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	FirstAirDate string `json:"first_air_date"`
	PosterPath   string `json:"poster_path"`
}

type showDetailResponse struct {
	Seasons []seasonResult `json:"seasons"`
}

type seasonResult struct {
	SeasonNumber int    `json:"season_number"`
	Name         string `json:"name"`
	EpisodeCount int    `json:"episode_count"`
	AirDate      string `json:"air_date"`
	PosterPath   string `json:"poster_path"`
}

type seasonDetailResponse struct {
	Episodes []episodeResult `json:"episodes"`
}

type episodeResult struct {
	ID            int64  `json:"id"`
	SeasonNumber  int    `json:"season_number"`
	EpisodeNumber int    `json:"episode_number"`
	Name          string `json:"name"`
	AirDate       string `json:"air_date"`
}
