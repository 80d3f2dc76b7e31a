// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package catalog implements the read-only client for the external movie and
// TV metadata service (TMDB API semantics).
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/avast/retry-go"
	"github.com/rs/zerolog/log"

	"github.com/autobrr/gapwatch/internal/models"
)

// ErrNotConfigured signals that no API key is available. Batch scans treat
// this as fatal because no entity in the batch could succeed without it.
var ErrNotConfigured = errors.New("catalog API key is not configured")

const (
	defaultBaseURL   = "https://api.themoviedb.org/3"
	defaultImageBase = "https://image.tmdb.org/t/p/w342"
	requestTimeout   = 25 * time.Second
	retryAttempts    = 3
)

// Client talks to the catalog service. All methods are stateless lookups.
type Client struct {
	baseURL    string
	imageBase  string
	apiKey     string
	httpClient *http.Client
}

// Options configures a catalog Client. Zero values fall back to defaults.
type Options struct {
	BaseURL   string
	ImageBase string
	APIKey    string
}

// NewClient creates a catalog client. An empty API key is allowed here; every
// request will then fail with ErrNotConfigured.
func NewClient(opts Options) *Client {
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	imageBase := strings.TrimRight(opts.ImageBase, "/")
	if imageBase == "" {
		imageBase = defaultImageBase
	}

	return &Client{
		baseURL:    baseURL,
		imageBase:  imageBase,
		apiKey:     strings.TrimSpace(opts.APIKey),
		httpClient: &http.Client{Timeout: requestTimeout},
	}
}

func (c *Client) get(ctx context.Context, path string, params url.Values, dest any) error {
	if c.apiKey == "" {
		return ErrNotConfigured
	}

	if params == nil {
		params = url.Values{}
	}
	params.Set("api_key", c.apiKey)

	requestURL := c.baseURL + path + "?" + params.Encode()

	err := retry.Do(
		func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
			if err != nil {
				return retry.Unrecoverable(err)
			}

			resp, err := c.httpClient.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			if resp.StatusCode >= 500 {
				io.Copy(io.Discard, resp.Body)
				return fmt.Errorf("catalog returned status %d", resp.StatusCode)
			}
			if resp.StatusCode != http.StatusOK {
				io.Copy(io.Discard, resp.Body)
				return retry.Unrecoverable(fmt.Errorf("catalog returned status %d", resp.StatusCode))
			}

			if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
				return retry.Unrecoverable(fmt.Errorf("failed to decode catalog response: %w", err))
			}
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(retryAttempts),
		retry.Delay(500*time.Millisecond),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return fmt.Errorf("catalog request %s failed: %w", path, err)
	}

	return nil
}

func (c *Client) imageURL(path string) *string {
	if path == "" {
		return nil
	}
	u := c.imageBase + path
	return &u
}

// SearchPerson looks up a person by name, preferring results whose known
// department matches the role. Returns nil without error when nothing matches.
func (c *Client) SearchPerson(ctx context.Context, name string, role models.Role) (*Person, error) {
	params := url.Values{}
	params.Set("query", name)
	params.Set("include_adult", "false")

	var payload personSearchResponse
	if err := c.get(ctx, "/search/person", params, &payload); err != nil {
		return nil, err
	}
	if len(payload.Results) == 0 {
		return nil, nil
	}

	department := role.CreditDepartment()
	results := payload.Results
	sort.SliceStable(results, func(i, j int) bool {
		iMatch := results[i].KnownForDepartment == department
		jMatch := results[j].KnownForDepartment == department
		if iMatch != jMatch {
			return iMatch
		}
		return results[i].Popularity > results[j].Popularity
	})

	best := results[0]
	return &Person{
		ID:       best.ID,
		Name:     best.Name,
		ImageURL: c.imageURL(best.ProfilePath),
	}, nil
}

// PersonMovieCredits fetches the role-appropriate movie credits of a person:
// the cast list for actors, the department-filtered crew list for directors
// and writers. Untitled entries are skipped; results are newest first.
func (c *Client) PersonMovieCredits(ctx context.Context, personID int64, role models.Role) ([]Credit, error) {
	var payload movieCreditsResponse
	if err := c.get(ctx, fmt.Sprintf("/person/%d/movie_credits", personID), nil, &payload); err != nil {
		return nil, err
	}

	var raw []movieCredit
	switch role {
	case models.RoleDirector, models.RoleWriter:
		department := role.CreditDepartment()
		for _, credit := range payload.Crew {
			if credit.Department == department {
				raw = append(raw, credit)
			}
		}
	default:
		raw = payload.Cast
	}

	credits := make([]Credit, 0, len(raw))
	for _, credit := range raw {
		if credit.Title == "" {
			continue
		}
		credits = append(credits, Credit{
			CatalogMovieID: credit.ID,
			Title:          credit.Title,
			OriginalTitle:  credit.OriginalTitle,
			Year:           yearFromDate(credit.ReleaseDate),
			ReleaseDate:    credit.ReleaseDate,
			PosterURL:      c.imageURL(credit.PosterPath),
		})
	}

	sort.SliceStable(credits, func(i, j int) bool {
		iYear, jYear := 0, 0
		if credits[i].Year != nil {
			iYear = *credits[i].Year
		}
		if credits[j].Year != nil {
			jYear = *credits[j].Year
		}
		if iYear != jYear {
			return iYear > jYear
		}
		return credits[i].Title > credits[j].Title
	})

	log.Trace().Int64("person_id", personID).Str("role", string(role)).Int("credits", len(credits)).Msg("fetched person movie credits")

	return credits, nil
}

// SearchShow looks up a show by title, and by first-air-date year when one is
// given. Falls back to a year-less search before giving up. Returns nil
// without error when nothing matches.
func (c *Client) SearchShow(ctx context.Context, title string, year *int) (*Show, error) {
	show, err := c.searchShowOnce(ctx, title, year)
	if err != nil {
		return nil, err
	}
	if show == nil && year != nil {
		// Library year metadata is often one off from the catalog's
		// first-air-date year.
		show, err = c.searchShowOnce(ctx, title, nil)
		if err != nil {
			return nil, err
		}
	}
	return show, nil
}

func (c *Client) searchShowOnce(ctx context.Context, title string, year *int) (*Show, error) {
	params := url.Values{}
	params.Set("query", title)
	params.Set("include_adult", "false")
	if year != nil {
		params.Set("first_air_date_year", strconv.Itoa(*year))
	}

	var payload showSearchResponse
	if err := c.get(ctx, "/search/tv", params, &payload); err != nil {
		return nil, err
	}
	if len(payload.Results) == 0 {
		return nil, nil
	}

	best := payload.Results[0]
	return &Show{
		ID:        best.ID,
		Name:      best.Name,
		Year:      yearFromDate(best.FirstAirDate),
		PosterURL: c.imageURL(best.PosterPath),
	}, nil
}

// ShowSeasons fetches the season list of a show, specials included; callers
// filter season 0.
func (c *Client) ShowSeasons(ctx context.Context, showID int64) ([]Season, error) {
	var payload showDetailResponse
	if err := c.get(ctx, fmt.Sprintf("/tv/%d", showID), nil, &payload); err != nil {
		return nil, err
	}

	seasons := make([]Season, 0, len(payload.Seasons))
	for _, season := range payload.Seasons {
		seasons = append(seasons, Season{
			SeasonNumber: season.SeasonNumber,
			Name:         season.Name,
			EpisodeCount: season.EpisodeCount,
			AirDate:      season.AirDate,
			PosterURL:    c.imageURL(season.PosterPath),
		})
	}

	return seasons, nil
}

// SeasonEpisodes fetches the episode list of one show season.
func (c *Client) SeasonEpisodes(ctx context.Context, showID int64, seasonNumber int) ([]Episode, error) {
	var payload seasonDetailResponse
	if err := c.get(ctx, fmt.Sprintf("/tv/%d/season/%d", showID, seasonNumber), nil, &payload); err != nil {
		return nil, err
	}

	episodes := make([]Episode, 0, len(payload.Episodes))
	for _, episode := range payload.Episodes {
		title := strings.TrimSpace(episode.Name)
		if title == "" {
			title = fmt.Sprintf("Episode %d", episode.EpisodeNumber)
		}
		episodes = append(episodes, Episode{
			CatalogEpisodeID: episode.ID,
			SeasonNumber:     episode.SeasonNumber,
			EpisodeNumber:    episode.EpisodeNumber,
			Title:            title,
			AirDate:          episode.AirDate,
		})
	}

	return episodes, nil
}

func yearFromDate(date string) *int {
	if len(date) < 4 {
		return nil
	}
	year, err := strconv.Atoi(date[:4])
	if err != nil {
		return nil
	}
	return &year
}
