// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package mediaserver

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/autobrr/gapwatch/internal/models"
	"github.com/autobrr/gapwatch/pkg/titlenorm"
)

const (
	sectionTypeMovie = "movie"
	sectionTypeShow  = "show"

	itemTypeMovie   = "1"
	itemTypeShow    = "2"
	itemTypeEpisode = "4"
)

func (c *Client) fetchContainer(ctx context.Context, path string, params url.Values) (*mediaContainer, error) {
	body, err := c.getXML(ctx, path, params)
	if err != nil {
		return nil, err
	}

	var container mediaContainer
	if err := xml.Unmarshal(body, &container); err != nil {
		return nil, fmt.Errorf("failed to parse media server response for %s: %w", path, err)
	}
	return &container, nil
}

func (c *Client) sectionKeys(ctx context.Context, sectionType string) ([]string, error) {
	container, err := c.fetchContainer(ctx, "/library/sections", nil)
	if err != nil {
		return nil, err
	}

	var keys []string
	for _, dir := range container.Directories {
		if dir.Type == sectionType && dir.Key != "" {
			keys = append(keys, dir.Key)
		}
	}
	return keys, nil
}

// detailURL builds a deep link into the hosted web app for one library item.
func (c *Client) detailURL(ratingKey string) *string {
	if c.serverID == "" || ratingKey == "" {
		return nil
	}
	u := fmt.Sprintf("https://app.plex.tv/desktop#!/server/%s/details?key=%s",
		c.serverID, url.QueryEscape("/library/metadata/"+ratingKey))
	return &u
}

// personFilterURL builds a deep link listing a person's items. Prefers the
// discover provider when the person carries a metadata tag key, otherwise
// falls back to a section filter on the person's numeric id.
func (c *Client) personFilterURL(sectionKey string, role models.Role, node roleNode) *string {
	if tagKey := strings.TrimSpace(node.TagKey); tagKey != "" {
		peoplePath := tagKey
		if !strings.HasPrefix(peoplePath, "/library/people/") {
			peoplePath = "/library/people/" + peoplePath
		}
		u := "https://app.plex.tv/desktop#!/provider/tv.plex.provider.discover/details?key=" +
			url.QueryEscape(peoplePath)
		return &u
	}

	if c.serverID == "" || sectionKey == "" {
		return nil
	}
	personID := strings.TrimSpace(node.ID)
	if _, err := strconv.Atoi(personID); err != nil {
		return nil
	}
	u := fmt.Sprintf("https://app.plex.tv/desktop#!/server/%s/library/sections/%s/all?type=1&%s=%s",
		c.serverID, sectionKey, role, personID)
	return &u
}

// personImageURL rewrites a server-relative thumb into the local image proxy
// route. Absolute URLs pass through untouched.
func personImageURL(thumb string) *string {
	if thumb == "" {
		return nil
	}
	if strings.HasPrefix(thumb, "http://") || strings.HasPrefix(thumb, "https://") {
		return &thumb
	}
	u := "/api/images/library?path=" + url.QueryEscape(thumb)
	return &u
}

type castKey struct {
	role models.Role
	name string
}

// FetchMovieSnapshot walks every movie section and returns the tracked
// persons for the requested roles plus the full movie list. Appearance counts
// come from a second pass over full item metadata because section listings
// truncate cast lists.
func (c *Client) FetchMovieSnapshot(ctx context.Context, roles []models.Role) ([]*models.TrackedPerson, []*models.LibraryMovie, error) {
	enabled := make(map[models.Role]bool, len(roles))
	for _, role := range roles {
		enabled[role] = true
	}
	if len(enabled) == 0 {
		enabled[models.RoleActor] = true
	}

	sectionKeys, err := c.sectionKeys(ctx, sectionTypeMovie)
	if err != nil {
		return nil, nil, err
	}

	var (
		movies       []*models.LibraryMovie
		ratingKeys   []string
		movieByKey   = make(map[string]*models.LibraryMovie)
		castByKey    = make(map[castKey]*models.TrackedPerson)
		castWebURLs  = make(map[castKey]*string)
		sectionOfKey = make(map[string]string)
	)

	for _, sectionKey := range sectionKeys {
		params := url.Values{}
		params.Set("type", itemTypeMovie)
		container, err := c.fetchContainer(ctx, "/library/sections/"+sectionKey+"/all", params)
		if err != nil {
			return nil, nil, err
		}

		for _, video := range container.Videos {
			if video.Title == "" || video.RatingKey == "" {
				continue
			}
			if _, dup := movieByKey[video.RatingKey]; dup {
				continue
			}

			catalogID, imdbID := externalIDs(video.GUID, video.GUIDs)
			section := sectionKey
			movie := &models.LibraryMovie{
				ID:              video.RatingKey,
				SectionID:       &section,
				Title:           video.Title,
				Year:            parseYear(video.Year),
				CatalogMovieID:  catalogID,
				IMDBID:          imdbID,
				NormalizedTitle: titlenorm.Normalize(video.Title),
				WebURL:          c.detailURL(video.RatingKey),
			}
			if video.OriginalTitle != "" {
				original := video.OriginalTitle
				normalized := titlenorm.Normalize(original)
				movie.OriginalTitle = &original
				movie.NormalizedOriginalTitle = &normalized
			}

			movies = append(movies, movie)
			movieByKey[video.RatingKey] = movie
			ratingKeys = append(ratingKeys, video.RatingKey)
			sectionOfKey[video.RatingKey] = sectionKey

			for role, nodes := range video.roleNodes(enabled) {
				for _, node := range nodes {
					if node.Tag == "" {
						continue
					}
					key := castKey{role: role, name: node.Tag}
					if _, known := castByKey[key]; known {
						continue
					}
					castByKey[key] = &models.TrackedPerson{
						ID:       titlenorm.PersonID(string(role), node.Tag),
						Name:     node.Tag,
						Role:     role,
						ImageURL: personImageURL(node.Thumb),
					}
					castWebURLs[key] = c.personFilterURL(sectionKey, role, node)
				}
			}
		}
	}

	// Second pass over full item metadata. Section listings can truncate
	// cast lists, so appearance counts and external ids come from here.
	for start := 0; start < len(ratingKeys); start += metadataBatchSize {
		end := min(start+metadataBatchSize, len(ratingKeys))
		batch := ratingKeys[start:end]

		container, err := c.fetchContainer(ctx, "/library/metadata/"+strings.Join(batch, ","), nil)
		if err != nil {
			return nil, nil, err
		}

		for _, video := range container.Videos {
			movie, known := movieByKey[video.RatingKey]
			if known {
				catalogID, imdbID := externalIDs(video.GUID, video.GUIDs)
				if catalogID != nil {
					movie.CatalogMovieID = catalogID
				}
				if imdbID != nil {
					movie.IMDBID = imdbID
				}
			}

			seenInMovie := make(map[castKey]bool)
			for role, nodes := range video.roleNodes(enabled) {
				for _, node := range nodes {
					if node.Tag == "" {
						continue
					}
					key := castKey{role: role, name: node.Tag}
					person, tracked := castByKey[key]
					if !tracked || seenInMovie[key] {
						continue
					}
					seenInMovie[key] = true
					person.Appearances++

					if person.ImageURL == nil {
						person.ImageURL = personImageURL(node.Thumb)
					}
					if castWebURLs[key] == nil {
						castWebURLs[key] = c.personFilterURL(sectionOfKey[video.RatingKey], role, node)
					}
				}
			}
		}
	}

	now := time.Now().UTC()
	persons := make([]*models.TrackedPerson, 0, len(castByKey))
	for _, person := range castByKey {
		if person.Appearances == 0 {
			continue
		}
		person.UpdatedAt = now
		persons = append(persons, person)
	}
	for _, movie := range movies {
		movie.UpdatedAt = now
	}

	sort.Slice(persons, func(i, j int) bool {
		if persons[i].Appearances != persons[j].Appearances {
			return persons[i].Appearances > persons[j].Appearances
		}
		return persons[i].Name < persons[j].Name
	})

	return persons, movies, nil
}

func (v *videoNode) roleNodes(enabled map[models.Role]bool) map[models.Role][]roleNode {
	nodes := make(map[models.Role][]roleNode, 3)
	if enabled[models.RoleActor] {
		nodes[models.RoleActor] = v.Roles
	}
	if enabled[models.RoleDirector] {
		nodes[models.RoleDirector] = v.Directors
	}
	if enabled[models.RoleWriter] {
		nodes[models.RoleWriter] = v.Writers
	}
	return nodes
}

// FetchShowSnapshot walks every show section and returns the show list plus
// every episode on disk. Episodes referencing a show the section listing
// missed get a placeholder show so the snapshot stays internally consistent.
func (c *Client) FetchShowSnapshot(ctx context.Context) ([]*models.LibraryShow, []*models.LibraryEpisode, error) {
	sectionKeys, err := c.sectionKeys(ctx, sectionTypeShow)
	if err != nil {
		return nil, nil, err
	}

	showsByKey := make(map[string]*models.LibraryShow)
	var episodes []*models.LibraryEpisode

	for _, sectionKey := range sectionKeys {
		// Show and episode listings are independent requests; fetch them
		// concurrently to halve per-section latency.
		var showsRoot, episodesRoot *mediaContainer
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			params := url.Values{}
			params.Set("type", itemTypeShow)
			var err error
			showsRoot, err = c.fetchContainer(gctx, "/library/sections/"+sectionKey+"/all", params)
			return err
		})
		g.Go(func() error {
			params := url.Values{}
			params.Set("type", itemTypeEpisode)
			var err error
			episodesRoot, err = c.fetchContainer(gctx, "/library/sections/"+sectionKey+"/all", params)
			return err
		})
		if err := g.Wait(); err != nil {
			return nil, nil, err
		}

		for _, dir := range showsRoot.Directories {
			if dir.Title == "" || dir.RatingKey == "" {
				continue
			}
			catalogID, _ := externalIDs(dir.GUID, dir.GUIDs)
			showsByKey[dir.RatingKey] = &models.LibraryShow{
				ID:              dir.RatingKey,
				Title:           dir.Title,
				Year:            parseYear(dir.Year),
				CatalogShowID:   catalogID,
				NormalizedTitle: titlenorm.Normalize(dir.Title),
				ImageURL:        personImageURL(dir.Thumb),
				WebURL:          c.detailURL(dir.RatingKey),
			}
		}

		for _, video := range episodesRoot.Videos {
			if video.RatingKey == "" || video.GrandparentRatingKey == "" {
				continue
			}
			season, err := strconv.Atoi(video.ParentIndex)
			if err != nil {
				continue
			}
			episodeNumber, err := strconv.Atoi(video.Index)
			if err != nil {
				continue
			}

			title := video.Title
			if title == "" {
				title = fmt.Sprintf("Episode %d", episodeNumber)
			}
			catalogEpisodeID, _ := externalIDs(video.GUID, video.GUIDs)
			episodes = append(episodes, &models.LibraryEpisode{
				ID:               video.RatingKey,
				ShowID:           video.GrandparentRatingKey,
				SeasonNumber:     season,
				EpisodeNumber:    episodeNumber,
				Title:            title,
				NormalizedTitle:  titlenorm.Normalize(title),
				CatalogEpisodeID: catalogEpisodeID,
				SeasonWebURL:     c.detailURL(video.ParentRatingKey),
				WebURL:           c.detailURL(video.RatingKey),
			})
		}
	}

	for _, episode := range episodes {
		if _, known := showsByKey[episode.ShowID]; known {
			continue
		}
		title := "Show " + episode.ShowID
		showsByKey[episode.ShowID] = &models.LibraryShow{
			ID:              episode.ShowID,
			Title:           title,
			NormalizedTitle: titlenorm.Normalize(title),
			WebURL:          c.detailURL(episode.ShowID),
		}
	}

	now := time.Now().UTC()
	shows := make([]*models.LibraryShow, 0, len(showsByKey))
	for _, show := range showsByKey {
		show.UpdatedAt = now
		shows = append(shows, show)
	}
	for _, episode := range episodes {
		episode.UpdatedAt = now
	}

	sort.Slice(shows, func(i, j int) bool {
		return strings.ToLower(shows[i].Title) < strings.ToLower(shows[j].Title)
	})

	return shows, episodes, nil
}

// ResolveShowCatalogIDs cross-resolves catalog ids for shows whose section
// listing carried no usable guid. Best effort; shows that stay unresolved are
// simply absent from the result.
func (c *Client) ResolveShowCatalogIDs(ctx context.Context, showIDs []string) (map[string]int64, error) {
	unique := make([]string, 0, len(showIDs))
	seen := make(map[string]struct{}, len(showIDs))
	for _, id := range showIDs {
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}
	if len(unique) == 0 {
		return map[string]int64{}, nil
	}

	resolved := make(map[string]int64)
	for start := 0; start < len(unique); start += metadataBatchSize {
		end := min(start+metadataBatchSize, len(unique))
		batch := unique[start:end]

		container, err := c.fetchContainer(ctx, "/library/metadata/"+strings.Join(batch, ","), nil)
		if err != nil {
			return nil, err
		}

		for _, dir := range container.Directories {
			if dir.RatingKey == "" {
				continue
			}
			if catalogID, _ := externalIDs(dir.GUID, dir.GUIDs); catalogID != nil {
				resolved[dir.RatingKey] = *catalogID
			}
		}
		for _, video := range container.Videos {
			if video.RatingKey == "" {
				continue
			}
			if catalogID, _ := externalIDs(video.GUID, video.GUIDs); catalogID != nil {
				resolved[video.RatingKey] = *catalogID
			}
		}
	}

	return resolved, nil
}
