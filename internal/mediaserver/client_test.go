// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package mediaserver

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autobrr/gapwatch/internal/models"
)

const sectionsXML = `<?xml version="1.0" encoding="UTF-8"?>
<MediaContainer>
  <Directory key="1" type="movie" title="Movies"/>
  <Directory key="2" type="show" title="TV Shows"/>
  <Directory key="3" type="photo" title="Photos"/>
</MediaContainer>`

const movieSectionXML = `<?xml version="1.0" encoding="UTF-8"?>
<MediaContainer>
  <Video ratingKey="101" title="Am&#233;lie" originalTitle="Le Fabuleux Destin d'Am&#233;lie Poulain" year="2001" guid="plex://movie/abc">
    <Guid id="tmdb://194"/>
    <Guid id="imdb://tt0211915"/>
    <Role tag="Audrey Tautou" thumb="/library/metadata/9/thumb"/>
    <Role tag="Mathieu Kassovitz"/>
    <Director tag="Jean-Pierre Jeunet"/>
  </Video>
  <Video ratingKey="102" title="A Very Long Engagement" year="2004">
    <Role tag="Audrey Tautou"/>
    <Director tag="Jean-Pierre Jeunet"/>
  </Video>
</MediaContainer>`

const movieMetadataXML = `<?xml version="1.0" encoding="UTF-8"?>
<MediaContainer>
  <Video ratingKey="101" title="Am&#233;lie">
    <Guid id="tmdb://194"/>
    <Role tag="Audrey Tautou" thumb="/library/metadata/9/thumb"/>
    <Role tag="Mathieu Kassovitz"/>
    <Role tag="Audrey Tautou"/>
    <Director tag="Jean-Pierre Jeunet"/>
  </Video>
  <Video ratingKey="102" title="A Very Long Engagement">
    <Guid id="tmdb://9008"/>
    <Role tag="Audrey Tautou"/>
    <Director tag="Jean-Pierre Jeunet"/>
  </Video>
</MediaContainer>`

const showSectionXML = `<?xml version="1.0" encoding="UTF-8"?>
<MediaContainer>
  <Directory ratingKey="201" title="Severance" year="2022">
    <Guid id="tmdb://95396"/>
  </Directory>
</MediaContainer>`

const episodeSectionXML = `<?xml version="1.0" encoding="UTF-8"?>
<MediaContainer>
  <Video ratingKey="301" parentRatingKey="210" grandparentRatingKey="201" parentIndex="1" index="1" title="Good News About Hell">
    <Guid id="tmdb://3096279"/>
  </Video>
  <Video ratingKey="302" parentRatingKey="210" grandparentRatingKey="201" parentIndex="1" index="2" title="Half Loop"/>
  <Video ratingKey="303" parentRatingKey="211" grandparentRatingKey="999" parentIndex="2" index="5" title="Orphan"/>
  <Video ratingKey="304" parentRatingKey="210" grandparentRatingKey="201" parentIndex="x" index="3" title="Bad Season"/>
</MediaContainer>`

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	serveXML := func(payload string) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/xml")
			_, _ = w.Write([]byte(payload))
		}
	}

	mux.HandleFunc("/library/sections", serveXML(sectionsXML))
	mux.HandleFunc("/library/sections/1/all", serveXML(movieSectionXML))
	mux.HandleFunc("/library/sections/2/all", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/xml")
		if r.URL.Query().Get("type") == itemTypeEpisode {
			_, _ = w.Write([]byte(episodeSectionXML))
			return
		}
		_, _ = w.Write([]byte(showSectionXML))
	})
	mux.HandleFunc("/library/metadata/", serveXML(movieMetadataXML))

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestFetchMovieSnapshot(t *testing.T) {
	server := newTestServer(t)
	client := NewClient(Options{URLs: []string{server.URL}, Token: "token"})

	persons, movies, err := client.FetchMovieSnapshot(context.Background(), []models.Role{models.RoleActor, models.RoleDirector})
	require.NoError(t, err)

	require.Len(t, movies, 2)
	amelie := movies[0]
	assert.Equal(t, "101", amelie.ID)
	assert.Equal(t, "amelie", amelie.NormalizedTitle)
	require.NotNil(t, amelie.NormalizedOriginalTitle)
	assert.Equal(t, "le fabuleux destin d amelie poulain", *amelie.NormalizedOriginalTitle)
	require.NotNil(t, amelie.CatalogMovieID)
	assert.Equal(t, int64(194), *amelie.CatalogMovieID)
	require.NotNil(t, amelie.IMDBID)
	assert.Equal(t, "tt0211915", *amelie.IMDBID)
	require.NotNil(t, amelie.Year)
	assert.Equal(t, 2001, *amelie.Year)

	// Catalog id for the second movie only appears in the metadata batch.
	require.NotNil(t, movies[1].CatalogMovieID)
	assert.Equal(t, int64(9008), *movies[1].CatalogMovieID)

	require.Len(t, persons, 3)
	byID := make(map[string]*models.TrackedPerson)
	for _, person := range persons {
		byID[person.ID] = person
	}

	tautou := byID["audrey-tautou"]
	require.NotNil(t, tautou)
	assert.Equal(t, models.RoleActor, tautou.Role)
	// Duplicate credits within a movie count once.
	assert.Equal(t, 2, tautou.Appearances)
	require.NotNil(t, tautou.ImageURL)
	assert.Equal(t, "/api/images/library?path=%2Flibrary%2Fmetadata%2F9%2Fthumb", *tautou.ImageURL)

	jeunet := byID["director-jean-pierre-jeunet"]
	require.NotNil(t, jeunet)
	assert.Equal(t, models.RoleDirector, jeunet.Role)
	assert.Equal(t, 2, jeunet.Appearances)

	kassovitz := byID["mathieu-kassovitz"]
	require.NotNil(t, kassovitz)
	assert.Equal(t, 1, kassovitz.Appearances)

	// Most appearances first.
	assert.Equal(t, 2, persons[0].Appearances)
	assert.Equal(t, 1, persons[2].Appearances)
}

func TestFetchMovieSnapshotRoleFilter(t *testing.T) {
	server := newTestServer(t)
	client := NewClient(Options{URLs: []string{server.URL}, Token: "token"})

	persons, _, err := client.FetchMovieSnapshot(context.Background(), []models.Role{models.RoleDirector})
	require.NoError(t, err)

	require.Len(t, persons, 1)
	assert.Equal(t, "director-jean-pierre-jeunet", persons[0].ID)
}

func TestFetchShowSnapshot(t *testing.T) {
	server := newTestServer(t)
	client := NewClient(Options{URLs: []string{server.URL}, Token: "token"})

	shows, episodes, err := client.FetchShowSnapshot(context.Background())
	require.NoError(t, err)

	// The orphan episode's show gets a placeholder entry.
	require.Len(t, shows, 2)
	assert.Equal(t, "Severance", shows[0].Title)
	require.NotNil(t, shows[0].CatalogShowID)
	assert.Equal(t, int64(95396), *shows[0].CatalogShowID)
	assert.Equal(t, "999", shows[1].ID)
	assert.Equal(t, "Show 999", shows[1].Title)

	// The episode with a non-numeric season index is dropped.
	require.Len(t, episodes, 3)
	assert.Equal(t, "301", episodes[0].ID)
	assert.Equal(t, 1, episodes[0].SeasonNumber)
	assert.Equal(t, 1, episodes[0].EpisodeNumber)
	require.NotNil(t, episodes[0].CatalogEpisodeID)
	assert.Equal(t, int64(3096279), *episodes[0].CatalogEpisodeID)
	assert.Nil(t, episodes[1].CatalogEpisodeID)
}

func TestClientFailover(t *testing.T) {
	server := newTestServer(t)

	dead := httptest.NewServer(http.NotFoundHandler())
	dead.Close()

	client := NewClient(Options{URLs: []string{dead.URL, server.URL}, Token: "token"})

	_, movies, err := client.FetchMovieSnapshot(context.Background(), []models.Role{models.RoleActor})
	require.NoError(t, err)
	assert.Len(t, movies, 2)

	// The dead URI is now backing off, so the healthy one comes first.
	candidates := client.candidateURIs()
	require.NotEmpty(t, candidates)
	assert.Equal(t, server.URL, candidates[0])
	assert.Equal(t, dead.URL, candidates[len(candidates)-1])
}

func TestClientNotConfigured(t *testing.T) {
	client := NewClient(Options{})

	_, _, err := client.FetchMovieSnapshot(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNotConfigured)

	_, _, err = client.FetchImage(context.Background(), "/thumb")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestExternalIDs(t *testing.T) {
	tests := []struct {
		name      string
		primary   string
		children  []guidNode
		catalogID *int64
		imdbID    string
	}{
		{
			name:      "direct tmdb guid",
			primary:   "tmdb://603",
			catalogID: int64Ptr(603),
		},
		{
			name:     "agent guid with query",
			primary:  "com.plexapp.agents.imdb://tt0133093?lang=en",
			imdbID:   "tt0133093",
			children: nil,
		},
		{
			name:      "children override nothing when primary wins",
			primary:   "plex://movie/abc",
			children:  []guidNode{{ID: "tmdb://550"}, {ID: "imdb://tt0137523"}},
			catalogID: int64Ptr(550),
			imdbID:    "tt0137523",
		},
		{
			name:    "non-numeric tmdb ignored",
			primary: "tmdb://abc",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			catalogID, imdbID := externalIDs(tt.primary, tt.children)
			if tt.catalogID == nil {
				assert.Nil(t, catalogID)
			} else {
				require.NotNil(t, catalogID)
				assert.Equal(t, *tt.catalogID, *catalogID)
			}
			if tt.imdbID == "" {
				assert.Nil(t, imdbID)
			} else {
				require.NotNil(t, imdbID)
				assert.Equal(t, tt.imdbID, *imdbID)
			}
		})
	}
}

func int64Ptr(v int64) *int64 { return &v }
