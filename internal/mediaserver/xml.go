// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package mediaserver

import (
	"strconv"
	"strings"
)

// mediaContainer is the root element of every library server XML payload.
type mediaContainer struct {
	Directories []directoryNode `xml:"Directory"`
	Videos      []videoNode     `xml:"Video"`
}

type directoryNode struct {
	Key       string     `xml:"key,attr"`
	Type      string     `xml:"type,attr"`
	RatingKey string     `xml:"ratingKey,attr"`
	Title     string     `xml:"title,attr"`
	Year      string     `xml:"year,attr"`
	Thumb     string     `xml:"thumb,attr"`
	GUID      string     `xml:"guid,attr"`
	GUIDs     []guidNode `xml:"Guid"`
}

type videoNode struct {
	RatingKey            string     `xml:"ratingKey,attr"`
	ParentRatingKey      string     `xml:"parentRatingKey,attr"`
	GrandparentRatingKey string     `xml:"grandparentRatingKey,attr"`
	LibrarySectionID     string     `xml:"librarySectionID,attr"`
	Title                string     `xml:"title,attr"`
	OriginalTitle        string     `xml:"originalTitle,attr"`
	Year                 string     `xml:"year,attr"`
	ParentIndex          string     `xml:"parentIndex,attr"`
	Index                string     `xml:"index,attr"`
	GUID                 string     `xml:"guid,attr"`
	GUIDs                []guidNode `xml:"Guid"`
	Roles                []roleNode `xml:"Role"`
	Directors            []roleNode `xml:"Director"`
	Writers              []roleNode `xml:"Writer"`
}

type guidNode struct {
	ID string `xml:"id,attr"`
}

type roleNode struct {
	ID     string `xml:"id,attr"`
	Tag    string `xml:"tag,attr"`
	TagKey string `xml:"tagKey,attr"`
	Thumb  string `xml:"thumb,attr"`
}

// externalIDs walks the primary guid attribute plus the Guid child nodes and
// pulls out the catalog (tmdb) and imdb identifiers, if any. Later entries
// overwrite earlier ones, matching server ordering where the authoritative
// agent guid comes last.
func externalIDs(primary string, children []guidNode) (catalogID *int64, imdbID *string) {
	consume := func(raw string) {
		guid := strings.ToLower(strings.TrimSpace(raw))
		if guid == "" {
			return
		}

		if idx := strings.Index(guid, "tmdb://"); idx >= 0 {
			value := guid[idx+len("tmdb://"):]
			value = strings.TrimSpace(strings.SplitN(value, "?", 2)[0])
			if parsed, err := strconv.ParseInt(value, 10, 64); err == nil {
				catalogID = &parsed
			}
			return
		}

		if idx := strings.Index(guid, "imdb://"); idx >= 0 {
			value := guid[idx+len("imdb://"):]
			value = strings.TrimSpace(strings.SplitN(value, "?", 2)[0])
			if value != "" {
				imdbID = &value
			}
			return
		}
	}

	consume(primary)
	for _, child := range children {
		consume(child.ID)
	}
	return catalogID, imdbID
}

func parseYear(raw string) *int {
	year, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || year <= 0 {
		return nil
	}
	return &year
}
