// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigValidate(t *testing.T) {
	t.Run("accepts a minimal working config", func(t *testing.T) {
		cfg := &Config{Port: 7070}

		require.NoError(t, cfg.Validate())
	})

	t.Run("rejects an out-of-range port", func(t *testing.T) {
		cfg := &Config{Port: 70000}

		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid port")
	})

	t.Run("rejects negative tuning values", func(t *testing.T) {
		cfg := &Config{Port: 7070, NewWindowDays: -1}
		require.Error(t, cfg.Validate())

		cfg = &Config{Port: 7070, SeasonWorkers: -1}
		require.Error(t, cfg.Validate())
	})

	t.Run("rejects malformed media server URLs", func(t *testing.T) {
		cfg := &Config{Port: 7070, PlexURLs: []string{"not a url"}}

		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "plexUrls")
	})

	t.Run("ignores blank URL entries", func(t *testing.T) {
		cfg := &Config{Port: 7070, PlexURLs: []string{"", "  ", "http://plex.local:32400"}}

		require.NoError(t, cfg.Validate())
	})
}

func TestPlexConfigured(t *testing.T) {
	assert.False(t, (&Config{}).PlexConfigured())
	assert.False(t, (&Config{PlexToken: "t"}).PlexConfigured())
	assert.False(t, (&Config{PlexURLs: []string{"http://plex.local:32400"}}).PlexConfigured())
	assert.True(t, (&Config{
		PlexToken: "t",
		PlexURLs:  []string{"http://plex.local:32400"},
	}).PlexConfigured())
}

func TestCatalogConfigured(t *testing.T) {
	assert.False(t, (&Config{}).CatalogConfigured())
	assert.False(t, (&Config{TMDBAPIKey: "   "}).CatalogConfigured())
	assert.True(t, (&Config{TMDBAPIKey: "key"}).CatalogConfigured())
}
