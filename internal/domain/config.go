// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package domain

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Config represents the application configuration
type Config struct {
	Version       string
	Host          string `toml:"host" mapstructure:"host"`
	Port          int    `toml:"port" mapstructure:"port"`
	BaseURL       string `toml:"baseUrl" mapstructure:"baseUrl"`
	LogLevel      string `toml:"logLevel" mapstructure:"logLevel"`
	LogPath       string `toml:"logPath" mapstructure:"logPath"`
	LogMaxSize    int    `toml:"logMaxSize" mapstructure:"logMaxSize"`
	LogMaxBackups int    `toml:"logMaxBackups" mapstructure:"logMaxBackups"`
	DataDir       string `toml:"dataDir" mapstructure:"dataDir"`
	DatabasePath  string `toml:"databasePath" mapstructure:"databasePath"`
	PprofEnabled  bool   `toml:"pprofEnabled" mapstructure:"pprofEnabled"`
	PprofHost     string `toml:"pprofHost" mapstructure:"pprofHost"`
	PprofPort     int    `toml:"pprofPort" mapstructure:"pprofPort"`

	MetricsEnabled bool   `toml:"metricsEnabled" mapstructure:"metricsEnabled"`
	MetricsHost    string `toml:"metricsHost" mapstructure:"metricsHost"`
	MetricsPort    int    `toml:"metricsPort" mapstructure:"metricsPort"`

	// Media server connection. Every URL is a connection candidate, the
	// client fails over between them at request time.
	PlexURLs         []string `toml:"plexUrls" mapstructure:"plexUrls"`
	PlexToken        string   `toml:"plexToken" mapstructure:"plexToken"`
	PlexClientID     string   `toml:"plexClientId" mapstructure:"plexClientId"`
	PlexServerID     string   `toml:"plexServerId" mapstructure:"plexServerId"`

	// Catalog (TMDB) connection.
	TMDBAPIKey    string `toml:"tmdbApiKey" mapstructure:"tmdbApiKey"`
	TMDBImageBase string `toml:"tmdbImageBase" mapstructure:"tmdbImageBase"`

	// Reconciliation tuning.
	NewWindowDays int `toml:"newWindowDays" mapstructure:"newWindowDays"`
	SeasonWorkers int `toml:"seasonWorkers" mapstructure:"seasonWorkers"`
}

// Validate reports configuration that can never work, regardless of what is
// reachable at runtime.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	if c.NewWindowDays < 0 {
		return errors.New("newWindowDays must not be negative")
	}
	if c.SeasonWorkers < 0 {
		return errors.New("seasonWorkers must not be negative")
	}
	for _, raw := range c.PlexURLs {
		entry := strings.TrimSpace(raw)
		if entry == "" {
			continue
		}
		parsed, err := url.Parse(entry)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return fmt.Errorf("invalid plexUrls entry: %q", raw)
		}
	}
	return nil
}

// PlexConfigured reports whether the media server connection is usable.
func (c *Config) PlexConfigured() bool {
	if strings.TrimSpace(c.PlexToken) == "" {
		return false
	}
	for _, raw := range c.PlexURLs {
		if strings.TrimSpace(raw) != "" {
			return true
		}
	}
	return false
}

// CatalogConfigured reports whether the catalog API can be called.
func (c *Config) CatalogConfigured() bool {
	return strings.TrimSpace(c.TMDBAPIKey) != ""
}
