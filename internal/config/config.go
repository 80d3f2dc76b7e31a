// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package config loads the application configuration from config.toml and
// GAPWATCH__ environment overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"github.com/autobrr/gapwatch/internal/buildinfo"
	"github.com/autobrr/gapwatch/internal/domain"
)

// envPrefix is the prefix of every environment override, e.g.
// GAPWATCH__DATABASE_PATH.
const envPrefix = "GAPWATCH__"

var configTemplate = `# config.toml - Auto-generated on first run

# Hostname / IP
# Default: "localhost"
host = "{{ .host }}"

# Port
# Default: 7575
port = 7575

# Base url
# Set custom baseUrl eg /gapwatch/ to serve in subdirectory
# Not needed for subdomain or by usual subdomain/subdir reverse proxy
#baseUrl = "/gapwatch/"

# Log file path
# If not defined, logs to stdout
# Optional
#logPath = "log/gapwatch.log"

# Log level
# Default: "INFO"
# Options: "ERROR", "DEBUG", "INFO", "WARN", "TRACE"
logLevel = "INFO"

# Log rotation
# Maximum log file size in megabytes before rotation
# Default: 50
#logMaxSize = 50

# Number of rotated log files to retain (0 keeps all)
# Default: 3
#logMaxBackups = 3

# Database file path
# If not defined, the database lives next to this config file
# Optional
#databasePath = ""

# Plex connection
# Every URL is a candidate, the client fails over between them
#plexUrls = ["http://127.0.0.1:32400"]
#plexToken = ""
#plexClientId = ""
#plexServerId = ""

# TMDB catalog
#tmdbApiKey = ""
#tmdbImageBase = "https://image.tmdb.org/t/p/w300"

# Reconciliation tuning
# Days a released gap still counts as new
# Default: 90
#newWindowDays = 90

# Concurrent season fetches per show
# Default: 4
#seasonWorkers = 4

# Prometheus metrics endpoint
# Default: false
#metricsEnabled = false
#metricsHost = "127.0.0.1"
#metricsPort = 9074
`

// AppConfig owns the runtime configuration and the file it came from.
type AppConfig struct {
	Config *domain.Config

	viper      *viper.Viper
	configPath string
}

// New loads the configuration. configPath may name a config.toml, a directory
// holding one, or be empty for the default config dir. A missing file is
// created from the default template.
func New(configPath string) (*AppConfig, error) {
	c := &AppConfig{viper: viper.New()}
	c.defaults()

	if err := c.load(configPath); err != nil {
		return nil, err
	}
	c.loadFromEnv()

	if err := c.Config.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *AppConfig) defaults() {
	c.Config = &domain.Config{
		Version:       buildinfo.Version,
		Host:          "localhost",
		Port:          7575,
		LogLevel:      "INFO",
		LogMaxSize:    50,
		LogMaxBackups: 3,
		TMDBImageBase: "https://image.tmdb.org/t/p/w300",
		NewWindowDays: 90,
		SeasonWorkers: 4,
		MetricsHost:   "127.0.0.1",
		MetricsPort:   9074,
		PprofHost:     "127.0.0.1",
		PprofPort:     6060,
	}
}

func (c *AppConfig) load(configPath string) error {
	c.viper.SetConfigType("toml")

	switch {
	case configPath == "":
		configPath = getDefaultConfigDir()
		fallthrough
	default:
		info, err := os.Stat(configPath)
		if err == nil && info.IsDir() {
			configPath = filepath.Join(configPath, "config.toml")
		}
	}
	c.configPath = configPath
	c.viper.SetConfigFile(configPath)

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := c.writeDefaultConfig(configPath); err != nil {
			return err
		}
	}

	if err := c.viper.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}
	if err := c.viper.Unmarshal(c.Config); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", configPath, err)
	}
	return nil
}

func (c *AppConfig) writeDefaultConfig(configPath string) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	host := "localhost"
	if _, err := os.Stat("/.dockerenv"); err == nil {
		// Inside a container the server must bind all interfaces.
		host = "0.0.0.0"
	}

	content := strings.ReplaceAll(configTemplate, "{{ .host }}", host)
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to write default config file: %w", err)
	}

	log.Info().Str("path", configPath).Msg("wrote default config file")
	return nil
}

// loadFromEnv applies GAPWATCH__ environment overrides on top of the file.
func (c *AppConfig) loadFromEnv() {
	if v := os.Getenv(envPrefix + "HOST"); v != "" {
		c.Config.Host = v
	}
	if v := os.Getenv(envPrefix + "PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Config.Port = port
		}
	}
	if v := os.Getenv(envPrefix + "BASE_URL"); v != "" {
		c.Config.BaseURL = v
	}
	if v := os.Getenv(envPrefix + "LOG_LEVEL"); v != "" {
		c.Config.LogLevel = v
	}
	if v := os.Getenv(envPrefix + "LOG_PATH"); v != "" {
		c.Config.LogPath = v
	}
	if v := os.Getenv(envPrefix + "DATA_DIR"); v != "" {
		c.Config.DataDir = v
	}
	if v := os.Getenv(envPrefix + "DATABASE_PATH"); v != "" {
		c.Config.DatabasePath = v
	}
	if v := os.Getenv(envPrefix + "PLEX_URLS"); v != "" {
		c.Config.PlexURLs = splitList(v)
	}
	if v := os.Getenv(envPrefix + "PLEX_TOKEN"); v != "" {
		c.Config.PlexToken = v
	}
	if v := os.Getenv(envPrefix + "PLEX_CLIENT_ID"); v != "" {
		c.Config.PlexClientID = v
	}
	if v := os.Getenv(envPrefix + "PLEX_SERVER_ID"); v != "" {
		c.Config.PlexServerID = v
	}
	if v := os.Getenv(envPrefix + "TMDB_API_KEY"); v != "" {
		c.Config.TMDBAPIKey = v
	}
	if v := os.Getenv(envPrefix + "TMDB_IMAGE_BASE"); v != "" {
		c.Config.TMDBImageBase = v
	}
	if v := os.Getenv(envPrefix + "NEW_WINDOW_DAYS"); v != "" {
		if days, err := strconv.Atoi(v); err == nil {
			c.Config.NewWindowDays = days
		}
	}
	if v := os.Getenv(envPrefix + "SEASON_WORKERS"); v != "" {
		if workers, err := strconv.Atoi(v); err == nil {
			c.Config.SeasonWorkers = workers
		}
	}
	if v := os.Getenv(envPrefix + "METRICS_ENABLED"); v != "" {
		c.Config.MetricsEnabled = isTruthy(v)
	}
	if v := os.Getenv(envPrefix + "PPROF_ENABLED"); v != "" {
		c.Config.PprofEnabled = isTruthy(v)
	}
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func isTruthy(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

// GetDatabasePath returns the sqlite file location: the configured path when
// set, otherwise next to the config file.
func (c *AppConfig) GetDatabasePath() string {
	if c.Config.DatabasePath != "" {
		return c.Config.DatabasePath
	}
	if c.Config.DataDir != "" {
		return filepath.Join(c.Config.DataDir, "gapwatch.db")
	}
	return filepath.Join(filepath.Dir(c.configPath), "gapwatch.db")
}

// ConfigPath returns the loaded config file location.
func (c *AppConfig) ConfigPath() string {
	return c.configPath
}

// getDefaultConfigDir resolves the platform config directory, honoring
// XDG_CONFIG_HOME. A Docker-style /config mount is used directly.
func getDefaultConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		if xdg == "/config" {
			return xdg
		}
		return filepath.Join(xdg, "gapwatch")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "gapwatch")
}
