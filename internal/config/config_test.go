// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	configPath := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0o644))
	return configPath
}

func TestDatabasePathConfiguration(t *testing.T) {
	tests := []struct {
		name           string
		config         string
		envVars        map[string]string
		expectedDBPath string
	}{
		{
			name: "default_behavior_db_next_to_config",
			config: `
host = "localhost"
port = 7575
logLevel = "INFO"
`,
			expectedDBPath: "gapwatch.db",
		},
		{
			name: "explicit_path_in_config",
			config: `
host = "localhost"
port = 7575
logLevel = "INFO"
databasePath = "/data/custom.db"
`,
			expectedDBPath: "custom.db",
		},
		{
			name: "explicit_path_via_env_var",
			config: `
host = "localhost"
port = 7575
logLevel = "INFO"
`,
			envVars: map[string]string{
				"GAPWATCH__DATABASE_PATH": "/var/db/gapwatch/gapwatch.db",
			},
			expectedDBPath: "gapwatch.db",
		},
		{
			name: "data_dir_fallback",
			config: `
host = "localhost"
port = 7575
logLevel = "INFO"
dataDir = "/data/gapwatch"
`,
			expectedDBPath: filepath.Join("/data/gapwatch", "gapwatch.db"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			configPath := writeConfig(t, tt.config)

			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}

			cfg, err := New(configPath)
			require.NoError(t, err)
			require.NotNil(t, cfg)

			dbPath := cfg.GetDatabasePath()
			assert.Contains(t, dbPath, tt.expectedDBPath)
		})
	}
}

func TestDatabasePathBackwardCompatibility(t *testing.T) {
	configPath := writeConfig(t, `
host = "localhost"
port = 7575
logLevel = "INFO"
`)

	cfg, err := New(configPath)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	// Database lives next to the config file when nothing else is set.
	expectedPath := filepath.Join(filepath.Dir(configPath), "gapwatch.db")
	assert.Equal(t, expectedPath, cfg.GetDatabasePath())
}

func TestDockerEnvironmentCompatibility(t *testing.T) {
	// Docker images mount the config dir at /config; XDG_CONFIG_HOME points
	// straight at it and must be used as-is.
	t.Setenv("XDG_CONFIG_HOME", "/config")

	assert.Equal(t, "/config", getDefaultConfigDir())
}

func TestConfigPrecedence(t *testing.T) {
	configPath := writeConfig(t, `
host = "localhost"
port = 7575
logLevel = "INFO"
databasePath = "/config/file/path.db"
`)

	t.Setenv("GAPWATCH__DATABASE_PATH", "/env/var/path.db")

	cfg, err := New(configPath)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	// Environment variable wins over the file.
	assert.Equal(t, "/env/var/path.db", cfg.GetDatabasePath())
}

func TestNewWritesDefaultConfig(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.toml")

	cfg, err := New(configPath)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	content, err := os.ReadFile(configPath)
	require.NoError(t, err)
	assert.Contains(t, string(content), "logLevel")

	assert.Equal(t, 7575, cfg.Config.Port)
	assert.Equal(t, 90, cfg.Config.NewWindowDays)
	assert.Equal(t, 4, cfg.Config.SeasonWorkers)
}

func TestEnvOverrides(t *testing.T) {
	configPath := writeConfig(t, `
host = "localhost"
port = 7575
logLevel = "INFO"
`)

	t.Setenv("GAPWATCH__PLEX_URLS", "http://plex-a:32400, http://plex-b:32400")
	t.Setenv("GAPWATCH__PLEX_TOKEN", "token")
	t.Setenv("GAPWATCH__TMDB_API_KEY", "key")
	t.Setenv("GAPWATCH__NEW_WINDOW_DAYS", "30")
	t.Setenv("GAPWATCH__METRICS_ENABLED", "true")

	cfg, err := New(configPath)
	require.NoError(t, err)

	assert.Equal(t, []string{"http://plex-a:32400", "http://plex-b:32400"}, cfg.Config.PlexURLs)
	assert.True(t, cfg.Config.PlexConfigured())
	assert.True(t, cfg.Config.CatalogConfigured())
	assert.Equal(t, 30, cfg.Config.NewWindowDays)
	assert.True(t, cfg.Config.MetricsEnabled)
}
