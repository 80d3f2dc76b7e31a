// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/autobrr/gapwatch/internal/buildinfo"
	"github.com/autobrr/gapwatch/internal/config"
	"github.com/autobrr/gapwatch/internal/domain"
	"github.com/autobrr/gapwatch/internal/logger"
)

// ConfigHandler exposes application configuration for the frontend.
type ConfigHandler struct {
	cfg *config.AppConfig
}

// ConfigResponse represents the configuration payload returned to clients.
// Secrets are redacted, never echoed back.
type ConfigResponse struct {
	Host              string   `json:"host"`
	Port              int      `json:"port"`
	BaseURL           string   `json:"base_url"`
	LogLevel          string   `json:"log_level"`
	LogPath           string   `json:"log_path"`
	PlexURLs          []string `json:"plex_urls"`
	PlexToken         string   `json:"plex_token"`
	TMDBAPIKey        string   `json:"tmdb_api_key"`
	PlexConfigured    bool     `json:"plex_configured"`
	CatalogConfigured bool     `json:"catalog_configured"`
	NewWindowDays     int      `json:"new_window_days"`
	SeasonWorkers     int      `json:"season_workers"`
	Version           string   `json:"version"`
}

// ConfigUpdateRequest represents supported configuration updates from the UI.
type ConfigUpdateRequest struct {
	LogLevel *string `json:"log_level"`
	LogPath  *string `json:"log_path"`
}

// NewConfigHandler creates a ConfigHandler instance.
func NewConfigHandler(cfg *config.AppConfig) *ConfigHandler {
	return &ConfigHandler{cfg: cfg}
}

// RegisterRoutes wires handler routes under /config.
func (h *ConfigHandler) RegisterRoutes(r chi.Router) {
	r.Route("/config", func(r chi.Router) {
		r.Get("/", h.getConfig)
		r.Patch("/", h.updateConfig)
	})
}

func (h *ConfigHandler) getConfig(w http.ResponseWriter, r *http.Request) {
	cfg := h.cfg.Config
	RespondJSON(w, http.StatusOK, ConfigResponse{
		Host:              cfg.Host,
		Port:              cfg.Port,
		BaseURL:           cfg.BaseURL,
		LogLevel:          cfg.LogLevel,
		LogPath:           cfg.LogPath,
		PlexURLs:          cfg.PlexURLs,
		PlexToken:         domain.RedactString(cfg.PlexToken),
		TMDBAPIKey:        domain.RedactString(cfg.TMDBAPIKey),
		PlexConfigured:    cfg.PlexConfigured(),
		CatalogConfigured: cfg.CatalogConfigured(),
		NewWindowDays:     cfg.NewWindowDays,
		SeasonWorkers:     cfg.SeasonWorkers,
		Version:           buildinfo.Version,
	})
}

func (h *ConfigHandler) updateConfig(w http.ResponseWriter, r *http.Request) {
	var req ConfigUpdateRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	cfg := h.cfg.Config
	level := cfg.LogLevel
	path := cfg.LogPath
	if req.LogLevel != nil {
		level = *req.LogLevel
	}
	if req.LogPath != nil {
		path = *req.LogPath
	}

	if err := h.cfg.UpdateLogSettings(level, path, cfg.LogMaxSize, cfg.LogMaxBackups); err != nil {
		RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	logger.Setup(cfg)

	w.WriteHeader(http.StatusNoContent)
}
