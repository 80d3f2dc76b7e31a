// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/autobrr/gapwatch/internal/mediaserver"
	"github.com/autobrr/gapwatch/internal/models"
	"github.com/autobrr/gapwatch/internal/services/snapshot"
)

type ScansHandler struct {
	snapshots     *snapshot.Service
	settingsStore *models.SettingsStore
}

func NewScansHandler(snapshots *snapshot.Service, settingsStore *models.SettingsStore) *ScansHandler {
	return &ScansHandler{
		snapshots:     snapshots,
		settingsStore: settingsStore,
	}
}

// Routes registers snapshot scan routes on the given router
func (h *ScansHandler) Routes(r chi.Router) {
	r.Post("/movies", h.ScanMovies)
	r.Post("/shows", h.ScanShows)
	r.Get("/movies/history", h.MovieScanHistory)
	r.Get("/shows/history", h.ShowScanHistory)
}

type MovieScanRequest struct {
	Role string `json:"role"`
}

func (h *ScansHandler) ScanMovies(w http.ResponseWriter, r *http.Request) {
	var req MovieScanRequest
	if !DecodeJSONOptional(w, r, &req) {
		return
	}

	var roles []models.Role
	if raw := strings.ToLower(strings.TrimSpace(req.Role)); raw != "" && raw != "all" {
		role, err := models.ParseRole(raw)
		if err != nil {
			RespondError(w, http.StatusBadRequest, "Invalid role")
			return
		}
		roles = []models.Role{role}
	}

	result, err := h.snapshots.RefreshMovies(r.Context(), roles)
	if err != nil {
		if errors.Is(err, mediaserver.ErrNotConfigured) {
			RespondError(w, http.StatusBadRequest, "Media server is not configured")
			return
		}
		log.Error().Err(err).Msg("Movie snapshot refresh failed")
		RespondError(w, http.StatusBadGateway, "Failed to refresh movie snapshot")
		return
	}

	RespondJSON(w, http.StatusOK, result)
}

func (h *ScansHandler) ScanShows(w http.ResponseWriter, r *http.Request) {
	result, err := h.snapshots.RefreshShows(r.Context())
	if err != nil {
		if errors.Is(err, mediaserver.ErrNotConfigured) {
			RespondError(w, http.StatusBadRequest, "Media server is not configured")
			return
		}
		log.Error().Err(err).Msg("Show snapshot refresh failed")
		RespondError(w, http.StatusBadGateway, "Failed to refresh show snapshot")
		return
	}

	RespondJSON(w, http.StatusOK, result)
}

func (h *ScansHandler) MovieScanHistory(w http.ResponseWriter, r *http.Request) {
	h.respondHistory(w, r, models.SettingMovieScanLogs)
}

func (h *ScansHandler) ShowScanHistory(w http.ResponseWriter, r *http.Request) {
	h.respondHistory(w, r, models.SettingShowScanLogs)
}

func (h *ScansHandler) respondHistory(w http.ResponseWriter, r *http.Request, key string) {
	logs, err := h.settingsStore.ScanLogs(r.Context(), key)
	if err != nil {
		log.Error().Err(err).Str("key", key).Msg("Failed to load scan history")
		RespondError(w, http.StatusInternalServerError, "Failed to load scan history")
		return
	}

	RespondJSON(w, http.StatusOK, logs)
}
