// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/autobrr/gapwatch/internal/catalog"
	"github.com/autobrr/gapwatch/internal/models"
	"github.com/autobrr/gapwatch/internal/services/reconcile"
)

type ShowsHandler struct {
	reconciler  *reconcile.Service
	showStore   *models.ShowStore
	ignoreStore *models.IgnoreStore
}

func NewShowsHandler(reconciler *reconcile.Service, showStore *models.ShowStore, ignoreStore *models.IgnoreStore) *ShowsHandler {
	return &ShowsHandler{
		reconciler:  reconciler,
		showStore:   showStore,
		ignoreStore: ignoreStore,
	}
}

// Routes registers show routes on the given router
func (h *ShowsHandler) Routes(r chi.Router) {
	r.Get("/", h.ListShows)
	r.Post("/missing-scan", h.RunMissingScan)
	r.Route("/{showID}", func(r chi.Router) {
		r.Get("/seasons", h.GetSeasons)
		r.Get("/seasons/{seasonNumber}/episodes", h.GetSeasonEpisodes)
		r.Post("/seasons/{seasonNumber}/episodes/{episodeNumber}/ignore", h.SetEpisodeIgnore)
	})
}

func (h *ShowsHandler) ListShows(w http.ResponseWriter, r *http.Request) {
	shows, err := h.showStore.List(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to list shows")
		RespondError(w, http.StatusInternalServerError, "Failed to list shows")
		return
	}

	RespondJSON(w, http.StatusOK, shows)
}

type ShowMissingScanRequest struct {
	ShowIDs []string `json:"show_ids"`
}

func (h *ShowsHandler) RunMissingScan(w http.ResponseWriter, r *http.Request) {
	var req ShowMissingScanRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	if len(req.ShowIDs) == 0 {
		RespondError(w, http.StatusBadRequest, "show_ids is required")
		return
	}

	report, err := h.reconciler.ScanShowsMissing(r.Context(), req.ShowIDs)
	if err != nil {
		if errors.Is(err, catalog.ErrNotConfigured) {
			RespondError(w, http.StatusBadRequest, "Catalog API key is not configured")
			return
		}
		log.Error().Err(err).Msg("Episode missing-scan failed")
		RespondError(w, http.StatusInternalServerError, "Missing scan failed")
		return
	}

	RespondJSON(w, http.StatusOK, report)
}

func (h *ShowsHandler) GetSeasons(w http.ResponseWriter, r *http.Request) {
	showID, ok := ParseStringParam(w, r, "showID", "show ID")
	if !ok {
		return
	}

	payload, err := h.reconciler.SeasonOverview(r.Context(), showID, movieFilterFromQuery(r))
	if err != nil {
		h.respondShowError(w, err, showID, "Failed to resolve seasons")
		return
	}

	RespondJSON(w, http.StatusOK, payload)
}

func (h *ShowsHandler) GetSeasonEpisodes(w http.ResponseWriter, r *http.Request) {
	showID, ok := ParseStringParam(w, r, "showID", "show ID")
	if !ok {
		return
	}
	seasonNumber, ok := ParseIntParam(w, r, "seasonNumber", "season number")
	if !ok {
		return
	}

	payload, err := h.reconciler.SeasonEpisodeItems(r.Context(), showID, seasonNumber, movieFilterFromQuery(r))
	if err != nil {
		h.respondShowError(w, err, showID, "Failed to resolve episodes")
		return
	}

	RespondJSON(w, http.StatusOK, payload)
}

func (h *ShowsHandler) SetEpisodeIgnore(w http.ResponseWriter, r *http.Request) {
	showID, ok := ParseStringParam(w, r, "showID", "show ID")
	if !ok {
		return
	}
	seasonNumber, ok := ParsePositiveIntParam(w, r, "seasonNumber", "season number")
	if !ok {
		return
	}
	episodeNumber, ok := ParsePositiveIntParam(w, r, "episodeNumber", "episode number")
	if !ok {
		return
	}

	var req IgnoreRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	if _, err := h.showStore.Get(r.Context(), showID); err != nil {
		if errors.Is(err, models.ErrShowNotFound) {
			RespondError(w, http.StatusNotFound, "Show not found")
			return
		}
		log.Error().Err(err).Str("showID", showID).Msg("Failed to load show")
		RespondError(w, http.StatusInternalServerError, "Failed to load show")
		return
	}

	if err := h.ignoreStore.SetEpisode(r.Context(), showID, seasonNumber, episodeNumber, req.Ignored); err != nil {
		log.Error().Err(err).Str("showID", showID).Int("season", seasonNumber).Int("episode", episodeNumber).Msg("Failed to update episode ignore")
		RespondError(w, http.StatusInternalServerError, "Failed to update ignore")
		return
	}

	RespondJSON(w, http.StatusOK, map[string]bool{"ignored": req.Ignored})
}

func (h *ShowsHandler) respondShowError(w http.ResponseWriter, err error, showID, fallback string) {
	switch {
	case errors.Is(err, models.ErrShowNotFound):
		RespondError(w, http.StatusNotFound, "Show not found")
	case errors.Is(err, catalog.ErrNotConfigured):
		RespondError(w, http.StatusBadRequest, "Catalog API key is not configured")
	default:
		log.Error().Err(err).Str("showID", showID).Msg(fallback)
		RespondError(w, http.StatusInternalServerError, fallback)
	}
}
