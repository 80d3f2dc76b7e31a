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

type PersonsHandler struct {
	reconciler  *reconcile.Service
	personStore *models.PersonStore
	ignoreStore *models.IgnoreStore
}

func NewPersonsHandler(reconciler *reconcile.Service, personStore *models.PersonStore, ignoreStore *models.IgnoreStore) *PersonsHandler {
	return &PersonsHandler{
		reconciler:  reconciler,
		personStore: personStore,
		ignoreStore: ignoreStore,
	}
}

// Routes registers person routes on the given router
func (h *PersonsHandler) Routes(r chi.Router) {
	r.Get("/", h.ListPersons)
	r.Get("/counts", h.GetCounts)
	r.Post("/missing-scan", h.RunMissingScan)
	r.Route("/{personID}", func(r chi.Router) {
		r.Get("/movies", h.GetPersonMovies)
		r.Post("/movies/{catalogMovieID}/ignore", h.SetMovieIgnore)
	})
}

func (h *PersonsHandler) ListPersons(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("role")
	if raw == "" {
		raw = string(models.RoleActor)
	}
	role, err := models.ParseRole(raw)
	if err != nil {
		RespondError(w, http.StatusBadRequest, "Invalid role")
		return
	}

	persons, err := h.personStore.List(r.Context(), role)
	if err != nil {
		log.Error().Err(err).Str("role", string(role)).Msg("Failed to list tracked persons")
		RespondError(w, http.StatusInternalServerError, "Failed to list persons")
		return
	}

	RespondJSON(w, http.StatusOK, persons)
}

func (h *PersonsHandler) GetCounts(w http.ResponseWriter, r *http.Request) {
	counts, err := h.personStore.CountByRole(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to count tracked persons")
		RespondError(w, http.StatusInternalServerError, "Failed to count persons")
		return
	}

	RespondJSON(w, http.StatusOK, counts)
}

func movieFilterFromQuery(r *http.Request) reconcile.MovieItemFilter {
	return reconcile.MovieItemFilter{
		MissingOnly:   queryFlag(r, "missing_only"),
		InLibraryOnly: queryFlag(r, "in_library_only"),
		NewOnly:       queryFlag(r, "new_only"),
		UpcomingOnly:  queryFlag(r, "upcoming_only"),
	}
}

func (h *PersonsHandler) GetPersonMovies(w http.ResponseWriter, r *http.Request) {
	personID, ok := ParseStringParam(w, r, "personID", "person ID")
	if !ok {
		return
	}

	payload, err := h.reconciler.PersonMovieItems(r.Context(), personID, movieFilterFromQuery(r))
	if err != nil {
		switch {
		case errors.Is(err, models.ErrPersonNotFound):
			RespondError(w, http.StatusNotFound, "Person not found")
		case errors.Is(err, catalog.ErrNotConfigured):
			RespondError(w, http.StatusBadRequest, "Catalog API key is not configured")
		default:
			log.Error().Err(err).Str("personID", personID).Msg("Failed to resolve person filmography")
			RespondError(w, http.StatusInternalServerError, "Failed to resolve filmography")
		}
		return
	}

	RespondJSON(w, http.StatusOK, payload)
}

type MissingScanRequest struct {
	PersonIDs []string `json:"person_ids"`
}

func (h *PersonsHandler) RunMissingScan(w http.ResponseWriter, r *http.Request) {
	var req MissingScanRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	if len(req.PersonIDs) == 0 {
		RespondError(w, http.StatusBadRequest, "person_ids is required")
		return
	}

	report, err := h.reconciler.ScanPersonsMissing(r.Context(), req.PersonIDs)
	if err != nil {
		if errors.Is(err, catalog.ErrNotConfigured) {
			RespondError(w, http.StatusBadRequest, "Catalog API key is not configured")
			return
		}
		log.Error().Err(err).Msg("Movie missing-scan failed")
		RespondError(w, http.StatusInternalServerError, "Missing scan failed")
		return
	}

	RespondJSON(w, http.StatusOK, report)
}

type IgnoreRequest struct {
	Ignored bool `json:"ignored"`
}

func (h *PersonsHandler) SetMovieIgnore(w http.ResponseWriter, r *http.Request) {
	personID, ok := ParseStringParam(w, r, "personID", "person ID")
	if !ok {
		return
	}
	catalogMovieID, ok := ParseIntParam64(w, r, "catalogMovieID", "movie ID")
	if !ok {
		return
	}

	var req IgnoreRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	if _, err := h.personStore.Get(r.Context(), personID); err != nil {
		if errors.Is(err, models.ErrPersonNotFound) {
			RespondError(w, http.StatusNotFound, "Person not found")
			return
		}
		log.Error().Err(err).Str("personID", personID).Msg("Failed to load person")
		RespondError(w, http.StatusInternalServerError, "Failed to load person")
		return
	}

	if err := h.ignoreStore.SetMovie(r.Context(), personID, catalogMovieID, req.Ignored); err != nil {
		log.Error().Err(err).Str("personID", personID).Int64("catalogMovieID", catalogMovieID).Msg("Failed to update movie ignore")
		RespondError(w, http.StatusInternalServerError, "Failed to update ignore")
		return
	}

	RespondJSON(w, http.StatusOK, map[string]bool{"ignored": req.Ignored})
}
