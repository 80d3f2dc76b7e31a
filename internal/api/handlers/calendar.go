// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package handlers

import (
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/autobrr/gapwatch/internal/models"
)

// maxCalendarRangeDays caps how wide a calendar window one request may ask for.
const maxCalendarRangeDays = 120

type CalendarHandler struct {
	movieStore   *models.MissingMovieStore
	episodeStore *models.MissingEpisodeStore
}

func NewCalendarHandler(movieStore *models.MissingMovieStore, episodeStore *models.MissingEpisodeStore) *CalendarHandler {
	return &CalendarHandler{
		movieStore:   movieStore,
		episodeStore: episodeStore,
	}
}

// Routes registers calendar routes on the given router
func (h *CalendarHandler) Routes(r chi.Router) {
	r.Get("/events", h.GetEvents)
}

func (h *CalendarHandler) GetEvents(w http.ResponseWriter, r *http.Request) {
	start, err := time.Parse("2006-01-02", r.URL.Query().Get("start"))
	if err != nil {
		RespondError(w, http.StatusBadRequest, "start must be a YYYY-MM-DD date")
		return
	}
	end, err := time.Parse("2006-01-02", r.URL.Query().Get("end"))
	if err != nil {
		RespondError(w, http.StatusBadRequest, "end must be a YYYY-MM-DD date")
		return
	}
	if end.Before(start) {
		RespondError(w, http.StatusBadRequest, "end must not be before start")
		return
	}
	if end.Sub(start) > maxCalendarRangeDays*24*time.Hour {
		RespondError(w, http.StatusBadRequest, "date range is too wide")
		return
	}

	startDate := start.Format("2006-01-02")
	endDate := end.Format("2006-01-02")

	movieEvents, err := h.movieStore.EventsInRange(r.Context(), startDate, endDate)
	if err != nil {
		log.Error().Err(err).Msg("Failed to load movie calendar events")
		RespondError(w, http.StatusInternalServerError, "Failed to load calendar events")
		return
	}
	episodeEvents, err := h.episodeStore.EventsInRange(r.Context(), startDate, endDate)
	if err != nil {
		log.Error().Err(err).Msg("Failed to load episode calendar events")
		RespondError(w, http.StatusInternalServerError, "Failed to load calendar events")
		return
	}

	events := make([]models.CalendarEvent, 0, len(movieEvents)+len(episodeEvents))
	events = append(events, movieEvents...)
	events = append(events, episodeEvents...)
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].Date != events[j].Date {
			return events[i].Date < events[j].Date
		}
		return events[i].Title < events[j].Title
	})

	RespondJSON(w, http.StatusOK, events)
}
