// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/autobrr/gapwatch/internal/buildinfo"
)

type VersionHandler struct{}

func NewVersionHandler() *VersionHandler {
	return &VersionHandler{}
}

// Routes registers version routes on the given router
func (h *VersionHandler) Routes(r chi.Router) {
	r.Get("/", h.GetVersion)
}

type VersionResponse struct {
	Version string `json:"version"`
	Commit  string `json:"commit,omitempty"`
	Date    string `json:"date,omitempty"`
}

func (h *VersionHandler) GetVersion(w http.ResponseWriter, r *http.Request) {
	RespondJSON(w, http.StatusOK, VersionResponse{
		Version: buildinfo.Version,
		Commit:  buildinfo.Commit,
		Date:    buildinfo.Date,
	})
}
