// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/autobrr/gapwatch/internal/mediaserver"
)

// ImageFetcher proxies image bytes from the media server.
type ImageFetcher interface {
	FetchImage(ctx context.Context, path string) ([]byte, string, error)
}

type ImagesHandler struct {
	fetcher ImageFetcher
}

func NewImagesHandler(fetcher ImageFetcher) *ImagesHandler {
	return &ImagesHandler{fetcher: fetcher}
}

// Routes registers image proxy routes on the given router
func (h *ImagesHandler) Routes(r chi.Router) {
	r.Get("/library", h.GetLibraryImage)
}

func (h *ImagesHandler) GetLibraryImage(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if !strings.HasPrefix(path, "/") {
		RespondError(w, http.StatusBadRequest, "path must be an absolute library path")
		return
	}

	data, contentType, err := h.fetcher.FetchImage(r.Context(), path)
	if err != nil {
		if errors.Is(err, mediaserver.ErrNotConfigured) {
			RespondError(w, http.StatusBadRequest, "Media server is not configured")
			return
		}
		log.Debug().Err(err).Str("path", path).Msg("Failed to proxy library image")
		RespondError(w, http.StatusBadGateway, "Failed to fetch image")
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		log.Debug().Err(err).Msg("Failed to write image response")
	}
}
