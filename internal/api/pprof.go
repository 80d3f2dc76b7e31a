// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package api

import (
	"fmt"
	"net/http"
	_ "net/http/pprof"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/autobrr/gapwatch/internal/config"
)

// StartPprofServer starts the pprof profiling server if enabled
func StartPprofServer(cfg *config.AppConfig) error {
	if !cfg.Config.PprofEnabled {
		return nil
	}

	pprofAddr := fmt.Sprintf("%s:%d", cfg.Config.PprofHost, cfg.Config.PprofPort)

	r := chi.NewRouter()

	// Standard pprof endpoints land in http.DefaultServeMux via the
	// net/http/pprof import.
	r.HandleFunc("/debug/pprof/*", func(w http.ResponseWriter, req *http.Request) {
		http.DefaultServeMux.ServeHTTP(w, req)
	})

	go func() {
		log.Info().Msgf("Starting pprof server on %s", pprofAddr)
		log.Info().Msgf("Access profiling at: http://%s/debug/pprof/", pprofAddr)

		if err := http.ListenAndServe(pprofAddr, r); err != nil {
			log.Error().Err(err).Msg("Profiling server failed")
		}
	}()

	return nil
}
