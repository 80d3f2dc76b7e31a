// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"

	"github.com/autobrr/gapwatch/internal/api/handlers"
	"github.com/autobrr/gapwatch/internal/config"
	"github.com/autobrr/gapwatch/internal/metrics"
	"github.com/autobrr/gapwatch/internal/models"
	"github.com/autobrr/gapwatch/internal/services/reconcile"
	"github.com/autobrr/gapwatch/internal/services/snapshot"
)

// Dependencies wires the HTTP server.
type Dependencies struct {
	Config *config.AppConfig

	Reconciler *reconcile.Service
	Snapshots  *snapshot.Service
	Images     handlers.ImageFetcher

	PersonStore         *models.PersonStore
	ShowStore           *models.ShowStore
	IgnoreStore         *models.IgnoreStore
	MissingMovieStore   *models.MissingMovieStore
	MissingEpisodeStore *models.MissingEpisodeStore
	SettingsStore       *models.SettingsStore
}

// Server is the HTTP front of the application.
type Server struct {
	deps *Dependencies
}

// NewServer creates the HTTP server from its dependencies.
func NewServer(deps *Dependencies) *Server {
	return &Server{deps: deps}
}

// Handler builds the full route tree.
func (s *Server) Handler() (http.Handler, error) {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Compress(5))
	r.Use(requestLogger)
	r.Use(securityHeaders)

	c := cors.New(cors.Options{
		AllowOriginFunc: func(origin string) bool {
			return true
		},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
		MaxAge:           300,
	})
	r.Use(c.Handler)

	healthHandler := handlers.NewHealthHandler()
	versionHandler := handlers.NewVersionHandler()
	configHandler := handlers.NewConfigHandler(s.deps.Config)
	personsHandler := handlers.NewPersonsHandler(s.deps.Reconciler, s.deps.PersonStore, s.deps.IgnoreStore)
	showsHandler := handlers.NewShowsHandler(s.deps.Reconciler, s.deps.ShowStore, s.deps.IgnoreStore)
	scansHandler := handlers.NewScansHandler(s.deps.Snapshots, s.deps.SettingsStore)
	calendarHandler := handlers.NewCalendarHandler(s.deps.MissingMovieStore, s.deps.MissingEpisodeStore)
	imagesHandler := handlers.NewImagesHandler(s.deps.Images)

	r.Route(s.baseRoute("/api"), func(r chi.Router) {
		r.Route("/health", healthHandler.Routes)
		r.Route("/version", versionHandler.Routes)
		configHandler.RegisterRoutes(r)
		r.Route("/persons", personsHandler.Routes)
		r.Route("/shows", showsHandler.Routes)
		r.Route("/scan", scansHandler.Routes)
		r.Route("/calendar", calendarHandler.Routes)
		r.Route("/images", imagesHandler.Routes)
	})

	if s.deps.Config.Config.MetricsEnabled {
		r.Handle("/metrics", metrics.Handler())
	}

	return r, nil
}

func (s *Server) baseRoute(path string) string {
	base := strings.TrimSuffix(s.deps.Config.Config.BaseURL, "/")
	if base == "" {
		return path
	}
	if !strings.HasPrefix(base, "/") {
		base = "/" + base
	}
	return base + path
}

// ListenAndServe runs the server until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	handler, err := s.Handler()
	if err != nil {
		return err
	}

	cfg := s.deps.Config.Config
	addr := net.JoinHostPort(cfg.Host, fmt.Sprintf("%d", cfg.Port))
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 15 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("http server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shut down http server: %w", err)
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// requestLogger emits one structured log line per request.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("elapsed", time.Since(start)).
			Msg("http request")
	})
}

// securityHeaders sets conservative browser defaults on every response.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "same-origin")
		next.ServeHTTP(w, r)
	})
}
