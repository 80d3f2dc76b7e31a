// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/autobrr/gapwatch/internal/api"
	"github.com/autobrr/gapwatch/internal/buildinfo"
	"github.com/autobrr/gapwatch/internal/catalog"
	"github.com/autobrr/gapwatch/internal/config"
	"github.com/autobrr/gapwatch/internal/database"
	"github.com/autobrr/gapwatch/internal/logger"
	"github.com/autobrr/gapwatch/internal/mediaserver"
	"github.com/autobrr/gapwatch/internal/models"
	"github.com/autobrr/gapwatch/internal/services/reconcile"
	"github.com/autobrr/gapwatch/internal/services/snapshot"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "gapwatch",
		Short: "Find the gaps in your media library",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(configPath)
		},
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config.toml or its directory")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(configPath)
		},
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Print(buildinfo.String())
		},
	}

	rootCmd.AddCommand(serveCmd, versionCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serve(configPath string) error {
	cfg, err := config.New(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := logger.EnsureLogDir(cfg.Config); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	logger.Setup(cfg.Config)

	db, err := database.New(cfg.GetDatabasePath())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	personStore := models.NewPersonStore(db)
	movieStore := models.NewMovieStore(db)
	showStore := models.NewShowStore(db)
	episodeStore := models.NewEpisodeStore(db)
	missingMovieStore := models.NewMissingMovieStore(db)
	missingEpisodeStore := models.NewMissingEpisodeStore(db)
	ignoreStore := models.NewIgnoreStore(db)
	settingsStore := models.NewSettingsStore(db)

	server := mediaserver.NewClient(mediaserver.Options{
		URLs:             cfg.Config.PlexURLs,
		Token:            cfg.Config.PlexToken,
		ClientID:         cfg.Config.PlexClientID,
		ServerIdentifier: cfg.Config.PlexServerID,
	})
	catalogClient := catalog.NewClient(catalog.Options{
		APIKey:    cfg.Config.TMDBAPIKey,
		ImageBase: cfg.Config.TMDBImageBase,
	})

	reconciler := reconcile.NewService(reconcile.Deps{
		DB:                  db,
		Catalog:             catalogClient,
		Library:             server,
		PersonStore:         personStore,
		MovieStore:          movieStore,
		ShowStore:           showStore,
		EpisodeStore:        episodeStore,
		MissingMovieStore:   missingMovieStore,
		MissingEpisodeStore: missingEpisodeStore,
		IgnoreStore:         ignoreStore,
		NewWindowDays:       cfg.Config.NewWindowDays,
		SeasonWorkers:       cfg.Config.SeasonWorkers,
	})
	snapshots := snapshot.NewService(snapshot.Deps{
		DB:            db,
		Server:        server,
		PersonStore:   personStore,
		MovieStore:    movieStore,
		ShowStore:     showStore,
		EpisodeStore:  episodeStore,
		SettingsStore: settingsStore,
	})

	if err := api.StartPprofServer(cfg); err != nil {
		return err
	}

	httpServer := api.NewServer(&api.Dependencies{
		Config:              cfg,
		Reconciler:          reconciler,
		Snapshots:           snapshots,
		Images:              server,
		PersonStore:         personStore,
		ShowStore:           showStore,
		IgnoreStore:         ignoreStore,
		MissingMovieStore:   missingMovieStore,
		MissingEpisodeStore: missingEpisodeStore,
		SettingsStore:       settingsStore,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info().Str("version", buildinfo.Version).Msg("starting gapwatch")
	return httpServer.ListenAndServe(ctx)
}
