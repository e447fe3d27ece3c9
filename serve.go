package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/isdelr/pitchzone-be/internal/api"
	"github.com/isdelr/pitchzone-be/internal/auth"
	"github.com/isdelr/pitchzone-be/internal/monitoring"
	"github.com/isdelr/pitchzone-be/internal/response"
	"github.com/isdelr/pitchzone-be/internal/services"
	"github.com/isdelr/pitchzone-be/internal/websocket"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API and live funding feed",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, db, err := setup()
	if err != nil {
		return err
	}
	defer db.Close()

	response.SetProduction(cfg.IsProduction())

	g, ctx := errgroup.WithContext(cmd.Context())

	// Set up WebSocket Hub
	hub := websocket.NewHub()
	g.Go(func() error {
		hub.Run(ctx)
		return nil
	})

	// Set up services
	eventService := services.NewEventService(db)
	userService := services.NewUserService(db, eventService)
	pitchService := services.NewPitchService(db, eventService)
	fundingService := services.NewFundingService(db, hub)
	statsService := services.NewStatsService(db, userService, pitchService)

	// Set up and run the background scheduler
	scheduler, err := monitoring.NewScheduler(cfg.MaintenanceSchedule, cfg.EventRetention, eventService, statsService)
	if err != nil {
		return err
	}
	if err := scheduler.Start(); err != nil {
		return err
	}
	defer scheduler.Stop()

	router := api.NewRouter(api.Dependencies{
		Config:  cfg,
		DB:      db,
		Hub:     hub,
		Tokens:  auth.NewTokenManager(cfg.JWTSecret),
		Users:   userService,
		Pitches: pitchService,
		Funding: fundingService,
		Stats:   statsService,
		Events:  eventService,
		System:  monitoring.NewSystemSampler(filepath.Dir(cfg.DatabasePath)),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g.Go(func() error {
		log.Info().Int("port", cfg.ServerPort).Str("env", cfg.Environment).Msg("Server starting")
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})

	// Graceful shutdown
	g.Go(func() error {
		<-ctx.Done()
		log.Info().Msg("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info().Msg("Server exiting")
	return nil
}
