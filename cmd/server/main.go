// Package main is the entry point for the analogs scoring service.
//
// The service scores model portfolios against a benchmark fund over
// historical market analogs, serving results from a versioned score cache
// and computing them live on a miss.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aristath/analogs/internal/config"
	"github.com/aristath/analogs/internal/di"
	"github.com/aristath/analogs/internal/scheduler"
	"github.com/aristath/analogs/internal/server"
	"github.com/aristath/analogs/pkg/logger"
)

// databaseCheckSchedule runs integrity checks and WAL checkpoints nightly
const databaseCheckSchedule = "0 30 4 * * *"

func main() {
	// Load configuration first to get log level
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{
			Level:  "info",
			Pretty: true,
		})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})
	logger.SetGlobalLogger(log)

	log.Info().Str("data_dir", cfg.DataDir).Msg("Starting analogs service")

	container, err := di.Wire(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to wire dependencies")
	}
	defer container.Close()

	// Background jobs
	sched := scheduler.New(log)
	if cfg.Scenario.PopulateSchedule != "" {
		if err := sched.AddJob(cfg.Scenario.PopulateSchedule, container.PopulateJob); err != nil {
			log.Fatal().Err(err).Msg("Failed to schedule cache population")
		}
	} else {
		log.Warn().Msg("Scenario cache population schedule disabled")
	}
	if err := sched.AddJob(databaseCheckSchedule, container.CheckDatabasesJob); err != nil {
		log.Fatal().Err(err).Msg("Failed to schedule database checks")
	}
	sched.Start()

	srv := server.New(server.Config{
		Log:       log,
		Port:      cfg.Port,
		DevMode:   cfg.DevMode,
		Container: container,
	})

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Cancel an in-flight population so the scheduler can drain
	container.PopulateJob.Stop()
	sched.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}
