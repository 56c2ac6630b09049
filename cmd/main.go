package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/newsbrief-ai/newsbrief/internal/api"
	"github.com/newsbrief-ai/newsbrief/internal/config"
	"github.com/newsbrief-ai/newsbrief/internal/logger"
	"github.com/newsbrief-ai/newsbrief/internal/middleware"
	"github.com/newsbrief-ai/newsbrief/internal/pipeline"
	"github.com/newsbrief-ai/newsbrief/internal/scheduler"
	"github.com/newsbrief-ai/newsbrief/internal/store"
)

func main() {
	cfg := config.Load()

	if err := logger.Init(logger.Config{
		Level:  cfg.LogLevel,
		Output: "stdout",
		Pretty: cfg.LogPretty,
	}); err != nil {
		panic(err)
	}

	log := logger.Get()
	log.Info().Str("env", cfg.Env).Msg("Starting newsbrief...")

	st, err := store.Open(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open database")
	}
	defer func() {
		if err := st.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing database")
		}
	}()

	p, cleanup, err := pipeline.Bootstrap(context.Background(), cfg, st)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build pipeline")
	}
	defer cleanup()

	sched := scheduler.New(cfg, p)
	if err := sched.Start(); err != nil {
		log.Fatal().Err(err).Msg("Failed to start scheduler")
	}
	defer sched.Stop()

	app := fiber.New(fiber.Config{
		ReadTimeout:  cfg.HTTPTimeout,
		WriteTimeout: cfg.HTTPTimeout,
		IdleTimeout:  120 * time.Second,
		ErrorHandler: middleware.ErrorHandler,
	})

	api.SetupRoutes(app, api.NewHandlers(cfg, st, p), cfg.AdminAPIKey)

	go func() {
		log.Info().Str("port", cfg.Port).Msg("Starting server")
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited properly")
}
