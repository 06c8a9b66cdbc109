package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/99minutos/catalog-system/internal/api"
	"github.com/99minutos/catalog-system/internal/infrastructure/persistence"
	"github.com/99minutos/catalog-system/internal/pkg/config"
	"github.com/99minutos/catalog-system/pkg/logger"
)

// @title                       Catalog API
// @version                     1.0
// @description                 Generic CRUD over items and their properties.
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
func main() {
	cfg := config.Load()

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.IsDevelopment(),
		Service: "catalog-system",
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backend, err := persistence.Open(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.Backend).Msg("failed to open persistence")
	}

	e := api.NewRouter(backend, api.Options{
		JWTSecret: cfg.JWTSecret,
		TokenTTL:  24 * time.Hour,
		Logger:    log,
	})

	go func() {
		log.Info().Str("port", cfg.Port).Msg("starting server")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server stopped unexpectedly")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
	if err := backend.Close(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("closing persistence")
	}
}
