package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"jortega/reviewscout/api"
	"jortega/reviewscout/config"
	"jortega/reviewscout/logger"
	"jortega/reviewscout/services/store"

	"github.com/joho/godotenv"
)

func main() {
	godotenv.Load()

	logger.Init()
	log := logger.Default

	cfg := config.LoadConfig()
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	pgStore, err := store.NewPostgresStore(cfg.PostgresDSN, cfg.APIPageSizeLimit)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to postgres")
	}
	defer pgStore.Close()

	server := api.NewServer(pgStore, &cfg)
	httpServer := &http.Server{
		Addr:         cfg.APIAddr,
		Handler:      server.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	serverDone := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.APIAddr).Msg("API listening")
		serverDone <- httpServer.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(ctx); err != nil {
			log.Error().Err(err).Msg("Shutdown did not finish cleanly")
		}
	case err := <-serverDone:
		if err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("API server failed")
		}
	}

	log.Info().Msg("Shutting down gracefully...")
}
