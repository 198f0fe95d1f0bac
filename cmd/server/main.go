package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"agro-crm/internal/blob"
	"agro-crm/internal/config"
	"agro-crm/internal/consultant"
	"agro-crm/internal/database"
	"agro-crm/internal/infra"
	"agro-crm/internal/phenology"
	"agro-crm/internal/server"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	zerolog.TimeFieldFormat = time.RFC3339
	if !cfg.IsProduction() {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}

	stages, err := phenology.DefaultCatalog()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load phenology catalog")
	}
	if err := database.Seed(db, cfg, stages); err != nil {
		log.Fatal().Err(err).Msg("failed to seed database")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var rdb *redis.Client
	if cfg.RedisURL != "" {
		rdb, err = infra.NewRedis(ctx, cfg.RedisURL)
		if err != nil {
			log.Warn().Err(err).Msg("redis unavailable, schedule cache disabled")
			rdb = nil
		}
	}

	blobs, err := blob.Open(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open photo storage")
	}
	consultants, err := consultant.Parse(cfg.Consultants)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid CONSULTANTS")
	}

	r, err := server.NewRouter(server.Deps{
		Config:      cfg,
		DB:          db,
		Redis:       rdb,
		Blobs:       blobs,
		Consultants: consultants,
		Catalog:     server.NewStageCatalog(ctx, db, rdb, cfg.ScheduleCacheTTL),
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build router")
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Str("blob", string(blobs.Driver())).Msg("agro-crm listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("forced shutdown")
	}
	if rdb != nil {
		_ = rdb.Close()
	}
}
