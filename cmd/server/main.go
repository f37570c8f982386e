package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/diewo77/devinvoice/auth"
	"github.com/diewo77/devinvoice/internal/config"
	"github.com/diewo77/devinvoice/internal/db"
	"github.com/diewo77/devinvoice/internal/logger"
	"github.com/diewo77/devinvoice/internal/mail"
	"github.com/diewo77/devinvoice/internal/policy"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

var migrateOnlyFlag = flag.Bool("migrate-only", false, "Run DB migrations and exit")

func main() {
	flag.Parse()

	// Load environment variables from .env file
	_ = godotenv.Load()

	// Load configuration from environment
	cfg := config.Load()

	if err := logger.Setup(cfg.Log); err != nil {
		log.Fatal().Err(err).Msg("invalid log configuration")
	}
	auth.SetSecret(cfg.App.SessionSecret)

	conn, err := db.Open(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}

	// Handle migrate-only flag
	if *migrateOnlyFlag {
		mode := cfg.App.Migrations
		if mode == db.MigrateOff {
			mode = db.MigrateAuto
		}
		if err := db.Apply(conn, mode, cfg.Database); err != nil {
			log.Fatal().Err(err).Msg("migration failed")
		}
		log.Info().Str("mode", mode).Msg("migrations completed successfully")
		return
	}

	// Run migrations on startup if enabled
	if err := db.Apply(conn, cfg.App.Migrations, cfg.Database); err != nil {
		log.Fatal().Err(err).Msg("migration failed")
	}

	sender := mail.NewSender(cfg.Mail, logger.WithComponent("mail"))
	routerCfg := policy.NewRouterConfig(conn, cfg.Sequence, sender)

	// Sessions of deleted users are rejected.
	auth.SetUserVerifier(routerCfg.UserExists)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      NewApp(routerCfg, cfg.App.MetricsPath),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Server.Port).Bool("dev", cfg.App.Dev).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("error during shutdown")
	}
	log.Info().Msg("server stopped gracefully")
}
