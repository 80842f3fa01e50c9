package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"itam-api/internal"
	"itam-api/internal/config"
	"itam-api/internal/inventory"
	"itam-api/internal/store/imagefs"
	"itam-api/internal/store/postgres"
	"itam-api/pkg/importer"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	_ = godotenv.Load()

	cfg, err := config.LoadAndValidate()
	if err != nil {
		l := zerolog.New(os.Stderr)
		l.Fatal().Err(err).Msg("configuration error")
	}
	log := newLogger(cfg)

	if err := cfg.RequireDatabase(); err != nil {
		log.Fatal().Err(err).Msg("configuration error")
	}

	if cfg.MigrateOnStart {
		if err := postgres.MigrateDSN(ctx, cfg.DBDSN); err != nil {
			log.Fatal().Err(err).Msg("migrate database")
		}
		log.Info().Msg("migrations applied")
	}

	pool, err := postgres.Open(ctx, cfg.DBDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("connect database")
	}
	defer pool.Close()
	store := postgres.New(pool)

	images, err := imagefs.New(cfg.ImageDir)
	if err != nil {
		log.Fatal().Err(err).Str("dir", cfg.ImageDir).Msg("open image store")
	}

	var mapping *importer.Mapping
	if cfg.ImportMapping != "" {
		mapping, err = importer.LoadMapping(cfg.ImportMapping)
		if err != nil {
			log.Fatal().Err(err).Str("path", cfg.ImportMapping).Msg("load import mapping")
		}
	}

	metrics := internal.NewMetrics()
	svc := inventory.NewService(store, inventory.Options{
		ComputerTypes: cfg.ComputerTypes,
		HistoryLimit:  cfg.HistoryLimit,
		Recorder:      metrics,
		Images:        images,
		Logger:        &log,
	})

	srv, err := internal.NewServer(cfg, internal.Deps{
		Service: svc,
		Metrics: metrics,
		DB:      store,
		Mapping: mapping,
		Logger:  log,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("build server")
	}

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().
			Str("addr", cfg.Addr).
			Str("issuer", cfg.JWTIssuer).
			Dur("jwt_expiry", cfg.JWTExpiry).
			Msg("starting itam-api")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server")
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown server")
	}
	log.Info().Msg("server stopped")
}

func newLogger(cfg *config.Config) zerolog.Logger {
	var log zerolog.Logger
	if cfg.IsProduction() {
		log = zerolog.New(os.Stdout)
	} else {
		log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
	return log.Level(cfg.Level()).With().Timestamp().Logger()
}
