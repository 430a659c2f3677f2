// Command api runs the LMS normalization HTTP server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/skillmint/lms-data/internal/api"
	"github.com/skillmint/lms-data/internal/api/handler"
	"github.com/skillmint/lms-data/internal/cache"
	"github.com/skillmint/lms-data/internal/config"
	"github.com/skillmint/lms-data/internal/db"
)

func main() {
	// .env is optional; real deployments set env vars directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	logLevel := slog.LevelInfo
	if cfg.Debug {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Persistence is optional. Without DATABASE_URL the API still serves
	// fetch-and-normalize traffic; background archival and the /api/v1/archive
	// endpoints are disabled.
	var pool *db.Pool
	if cfg.HasDatabase() {
		pool, err = db.New(ctx, cfg)
		if err != nil {
			logger.Error("database connection failed", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		logger.Info("database connected")
	} else {
		logger.Info("no DATABASE_URL set, running without persistence")
	}

	responseCache := cache.New(cfg.CacheEnabled)

	h := handler.New(cfg, pool, responseCache, logger)
	router := api.NewRouter(cfg, h)

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.APIHost, cfg.APIPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      90 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		logger.Info("api server starting",
			"addr", srv.Addr,
			"environment", cfg.Environment,
			"cache_enabled", cfg.CacheEnabled,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}
