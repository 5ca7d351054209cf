// cmd/activityapi serves the activities JSON API the board consumes.
// It wires store, service and handler layers and starts the HTTP server.
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

	"github.com/Shivanand-hulikatti/activity-board/internal/config"
	"github.com/Shivanand-hulikatti/activity-board/internal/database"
	"github.com/Shivanand-hulikatti/activity-board/internal/handler"
	"github.com/Shivanand-hulikatti/activity-board/internal/middleware"
	"github.com/Shivanand-hulikatti/activity-board/internal/repository"
	"github.com/Shivanand-hulikatti/activity-board/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger := cfg.NewLogger(os.Stderr)
	slog.SetDefault(logger)

	ctx := context.Background()

	// ── 1. Open the activity store ───────────────────────────────────────
	repo, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("store_open_failed", "store", cfg.Store, "error", err)
		os.Exit(1)
	}
	defer closeStore()
	logger.Info("store_ready", "store", cfg.Store)

	if cfg.Seed {
		if err := repo.Seed(ctx, repository.DefaultCatalog()); err != nil {
			logger.Error("seed_failed", "error", err)
			os.Exit(1)
		}
	}

	// ── 2. Wire up layers ────────────────────────────────────────────────
	svc := service.NewActivityService(repo)
	h := handler.NewActivityHandler(svc, logger)

	var limiter *middleware.RateLimiter
	if cfg.RateLimitRPS > 0 {
		limiter = middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	}

	// ── 3. Start server with graceful shutdown ────────────────────────────
	srv := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      handler.NewRouter(h, logger, limiter),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server_listening", "addr", "http://localhost:"+cfg.APIPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server_error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server_shutting_down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful_shutdown_failed", "error", err)
		return
	}
	logger.Info("server_stopped")
}

// openStore returns the configured repository and a func releasing its
// connections.
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (repository.Repository, func(), error) {
	switch cfg.Store {
	case config.StoreSQLite:
		db, err := database.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return repository.NewSQLiteRepository(db), func() { db.Close() }, nil

	case config.StorePostgres:
		pool, err := database.NewPool(ctx, cfg.PostgresDSN(), logger)
		if err != nil {
			return nil, nil, err
		}
		if err := database.MigratePostgres(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return repository.NewPostgresRepository(pool), pool.Close, nil

	default:
		return repository.NewMemoryRepository(), func() {}, nil
	}
}
