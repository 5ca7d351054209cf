// cmd/board serves the activity board web front-end.
package main

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Shivanand-hulikatti/activity-board/internal/board"
	"github.com/Shivanand-hulikatti/activity-board/internal/client"
	"github.com/Shivanand-hulikatti/activity-board/internal/config"
	"github.com/Shivanand-hulikatti/activity-board/internal/web"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger := cfg.NewLogger(os.Stderr)
	slog.SetDefault(logger)

	// ── 1. CSRF key ──────────────────────────────────────────────────────
	csrfKey, err := loadCSRFKey(cfg, logger)
	if err != nil {
		logger.Error("csrf_key_invalid", "error", err)
		os.Exit(1)
	}

	// ── 2. Wire up the board ─────────────────────────────────────────────
	api := client.New(cfg.APIBaseURL, client.WithTimeout(cfg.APITimeout))

	mode := board.NotifyGeneration
	if cfg.NotifyMode == config.NotifyLegacy {
		mode = board.NotifyLegacy
	}

	router := web.NewRouter(web.Options{
		API: api,
		BoardOptions: []board.Option{
			board.WithNotificationTTL(cfg.NotificationTTL),
			board.WithNotifyMode(mode),
		},
		CSRFKey:     csrfKey,
		Secure:      cfg.IsProduction(),
		SessionIdle: cfg.SessionIdle,
		Logger:      logger,
	})

	// ── 3. Start server with graceful shutdown ────────────────────────────
	srv := &http.Server{
		Addr:         ":" + cfg.BoardPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.APITimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server_listening", "addr", "http://localhost:"+cfg.BoardPort, "api", cfg.APIBaseURL)
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

// loadCSRFKey returns the configured key. Production requires one; in
// development a random key is generated per startup.
func loadCSRFKey(cfg *config.Config, logger *slog.Logger) ([]byte, error) {
	key, err := cfg.CSRFKeyBytes()
	if err != nil {
		return nil, err
	}
	if key != nil {
		return key, nil
	}
	if cfg.IsProduction() {
		return nil, errors.New("BOARD_CSRF_KEY must be set in production")
	}
	key = make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generate csrf key: %w", err)
	}
	logger.Warn("csrf_key_generated", "reason", "BOARD_CSRF_KEY not set")
	return key, nil
}
