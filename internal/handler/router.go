package handler

import (
	"log/slog"
	"net/http"

	"github.com/Shivanand-hulikatti/activity-board/internal/middleware"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// NewRouter builds the activities API router. limiter may be nil.
func NewRouter(h *ActivityHandler, logger *slog.Logger, limiter *middleware.RateLimiter) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CORS)
	if limiter != nil {
		r.Use(limiter.Middleware)
	}

	r.Get("/health", HealthCheck)
	h.Routes(r)

	return r
}
