// Package handler contains chi HTTP handlers that translate activities API
// requests/responses to and from the service layer.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/Shivanand-hulikatti/activity-board/internal/model"
	"github.com/Shivanand-hulikatti/activity-board/internal/repository"
	"github.com/Shivanand-hulikatti/activity-board/internal/service"
	"github.com/go-chi/chi/v5"
)

// ActivityHandler holds all HTTP handlers for the activities API.
type ActivityHandler struct {
	svc    *service.ActivityService
	logger *slog.Logger
}

// NewActivityHandler constructs an ActivityHandler.
func NewActivityHandler(svc *service.ActivityService, logger *slog.Logger) *ActivityHandler {
	return &ActivityHandler{svc: svc, logger: logger}
}

// Routes mounts the activity endpoints on r.
func (h *ActivityHandler) Routes(r chi.Router) {
	r.Get("/activities", h.ListActivities)
	r.Post("/activities/{activity}/signup", h.Signup)
	r.Delete("/activities/{activity}/participants", h.Unregister)
}

// ─── Helper utilities ─────────────────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, model.ErrorResponse{Detail: detail})
}

// activityParam returns the decoded {activity} path segment. chi matches on
// RawPath when the request carried escapes such as %2F, in which case the
// parameter is still escaped.
func activityParam(r *http.Request) string {
	v := chi.URLParam(r, "activity")
	if r.URL.RawPath != "" {
		if u, err := url.PathUnescape(v); err == nil {
			return u
		}
	}
	return v
}

// writeDomainError maps service and repository errors to status codes.
func (h *ActivityHandler) writeDomainError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidEmail):
		writeError(w, http.StatusBadRequest, "A valid email is required")
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "Activity not found")
	case errors.Is(err, repository.ErrParticipantNotFound):
		writeError(w, http.StatusNotFound, "Participant not found")
	case errors.Is(err, repository.ErrAlreadyRegistered):
		writeError(w, http.StatusBadRequest, "Student is already signed up")
	case errors.Is(err, repository.ErrAlreadyInOther):
		writeError(w, http.StatusBadRequest, "Student is already signed up for another activity")
	case errors.Is(err, repository.ErrActivityFull):
		writeError(w, http.StatusBadRequest, "Activity is full")
	default:
		h.logger.Error(op+"_failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

// ─── Handlers ─────────────────────────────────────────────────────────────────

// ListActivities handles GET /activities
// Returns a JSON object mapping activity name to its record.
func (h *ActivityHandler) ListActivities(w http.ResponseWriter, r *http.Request) {
	catalog, err := h.svc.ListActivities(r.Context())
	if err != nil {
		h.logger.Error("list_activities_failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to list activities")
		return
	}
	writeJSON(w, http.StatusOK, catalog)
}

// Signup handles POST /activities/{activity}/signup?email=
func (h *ActivityHandler) Signup(w http.ResponseWriter, r *http.Request) {
	activity := activityParam(r)
	msg, err := h.svc.Signup(r.Context(), activity, r.URL.Query().Get("email"))
	if err != nil {
		h.writeDomainError(w, "signup", err)
		return
	}
	h.logger.Info("participant_signed_up", "activity", activity)
	writeJSON(w, http.StatusOK, model.MessageResponse{Message: msg})
}

// Unregister handles DELETE /activities/{activity}/participants?email=
func (h *ActivityHandler) Unregister(w http.ResponseWriter, r *http.Request) {
	activity := activityParam(r)
	msg, err := h.svc.Unregister(r.Context(), activity, r.URL.Query().Get("email"))
	if err != nil {
		h.writeDomainError(w, "unregister", err)
		return
	}
	h.logger.Info("participant_unregistered", "activity", activity)
	writeJSON(w, http.StatusOK, model.MessageResponse{Message: msg})
}

// ─── Health check ─────────────────────────────────────────────────────────────

// HealthCheck handles GET /health
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
