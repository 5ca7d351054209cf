// Package service implements validation and messages for the activities API,
// between HTTP handlers and the repository layer.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Shivanand-hulikatti/activity-board/internal/model"
	"github.com/Shivanand-hulikatti/activity-board/internal/repository"
)

// ErrInvalidEmail is returned when the email is missing or malformed.
var ErrInvalidEmail = errors.New("a valid email is required")

// ActivityService orchestrates activity signups.
type ActivityService struct {
	activities repository.Repository
}

// NewActivityService constructs an ActivityService with its repository.
func NewActivityService(activities repository.Repository) *ActivityService {
	return &ActivityService{activities: activities}
}

// ListActivities returns the full catalog.
func (s *ActivityService) ListActivities(ctx context.Context) (model.Catalog, error) {
	catalog, err := s.activities.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	return catalog, nil
}

// Signup validates the email and adds it to the activity's roster.
// It returns the confirmation message shown to the user.
func (s *ActivityService) Signup(ctx context.Context, activity, email string) (string, error) {
	email = strings.TrimSpace(email)
	if !isValidEmail(email) {
		return "", ErrInvalidEmail
	}

	if err := s.activities.Signup(ctx, activity, email); err != nil {
		if isDomainError(err) {
			return "", err
		}
		return "", fmt.Errorf("signup: %w", err)
	}
	return fmt.Sprintf("Signed up %s for %s", email, activity), nil
}

// Unregister removes the email from the activity's roster.
func (s *ActivityService) Unregister(ctx context.Context, activity, email string) (string, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return "", ErrInvalidEmail
	}

	if err := s.activities.Unregister(ctx, activity, email); err != nil {
		if isDomainError(err) {
			return "", err
		}
		return "", fmt.Errorf("unregister: %w", err)
	}
	return fmt.Sprintf("Unregistered %s from %s", email, activity), nil
}

func isDomainError(err error) bool {
	return errors.Is(err, repository.ErrNotFound) ||
		errors.Is(err, repository.ErrActivityFull) ||
		errors.Is(err, repository.ErrAlreadyRegistered) ||
		errors.Is(err, repository.ErrAlreadyInOther) ||
		errors.Is(err, repository.ErrParticipantNotFound)
}

// isValidEmail does a basic structural check.
func isValidEmail(email string) bool {
	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return false
	}
	return len(parts[0]) > 0 && strings.Contains(parts[1], ".")
}
