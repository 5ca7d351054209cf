package repository

import (
	"context"
	"sync"

	"github.com/Shivanand-hulikatti/activity-board/internal/model"
)

// MemoryRepository keeps the catalog in process memory.
type MemoryRepository struct {
	mu         sync.Mutex
	activities model.Catalog
}

// NewMemoryRepository constructs an empty MemoryRepository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

// List returns a copy of the catalog.
func (r *MemoryRepository) List(_ context.Context) (model.Catalog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.activities == nil {
		return model.Catalog{}, nil
	}
	return r.activities.Clone(), nil
}

// Signup applies the same checks as the SQL stores under a single lock.
func (r *MemoryRepository) Signup(_ context.Context, activity, email string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.activities.Find(activity)
	if !ok {
		return ErrNotFound
	}
	if a.HasParticipant(email) {
		return ErrAlreadyRegistered
	}
	for i := range r.activities {
		if r.activities[i].Name != activity && r.activities[i].HasParticipant(email) {
			return ErrAlreadyInOther
		}
	}
	if a.IsFull() {
		return ErrActivityFull
	}
	a.Participants = append(a.Participants, email)
	return nil
}

// Unregister removes email from the roster, keeping the order of the rest.
func (r *MemoryRepository) Unregister(_ context.Context, activity, email string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.activities.Find(activity)
	if !ok {
		return ErrNotFound
	}
	for i, p := range a.Participants {
		if p == email {
			a.Participants = append(a.Participants[:i:i], a.Participants[i+1:]...)
			return nil
		}
	}
	return ErrParticipantNotFound
}

// Seed replaces an empty catalog with a copy of catalog.
func (r *MemoryRepository) Seed(_ context.Context, catalog model.Catalog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.activities) > 0 {
		return nil
	}
	r.activities = catalog.Clone()
	return nil
}
