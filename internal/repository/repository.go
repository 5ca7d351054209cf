// Package repository stores activities and their participant rosters.
// Three implementations share one contract: in memory, SQLite and PostgreSQL.
package repository

import (
	"context"
	"errors"

	"github.com/Shivanand-hulikatti/activity-board/internal/model"
)

// ErrNotFound is returned when the named activity does not exist.
var ErrNotFound = errors.New("activity not found")

// ErrActivityFull is returned when an activity has no remaining spots.
var ErrActivityFull = errors.New("activity is full")

// ErrAlreadyRegistered is returned when the email is already on the activity's roster.
var ErrAlreadyRegistered = errors.New("student is already signed up")

// ErrAlreadyInOther is returned when the email is on another activity's roster.
// A student may hold a place in one activity at a time.
var ErrAlreadyInOther = errors.New("student is already signed up for another activity")

// ErrParticipantNotFound is returned when unregistering an email that is not on the roster.
var ErrParticipantNotFound = errors.New("participant not found")

// Repository persists the activity catalog.
type Repository interface {
	// List returns every activity in catalog order with its roster in signup order.
	List(ctx context.Context) (model.Catalog, error)
	// Signup adds email to the named activity's roster.
	Signup(ctx context.Context, activity, email string) error
	// Unregister removes email from the named activity's roster.
	Unregister(ctx context.Context, activity, email string) error
	// Seed inserts the given activities when the store holds none.
	Seed(ctx context.Context, catalog model.Catalog) error
}

// DefaultCatalog is the starting set of activities for an empty store.
func DefaultCatalog() model.Catalog {
	return model.Catalog{
		{
			Name:            "Chess Club",
			Description:     "Learn strategies and compete in chess tournaments",
			Schedule:        "Fridays, 3:30 PM - 5:00 PM",
			MaxParticipants: 12,
			Participants:    []string{"michael@mergington.edu", "daniel@mergington.edu"},
		},
		{
			Name:            "Programming Class",
			Description:     "Learn programming fundamentals and build software projects",
			Schedule:        "Tuesdays and Thursdays, 3:30 PM - 4:30 PM",
			MaxParticipants: 20,
			Participants:    []string{"emma@mergington.edu", "sophia@mergington.edu"},
		},
		{
			Name:            "Gym Class",
			Description:     "Physical education and sports activities",
			Schedule:        "Mondays, Wednesdays, Fridays, 2:00 PM - 3:00 PM",
			MaxParticipants: 30,
			Participants:    []string{"john@mergington.edu", "olivia@mergington.edu"},
		},
		{
			Name:            "Soccer Team",
			Description:     "Join the school soccer team and compete in matches",
			Schedule:        "Tuesdays and Thursdays, 4:00 PM - 5:30 PM",
			MaxParticipants: 22,
			Participants:    []string{"liam@mergington.edu", "noah@mergington.edu"},
		},
		{
			Name:            "Basketball Team",
			Description:     "Practice and play basketball with the school team",
			Schedule:        "Wednesdays and Fridays, 3:30 PM - 5:00 PM",
			MaxParticipants: 15,
			Participants:    []string{"ava@mergington.edu", "mia@mergington.edu"},
		},
		{
			Name:            "Art Club",
			Description:     "Explore your creativity through painting and drawing",
			Schedule:        "Thursdays, 3:30 PM - 5:00 PM",
			MaxParticipants: 15,
			Participants:    []string{"amelia@mergington.edu", "harper@mergington.edu"},
		},
		{
			Name:            "Drama Club",
			Description:     "Act, direct, and produce plays and performances",
			Schedule:        "Mondays and Wednesdays, 4:00 PM - 5:30 PM",
			MaxParticipants: 20,
			Participants:    []string{"ella@mergington.edu", "scarlett@mergington.edu"},
		},
		{
			Name:            "Math Club",
			Description:     "Solve challenging problems and participate in math competitions",
			Schedule:        "Tuesdays, 3:30 PM - 4:30 PM",
			MaxParticipants: 10,
			Participants:    []string{"james@mergington.edu", "benjamin@mergington.edu"},
		},
		{
			Name:            "Debate Team",
			Description:     "Develop public speaking and argumentation skills",
			Schedule:        "Fridays, 4:00 PM - 5:30 PM",
			MaxParticipants: 12,
			Participants:    []string{"charlotte@mergington.edu", "henry@mergington.edu"},
		},
	}
}
