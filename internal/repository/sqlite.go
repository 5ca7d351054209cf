package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Shivanand-hulikatti/activity-board/internal/model"
	"github.com/google/uuid"
)

// timeFormat sorts lexically in time order.
const timeFormat = "2006-01-02T15:04:05.000000000Z"

// SQLiteRepository stores activities in SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository constructs a SQLiteRepository over a migrated database.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// List returns all activities ordered by position, each with its roster.
func (s *SQLiteRepository) List(ctx context.Context) (model.Catalog, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT name, description, schedule, max_participants FROM activities ORDER BY position")
	if err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	defer rows.Close()

	catalog := model.Catalog{}
	index := map[string]int{}
	for rows.Next() {
		a := model.Activity{Participants: []string{}}
		if err := rows.Scan(&a.Name, &a.Description, &a.Schedule, &a.MaxParticipants); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		index[a.Name] = len(catalog)
		catalog = append(catalog, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}

	regs, err := s.db.QueryContext(ctx,
		"SELECT activity_name, email FROM registrations ORDER BY created_at, rowid")
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	defer regs.Close()

	for regs.Next() {
		var name, email string
		if err := regs.Scan(&name, &email); err != nil {
			return nil, fmt.Errorf("scan registration: %w", err)
		}
		if i, ok := index[name]; ok {
			catalog[i].Participants = append(catalog[i].Participants, email)
		}
	}
	return catalog, regs.Err()
}

// Signup adds a registration. The database is opened with immediate
// transactions, so the write lock is held from the first read.
func (s *SQLiteRepository) Signup(ctx context.Context, activity, email string) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var capacity int
	err = tx.QueryRowContext(ctx,
		"SELECT max_participants FROM activities WHERE name = ?", activity).Scan(&capacity)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("lookup activity: %w", err)
	}

	var current string
	err = tx.QueryRowContext(ctx,
		"SELECT activity_name FROM registrations WHERE email = ? LIMIT 1", email).Scan(&current)
	switch {
	case err == nil && current == activity:
		return ErrAlreadyRegistered
	case err == nil:
		return ErrAlreadyInOther
	case !errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("check existing signup: %w", err)
	}

	var count int
	err = tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM registrations WHERE activity_name = ?", activity).Scan(&count)
	if err != nil {
		return fmt.Errorf("count participants: %w", err)
	}
	if count >= capacity {
		return ErrActivityFull
	}

	_, err = tx.ExecContext(ctx,
		"INSERT INTO registrations (id, activity_name, email, created_at) VALUES (?, ?, ?, ?)",
		uuid.New().String(), activity, email, time.Now().UTC().Format(timeFormat))
	if err != nil {
		return fmt.Errorf("insert registration: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Unregister deletes the registration for email in activity.
func (s *SQLiteRepository) Unregister(ctx context.Context, activity, email string) error {
	var one int
	err := s.db.QueryRowContext(ctx, "SELECT 1 FROM activities WHERE name = ?", activity).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("lookup activity: %w", err)
	}

	res, err := s.db.ExecContext(ctx,
		"DELETE FROM registrations WHERE activity_name = ? AND email = ?", activity, email)
	if err != nil {
		return fmt.Errorf("delete registration: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete registration: %w", err)
	}
	if n == 0 {
		return ErrParticipantNotFound
	}
	return nil
}

// Seed inserts catalog when the activities table is empty.
func (s *SQLiteRepository) Seed(ctx context.Context, catalog model.Catalog) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var count int
	if err = tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM activities").Scan(&count); err != nil {
		return fmt.Errorf("count activities: %w", err)
	}
	if count > 0 {
		return tx.Rollback()
	}

	now := time.Now().UTC()
	for pos, a := range catalog {
		_, err = tx.ExecContext(ctx,
			"INSERT INTO activities (name, description, schedule, max_participants, position) VALUES (?, ?, ?, ?, ?)",
			a.Name, a.Description, a.Schedule, a.MaxParticipants, pos)
		if err != nil {
			return fmt.Errorf("insert activity %q: %w", a.Name, err)
		}
		for _, email := range a.Participants {
			_, err = tx.ExecContext(ctx,
				"INSERT INTO registrations (id, activity_name, email, created_at) VALUES (?, ?, ?, ?)",
				uuid.New().String(), a.Name, email, now.Format(timeFormat))
			if err != nil {
				return fmt.Errorf("insert participant %q: %w", email, err)
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
