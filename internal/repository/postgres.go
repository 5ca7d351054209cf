package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Shivanand-hulikatti/activity-board/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// uniqueViolation is the SQLSTATE for unique_violation.
const uniqueViolation = "23505"

// PostgresRepository stores activities in PostgreSQL using pgx directly.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository constructs a PostgresRepository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// List returns all activities ordered by insertion, each with its roster.
func (r *PostgresRepository) List(ctx context.Context) (model.Catalog, error) {
	rows, err := r.db.Query(ctx,
		`SELECT name, description, schedule, max_participants
		 FROM activities
		 ORDER BY position ASC`,
	)
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

	regs, err := r.db.Query(ctx,
		`SELECT activity_name, email
		 FROM registrations
		 ORDER BY created_at ASC, id ASC`,
	)
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

// Signup adds a registration inside a transaction that holds two locks.
//
// A transaction-scoped advisory lock on the email serialises concurrent
// signups by the same student across activities. SELECT ... FOR UPDATE on
// the activity row serialises signups for the same activity, so two requests
// cannot both observe a free spot and overbook it. The unique index on
// registrations.email backs the one-activity-per-student rule.
func (r *PostgresRepository) Signup(ctx context.Context, activity, email string) (err error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if _, err = tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, email); err != nil {
		return fmt.Errorf("lock email: %w", err)
	}

	var capacity int
	err = tx.QueryRow(ctx,
		`SELECT max_participants
		 FROM activities
		 WHERE name = $1
		 FOR UPDATE`,
		activity,
	).Scan(&capacity)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("lock activity row: %w", err)
	}

	var current string
	err = tx.QueryRow(ctx,
		`SELECT activity_name FROM registrations WHERE email = $1 LIMIT 1`,
		email,
	).Scan(&current)
	switch {
	case err == nil && current == activity:
		return ErrAlreadyRegistered
	case err == nil:
		return ErrAlreadyInOther
	case !errors.Is(err, pgx.ErrNoRows):
		return fmt.Errorf("check existing signup: %w", err)
	}

	var count int
	err = tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM registrations WHERE activity_name = $1`,
		activity,
	).Scan(&count)
	if err != nil {
		return fmt.Errorf("count participants: %w", err)
	}
	if count >= capacity {
		return ErrActivityFull
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO registrations (id, activity_name, email, created_at)
		 VALUES ($1, $2, $3, $4)`,
		uuid.New().String(), activity, email, time.Now().UTC(),
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrAlreadyInOther
		}
		return fmt.Errorf("insert registration: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Unregister deletes the registration for email in activity.
func (r *PostgresRepository) Unregister(ctx context.Context, activity, email string) error {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM activities WHERE name = $1)`,
		activity,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("lookup activity: %w", err)
	}
	if !exists {
		return ErrNotFound
	}

	tag, err := r.db.Exec(ctx,
		`DELETE FROM registrations WHERE activity_name = $1 AND email = $2`,
		activity, email,
	)
	if err != nil {
		return fmt.Errorf("delete registration: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrParticipantNotFound
	}
	return nil
}

// Seed inserts catalog when the activities table is empty.
func (r *PostgresRepository) Seed(ctx context.Context, catalog model.Catalog) (err error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	var count int
	if err = tx.QueryRow(ctx, `SELECT COUNT(*) FROM activities`).Scan(&count); err != nil {
		return fmt.Errorf("count activities: %w", err)
	}
	if count > 0 {
		return tx.Rollback(ctx)
	}

	now := time.Now().UTC()
	for _, a := range catalog {
		_, err = tx.Exec(ctx,
			`INSERT INTO activities (name, description, schedule, max_participants)
			 VALUES ($1, $2, $3, $4)`,
			a.Name, a.Description, a.Schedule, a.MaxParticipants,
		)
		if err != nil {
			return fmt.Errorf("insert activity %q: %w", a.Name, err)
		}
		for i, email := range a.Participants {
			_, err = tx.Exec(ctx,
				`INSERT INTO registrations (id, activity_name, email, created_at)
				 VALUES ($1, $2, $3, $4)`,
				uuid.New().String(), a.Name, email, now.Add(time.Duration(i)*time.Microsecond),
			)
			if err != nil {
				return fmt.Errorf("insert participant %q: %w", email, err)
			}
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
