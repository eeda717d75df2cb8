package checkin

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Staff roles accepted for approvals.
const (
	RoleStaff = "staff"
	RoleAdmin = "admin"
)

// PgDirectory reads child, service and staff records from the shared
// Postgres database. Those tables are owned by the surrounding management
// system; this workflow never writes them.
type PgDirectory struct {
	db *sql.DB
}

// NewDirectory creates a read-only directory.
func NewDirectory(db *sql.DB) *PgDirectory {
	return &PgDirectory{db: db}
}

// Child returns a child by id.
func (d *PgDirectory) Child(ctx context.Context, id string) (Child, error) {
	row := d.db.QueryRowContext(ctx, `
		SELECT id, parent_id, full_name, date_of_birth, notes, created_at
		FROM children WHERE id = $1
	`, id)
	var c Child
	err := row.Scan(&c.ID, &c.ParentID, &c.FullName, &c.DateOfBirth, &c.Notes, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Child{}, fmt.Errorf("child %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return Child{}, err
	}
	return c, nil
}

// Service returns a kids service by id, with the window offsets rehydrated
// into durations.
func (d *PgDirectory) Service(ctx context.Context, id string) (KidsService, error) {
	row := d.db.QueryRowContext(ctx, `
		SELECT id, name, location, starts_at, ends_at, max_capacity,
			min_age, max_age, active, open_before_mins, close_after_mins
		FROM kids_services WHERE id = $1
	`, id)
	var (
		svc                    KidsService
		openBefore, closeAfter int
	)
	err := row.Scan(&svc.ID, &svc.Name, &svc.Location, &svc.StartsAt, &svc.EndsAt,
		&svc.MaxCapacity, &svc.MinAge, &svc.MaxAge, &svc.Active, &openBefore, &closeAfter)
	if errors.Is(err, sql.ErrNoRows) {
		return KidsService{}, fmt.Errorf("service %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return KidsService{}, err
	}
	svc.OpenBefore = time.Duration(openBefore) * time.Minute
	svc.CloseAfter = time.Duration(closeAfter) * time.Minute
	return svc, nil
}

// Staff returns a user by id iff they hold a staff role; anyone else maps to
// ErrNotFound so the workflow treats them as unauthorized.
func (d *PgDirectory) Staff(ctx context.Context, id string) (Staff, error) {
	row := d.db.QueryRowContext(ctx, `
		SELECT id, display_name, role
		FROM users WHERE id = $1 AND role IN ($2, $3)
	`, id, RoleStaff, RoleAdmin)
	var s Staff
	err := row.Scan(&s.ID, &s.DisplayName, &s.Role)
	if errors.Is(err, sql.ErrNoRows) {
		return Staff{}, fmt.Errorf("staff %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return Staff{}, err
	}
	return s, nil
}
