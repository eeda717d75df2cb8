package checkin

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Ledger writes attendance records in Postgres. Capacity enforcement lives
// here because the count and the insert must commit together.
type Ledger struct {
	db *sql.DB
}

// NewLedger creates an attendance ledger over the shared database.
func NewLedger(db *sql.DB) *Ledger {
	return &Ledger{db: db}
}

// CommitApproval performs the approval commit in one transaction: it locks
// the service row, counts current attendees, rejects duplicates for the
// child inside the service window, inserts the attendance record and flips
// the request to approved. A failure at any step rolls everything back and
// leaves the request pending.
func (l *Ledger) CommitApproval(ctx context.Context, req Request, staff Staff, notes *string, now time.Time) (AttendanceRecord, error) {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return AttendanceRecord{}, err
	}
	defer tx.Rollback()

	// The row lock serializes concurrent approvals for the same service so
	// the count below cannot be stale at insert time.
	var (
		maxCapacity      int
		startsAt, endsAt time.Time
		openBefore       int
	)
	err = tx.QueryRowContext(ctx, `
		SELECT max_capacity, starts_at, ends_at, open_before_mins
		FROM kids_services
		WHERE id = $1
		FOR UPDATE
	`, req.ServiceID).Scan(&maxCapacity, &startsAt, &endsAt, &openBefore)
	if err == sql.ErrNoRows {
		return AttendanceRecord{}, fmt.Errorf("service %s: %w", req.ServiceID, ErrNotFound)
	}
	if err != nil {
		return AttendanceRecord{}, err
	}

	var count int
	err = tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM attendance_records
		WHERE service_id = $1 AND status = $2
	`, req.ServiceID, AttendanceCheckedIn).Scan(&count)
	if err != nil {
		return AttendanceRecord{}, err
	}
	if count >= maxCapacity {
		return AttendanceRecord{}, fmt.Errorf("service %s at %d/%d: %w", req.ServiceID, count, maxCapacity, ErrCapacityExceeded)
	}

	windowStart := startsAt.Add(-time.Duration(openBefore) * time.Minute)
	var dup bool
	err = tx.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM attendance_records
			WHERE child_id = $1 AND status = $2
			  AND checked_in_at BETWEEN $3 AND $4
		)
	`, req.ChildID, AttendanceCheckedIn, windowStart, endsAt).Scan(&dup)
	if err != nil {
		return AttendanceRecord{}, err
	}
	if dup {
		return AttendanceRecord{}, fmt.Errorf("child %s: %w", req.ChildID, ErrAlreadyCheckedIn)
	}

	record := AttendanceRecord{
		ID:          uuid.NewString(),
		ChildID:     req.ChildID,
		ServiceID:   req.ServiceID,
		RequestID:   &req.ID,
		Notes:       notes,
		Status:      AttendanceCheckedIn,
		ApprovedBy:  staff.ID,
		CheckedInAt: now,
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO attendance_records
			(id, child_id, service_id, request_id, notes, status, approved_by, checked_in_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, record.ID, record.ChildID, record.ServiceID, record.RequestID, record.Notes, record.Status, record.ApprovedBy, record.CheckedInAt)
	if err != nil {
		return AttendanceRecord{}, err
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE checkin_requests
		SET status = $2, resolved_by = $3, resolved_at = $4
		WHERE id = $1 AND status = $5
	`, req.ID, StatusApproved, staff.ID, now, StatusPending)
	if err != nil {
		return AttendanceRecord{}, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return AttendanceRecord{}, err
	}
	if n == 0 {
		// Swept or resolved underneath us; the rollback drops the insert.
		return AttendanceRecord{}, fmt.Errorf("request %s: %w", req.ID, ErrInvalidState)
	}

	if err := tx.Commit(); err != nil {
		return AttendanceRecord{}, err
	}
	return record, nil
}

// ActiveCount returns the number of currently checked-in attendees for a
// service. Read-only companion to CommitApproval, used by dashboards.
func (l *Ledger) ActiveCount(ctx context.Context, serviceID string) (int, error) {
	var count int
	err := l.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM attendance_records
		WHERE service_id = $1 AND status = $2
	`, serviceID, AttendanceCheckedIn).Scan(&count)
	return count, err
}
