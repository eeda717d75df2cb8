package checkin

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

// Constraint names from migrations/001_init.sql, used to tell the two
// possible insert conflicts apart.
const (
	constraintPendingPair = "checkin_requests_pending_pair_idx"
	constraintToken       = "checkin_requests_token_key"
)

// Repository persists check-in requests in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a request repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const requestColumns = `id, child_id, service_id, parent_id, token, notes, status,
	rejection_reason, resolved_by, resolved_at, created_at, expires_at`

// Insert writes a new pending request. The partial unique index on
// (child_id, service_id) WHERE status='pending' turns a concurrent duplicate
// into ErrDuplicatePending; a token collision surfaces as ErrTokenConflict.
func (r *Repository) Insert(ctx context.Context, req Request) (Request, error) {
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO checkin_requests
			(id, child_id, service_id, parent_id, token, notes, status, created_at, expires_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING created_at
	`, req.ID, req.ChildID, req.ServiceID, req.ParentID, req.Token, req.Notes, req.Status, req.CreatedAt, req.ExpiresAt)
	if err := row.Scan(&req.CreatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			switch pgErr.ConstraintName {
			case constraintPendingPair:
				return Request{}, ErrDuplicatePending
			case constraintToken:
				return Request{}, ErrTokenConflict
			}
		}
		return Request{}, err
	}
	return req, nil
}

// ByToken returns the request holding the token.
func (r *Repository) ByToken(ctx context.Context, token string) (Request, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+requestColumns+` FROM checkin_requests WHERE token = $1`, token)
	return scanRequest(row)
}

// ByID returns a single request by id.
func (r *Repository) ByID(ctx context.Context, id string) (Request, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+requestColumns+` FROM checkin_requests WHERE id = $1`, id)
	return scanRequest(row)
}

// PendingFor returns the pending request for a (child, service) pair, or nil
// when there is none.
func (r *Repository) PendingFor(ctx context.Context, childID, serviceID string) (*Request, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+requestColumns+`
		FROM checkin_requests
		WHERE child_id = $1 AND service_id = $2 AND status = $3
	`, childID, serviceID, StatusPending)
	req, err := scanRequest(row)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// PendingByParent lists a parent's pending requests, oldest first.
func (r *Repository) PendingByParent(ctx context.Context, parentID string) ([]Request, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+requestColumns+`
		FROM checkin_requests
		WHERE parent_id = $1 AND status = $2
		ORDER BY created_at
	`, parentID, StatusPending)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []Request
	for rows.Next() {
		req, err := scanRequestRows(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, req)
	}
	return res, rows.Err()
}

// Transition moves a request out of pending. The WHERE status='pending'
// guard makes the update conditional: if the sweeper or another staff call
// got there first no row moves and ErrInvalidState comes back.
func (r *Repository) Transition(ctx context.Context, id string, to Status, resolvedBy, reason *string, at time.Time) error {
	if !to.Terminal() {
		return fmt.Errorf("transition to %s: %w", to, ErrInvalidState)
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE checkin_requests
		SET status = $2, resolved_by = $3, rejection_reason = $4, resolved_at = $5
		WHERE id = $1 AND status = $6
	`, id, to, resolvedBy, reason, at, StatusPending)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("request %s: %w", id, ErrInvalidState)
	}
	return nil
}

// ExpireBefore batch-transitions stale pending requests to expired and
// returns the ids it moved.
func (r *Repository) ExpireBefore(ctx context.Context, cutoff time.Time) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		UPDATE checkin_requests
		SET status = $1, resolved_at = $2
		WHERE status = $3 AND expires_at < $2
		RETURNING id
	`, StatusExpired, cutoff, StatusPending)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func scanRequest(row *sql.Row) (Request, error) {
	var req Request
	err := row.Scan(&req.ID, &req.ChildID, &req.ServiceID, &req.ParentID, &req.Token,
		&req.Notes, &req.Status, &req.RejectionReason, &req.ResolvedBy, &req.ResolvedAt,
		&req.CreatedAt, &req.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Request{}, ErrNotFound
	}
	if err != nil {
		return Request{}, err
	}
	return req, nil
}

func scanRequestRows(rows *sql.Rows) (Request, error) {
	var req Request
	err := rows.Scan(&req.ID, &req.ChildID, &req.ServiceID, &req.ParentID, &req.Token,
		&req.Notes, &req.Status, &req.RejectionReason, &req.ResolvedBy, &req.ResolvedAt,
		&req.CreatedAt, &req.ExpiresAt)
	if err != nil {
		return Request{}, err
	}
	return req, nil
}
