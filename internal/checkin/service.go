package checkin

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// RequestStore persists check-in requests. Implementations must enforce
// at most one pending request per (child, service) pair and report conflicts
// with ErrDuplicatePending, and must make Transition conditional on the row
// still being pending.
type RequestStore interface {
	Insert(ctx context.Context, req Request) (Request, error)
	ByToken(ctx context.Context, token string) (Request, error)
	ByID(ctx context.Context, id string) (Request, error)
	PendingFor(ctx context.Context, childID, serviceID string) (*Request, error)
	PendingByParent(ctx context.Context, parentID string) ([]Request, error)
	Transition(ctx context.Context, id string, to Status, resolvedBy, reason *string, at time.Time) error
	ExpireBefore(ctx context.Context, cutoff time.Time) ([]string, error)
}

// Directory resolves child, service and staff records from the external
// child/service management system.
type Directory interface {
	Child(ctx context.Context, id string) (Child, error)
	Service(ctx context.Context, id string) (KidsService, error)
	Staff(ctx context.Context, id string) (Staff, error)
}

// AttendanceLedger is the external attendance system. CommitApproval must
// atomically verify capacity and duplicate check-in, insert the attendance
// record, and flip the request to approved, so that concurrent approvals
// cannot jointly exceed the service's capacity.
type AttendanceLedger interface {
	CommitApproval(ctx context.Context, req Request, staff Staff, notes *string, now time.Time) (AttendanceRecord, error)
}

// Service orchestrates the check-in request workflow: creation, approval,
// rejection, cancellation and expiry.
type Service struct {
	store  RequestStore
	dir    Directory
	ledger AttendanceLedger
	issuer TokenIssuer
	clock  func() time.Time
}

// NewService wires the workflow with its collaborators. ttl is the fixed
// lifetime of a freshly issued request.
func NewService(store RequestStore, dir Directory, ledger AttendanceLedger, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &Service{
		store:  store,
		dir:    dir,
		ledger: ledger,
		issuer: TokenIssuer{TTL: ttl},
		clock:  time.Now,
	}
}

// tokenRetries bounds insert attempts on the (vanishingly rare) token
// uniqueness collision.
const tokenRetries = 3

// Create validates eligibility and registers a pending check-in request for
// the child. If a pending request already exists for the (child, service)
// pair it is returned unchanged; no new token is issued.
func (s *Service) Create(ctx context.Context, parentID, childID, serviceID string, notes *string) (Request, error) {
	child, err := s.dir.Child(ctx, childID)
	if err != nil {
		return Request{}, fmt.Errorf("resolve child: %w", err)
	}
	if child.ParentID != parentID {
		return Request{}, fmt.Errorf("child %s: %w", childID, ErrNotAuthorized)
	}
	svc, err := s.dir.Service(ctx, serviceID)
	if err != nil {
		return Request{}, fmt.Errorf("resolve service: %w", err)
	}

	now := s.clock().UTC()
	if !IsWindowOpen(svc, now) {
		return Request{}, ErrWindowClosed
	}
	if !IsAgeEligible(child, svc, now) {
		return Request{}, ErrAgeIneligible
	}

	if existing, err := s.store.PendingFor(ctx, childID, serviceID); err != nil {
		return Request{}, fmt.Errorf("pending lookup: %w", err)
	} else if existing != nil {
		requestsDeduplicated.Inc()
		return *existing, nil
	}

	for attempt := 0; attempt < tokenRetries; attempt++ {
		token, expiresAt, err := s.issuer.Issue(now)
		if err != nil {
			return Request{}, err
		}
		req := Request{
			ID:        uuid.NewString(),
			ChildID:   childID,
			ServiceID: serviceID,
			ParentID:  parentID,
			Token:     token,
			Notes:     notes,
			Status:    StatusPending,
			CreatedAt: now,
			ExpiresAt: expiresAt,
		}
		inserted, err := s.store.Insert(ctx, req)
		switch {
		case err == nil:
			requestTransitions.WithLabelValues(string(StatusPending)).Inc()
			return inserted, nil
		case errors.Is(err, ErrDuplicatePending):
			// Lost the race to a concurrent create; the winner's request is
			// the one to hand back.
			if winner, lookupErr := s.store.PendingFor(ctx, childID, serviceID); lookupErr == nil && winner != nil {
				requestsDeduplicated.Inc()
				return *winner, nil
			}
			return Request{}, fmt.Errorf("insert request: %w", err)
		case errors.Is(err, ErrTokenConflict):
			continue
		default:
			return Request{}, fmt.Errorf("insert request: %w", err)
		}
	}
	return Request{}, fmt.Errorf("insert request: %w", ErrTokenConflict)
}

// ResolveByToken looks a request up for display. A pending request whose TTL
// has elapsed fails with ErrExpired even if the sweeper has not flipped its
// stored status yet.
func (s *Service) ResolveByToken(ctx context.Context, token string) (Request, error) {
	req, err := s.store.ByToken(ctx, token)
	if err != nil {
		return Request{}, err
	}
	if req.Status == StatusPending && s.clock().After(req.ExpiresAt) {
		return Request{}, ErrExpired
	}
	return req, nil
}

// Approve commits the request: capacity and duplicate-attendance checks, the
// attendance insert and the status flip happen atomically in the ledger.
// Expiry is re-checked here so a stale token cannot be approved between
// sweeper runs.
func (s *Service) Approve(ctx context.Context, token, staffID string, notes *string) (ApprovalResult, error) {
	req, err := s.store.ByToken(ctx, token)
	if err != nil {
		return ApprovalResult{}, err
	}
	staff, err := s.resolveStaff(ctx, staffID)
	if err != nil {
		return ApprovalResult{}, err
	}
	if req.Status != StatusPending {
		return ApprovalResult{}, fmt.Errorf("request %s is %s: %w", req.ID, req.Status, ErrInvalidState)
	}
	now := s.clock().UTC()
	if now.After(req.ExpiresAt) {
		return ApprovalResult{}, ErrExpired
	}

	record, err := s.ledger.CommitApproval(ctx, req, staff, notes, now)
	if err != nil {
		return ApprovalResult{}, err
	}
	requestTransitions.WithLabelValues(string(StatusApproved)).Inc()
	return ApprovalResult{
		RequestID:    req.ID,
		AttendanceID: record.ID,
		ApprovedBy:   staff.DisplayName,
	}, nil
}

// Reject marks the request rejected with the staff member's reason. Like
// Approve it re-checks expiry and is conditional on the stored status still
// being pending.
func (s *Service) Reject(ctx context.Context, token, staffID, reason string) (Request, error) {
	req, err := s.store.ByToken(ctx, token)
	if err != nil {
		return Request{}, err
	}
	staff, err := s.resolveStaff(ctx, staffID)
	if err != nil {
		return Request{}, err
	}
	if req.Status != StatusPending {
		return Request{}, fmt.Errorf("request %s is %s: %w", req.ID, req.Status, ErrInvalidState)
	}
	now := s.clock().UTC()
	if now.After(req.ExpiresAt) {
		return Request{}, ErrExpired
	}

	if err := s.store.Transition(ctx, req.ID, StatusRejected, &staff.ID, &reason, now); err != nil {
		return Request{}, err
	}
	requestTransitions.WithLabelValues(string(StatusRejected)).Inc()
	req.Status = StatusRejected
	req.ResolvedBy = &staff.ID
	req.RejectionReason = &reason
	req.ResolvedAt = &now
	return req, nil
}

// Cancel lets the owning parent withdraw a still-pending request.
func (s *Service) Cancel(ctx context.Context, requestID, parentID string) (Request, error) {
	req, err := s.store.ByID(ctx, requestID)
	if err != nil {
		return Request{}, err
	}
	child, err := s.dir.Child(ctx, req.ChildID)
	if err != nil {
		return Request{}, fmt.Errorf("resolve child: %w", err)
	}
	if child.ParentID != parentID {
		return Request{}, fmt.Errorf("request %s: %w", requestID, ErrNotAuthorized)
	}
	if req.Status != StatusPending {
		return Request{}, fmt.Errorf("cannot cancel %s request: %w", req.Status, ErrInvalidState)
	}

	now := s.clock().UTC()
	if err := s.store.Transition(ctx, req.ID, StatusCancelled, nil, nil, now); err != nil {
		return Request{}, err
	}
	requestTransitions.WithLabelValues(string(StatusCancelled)).Inc()
	req.Status = StatusCancelled
	req.ResolvedAt = &now
	return req, nil
}

// ListActive returns the parent's pending requests across all children.
func (s *Service) ListActive(ctx context.Context, parentID string) ([]Request, error) {
	return s.store.PendingByParent(ctx, parentID)
}

// resolveStaff maps an unknown or non-staff identity to ErrNotAuthorized:
// whoever presented the id has no business resolving requests.
func (s *Service) resolveStaff(ctx context.Context, staffID string) (Staff, error) {
	staff, err := s.dir.Staff(ctx, staffID)
	if errors.Is(err, ErrNotFound) {
		return Staff{}, fmt.Errorf("staff %s: %w", staffID, ErrNotAuthorized)
	}
	if err != nil {
		return Staff{}, fmt.Errorf("resolve staff: %w", err)
	}
	return staff, nil
}
