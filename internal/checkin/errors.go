package checkin

import "errors"

// Sentinel errors for every failure kind the workflow can surface. Callers
// match with errors.Is; the HTTP layer maps them to status codes.
var (
	// ErrNotAuthorized is returned on an ownership or role mismatch.
	ErrNotAuthorized = errors.New("not authorized")

	// ErrNotFound is returned for an unknown child, service, token or request id.
	ErrNotFound = errors.New("not found")

	// ErrWindowClosed is returned when the service's check-in window is not open.
	ErrWindowClosed = errors.New("check-in window closed")

	// ErrAgeIneligible is returned when the child's age falls outside the
	// service's accepted range.
	ErrAgeIneligible = errors.New("child age not eligible")

	// ErrCapacityExceeded is returned when an approval would push attendance
	// past the service's maximum capacity.
	ErrCapacityExceeded = errors.New("service at capacity")

	// ErrAlreadyCheckedIn is returned when the child already has an active
	// attendance record within the service's time window.
	ErrAlreadyCheckedIn = errors.New("child already checked in")

	// ErrInvalidState is returned on an attempted transition out of a
	// terminal state.
	ErrInvalidState = errors.New("invalid request state")

	// ErrExpired is returned when a request's TTL has elapsed, whether or not
	// the sweeper has flipped its stored status yet.
	ErrExpired = errors.New("request expired")

	// ErrDuplicatePending is returned by the store when an insert hits the
	// single-pending-per-(child,service) constraint. The workflow resolves it
	// by returning the now-visible pending request.
	ErrDuplicatePending = errors.New("pending request already exists")

	// ErrTokenConflict is returned by the store on a token uniqueness
	// violation. Vanishingly rare; the workflow retries with a fresh token.
	ErrTokenConflict = errors.New("token already in use")
)
