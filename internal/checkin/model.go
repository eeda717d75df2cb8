package checkin

import "time"

// Status is the lifecycle state of a check-in request. Pending is the only
// state instantiation produces; the other four are terminal.
type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusExpired   Status = "expired"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether no further transition is valid from s.
func (s Status) Terminal() bool {
	switch s {
	case StatusApproved, StatusRejected, StatusExpired, StatusCancelled:
		return true
	case StatusPending:
		return false
	}
	return false
}

// Valid reports whether s is a known status value.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusExpired, StatusCancelled:
		return true
	}
	return false
}

// Child is a registered child, owned by a parent account. Child records are
// managed by the external directory; this workflow only reads them.
type Child struct {
	ID          string    `json:"id"`
	ParentID    string    `json:"parent_id"`
	FullName    string    `json:"full_name"`
	DateOfBirth time.Time `json:"date_of_birth"`
	Notes       *string   `json:"notes,omitempty"` // medical / allergy / special needs
	CreatedAt   time.Time `json:"created_at"`
}

// KidsService is one scheduled children's-ministry session. StartsAt and
// EndsAt carry the scheduled date plus time-of-day; the check-in window is
// derived from StartsAt and the two offsets.
type KidsService struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Location    string        `json:"location"`
	StartsAt    time.Time     `json:"starts_at"`
	EndsAt      time.Time     `json:"ends_at"`
	MaxCapacity int           `json:"max_capacity"`
	MinAge      int           `json:"min_age"`
	MaxAge      int           `json:"max_age"`
	Active      bool          `json:"active"`
	OpenBefore  time.Duration `json:"-"` // check-in opens this long before StartsAt
	CloseAfter  time.Duration `json:"-"` // check-in closes this long after StartsAt
}

// Staff is a staff member allowed to approve or reject requests.
type Staff struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
}

// Request is one tokenized check-in request. The token is issued once and
// never changes; terminal requests are retained for history.
type Request struct {
	ID              string     `json:"id"`
	ChildID         string     `json:"child_id"`
	ServiceID       string     `json:"service_id"`
	ParentID        string     `json:"parent_id"`
	Token           string     `json:"token"`
	Notes           *string    `json:"notes,omitempty"`
	Status          Status     `json:"status"`
	RejectionReason *string    `json:"rejection_reason,omitempty"`
	ResolvedBy      *string    `json:"resolved_by,omitempty"`
	ResolvedAt      *time.Time `json:"resolved_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	ExpiresAt       time.Time  `json:"expires_at"`
}

// AttendanceRecord is the ledger entry created by a successful approval.
type AttendanceRecord struct {
	ID           string     `json:"id"`
	ChildID      string     `json:"child_id"`
	ServiceID    string     `json:"service_id"`
	RequestID    *string    `json:"request_id,omitempty"`
	Notes        *string    `json:"notes,omitempty"`
	Status       string     `json:"status"`
	ApprovedBy   string     `json:"approved_by"`
	CheckedInAt  time.Time  `json:"checked_in_at"`
	CheckedOutAt *time.Time `json:"checked_out_at,omitempty"`
}

// Attendance ledger statuses.
const (
	AttendanceCheckedIn  = "checked_in"
	AttendanceCheckedOut = "checked_out"
)

// ApprovalResult is returned by a successful approve call.
type ApprovalResult struct {
	RequestID    string `json:"request_id"`
	AttendanceID string `json:"attendance_id"`
	ApprovedBy   string `json:"approved_by"`
}
