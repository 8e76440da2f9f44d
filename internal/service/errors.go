package service

import "errors"

// Common service errors
var (
	// ErrNotFound is returned when a resource does not exist or is soft-deleted
	ErrNotFound = errors.New("resource not found")

	// ErrPermissionDenied is returned when the actor exists but fails the
	// ownership or role predicate. Kept distinct from ErrNotFound so the
	// caller can surface a different message.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrInvalidInput is returned when input validation fails
	ErrInvalidInput = errors.New("invalid input")

	// ErrConflict is returned when there's a conflict (e.g., duplicate)
	ErrConflict = errors.New("resource conflict")

	// ErrInvalidCredentials is returned on failed login or failed inline re-auth
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrAccountLocked is returned when a locked account attempts to log in
	ErrAccountLocked = errors.New("account is locked")

	// ErrInvalidRole is returned when an invalid role is provided
	ErrInvalidRole = errors.New("invalid role")

	// ErrAdminImmutable is returned for lock/delete/role-change attempts on admin accounts
	ErrAdminImmutable = errors.New("admin accounts cannot be modified by this operation")
)

// Outcome is the three-way result of an update operation. Failures are
// carried in the accompanying error, so a returned Outcome is only
// meaningful when err is nil.
type Outcome int

const (
	// OutcomeChanged indicates the entity was mutated and persisted
	OutcomeChanged Outcome = iota
	// OutcomeUnchanged indicates the request was valid but contained no
	// effective change; informational, not an error
	OutcomeUnchanged
)

// String returns the display name of the outcome
func (o Outcome) String() string {
	switch o {
	case OutcomeChanged:
		return "changed"
	case OutcomeUnchanged:
		return "unchanged"
	}
	return "unknown"
}
