package rbackit

import (
	"errors"
	"fmt"
)

// Sentinel errors for rbackit operations.
//
// Only validation problems and authorization failures are returned as errors.
// Storage failures are logged and reported through boolean or empty results.
var (
	// ErrValidation is returned when an entity is in a state that cannot be
	// persisted or linked, e.g. deleting a permission that was never saved.
	ErrValidation = errors.New("rbackit: invalid state")

	// ErrInvalidPermission is returned when a permission name is malformed or unknown.
	ErrInvalidPermission = errors.New("rbackit: invalid permission")

	// ErrInvalidRole is returned when a role name is malformed or unknown.
	ErrInvalidRole = errors.New("rbackit: invalid role")

	// ErrInvalidSubject is returned when a subject has no usable ID.
	ErrInvalidSubject = errors.New("rbackit: invalid subject")

	// ErrInsufficientPermission is returned by RequirePermission when the subject lacks the permission.
	ErrInsufficientPermission = errors.New("rbackit: insufficient permission")

	// ErrNotFound is returned when a named definition cannot be resolved.
	ErrNotFound = errors.New("rbackit: not found")

	// ErrStorage is returned by multi-step helpers (Apply) when a storage write reports failure.
	ErrStorage = errors.New("rbackit: storage error")
)

// Error wraps a sentinel error with additional context.
type Error struct {
	Err        error  // Underlying sentinel error
	Message    string // Additional context
	Permission string // Permission involved (if applicable)
	Role       string // Role involved (if applicable)
	SubjectID  int64  // Subject involved (if applicable)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
	}
	return e.Err.Error()
}

// Unwrap returns the underlying error for errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is checks if the error matches a target error.
func (e *Error) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewError creates a new Error with context.
func NewError(err error, message string) *Error {
	return &Error{
		Err:     err,
		Message: message,
	}
}

// WithPermission adds permission information to the error.
func (e *Error) WithPermission(name string) *Error {
	e.Permission = name
	return e
}

// WithRole adds role information to the error.
func (e *Error) WithRole(name string) *Error {
	e.Role = name
	return e
}

// WithSubject adds subject information to the error.
func (e *Error) WithSubject(subjectID int64) *Error {
	e.SubjectID = subjectID
	return e
}

// IsValidation checks if an error is caused by invalid entity state.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsInsufficientPermission checks if an error is an authorization failure.
func IsInsufficientPermission(err error) bool {
	return errors.Is(err, ErrInsufficientPermission)
}

// IsInvalidPermission checks if an error is due to a malformed or unknown permission.
func IsInvalidPermission(err error) bool {
	return errors.Is(err, ErrInvalidPermission)
}

// IsInvalidRole checks if an error is due to a malformed or unknown role.
func IsInvalidRole(err error) bool {
	return errors.Is(err, ErrInvalidRole)
}
