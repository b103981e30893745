package shared

import "errors"

var (
	// ErrNotFound indicates a referenced record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrForbidden indicates the caller's role or ownership does not permit the action.
	ErrForbidden = errors.New("forbidden")
	// ErrInvalidInput indicates a malformed or missing payload field.
	ErrInvalidInput = errors.New("invalid input")
	// ErrConflict indicates a precondition on entity state was violated.
	ErrConflict = errors.New("conflict")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
)
