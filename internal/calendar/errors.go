package calendar

import "errors"

var (
	// ErrNotFound indicates the target calendar or event row is absent.
	ErrNotFound = errors.New("not found")
	// ErrForbidden indicates the caller lacks the role the operation requires.
	ErrForbidden = errors.New("forbidden")
	// ErrUserNotFound indicates no profile exists for an invited email.
	ErrUserNotFound = errors.New("user not found")
	// ErrInvalidInput indicates a missing or malformed request field.
	ErrInvalidInput = errors.New("invalid input")
)
