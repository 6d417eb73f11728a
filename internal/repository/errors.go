package repository

import "errors"

var (
	// ErrNotFound is returned when no record matches the given id.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicateEmail is returned when creating a user with an email
	// that is already registered.
	ErrDuplicateEmail = errors.New("email already registered")
)
