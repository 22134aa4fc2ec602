package database

import "errors"

var (
	// ErrNotFound is returned when the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when a unique constraint rejects a write,
	// typically a concurrent insert of the same face or file.
	ErrConflict = errors.New("conflict")
)
