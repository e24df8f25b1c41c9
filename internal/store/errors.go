package store

import "errors"

var (
	// ErrNotFound is returned when a loan id does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrConflict is returned when an insert loses a natural-key race (two
	// callers creating the same human or machine concurrently). The whole
	// operation can simply be retried; the surviving row will be found on
	// lookup the second time around.
	ErrConflict = errors.New("natural key already exists")
)
