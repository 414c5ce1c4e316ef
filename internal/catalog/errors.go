package catalog

import "errors"

var (
	// ErrNotFound is returned when no record has the requested id.
	ErrNotFound = errors.New("catalog: not found")
	// ErrInvalid is returned when required fields are missing.
	ErrInvalid = errors.New("catalog: invalid input")
)
