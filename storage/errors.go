package storage

import "errors"

// Common storage errors.
var (
	// ErrNotFound is returned when an entity is not found.
	ErrNotFound = errors.New("entity not found")

	// ErrInvalidID is returned for ids that do not parse or have the wrong type.
	ErrInvalidID = errors.New("invalid entity id")
)
