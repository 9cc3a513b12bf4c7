package cache

import (
	"errors"
)

// Error definitions
var (
	// ErrInvalidKey is returned when a getter is created without key parts.
	ErrInvalidKey = errors.New("invalid cache key")

	// ErrUnexpectedType is returned when a cached value does not have the
	// requested type. It indicates a hash collision between two keys.
	ErrUnexpectedType = errors.New("cached value has an unexpected type")
)
