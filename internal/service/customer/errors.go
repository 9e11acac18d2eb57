package customer

import "errors"

var (
	// ErrNotFound is returned when no customer matches the lookup.
	ErrNotFound = errors.New("customer not found")
)
