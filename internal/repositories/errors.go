package repositories

import "errors"

var (
	// ErrNotFound is returned when an identifier does not resolve to a row.
	// Callers match it with errors.Is; the wrapping message names the entity.
	ErrNotFound = errors.New("record not found")

	// ErrConflict is returned when a concurrent writer won a race on the
	// same row or unique index. The operation can be retried.
	ErrConflict = errors.New("conflicting concurrent update")
)
