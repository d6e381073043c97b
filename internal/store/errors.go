package store

import "errors"

var (
	// ErrNotFound is returned for unknown session or knowledge entry ids.
	ErrNotFound = errors.New("not found")

	// ErrInvalidArgument is returned for malformed ratings, out-of-range
	// temperature and missing required text.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrInvalidTarget is returned when feedback addresses a message
	// index that does not exist or is not an assistant turn.
	ErrInvalidTarget = errors.New("invalid feedback target")
)
