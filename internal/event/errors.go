package event

import "errors"

var (
	// ErrUnknownKind is returned when a kind name is not recognised.
	ErrUnknownKind = errors.New("event: unknown kind")

	// ErrInvalidValue is returned when a raw reading cannot be parsed for its kind.
	ErrInvalidValue = errors.New("event: invalid value")
)
