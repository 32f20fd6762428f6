package history

import "errors"

// Sentinel errors for history operations.
var (
	// ErrInvalidSensor indicates a non-positive sensor id.
	ErrInvalidSensor = errors.New("history: invalid sensor id")

	// ErrInvalidRetention indicates a non-positive prune window.
	ErrInvalidRetention = errors.New("history: retention must be positive")
)
