package command

import "errors"

// Domain-specific errors for command operations.
var (
	// ErrCommandNotFound is returned when no command is registered under a name.
	ErrCommandNotFound = errors.New("command: not found")

	// ErrNoParameter is returned by Send when the value has no command form.
	ErrNoParameter = errors.New("command: value has no parameter form")

	// ErrInvalidCommand is returned when a command definition is incomplete.
	ErrInvalidCommand = errors.New("command: invalid definition")
)
