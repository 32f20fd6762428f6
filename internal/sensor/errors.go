package sensor

import "errors"

// Domain-specific errors for sensor operations.
var (
	// ErrInvalidDefinition is returned when a sensor definition is incomplete.
	ErrInvalidDefinition = errors.New("sensor: invalid definition")

	// ErrAlreadyStarted is returned when Start is called on a running sensor.
	ErrAlreadyStarted = errors.New("sensor: already started")

	// ErrNoValue is returned when a reading contains no usable value.
	ErrNoValue = errors.New("sensor: no value in reading")
)
