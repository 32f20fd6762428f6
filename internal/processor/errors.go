package processor

import "errors"

// Sentinel errors for event processors.
var (
	// ErrUnknownProcessor indicates a configured name Build does not know.
	ErrUnknownProcessor = errors.New("processor: unknown processor")

	// ErrMissingDependency indicates a processor was requested without the
	// backend it writes to.
	ErrMissingDependency = errors.New("processor: missing dependency")

	// ErrMappingFailed indicates a lookup produced a value the sensor kind
	// cannot hold.
	ErrMappingFailed = errors.New("processor: mapping failed")

	// ErrCommandFailed indicates a rule's command could not be executed.
	ErrCommandFailed = errors.New("processor: rule command failed")
)
