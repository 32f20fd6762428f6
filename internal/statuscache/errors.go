package statuscache

import "errors"

// Domain-specific errors for status cache operations.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrSensorNotFound is returned when a sensor name is not registered.
	ErrSensorNotFound = errors.New("statuscache: sensor not found")

	// ErrInvalidSensor is returned when registering a nil sensor.
	ErrInvalidSensor = errors.New("statuscache: invalid sensor")

	// ErrAlreadyStarted is returned when Start is called more than once.
	ErrAlreadyStarted = errors.New("statuscache: already started")

	// ErrShutdown is returned for operations attempted after shutdown began.
	ErrShutdown = errors.New("statuscache: shut down")

	// ErrWaitTimeout is returned by ChangedStatusRecord.Wait when nothing
	// changed before the timeout elapsed.
	ErrWaitTimeout = errors.New("statuscache: wait timed out")

	// ErrRecordClosed is returned by ChangedStatusRecord.Wait when the record
	// was removed from its table.
	ErrRecordClosed = errors.New("statuscache: record closed")
)
