// Package event defines the sensor reading value carried through the
// controller's status cache and event processor chain.
//
// An Event identifies its source sensor by integer id and name and carries a
// typed Value. Value is a closed set of kinds:
//
//	Unknown  placeholder installed before a sensor's first reading
//	Switch   on/off
//	Range    integer clamped to [Min, Max]
//	Level    integer percentage clamped to [0, 100]
//	Custom   free-form text
//
// Events are values and never change after construction. A processor that
// transforms a reading builds a new Event with WithValue.
//
// # Equality
//
// Equal compares logical content only: source id, source name, kind and the
// value itself. Timestamps are ignored, as are Range bounds, so a sensor that
// re-reports the same value does not count as a state change.
package event
