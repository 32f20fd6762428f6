package event

import (
	"fmt"
	"time"
)

// Event is one sensor's reading at a point in time.
//
// The zero Event has no source and an Unknown value.
type Event struct {
	sourceID  int
	source    string
	timestamp time.Time
	value     Value
}

// New creates an Event stamped with the current UTC time.
// A nil value is stored as Unknown.
func New(sourceID int, source string, v Value) Event {
	if v == nil {
		v = Unknown{}
	}
	return Event{
		sourceID:  sourceID,
		source:    source,
		timestamp: time.Now().UTC(),
		value:     v,
	}
}

// NewUnknown creates the placeholder event installed when a sensor registers.
func NewUnknown(sourceID int, source string) Event {
	return New(sourceID, source, Unknown{})
}

// SourceID returns the id of the sensor that produced the event.
func (e Event) SourceID() int { return e.sourceID }

// Source returns the name of the sensor that produced the event.
func (e Event) Source() string { return e.source }

// Timestamp returns when the event was created.
func (e Event) Timestamp() time.Time { return e.timestamp }

// Value returns the typed payload.
func (e Event) Value() Value {
	if e.value == nil {
		return Unknown{}
	}
	return e.value
}

// Kind returns the kind of the payload.
func (e Event) Kind() Kind { return e.Value().Kind() }

// Serialize returns the payload as reported to status queries.
func (e Event) Serialize() string { return e.Value().String() }

// WithValue returns a copy of e carrying v and a fresh timestamp.
func (e Event) WithValue(v Value) Event {
	return New(e.sourceID, e.source, v)
}

// Equal reports whether e and other carry the same logical reading.
// Timestamps are not compared.
func (e Event) Equal(other Event) bool {
	return e.sourceID == other.sourceID &&
		e.source == other.source &&
		ValuesEqual(e.Value(), other.Value())
}

// String renders the event for logs, e.g. "kitchen-switch(5)=on".
func (e Event) String() string {
	return fmt.Sprintf("%s(%d)=%s", e.source, e.sourceID, e.Serialize())
}
