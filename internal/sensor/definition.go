package sensor

import (
	"fmt"

	"github.com/nerrad567/gray-logic-controller/internal/event"
)

// Sink receives sensor readings. Satisfied by *statuscache.StatusCache.
type Sink interface {
	Update(e event.Event)
}

// Definition identifies a sensor and the kind of value it reports.
type Definition struct {
	ID   int
	Name string
	Kind event.Kind

	// Min and Max bound Range readings.
	Min int
	Max int
}

// Validate checks that the definition can produce events.
func (d Definition) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("%w: sensor %d has no name", ErrInvalidDefinition, d.ID)
	}
	if _, err := event.ParseKind(string(d.Kind)); err != nil {
		return fmt.Errorf("%w: sensor %q: %w", ErrInvalidDefinition, d.Name, err)
	}
	if d.Kind == event.KindRange && d.Min >= d.Max {
		return fmt.Errorf("%w: sensor %q: range needs min < max, got min %d max %d", ErrInvalidDefinition, d.Name, d.Min, d.Max)
	}
	return nil
}

// NewEvent parses raw into an event from this sensor.
func (d Definition) NewEvent(raw string) (event.Event, error) {
	v, err := event.Parse(d.Kind, raw, event.ParseOptions{Min: d.Min, Max: d.Max})
	if err != nil {
		return event.Event{}, fmt.Errorf("sensor %q: %w", d.Name, err)
	}
	return event.New(d.ID, d.Name, v), nil
}
