package processor

import (
	"fmt"
	"math"
	"sync"

	"github.com/nerrad567/gray-logic-controller/internal/event"
	"github.com/nerrad567/gray-logic-controller/internal/statuscache"
)

// Mapping transforms the readings of one sensor.
//
// Lookup is tried first, keyed by the serialized reading; the mapped text is
// re-parsed as the sensor's kind. Otherwise range and level readings become
// round(value*Scale + Offset), with a zero Scale meaning 1.
type Mapping struct {
	Sensor string
	Scale  float64
	Offset float64
	Lookup map[string]string
}

func (m Mapping) scales() bool {
	return m.Scale != 0 || m.Offset != 0
}

func (m Mapping) apply(n int) int {
	scale := m.Scale
	if scale == 0 {
		scale = 1
	}
	return int(math.Round(float64(n)*scale + m.Offset))
}

// Mapper rewrites readings of mapped sensors.
//
// Thread Safety:
//   - SetMappings may run concurrently with Push.
type Mapper struct {
	mu       sync.RWMutex
	mappings map[string]Mapping
}

// NewMapper creates a mapper with no mappings.
func NewMapper() *Mapper {
	return &Mapper{mappings: make(map[string]Mapping)}
}

// SetMappings replaces all mappings. A later mapping for the same sensor wins.
func (m *Mapper) SetMappings(mappings []Mapping) {
	next := make(map[string]Mapping, len(mappings))
	for _, mp := range mappings {
		next[mp.Sensor] = mp
	}
	m.mu.Lock()
	m.mappings = next
	m.mu.Unlock()
}

// Len returns the number of mapped sensors.
func (m *Mapper) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.mappings)
}

func (m *Mapper) Name() string                        { return "mapper" }
func (m *Mapper) Start(*statuscache.InitContext) error { return nil }
func (m *Mapper) Stop() error                         { return nil }

// Push replaces the event with its mapped value, if the sensor is mapped.
func (m *Mapper) Push(ec *statuscache.EventContext) error {
	e := ec.Event()

	m.mu.RLock()
	mp, ok := m.mappings[e.Source()]
	m.mu.RUnlock()
	if !ok {
		return nil
	}

	if mapped, ok := mp.Lookup[e.Serialize()]; ok {
		v, err := reparse(e.Value(), mapped)
		if err != nil {
			return fmt.Errorf("%w: %s: %w", ErrMappingFailed, e.Source(), err)
		}
		ec.Replace(e.WithValue(v))
		return nil
	}

	if !mp.scales() {
		return nil
	}
	switch v := e.Value().(type) {
	case event.Range:
		ec.Replace(e.WithValue(event.NewRange(mp.apply(v.Value), v.Min, v.Max)))
	case event.Level:
		ec.Replace(e.WithValue(event.NewLevel(mp.apply(v.Percent))))
	}
	return nil
}

// reparse parses raw as the kind of v, keeping range bounds.
func reparse(v event.Value, raw string) (event.Value, error) {
	var opts event.ParseOptions
	if r, ok := v.(event.Range); ok {
		opts = event.ParseOptions{Min: r.Min, Max: r.Max}
	}
	return event.Parse(v.Kind(), raw, opts)
}
