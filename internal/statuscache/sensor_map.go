package statuscache

import (
	"sort"
	"sync"

	"github.com/nerrad567/gray-logic-controller/internal/event"
)

// sensorMap holds the latest committed event per sensor id and a name index.
// Reads take the read lock; writers are already serialised by the cache lock.
type sensorMap struct {
	mu     sync.RWMutex
	events map[int]event.Event
	names  map[string]int

	table  *ChangedStatusTable
	logger Logger
}

func newSensorMap(table *ChangedStatusTable, logger Logger) *sensorMap {
	return &sensorMap{
		events: make(map[int]event.Event),
		names:  make(map[string]int),
		table:  table,
		logger: logger,
	}
}

// init installs the name index entry and the Unknown placeholder for s.
func (m *sensorMap) init(id int, name string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if prev, ok := m.events[id]; ok && prev.Source() != name {
		delete(m.names, prev.Source())
	}
	m.events[id] = event.NewUnknown(id, name)
	m.names[name] = id
}

// remove drops id and its name index entry.
func (m *sensorMap) remove(id int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if prev, ok := m.events[id]; ok {
		if m.names[prev.Source()] == id {
			delete(m.names, prev.Source())
		}
		delete(m.events, id)
	}
}

// update commits e and reports whether the stored state changed.
// A reading logically equal to the stored one is a no-op.
func (m *sensorMap) update(e event.Event) bool {
	id := e.SourceID()

	m.mu.Lock()
	prev, known := m.events[id]
	if known && prev.Equal(e) {
		m.mu.Unlock()
		return false
	}
	m.events[id] = e
	if !known && e.Source() != "" {
		m.names[e.Source()] = id
	}
	m.mu.Unlock()

	m.table.UpdateStatusChangedIDs(id)

	from := "none"
	if known {
		from = prev.Serialize()
	}
	trace(m.logger, "sensor state changed",
		"sensor_id", id,
		"sensor", e.Source(),
		"from", from,
		"to", e.Serialize(),
	)
	return true
}

func (m *sensorMap) get(id int) (event.Event, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.events[id]
	return e, ok
}

func (m *sensorMap) idByName(name string) (int, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.names[name]
	return id, ok
}

// snapshot returns a point-in-time copy ordered by sensor id.
func (m *sensorMap) snapshot() []event.Event {
	m.mu.RLock()
	out := make([]event.Event, 0, len(m.events))
	for _, e := range m.events {
		out = append(out, e)
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].SourceID() < out[j].SourceID() })
	return out
}

func (m *sensorMap) len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.events)
}

// clear wakes every long-poll waiter, drops all change records and empties
// the map.
func (m *sensorMap) clear() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id := range m.events {
		m.table.Notify(id)
	}
	m.table.ClearAllRecords()

	m.events = make(map[int]event.Event)
	m.names = make(map[string]int)
}
