package statuscache

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/nerrad567/gray-logic-controller/internal/command"
	"github.com/nerrad567/gray-logic-controller/internal/event"
)

// UnknownStatus is returned for sensor ids that were never registered.
// It differs from event.UnknownValue, which a registered sensor reports
// before its first reading.
const UnknownStatus = "N/A"

// Sensor is the cache-side view of a registered sensor.
type Sensor interface {
	ID() int
	Name() string

	// Start begins producing readings. It must not block on Update.
	Start(ctx context.Context) error

	// Stop cancels the sensor and returns without waiting for an in-flight
	// Update to finish.
	Stop() error
}

// State is the cache lifecycle state.
type State int32

const (
	StateCreated State = iota
	StateStarted
	StateShuttingDown
	StateShutdown
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateStarted:
		return "started"
	case StateShuttingDown:
		return "shutting_down"
	case StateShutdown:
		return "shutdown"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Option configures a StatusCache.
type Option func(*StatusCache)

// WithLogger sets the cache logger.
func WithLogger(l Logger) Option {
	return func(c *StatusCache) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMetrics sets the cache metrics.
func WithMetrics(m *Metrics) Option {
	return func(c *StatusCache) { c.metrics = m }
}

// StatusCache holds the latest state of every registered sensor and runs
// incoming events through the processor chain.
//
// Thread Safety:
//   - Update, RegisterSensor and Shutdown are serialised by one cache-wide
//     lock, so events are processed one at a time.
//   - Queries and snapshots do not take that lock and may observe state
//     just before an in-progress update commits.
type StatusCache struct {
	mu    sync.Mutex
	state atomic.Int32

	chain   *EventProcessorChain
	sensors *sensorMap
	table   *ChangedStatusTable
	facade  atomic.Pointer[command.Facade]

	regMu    sync.RWMutex
	registry map[int]Sensor

	// removed holds unregistered ids whose late readings must be dropped.
	// Guarded by mu.
	removed map[int]struct{}

	logger  Logger
	metrics *Metrics
}

// New creates a cache that pushes events through chain. A nil chain runs
// no processors.
func New(chain *EventProcessorChain, opts ...Option) *StatusCache {
	c := &StatusCache{
		registry: make(map[int]Sensor),
		removed:  make(map[int]struct{}),
		table:    NewChangedStatusTable(),
		logger:   noopLogger{},
	}
	for _, opt := range opts {
		opt(c)
	}
	if chain == nil {
		chain = NewChain(nil, c.logger)
	}
	c.chain = chain
	c.sensors = newSensorMap(c.table, c.logger)
	return c
}

// State returns the lifecycle state.
func (c *StatusCache) State() State {
	return State(c.state.Load())
}

// Start starts the processor chain. ctx is handed to processors through
// their InitContext.
func (c *StatusCache) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.state.CompareAndSwap(int32(StateCreated), int32(StateStarted)) {
		if c.State() >= StateShuttingDown {
			return ErrShutdown
		}
		return ErrAlreadyStarted
	}

	c.chain.Start(NewInitContext(ctx, c))
	c.logger.Info("status cache started", "processors", len(c.chain.processors))
	return nil
}

// InitializeEventContext installs the command set used by event processors.
// It is called on every deployment and replaces the previous set wholesale.
func (c *StatusCache) InitializeEventContext(cmds []command.Command) {
	f := command.NewFacade(cmds)
	c.facade.Store(f)
	c.logger.Info("event context initialised", "commands", f.Len())
}

// Commands returns the current command facade, or nil before the first
// InitializeEventContext.
func (c *StatusCache) Commands() *command.Facade {
	return c.facade.Load()
}

// RegisterSensor adds s, installs its Unknown placeholder and starts it.
//
// Registration is skipped once shutdown has begun. A sensor with an id that
// is already registered replaces the previous one, which is stopped.
func (c *StatusCache) RegisterSensor(ctx context.Context, s Sensor) error {
	if s == nil {
		return ErrInvalidSensor
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.State() >= StateShuttingDown {
		c.logger.Debug("sensor registration skipped during shutdown", "sensor_id", s.ID())
		return nil
	}

	id := s.ID()
	delete(c.removed, id)

	c.regMu.Lock()
	old, dup := c.registry[id]
	c.registry[id] = s
	count := len(c.registry)
	c.regMu.Unlock()

	if dup && old != s {
		c.logger.Warn("duplicate sensor id, replacing",
			"sensor_id", id,
			"old_name", old.Name(),
			"new_name", s.Name(),
		)
		if err := stopSensor(old); err != nil {
			c.logger.Error("stopping replaced sensor", "sensor_id", id, "error", err)
		}
	}

	c.sensors.init(id, s.Name())

	if err := s.Start(ctx); err != nil {
		c.regMu.Lock()
		delete(c.registry, id)
		count = len(c.registry)
		c.regMu.Unlock()
		c.sensors.remove(id)
		c.metrics.setSensors(count)
		return fmt.Errorf("starting sensor %q: %w", s.Name(), err)
	}

	c.metrics.setSensors(count)
	c.logger.Info("sensor registered", "sensor_id", id, "sensor", s.Name())
	return nil
}

// UnregisterSensor stops and removes sensor id. Long-poll clients watching
// it are told it changed; its status reads as UnknownStatus afterwards.
// Readings for id that arrive after this returns are dropped until a sensor
// with that id is registered again.
func (c *StatusCache) UnregisterSensor(id int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.regMu.Lock()
	s, ok := c.registry[id]
	delete(c.registry, id)
	count := len(c.registry)
	c.regMu.Unlock()

	if !ok {
		return fmt.Errorf("%w: id %d", ErrSensorNotFound, id)
	}

	if err := stopSensor(s); err != nil {
		c.logger.Error("stopping sensor", "sensor_id", id, "sensor", s.Name(), "error", err)
	}
	c.removed[id] = struct{}{}
	c.sensors.remove(id)
	c.table.UpdateStatusChangedIDs(id)
	c.metrics.setSensors(count)
	c.logger.Info("sensor unregistered", "sensor_id", id, "sensor", s.Name())
	return nil
}

// SensorIDs returns the registered sensor ids in ascending order.
func (c *StatusCache) SensorIDs() []int {
	c.regMu.RLock()
	ids := make([]int, 0, len(c.registry))
	for id := range c.registry {
		ids = append(ids, id)
	}
	c.regMu.RUnlock()
	sort.Ints(ids)
	return ids
}

// Update runs e through the processor chain and commits the surviving event
// unless a processor terminated it. Events arriving during shutdown are
// dropped.
func (c *StatusCache) Update(e event.Event) {
	c.metrics.incReceived()

	if c.State() >= StateShuttingDown {
		c.metrics.incDropped()
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Shutdown may have won the lock while we waited.
	if c.State() >= StateShuttingDown {
		c.metrics.incDropped()
		return
	}

	// A stopped sensor may still deliver one reading it sent before Stop.
	if _, gone := c.removed[e.SourceID()]; gone {
		c.metrics.incDropped()
		c.logger.Debug("reading from unregistered sensor dropped", "sensor_id", e.SourceID())
		return
	}

	ec := NewEventContext(c, e, c.facade.Load())
	c.chain.Push(ec)

	if ec.HasTerminated() {
		c.metrics.incTerminated()
		return
	}

	if c.sensors.update(ec.Event()) {
		c.metrics.incCommitted()
	} else {
		c.metrics.incUnchanged()
	}
}

// QueryStatus returns the serialized state of sensor id, or UnknownStatus
// if no such sensor is registered.
func (c *StatusCache) QueryStatus(id int) string {
	e, ok := c.sensors.get(id)
	if !ok {
		c.logger.Error("status requested for unknown sensor", "sensor_id", id)
		return UnknownStatus
	}
	return e.Serialize()
}

// QueryStatuses returns the serialized state of each id. Unknown ids map to
// UnknownStatus. An empty ids returns nil.
func (c *StatusCache) QueryStatuses(ids []int) map[int]string {
	if len(ids) == 0 {
		return nil
	}
	out := make(map[int]string, len(ids))
	for _, id := range ids {
		out[id] = c.QueryStatus(id)
	}
	return out
}

// QueryStatusByName returns the serialized state of the named sensor.
func (c *StatusCache) QueryStatusByName(name string) (string, error) {
	id, ok := c.sensors.idByName(name)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrSensorNotFound, name)
	}
	e, ok := c.sensors.get(id)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrSensorNotFound, name)
	}
	return e.Serialize(), nil
}

// Lookup returns the stored event for id.
func (c *StatusCache) Lookup(id int) (event.Event, bool) {
	return c.sensors.get(id)
}

// StateSnapshot returns a point-in-time copy of every stored event,
// ordered by sensor id.
func (c *StatusCache) StateSnapshot() []event.Event {
	return c.sensors.snapshot()
}

// ChangedStatuses returns the table long-poll clients wait on.
func (c *StatusCache) ChangedStatuses() *ChangedStatusTable {
	return c.table
}

// SensorCount returns the number of registered sensors.
func (c *StatusCache) SensorCount() int {
	c.regMu.RLock()
	defer c.regMu.RUnlock()
	return len(c.registry)
}

// Shutdown stops the chain and every sensor, wakes all long-poll waiters and
// clears all state. It is terminal and safe to call more than once.
func (c *StatusCache) Shutdown() {
	var prev State
	for {
		cur := c.state.Load()
		if State(cur) >= StateShuttingDown {
			return
		}
		if c.state.CompareAndSwap(cur, int32(StateShuttingDown)) {
			prev = State(cur)
			break
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.logger.Info("status cache shutting down")

	// Processors are only started by Start.
	if prev == StateStarted {
		c.chain.Stop()
	}

	c.regMu.RLock()
	sensors := make([]Sensor, 0, len(c.registry))
	for _, s := range c.registry {
		sensors = append(sensors, s)
	}
	c.regMu.RUnlock()

	for _, s := range sensors {
		if err := stopSensor(s); err != nil {
			c.logger.Error("stopping sensor", "sensor_id", s.ID(), "sensor", s.Name(), "error", err)
		}
	}

	c.sensors.clear()
	c.removed = make(map[int]struct{})

	c.regMu.Lock()
	c.registry = make(map[int]Sensor)
	c.regMu.Unlock()
	c.metrics.setSensors(0)

	c.state.Store(int32(StateShutdown))
	c.logger.Info("status cache shut down", "sensors_stopped", len(sensors))
}

// stopSensor stops s, converting a panic into an error so one faulty sensor
// cannot prevent the rest from stopping.
func stopSensor(s Sensor) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in stop: %v", r)
		}
	}()
	return s.Stop()
}
