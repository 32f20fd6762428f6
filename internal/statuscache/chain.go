package statuscache

import (
	"fmt"
)

// EventProcessor is one stage of the event pipeline.
type EventProcessor interface {
	// Name identifies the processor in logs.
	Name() string

	// Start is called once before the first event.
	Start(ic *InitContext) error

	// Push processes one event. A processor may Replace the event or
	// terminate it. A returned error is logged and the chain continues.
	Push(ec *EventContext) error

	// Stop is called once during shutdown.
	Stop() error
}

// EventProcessorChain runs events through processors in a fixed order.
//
// Thread Safety:
//   - The processor list is fixed at construction. Push is serialised by the
//     cache lock; the chain adds no locking of its own.
type EventProcessorChain struct {
	processors []EventProcessor
	logger     Logger
}

// NewChain creates a chain. Nil processors are skipped.
func NewChain(processors []EventProcessor, logger Logger) *EventProcessorChain {
	if logger == nil {
		logger = noopLogger{}
	}
	ps := make([]EventProcessor, 0, len(processors))
	for _, p := range processors {
		if p != nil {
			ps = append(ps, p)
		}
	}
	return &EventProcessorChain{processors: ps, logger: logger}
}

// Processors returns the processors in push order.
func (c *EventProcessorChain) Processors() []EventProcessor {
	return append([]EventProcessor(nil), c.processors...)
}

// Start starts every processor. A failing processor is logged and does not
// prevent the others from starting.
func (c *EventProcessorChain) Start(ic *InitContext) {
	for _, p := range c.processors {
		if err := c.guard(p, "start", func() error { return p.Start(ic) }); err != nil {
			c.logger.Error("event processor failed to start", "processor", p.Name(), "error", err)
			continue
		}
		c.logger.Debug("event processor started", "processor", p.Name())
	}
}

// Push runs ec through the processors until one terminates it.
func (c *EventProcessorChain) Push(ec *EventContext) {
	for _, p := range c.processors {
		if err := c.guard(p, "push", func() error { return p.Push(ec) }); err != nil {
			c.logger.Error("event processor failed",
				"processor", p.Name(),
				"sensor_id", ec.Event().SourceID(),
				"error", err,
			)
		}
		if ec.HasTerminated() {
			c.logger.Debug("event terminated",
				"processor", p.Name(),
				"sensor_id", ec.Event().SourceID(),
			)
			return
		}
	}
}

// Stop stops every processor. Failures are logged per processor.
func (c *EventProcessorChain) Stop() {
	for _, p := range c.processors {
		if err := c.guard(p, "stop", p.Stop); err != nil {
			c.logger.Error("event processor failed to stop", "processor", p.Name(), "error", err)
		}
	}
}

// guard runs fn and converts a panic into an error.
func (c *EventProcessorChain) guard(p EventProcessor, op string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in %s %s: %v", p.Name(), op, r)
		}
	}()
	return fn()
}
