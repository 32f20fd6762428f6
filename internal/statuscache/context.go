package statuscache

import (
	"context"

	"github.com/nerrad567/gray-logic-controller/internal/command"
	"github.com/nerrad567/gray-logic-controller/internal/event"
)

// EventContext carries one event through the processor chain.
//
// It is created per Update call and is only touched by the goroutine running
// that call, so it needs no locking.
type EventContext struct {
	cache      *StatusCache
	event      event.Event
	commands   *command.Facade
	terminated bool
}

// NewEventContext creates a context for e. cache may be nil, in which case
// Events returns only the in-flight event.
func NewEventContext(cache *StatusCache, e event.Event, commands *command.Facade) *EventContext {
	return &EventContext{cache: cache, event: e, commands: commands}
}

// Event returns the in-flight event, including any replacement.
func (c *EventContext) Event() event.Event { return c.event }

// Replace substitutes the in-flight event. The terminated flag is unchanged.
func (c *EventContext) Replace(e event.Event) { c.event = e }

// TerminateEvent stops the chain after the current processor and prevents
// the event from being committed. It cannot be undone.
func (c *EventContext) TerminateEvent() { c.terminated = true }

// HasTerminated reports whether TerminateEvent was called.
func (c *EventContext) HasTerminated() bool { return c.terminated }

// Commands returns the deployment's command facade. It may be nil before the
// first deployment.
func (c *EventContext) Commands() *command.Facade { return c.commands }

// Cache returns the owning cache.
func (c *EventContext) Cache() *StatusCache { return c.cache }

// Events returns the current state with the in-flight event in place of the
// committed reading from the same sensor.
func (c *EventContext) Events() []event.Event {
	if c.cache == nil {
		return []event.Event{c.event}
	}
	snap := c.cache.StateSnapshot()
	out := make([]event.Event, 0, len(snap)+1)
	for _, e := range snap {
		if e.SourceID() == c.event.SourceID() || e.Source() == c.event.Source() {
			continue
		}
		out = append(out, e)
	}
	return append(out, c.event)
}

// InitContext is handed to every processor when the chain starts.
type InitContext struct {
	ctx   context.Context
	cache *StatusCache
}

// NewInitContext creates an InitContext. A nil ctx is replaced with
// context.Background.
func NewInitContext(ctx context.Context, cache *StatusCache) *InitContext {
	if ctx == nil {
		ctx = context.Background()
	}
	return &InitContext{ctx: ctx, cache: cache}
}

// Context is cancelled when the controller stops. Processors that run
// background work should tie it to this context.
func (c *InitContext) Context() context.Context { return c.ctx }

// Cache returns the cache the chain belongs to.
func (c *InitContext) Cache() *StatusCache { return c.cache }
