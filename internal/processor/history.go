package processor

import (
	"context"
	"time"

	"github.com/nerrad567/gray-logic-controller/internal/event"
	"github.com/nerrad567/gray-logic-controller/internal/statuscache"
)

const defaultWriteTimeout = 2 * time.Second

// Recorder persists an event. Satisfied by *history.Repository.
type Recorder interface {
	Record(ctx context.Context, e event.Event) error
}

// History records changed readings. Unchanged repeats and placeholder
// values are skipped.
type History struct {
	recorder Recorder
	ctx      context.Context
}

// NewHistory creates a history processor writing to rec.
func NewHistory(rec Recorder) *History {
	return &History{recorder: rec, ctx: context.Background()}
}

func (h *History) Name() string { return "history" }

func (h *History) Start(ic *statuscache.InitContext) error {
	h.ctx = ic.Context()
	return nil
}

func (h *History) Stop() error { return nil }

func (h *History) Push(ec *statuscache.EventContext) error {
	e := ec.Event()
	if e.Kind() == event.KindUnknown || !changed(ec) {
		return nil
	}

	ctx, cancel := context.WithTimeout(h.ctx, defaultWriteTimeout)
	defer cancel()
	return h.recorder.Record(ctx, e)
}
