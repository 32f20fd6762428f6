package sensor

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// defaultPollInterval is used when a polling sensor has no interval.
const defaultPollInterval = 5 * time.Second

// Reader produces one raw reading.
type Reader interface {
	Read(ctx context.Context) (string, error)
}

// ReaderFunc adapts a function to Reader.
type ReaderFunc func(ctx context.Context) (string, error)

// Read calls f.
func (f ReaderFunc) Read(ctx context.Context) (string, error) { return f(ctx) }

// PollingSensor reads a Reader on a fixed interval and forwards readings
// that differ from the previous raw value.
//
// Thread Safety:
//   - Start and Stop are safe for concurrent use.
type PollingSensor struct {
	def      Definition
	reader   Reader
	interval time.Duration
	sink     Sink
	logger   Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewPollingSensor creates a sensor reading r every interval.
func NewPollingSensor(def Definition, r Reader, interval time.Duration, sink Sink, logger Logger) (*PollingSensor, error) {
	if err := def.Validate(); err != nil {
		return nil, err
	}
	if r == nil || sink == nil {
		return nil, fmt.Errorf("%w: sensor %q needs a reader and a sink", ErrInvalidDefinition, def.Name)
	}
	if interval <= 0 {
		interval = defaultPollInterval
	}
	if logger == nil {
		logger = noopLogger{}
	}
	return &PollingSensor{
		def:      def,
		reader:   r,
		interval: interval,
		sink:     sink,
		logger:   logger,
	}, nil
}

// ID returns the sensor id.
func (s *PollingSensor) ID() int { return s.def.ID }

// Name returns the sensor name.
func (s *PollingSensor) Name() string { return s.def.Name }

// Start begins polling in a background goroutine. The first read happens
// immediately.
func (s *PollingSensor) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		return ErrAlreadyStarted
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.run(ctx, s.done)
	return nil
}

// Stop cancels polling and returns without waiting.
func (s *PollingSensor) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	return nil
}

// Done is closed when the polling goroutine exits. It is nil before Start.
func (s *PollingSensor) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}

func (s *PollingSensor) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	var last string
	var haveLast, failing bool

	poll := func() {
		raw, err := s.reader.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if !failing {
				s.logger.Warn("sensor read failed", "sensor", s.def.Name, "error", err)
				failing = true
			}
			return
		}
		if failing {
			s.logger.Info("sensor read recovered", "sensor", s.def.Name)
			failing = false
		}
		if haveLast && raw == last {
			return
		}

		e, err := s.def.NewEvent(raw)
		if err != nil {
			s.logger.Warn("sensor reading rejected", "sensor", s.def.Name, "raw", raw, "error", err)
			return
		}
		last, haveLast = raw, true

		if ctx.Err() != nil {
			return
		}
		s.sink.Update(e)
	}

	poll()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			poll()
		}
	}
}
