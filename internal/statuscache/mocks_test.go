package statuscache

import (
	"context"
	"errors"
	"sync"

	"github.com/nerrad567/gray-logic-controller/internal/event"
)

// ─── Mock Sensor ────────────────────────────────────────────────────────────

type mockSensor struct {
	id       int
	name     string
	startErr error
	stopErr  error

	mu      sync.Mutex
	started int
	stopped int
}

func newMockSensor(id int, name string) *mockSensor {
	return &mockSensor{id: id, name: name}
}

func (s *mockSensor) ID() int      { return s.id }
func (s *mockSensor) Name() string { return s.name }

func (s *mockSensor) Start(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.started++
	return s.startErr
}

func (s *mockSensor) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped++
	return s.stopErr
}

func (s *mockSensor) counts() (started, stopped int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started, s.stopped
}

// panicSensor panics when stopped.
type panicSensor struct{ mockSensor }

func (s *panicSensor) Stop() error { panic("sensor exploded") }

// ─── Mock Processor ─────────────────────────────────────────────────────────

// mockProcessor records what it sees and runs an optional push hook.
type mockProcessor struct {
	name     string
	onPush   func(ec *EventContext) error
	startErr error
	stopErr  error
	panicOn  string

	mu      sync.Mutex
	pushed  []event.Event
	started int
	stopped int
}

func (p *mockProcessor) Name() string { return p.name }

func (p *mockProcessor) Start(*InitContext) error {
	p.mu.Lock()
	p.started++
	p.mu.Unlock()
	if p.panicOn == "start" {
		panic("start exploded")
	}
	return p.startErr
}

func (p *mockProcessor) Push(ec *EventContext) error {
	p.mu.Lock()
	p.pushed = append(p.pushed, ec.Event())
	p.mu.Unlock()
	if p.panicOn == "push" {
		panic("push exploded")
	}
	if p.onPush != nil {
		return p.onPush(ec)
	}
	return nil
}

func (p *mockProcessor) Stop() error {
	p.mu.Lock()
	p.stopped++
	p.mu.Unlock()
	if p.panicOn == "stop" {
		panic("stop exploded")
	}
	return p.stopErr
}

func (p *mockProcessor) pushCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pushed)
}

var errProcessor = errors.New("processor failed")

// ─── Recording Logger ───────────────────────────────────────────────────────

type logEntry struct {
	level string
	msg   string
}

type recordingLogger struct {
	mu      sync.Mutex
	entries []logEntry
}

func (l *recordingLogger) add(level, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, logEntry{level: level, msg: msg})
}

func (l *recordingLogger) Debug(msg string, _ ...any) { l.add("debug", msg) }
func (l *recordingLogger) Info(msg string, _ ...any)  { l.add("info", msg) }
func (l *recordingLogger) Warn(msg string, _ ...any)  { l.add("warn", msg) }
func (l *recordingLogger) Error(msg string, _ ...any) { l.add("error", msg) }
func (l *recordingLogger) Trace(msg string, _ ...any) { l.add("trace", msg) }

func (l *recordingLogger) count(level, msg string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, e := range l.entries {
		if e.level == level && e.msg == msg {
			n++
		}
	}
	return n
}

// ─── Helpers ────────────────────────────────────────────────────────────────

func switchEvent(id int, name string, on bool) event.Event {
	return event.New(id, name, event.Switch{On: on})
}

func rangeEvent(id int, name string, v int) event.Event {
	return event.New(id, name, event.NewRange(v, 0, 100))
}
