package sensor

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-controller/internal/event"
	"github.com/nerrad567/gray-logic-controller/internal/infrastructure/mqtt"
)

// ─── Mocks ──────────────────────────────────────────────────────────────────

type mockSink struct {
	mu     sync.Mutex
	events []event.Event
	notify chan struct{}
}

func newMockSink() *mockSink {
	return &mockSink{notify: make(chan struct{}, 64)}
}

func (s *mockSink) Update(e event.Event) {
	s.mu.Lock()
	s.events = append(s.events, e)
	s.mu.Unlock()
	s.notify <- struct{}{}
}

func (s *mockSink) waitFor(t *testing.T, n int) []event.Event {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		s.mu.Lock()
		if len(s.events) >= n {
			out := append([]event.Event(nil), s.events...)
			s.mu.Unlock()
			return out
		}
		s.mu.Unlock()
		select {
		case <-s.notify:
		case <-deadline:
			t.Fatalf("timed out waiting for %d events", n)
		}
	}
}

func (s *mockSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

type mockSubscriber struct {
	mu          sync.Mutex
	handlers    map[string]mqtt.MessageHandler
	unsubscribe []string
	subErr      error
}

func newMockSubscriber() *mockSubscriber {
	return &mockSubscriber{handlers: make(map[string]mqtt.MessageHandler)}
}

func (m *mockSubscriber) Subscribe(topic string, _ byte, h mqtt.MessageHandler) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.subErr != nil {
		return m.subErr
	}
	m.handlers[topic] = h
	return nil
}

func (m *mockSubscriber) Unsubscribe(topic string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.handlers, topic)
	m.unsubscribe = append(m.unsubscribe, topic)
	return nil
}

func (m *mockSubscriber) deliver(topic string, payload string) error {
	m.mu.Lock()
	h := m.handlers[topic]
	m.mu.Unlock()
	if h == nil {
		return errors.New("no handler")
	}
	return h(topic, []byte(payload))
}

// ─── Definition ─────────────────────────────────────────────────────────────

func TestDefinition_Validate(t *testing.T) {
	tests := []struct {
		name    string
		def     Definition
		wantErr bool
	}{
		{"valid switch", Definition{ID: 1, Name: "door", Kind: event.KindSwitch}, false},
		{"valid range", Definition{ID: 2, Name: "temp", Kind: event.KindRange, Min: -20, Max: 50}, false},
		{"missing name", Definition{ID: 3, Kind: event.KindSwitch}, true},
		{"bad kind", Definition{ID: 4, Name: "x", Kind: "colour"}, true},
		{"inverted range", Definition{ID: 5, Name: "x", Kind: event.KindRange, Min: 10, Max: 0}, true},
		{"range without bounds", Definition{ID: 6, Name: "x", Kind: event.KindRange}, true},
		{"empty range", Definition{ID: 7, Name: "x", Kind: event.KindRange, Min: 5, Max: 5}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.def.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidDefinition) {
				t.Errorf("Validate() error = %v, want ErrInvalidDefinition", err)
			}
		})
	}
}

func TestDefinition_NewEvent(t *testing.T) {
	def := Definition{ID: 9, Name: "temp", Kind: event.KindRange, Min: 0, Max: 40}

	e, err := def.NewEvent("23.4")
	if err != nil {
		t.Fatalf("NewEvent() error = %v", err)
	}
	if e.SourceID() != 9 || e.Source() != "temp" || e.Serialize() != "23" {
		t.Errorf("NewEvent() = %v", e)
	}

	if _, err := def.NewEvent("hot"); !errors.Is(err, event.ErrInvalidValue) {
		t.Errorf("NewEvent(hot) error = %v, want ErrInvalidValue", err)
	}
}

// ─── FileReader ─────────────────────────────────────────────────────────────

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "value")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
	return path
}

func TestFileReader(t *testing.T) {
	tests := []struct {
		name    string
		content string
		reader  FileReader
		want    string
		wantErr bool
	}{
		{"plain", "on\n", FileReader{}, "on", false},
		{"sysfs millidegrees", "45123\n", FileReader{Divisor: 1000}, "45.123", false},
		{
			"1-wire",
			"72 01 4b 46 7f ff 0e 10 57 : crc=57 YES\n72 01 4b 46 7f ff 0e 10 57 t=23125\n",
			FileReader{Marker: "t=", Divisor: 1000},
			"23.125",
			false,
		},
		{"marker missing", "crc=00 NO\n", FileReader{Marker: "t="}, "", true},
		{"empty", "  \n", FileReader{}, "", true},
		{"not numeric", "abc", FileReader{Divisor: 10}, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := tt.reader
			r.Path = writeFile(t, tt.content)

			got, err := r.Read(context.Background())
			if (err != nil) != tt.wantErr {
				t.Fatalf("Read() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("Read() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFileReader_MissingFile(t *testing.T) {
	r := FileReader{Path: filepath.Join(t.TempDir(), "nope")}
	if _, err := r.Read(context.Background()); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Read() error = %v, want ErrNotExist", err)
	}
}

// ─── PollingSensor ──────────────────────────────────────────────────────────

func TestPollingSensor_ForwardsChangesOnly(t *testing.T) {
	var mu sync.Mutex
	readings := []string{"10", "10", "12", "12", "12"}
	i := 0
	reader := ReaderFunc(func(context.Context) (string, error) {
		mu.Lock()
		defer mu.Unlock()
		v := readings[len(readings)-1]
		if i < len(readings) {
			v = readings[i]
			i++
		}
		return v, nil
	})

	sink := newMockSink()
	def := Definition{ID: 1, Name: "temp", Kind: event.KindRange, Min: 0, Max: 40}
	s, err := NewPollingSensor(def, reader, time.Millisecond, sink, nil)
	if err != nil {
		t.Fatalf("NewPollingSensor() error = %v", err)
	}

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := s.Start(context.Background()); !errors.Is(err, ErrAlreadyStarted) {
		t.Errorf("second Start() error = %v, want ErrAlreadyStarted", err)
	}

	events := sink.waitFor(t, 2)
	if events[0].Serialize() != "10" || events[1].Serialize() != "12" {
		t.Errorf("events = %v, want 10 then 12", events)
	}

	// Let the remaining identical readings drain.
	time.Sleep(20 * time.Millisecond)
	_ = s.Stop()
	<-s.Done()

	if sink.count() != 2 {
		t.Errorf("forwarded %d events, want 2", sink.count())
	}
}

func TestPollingSensor_ReadErrorsSkipped(t *testing.T) {
	var mu sync.Mutex
	calls := 0
	reader := ReaderFunc(func(context.Context) (string, error) {
		mu.Lock()
		defer mu.Unlock()
		calls++
		if calls < 3 {
			return "", errors.New("bus busy")
		}
		return "on", nil
	})

	sink := newMockSink()
	s, _ := NewPollingSensor(Definition{ID: 2, Name: "door", Kind: event.KindSwitch}, reader, time.Millisecond, sink, nil)
	_ = s.Start(context.Background())
	defer s.Stop()

	events := sink.waitFor(t, 1)
	if events[0].Serialize() != "on" {
		t.Errorf("event = %v, want on", events[0])
	}
}

func TestPollingSensor_StopDoesNotWait(t *testing.T) {
	release := make(chan struct{})
	blocked := make(chan struct{})
	sink := &blockingSink{entered: blocked, release: release}

	s, _ := NewPollingSensor(Definition{ID: 3, Name: "x", Kind: event.KindCustom},
		ReaderFunc(func(context.Context) (string, error) { return "v", nil }),
		time.Hour, sink, nil)
	_ = s.Start(context.Background())

	<-blocked
	stopped := make(chan struct{})
	go func() {
		_ = s.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("Stop blocked on an in-flight Update")
	}
	close(release)
	<-s.Done()
}

type blockingSink struct {
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (s *blockingSink) Update(event.Event) {
	s.once.Do(func() { close(s.entered) })
	<-s.release
}

func TestNewPollingSensor_Validation(t *testing.T) {
	def := Definition{ID: 1, Name: "x", Kind: event.KindSwitch}
	if _, err := NewPollingSensor(def, nil, time.Second, newMockSink(), nil); !errors.Is(err, ErrInvalidDefinition) {
		t.Errorf("nil reader error = %v", err)
	}
	if _, err := NewPollingSensor(Definition{ID: 1}, FileReader{}, time.Second, newMockSink(), nil); !errors.Is(err, ErrInvalidDefinition) {
		t.Errorf("invalid definition error = %v", err)
	}
	s, err := NewPollingSensor(def, FileReader{}, 0, newMockSink(), nil)
	if err != nil {
		t.Fatalf("NewPollingSensor() error = %v", err)
	}
	if s.interval != defaultPollInterval {
		t.Errorf("interval = %v, want default", s.interval)
	}
	if s.ID() != 1 || s.Name() != "x" {
		t.Errorf("identity = %d/%s", s.ID(), s.Name())
	}
}

// ─── MQTTSensor ─────────────────────────────────────────────────────────────

func TestMQTTSensor_RawPayload(t *testing.T) {
	sub := newMockSubscriber()
	sink := newMockSink()
	def := Definition{ID: 5, Name: "kitchen-switch", Kind: event.KindSwitch}

	s, err := NewMQTTSensor(def, MQTTSensorConfig{Topic: "graylogic/state/knx/kitchen"}, sub, sink, nil)
	if err != nil {
		t.Fatalf("NewMQTTSensor() error = %v", err)
	}
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	if err := sub.deliver("graylogic/state/knx/kitchen", "ON"); err != nil {
		t.Fatalf("deliver() error = %v", err)
	}

	events := sink.waitFor(t, 1)
	if events[0].SourceID() != 5 || events[0].Serialize() != "on" {
		t.Errorf("event = %v", events[0])
	}

	if err := s.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if len(sub.unsubscribe) != 1 {
		t.Errorf("unsubscribed %v, want the sensor topic", sub.unsubscribe)
	}
	if err := s.Stop(); err != nil {
		t.Errorf("second Stop() error = %v", err)
	}
}

func TestMQTTSensor_JSONPayload(t *testing.T) {
	sub := newMockSubscriber()
	sink := newMockSink()
	def := Definition{ID: 6, Name: "dimmer", Kind: event.KindLevel}

	s, _ := NewMQTTSensor(def, MQTTSensorConfig{Topic: "t", ValueKey: "state.level"}, sub, sink, nil)
	_ = s.Start(context.Background())
	defer s.Stop()

	if err := sub.deliver("t", `{"device_id":"d1","state":{"level":62.4}}`); err != nil {
		t.Fatalf("deliver() error = %v", err)
	}
	events := sink.waitFor(t, 1)
	if events[0].Serialize() != "62" {
		t.Errorf("event = %v, want 62", events[0])
	}

	if err := sub.deliver("t", `{"state":{}}`); !errors.Is(err, ErrNoValue) {
		t.Errorf("missing key error = %v, want ErrNoValue", err)
	}
	if err := sub.deliver("t", `not json`); !errors.Is(err, ErrNoValue) {
		t.Errorf("invalid JSON error = %v, want ErrNoValue", err)
	}
}

func TestMQTTSensor_SubscribeFailure(t *testing.T) {
	sub := newMockSubscriber()
	sub.subErr = mqtt.ErrNotConnected
	s, _ := NewMQTTSensor(Definition{ID: 1, Name: "x", Kind: event.KindSwitch}, MQTTSensorConfig{Topic: "t"}, sub, newMockSink(), nil)

	if err := s.Start(context.Background()); !errors.Is(err, mqtt.ErrNotConnected) {
		t.Errorf("Start() error = %v, want ErrNotConnected", err)
	}
	if err := s.Stop(); err != nil {
		t.Errorf("Stop() on unstarted sensor error = %v", err)
	}
}

func TestExtractValue(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		key     string
		want    string
		wantErr bool
	}{
		{"raw trimmed", " 21.5 \n", "", "21.5", false},
		{"string field", `{"v":"on"}`, "v", "on", false},
		{"bool field", `{"on":true}`, "on", "true", false},
		{"number field", `{"t":21.25}`, "t", "21.25", false},
		{"nested", `{"a":{"b":{"c":3}}}`, "a.b.c", "3", false},
		{"null", `{"v":null}`, "v", "", true},
		{"object", `{"v":{"x":1}}`, "v", "", true},
		{"descend into scalar", `{"v":1}`, "v.x", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := extractValue([]byte(tt.payload), tt.key)
			if (err != nil) != tt.wantErr {
				t.Fatalf("extractValue() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("extractValue() = %q, want %q", got, tt.want)
			}
		})
	}
}
