package command

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/nerrad567/gray-logic-controller/internal/event"
)

// ─── Mocks ──────────────────────────────────────────────────────────────────

// recordingCommand remembers every parameter it is executed with.
type recordingCommand struct {
	name   string
	err    error
	mu     sync.Mutex
	params []string
}

func (c *recordingCommand) Name() string { return c.name }

func (c *recordingCommand) Execute(_ context.Context, param string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.params = append(c.params, param)
	return c.err
}

func (c *recordingCommand) calls() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.params...)
}

// mockPublisher captures published messages.
type mockPublisher struct {
	mu       sync.Mutex
	topics   []string
	payloads [][]byte
	retained []bool
	err      error
}

func (m *mockPublisher) Publish(topic string, payload []byte, _ byte, retained bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.topics = append(m.topics, topic)
	m.payloads = append(m.payloads, payload)
	m.retained = append(m.retained, retained)
	return nil
}

// ─── Facade ─────────────────────────────────────────────────────────────────

func TestFacade_Lookup(t *testing.T) {
	on := &recordingCommand{name: "lights-on"}
	off := &recordingCommand{name: "lights-off"}
	f := NewFacade([]Command{on, nil, off})

	if f.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", f.Len())
	}

	got, err := f.Command("lights-on")
	if err != nil {
		t.Fatalf("Command() error = %v", err)
	}
	if got != on {
		t.Error("Command() returned wrong command")
	}

	if _, err := f.Command("missing"); !errors.Is(err, ErrCommandNotFound) {
		t.Errorf("Command(missing) error = %v, want ErrCommandNotFound", err)
	}

	names := f.Names()
	if len(names) != 2 || names[0] != "lights-off" || names[1] != "lights-on" {
		t.Errorf("Names() = %v, want sorted [lights-off lights-on]", names)
	}
}

func TestFacade_LaterDuplicateWins(t *testing.T) {
	first := &recordingCommand{name: "alarm"}
	second := &recordingCommand{name: "alarm"}
	f := NewFacade([]Command{first, second})

	if err := f.Execute(context.Background(), "alarm", "arm"); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if len(first.calls()) != 0 {
		t.Error("earlier duplicate should have been replaced")
	}
	if got := second.calls(); len(got) != 1 || got[0] != "arm" {
		t.Errorf("second calls = %v, want [arm]", got)
	}
}

func TestFacade_ExecuteWrapsError(t *testing.T) {
	boom := errors.New("bridge offline")
	f := NewFacade([]Command{&recordingCommand{name: "heat", err: boom}})

	err := f.Execute(context.Background(), "heat", "on")
	if !errors.Is(err, boom) {
		t.Errorf("Execute() error = %v, want wrapped %v", err, boom)
	}
}

func TestFacade_NilIsEmpty(t *testing.T) {
	var f *Facade
	if f.Len() != 0 || f.Names() != nil {
		t.Error("nil Facade should be empty")
	}
	if _, err := f.Command("x"); !errors.Is(err, ErrCommandNotFound) {
		t.Errorf("nil Facade Command() error = %v", err)
	}
}

func TestFacade_Send(t *testing.T) {
	tests := []struct {
		name    string
		value   event.Value
		want    string
		wantErr error
	}{
		{"switch on", event.Switch{On: true}, "on", nil},
		{"switch off", event.Switch{}, "off", nil},
		{"range", event.NewRange(18, 0, 30), "18", nil},
		{"level", event.NewLevel(42), "42", nil},
		{"custom", event.Custom{Text: "scene-3"}, "scene-3", nil},
		{"unknown", event.Unknown{}, "", ErrNoParameter},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := &recordingCommand{name: "target"}
			f := NewFacade([]Command{cmd})

			err := f.Send(context.Background(), "target", tt.value)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Send() error = %v, want %v", err, tt.wantErr)
				}
				if len(cmd.calls()) != 0 {
					t.Error("command should not run when the value has no parameter")
				}
				return
			}
			if err != nil {
				t.Fatalf("Send() error = %v", err)
			}
			if got := cmd.calls(); len(got) != 1 || got[0] != tt.want {
				t.Errorf("calls = %v, want [%s]", got, tt.want)
			}
		})
	}
}

// ─── MQTTCommand ────────────────────────────────────────────────────────────

func TestNewMQTTCommand_Validation(t *testing.T) {
	pub := &mockPublisher{}

	tests := []struct {
		name string
		cfg  MQTTCommandConfig
		pub  Publisher
	}{
		{"missing name", MQTTCommandConfig{Protocol: "knx", Address: "1/2/3"}, pub},
		{"missing protocol", MQTTCommandConfig{Name: "x", Address: "1/2/3"}, pub},
		{"missing address", MQTTCommandConfig{Name: "x", Protocol: "knx"}, pub},
		{"nil publisher", MQTTCommandConfig{Name: "x", Protocol: "knx", Address: "1/2/3"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewMQTTCommand(tt.cfg, tt.pub); !errors.Is(err, ErrInvalidCommand) {
				t.Errorf("NewMQTTCommand() error = %v, want ErrInvalidCommand", err)
			}
		})
	}
}

func TestMQTTCommand_Execute(t *testing.T) {
	pub := &mockPublisher{}
	cmd, err := NewMQTTCommand(MQTTCommandConfig{
		Name:     "hall-light",
		Protocol: "knx",
		Address:  "light-hall",
		Action:   "set",
		QoS:      1,
	}, pub)
	if err != nil {
		t.Fatalf("NewMQTTCommand() error = %v", err)
	}

	if err := cmd.Execute(context.Background(), "on"); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if len(pub.topics) != 1 {
		t.Fatalf("published %d messages, want 1", len(pub.topics))
	}
	if pub.topics[0] != "graylogic/command/knx/light-hall" {
		t.Errorf("topic = %q", pub.topics[0])
	}
	if pub.retained[0] {
		t.Error("commands must not be retained")
	}

	var msg Message
	if err := json.Unmarshal(pub.payloads[0], &msg); err != nil {
		t.Fatalf("payload is not JSON: %v", err)
	}
	if msg.Command != "set" || msg.Parameter != "on" || msg.Source != "controller" {
		t.Errorf("message = %+v", msg)
	}
	if msg.ID == "" {
		t.Error("message id should be set")
	}
	if msg.Timestamp.IsZero() {
		t.Error("message timestamp should be set")
	}
}

func TestMQTTCommand_ActionDefaultsToName(t *testing.T) {
	pub := &mockPublisher{}
	cmd, err := NewMQTTCommand(MQTTCommandConfig{Name: "dim", Protocol: "dali", Address: "ballast-4"}, pub)
	if err != nil {
		t.Fatalf("NewMQTTCommand() error = %v", err)
	}
	if err := cmd.Execute(context.Background(), "40"); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	var msg Message
	_ = json.Unmarshal(pub.payloads[0], &msg)
	if msg.Command != "dim" {
		t.Errorf("Command = %q, want dim", msg.Command)
	}
}

func TestMQTTCommand_Errors(t *testing.T) {
	t.Run("publish failure", func(t *testing.T) {
		boom := errors.New("not connected")
		cmd, _ := NewMQTTCommand(MQTTCommandConfig{Name: "x", Protocol: "knx", Address: "a"}, &mockPublisher{err: boom})
		if err := cmd.Execute(context.Background(), "on"); !errors.Is(err, boom) {
			t.Errorf("Execute() error = %v, want %v", err, boom)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		pub := &mockPublisher{}
		cmd, _ := NewMQTTCommand(MQTTCommandConfig{Name: "x", Protocol: "knx", Address: "a"}, pub)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if err := cmd.Execute(ctx, "on"); !errors.Is(err, context.Canceled) {
			t.Errorf("Execute() error = %v, want context.Canceled", err)
		}
		if len(pub.topics) != 0 {
			t.Error("nothing should be published after cancellation")
		}
	})
}
