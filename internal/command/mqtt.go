package command

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/gray-logic-controller/internal/infrastructure/mqtt"
)

// Publisher publishes MQTT messages. Satisfied by *mqtt.Client.
type Publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// Message is the JSON payload sent to a bridge command topic.
type Message struct {
	ID        string    `json:"id"`
	Command   string    `json:"command"`
	Parameter string    `json:"parameter,omitempty"`
	Source    string    `json:"source"`
	Timestamp time.Time `json:"timestamp"`
}

// MQTTCommand sends its invocation to a protocol bridge over MQTT.
type MQTTCommand struct {
	name      string
	action    string
	topic     string
	qos       byte
	publisher Publisher
}

// MQTTCommandConfig describes one MQTT-backed command.
type MQTTCommandConfig struct {
	// Name is the user-visible command name.
	Name string

	// Protocol and Address select the bridge topic
	// graylogic/command/{protocol}/{address}.
	Protocol string
	Address  string

	// Action is the bridge-level command, e.g. "set" or "dim".
	// Defaults to Name.
	Action string

	QoS byte
}

// NewMQTTCommand validates cfg and returns a command publishing through pub.
func NewMQTTCommand(cfg MQTTCommandConfig, pub Publisher) (*MQTTCommand, error) {
	if cfg.Name == "" || cfg.Protocol == "" || cfg.Address == "" {
		return nil, fmt.Errorf("%w: name, protocol and address are required", ErrInvalidCommand)
	}
	if pub == nil {
		return nil, fmt.Errorf("%w: %q has no publisher", ErrInvalidCommand, cfg.Name)
	}
	action := cfg.Action
	if action == "" {
		action = cfg.Name
	}
	return &MQTTCommand{
		name:      cfg.Name,
		action:    action,
		topic:     mqtt.Topics{}.BridgeCommand(cfg.Protocol, cfg.Address),
		qos:       cfg.QoS,
		publisher: pub,
	}, nil
}

// Name returns the command name.
func (c *MQTTCommand) Name() string { return c.name }

// Topic returns the bridge command topic.
func (c *MQTTCommand) Topic() string { return c.topic }

// Execute publishes the command message. ctx is checked before publishing;
// the publish itself is bounded by the MQTT client's own timeout.
func (c *MQTTCommand) Execute(ctx context.Context, param string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := Message{
		ID:        uuid.NewString(),
		Command:   c.action,
		Parameter: param,
		Source:    "controller",
		Timestamp: time.Now().UTC(),
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshalling command: %w", err)
	}

	if err := c.publisher.Publish(c.topic, payload, c.qos, false); err != nil {
		return fmt.Errorf("publishing command: %w", err)
	}
	return nil
}
