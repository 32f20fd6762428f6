package processor

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nerrad567/gray-logic-controller/internal/event"
	"github.com/nerrad567/gray-logic-controller/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-controller/internal/statuscache"
)

// RetainedPublisher publishes retained MQTT messages. Satisfied by
// *mqtt.Client.
type RetainedPublisher interface {
	PublishRetained(topic string, payload []byte) error
}

// StateMessage is the payload published on graylogic/core/sensor/{name}/state.
type StateMessage struct {
	SensorID  int       `json:"sensor_id"`
	Sensor    string    `json:"sensor"`
	Kind      string    `json:"kind"`
	Value     string    `json:"value"`
	Timestamp time.Time `json:"timestamp"`
}

// Publisher republishes changed readings as retained sensor state so late
// subscribers see the current value.
type Publisher struct {
	pub    RetainedPublisher
	topics mqtt.Topics
}

// NewPublisher creates a state publisher.
func NewPublisher(pub RetainedPublisher) *Publisher {
	return &Publisher{pub: pub}
}

func (p *Publisher) Name() string                        { return "publisher" }
func (p *Publisher) Start(*statuscache.InitContext) error { return nil }
func (p *Publisher) Stop() error                         { return nil }

func (p *Publisher) Push(ec *statuscache.EventContext) error {
	e := ec.Event()
	if e.Kind() == event.KindUnknown || !changed(ec) {
		return nil
	}

	payload, err := json.Marshal(StateMessage{
		SensorID:  e.SourceID(),
		Sensor:    e.Source(),
		Kind:      string(e.Kind()),
		Value:     e.Serialize(),
		Timestamp: e.Timestamp(),
	})
	if err != nil {
		return fmt.Errorf("marshalling state message: %w", err)
	}
	if err := p.pub.PublishRetained(p.topics.CoreSensorState(e.Source()), payload); err != nil {
		return fmt.Errorf("publishing state for %s: %w", e.Source(), err)
	}
	return nil
}
