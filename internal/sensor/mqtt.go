package sensor

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/nerrad567/gray-logic-controller/internal/infrastructure/mqtt"
)

// mqttQueueSize bounds readings buffered between the MQTT handler and the sink.
const mqttQueueSize = 32

// Subscriber subscribes to MQTT topics. Satisfied by *mqtt.Client.
type Subscriber interface {
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Unsubscribe(topic string) error
}

// MQTTSensor turns messages on one topic into readings.
//
// The MQTT handler only enqueues; a separate goroutine delivers to the sink,
// so a slow Update never stalls the MQTT client.
type MQTTSensor struct {
	def      Definition
	topic    string
	valueKey string
	qos      byte
	sub      Subscriber
	sink     Sink
	logger   Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	queue  chan string
}

// MQTTSensorConfig describes where an MQTTSensor reads from.
type MQTTSensorConfig struct {
	Topic string

	// ValueKey extracts a field from a JSON payload; dots descend into
	// nested objects ("state.level"). Empty treats the payload as the value.
	ValueKey string

	QoS byte
}

// NewMQTTSensor creates a sensor for def reading cfg.Topic.
func NewMQTTSensor(def Definition, cfg MQTTSensorConfig, sub Subscriber, sink Sink, logger Logger) (*MQTTSensor, error) {
	if err := def.Validate(); err != nil {
		return nil, err
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("%w: sensor %q has no topic", ErrInvalidDefinition, def.Name)
	}
	if sub == nil || sink == nil {
		return nil, fmt.Errorf("%w: sensor %q needs a subscriber and a sink", ErrInvalidDefinition, def.Name)
	}
	if logger == nil {
		logger = noopLogger{}
	}
	return &MQTTSensor{
		def:      def,
		topic:    cfg.Topic,
		valueKey: cfg.ValueKey,
		qos:      cfg.QoS,
		sub:      sub,
		sink:     sink,
		logger:   logger,
	}, nil
}

// ID returns the sensor id.
func (s *MQTTSensor) ID() int { return s.def.ID }

// Name returns the sensor name.
func (s *MQTTSensor) Name() string { return s.def.Name }

// Topic returns the subscribed topic.
func (s *MQTTSensor) Topic() string { return s.topic }

// Start subscribes to the topic and starts delivering readings.
func (s *MQTTSensor) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		return ErrAlreadyStarted
	}

	ctx, cancel := context.WithCancel(ctx)
	queue := make(chan string, mqttQueueSize)

	if err := s.sub.Subscribe(s.topic, s.qos, s.handler(ctx, queue)); err != nil {
		cancel()
		return fmt.Errorf("subscribing to %s: %w", s.topic, err)
	}

	s.cancel = cancel
	s.queue = queue
	go s.deliver(ctx, queue)
	return nil
}

// Stop unsubscribes and cancels delivery. Readings still queued are dropped.
func (s *MQTTSensor) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel == nil {
		return nil
	}
	s.cancel()
	s.cancel = nil

	if err := s.sub.Unsubscribe(s.topic); err != nil {
		return fmt.Errorf("unsubscribing from %s: %w", s.topic, err)
	}
	return nil
}

func (s *MQTTSensor) handler(ctx context.Context, queue chan<- string) mqtt.MessageHandler {
	return func(_ string, payload []byte) error {
		raw, err := extractValue(payload, s.valueKey)
		if err != nil {
			return fmt.Errorf("sensor %q: %w", s.def.Name, err)
		}
		select {
		case <-ctx.Done():
		case queue <- raw:
		default:
			s.logger.Warn("sensor queue full, reading dropped", "sensor", s.def.Name)
		}
		return nil
	}
}

func (s *MQTTSensor) deliver(ctx context.Context, queue <-chan string) {
	for {
		select {
		case <-ctx.Done():
			return
		case raw := <-queue:
			e, err := s.def.NewEvent(raw)
			if err != nil {
				s.logger.Warn("sensor reading rejected", "sensor", s.def.Name, "raw", raw, "error", err)
				continue
			}
			if ctx.Err() != nil {
				return
			}
			s.sink.Update(e)
		}
	}
}

// extractValue returns the payload itself, or the field at key in a JSON
// object payload.
func extractValue(payload []byte, key string) (string, error) {
	if key == "" {
		return strings.TrimSpace(string(payload)), nil
	}

	var obj map[string]any
	if err := json.Unmarshal(payload, &obj); err != nil {
		return "", fmt.Errorf("%w: payload is not a JSON object: %w", ErrNoValue, err)
	}

	var cur any = obj
	for _, part := range strings.Split(key, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return "", fmt.Errorf("%w: %q not found", ErrNoValue, key)
		}
		if cur, ok = m[part]; !ok {
			return "", fmt.Errorf("%w: %q not found", ErrNoValue, key)
		}
	}

	switch v := cur.(type) {
	case string:
		return v, nil
	case bool:
		return strconv.FormatBool(v), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case nil:
		return "", fmt.Errorf("%w: %q is null", ErrNoValue, key)
	default:
		return "", fmt.Errorf("%w: %q is not a scalar", ErrNoValue, key)
	}
}
