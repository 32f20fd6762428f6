package deploy

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/nerrad567/gray-logic-controller/internal/command"
	"github.com/nerrad567/gray-logic-controller/internal/event"
	"github.com/nerrad567/gray-logic-controller/internal/processor"
	"github.com/nerrad567/gray-logic-controller/internal/sensor"
	"github.com/nerrad567/gray-logic-controller/internal/statuscache"
)

// Cache is the part of the status cache a deployment drives. Satisfied by
// *statuscache.StatusCache.
type Cache interface {
	sensor.Sink
	RegisterSensor(ctx context.Context, s statuscache.Sensor) error
	UnregisterSensor(id int) error
	SensorIDs() []int
	InitializeEventContext(cmds []command.Command)
}

// Broker carries MQTT sensors and commands. Satisfied by *mqtt.Client.
type Broker interface {
	sensor.Subscriber
	command.Publisher
}

// Deployer applies deployments to a cache.
//
// Thread Safety:
//   - Apply calls are serialised.
type Deployer struct {
	cache  Cache
	broker Broker
	mapper *processor.Mapper
	rules  *processor.Rules
	logger Logger

	mu      sync.Mutex
	applied map[int]SensorConfig
}

// NewDeployer creates a deployer. broker may be nil when the deployment uses
// no MQTT sensors or commands; mapper and rules may be nil when those
// processors are not configured.
func NewDeployer(cache Cache, broker Broker, mapper *processor.Mapper, rules *processor.Rules, logger Logger) *Deployer {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Deployer{
		cache:   cache,
		broker:  broker,
		mapper:  mapper,
		rules:   rules,
		logger:  logger,
		applied: make(map[int]SensorConfig),
	}
}

// Reload loads path and applies it.
func (d *Deployer) Reload(ctx context.Context, path string) error {
	dep, err := Load(path)
	if err != nil {
		return err
	}
	return d.Apply(ctx, dep)
}

// Apply installs dep. Commands and sensors are built first so a bad
// deployment changes nothing. Sensors are started with ctx, which must
// outlive the deployment.
//
// A sensor that fails to start does not stop the others; all start
// failures are returned joined.
func (d *Deployer) Apply(ctx context.Context, dep *Deployment) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if dep.UsesMQTT() && d.broker == nil {
		return ErrNoBroker
	}

	cmds, err := d.buildCommands(dep.Commands)
	if err != nil {
		return err
	}

	wanted := make(map[int]SensorConfig, len(dep.Sensors))
	var fresh []statuscache.Sensor
	for _, sc := range dep.Sensors {
		wanted[sc.ID] = sc
		if prev, ok := d.applied[sc.ID]; ok && reflect.DeepEqual(prev, sc) {
			continue
		}
		s, err := d.buildSensor(sc)
		if err != nil {
			return err
		}
		fresh = append(fresh, s)
	}

	d.cache.InitializeEventContext(cmds)
	if d.mapper != nil {
		d.mapper.SetMappings(dep.ProcessorMappings())
	}
	if d.rules != nil {
		d.rules.SetRules(dep.ProcessorRules())
	}

	for _, id := range d.cache.SensorIDs() {
		if _, keep := wanted[id]; keep {
			continue
		}
		if err := d.cache.UnregisterSensor(id); err != nil && !errors.Is(err, statuscache.ErrSensorNotFound) {
			d.logger.Warn("unregistering sensor", "sensor_id", id, "error", err)
		}
		delete(d.applied, id)
	}

	var errs []error
	for _, s := range fresh {
		if err := d.cache.RegisterSensor(ctx, s); err != nil {
			errs = append(errs, err)
			delete(d.applied, s.ID())
			continue
		}
		d.applied[s.ID()] = wanted[s.ID()]
	}

	d.logger.Info("deployment applied",
		"sensors", len(dep.Sensors),
		"started", len(fresh)-len(errs),
		"commands", len(cmds),
		"mappings", len(dep.Mappings),
		"rules", len(dep.Rules),
	)
	return errors.Join(errs...)
}

func (d *Deployer) buildCommands(cfgs []CommandConfig) ([]command.Command, error) {
	cmds := make([]command.Command, 0, len(cfgs))
	for _, cc := range cfgs {
		cmd, err := command.NewMQTTCommand(command.MQTTCommandConfig{
			Name:     cc.Name,
			Protocol: cc.Protocol,
			Address:  cc.Address,
			Action:   cc.Action,
			QoS:      byte(cc.QoS), // #nosec G115 -- validated 0..2
		}, d.broker)
		if err != nil {
			return nil, err
		}
		cmds = append(cmds, cmd)
	}
	return cmds, nil
}

func (d *Deployer) buildSensor(sc SensorConfig) (statuscache.Sensor, error) {
	def := sensor.Definition{
		ID:   sc.ID,
		Name: sc.Name,
		Kind: event.Kind(sc.Kind),
		Min:  sc.Min,
		Max:  sc.Max,
	}
	if k, err := event.ParseKind(sc.Kind); err == nil {
		def.Kind = k
	}

	switch {
	case sc.MQTT != nil:
		return sensor.NewMQTTSensor(def, sensor.MQTTSensorConfig{
			Topic:    sc.MQTT.Topic,
			ValueKey: sc.MQTT.ValueKey,
			QoS:      byte(sc.MQTT.QoS), // #nosec G115 -- validated 0..2
		}, d.broker, d.cache, d.logger)
	case sc.File != nil:
		reader := sensor.FileReader{
			Path:    sc.File.Path,
			Marker:  sc.File.Marker,
			Divisor: sc.File.Divisor,
		}
		return sensor.NewPollingSensor(def, reader, sc.File.PollInterval(), d.cache, d.logger)
	default:
		return nil, fmt.Errorf("%w: sensor %q has no source", ErrInvalidDeployment, sc.Name)
	}
}
