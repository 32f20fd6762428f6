package deploy

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/nerrad567/gray-logic-controller/internal/event"
	"github.com/nerrad567/gray-logic-controller/internal/processor"
)

// Deployment is the parsed deployment file.
type Deployment struct {
	Sensors  []SensorConfig  `yaml:"sensors"`
	Commands []CommandConfig `yaml:"commands"`
	Mappings []MappingConfig `yaml:"mappings"`
	Rules    []RuleConfig    `yaml:"rules"`
}

// SensorConfig declares one sensor. Exactly one of MQTT or File is set.
type SensorConfig struct {
	ID   int    `yaml:"id"`
	Name string `yaml:"name"`
	Kind string `yaml:"kind"`

	// Min and Max bound range sensors.
	Min int `yaml:"min"`
	Max int `yaml:"max"`

	MQTT *MQTTSource `yaml:"mqtt"`
	File *FileSource `yaml:"file"`
}

// MQTTSource reads a sensor from an MQTT topic.
type MQTTSource struct {
	Topic    string `yaml:"topic"`
	ValueKey string `yaml:"value_key"`
	QoS      int    `yaml:"qos"`
}

// FileSource polls a sensor from a file.
type FileSource struct {
	Path    string  `yaml:"path"`
	Marker  string  `yaml:"marker"`
	Divisor float64 `yaml:"divisor"`

	// Interval is the poll period in seconds.
	Interval int `yaml:"interval"`
}

// PollInterval returns Interval as a Duration. Zero selects the sensor default.
func (f FileSource) PollInterval() time.Duration {
	return time.Duration(f.Interval) * time.Second
}

// CommandConfig declares an MQTT bridge command.
type CommandConfig struct {
	Name     string `yaml:"name"`
	Protocol string `yaml:"protocol"`
	Address  string `yaml:"address"`
	Action   string `yaml:"action"`
	QoS      int    `yaml:"qos"`
}

// MappingConfig declares a value mapping for one sensor.
type MappingConfig struct {
	Sensor string            `yaml:"sensor"`
	Scale  float64           `yaml:"scale"`
	Offset float64           `yaml:"offset"`
	Lookup map[string]string `yaml:"lookup"`
}

// RuleConfig declares an automation rule.
type RuleConfig struct {
	Name      string            `yaml:"name"`
	Sensor    string            `yaml:"sensor"`
	Equals    string            `yaml:"equals"`
	When      []ConditionConfig `yaml:"when"`
	Command   string            `yaml:"command"`
	Parameter string            `yaml:"parameter"`
	Suppress  bool              `yaml:"suppress"`
}

// ConditionConfig gates a rule on another sensor's current value.
type ConditionConfig struct {
	Sensor string `yaml:"sensor"`
	Equals string `yaml:"equals"`
}

// Load reads and validates a deployment file.
func Load(path string) (*Deployment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading deployment file: %w", err)
	}
	d, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return d, nil
}

// Parse decodes and validates a deployment. Unknown fields are rejected so
// typos surface at load time. An empty document is an empty deployment.
func Parse(data []byte) (*Deployment, error) {
	d := &Deployment{}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(d); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parsing deployment: %w", err)
	}

	if err := d.Validate(); err != nil {
		return nil, err
	}
	return d, nil
}

// Validate checks ids, names and cross references, reporting every problem.
func (d *Deployment) Validate() error {
	var errs []string
	errs = append(errs, d.validateSensors()...)
	errs = append(errs, d.validateCommands()...)
	errs = append(errs, d.validateMappings()...)
	errs = append(errs, d.validateRules()...)

	if len(errs) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidDeployment, strings.Join(errs, "; "))
	}
	return nil
}

func (d *Deployment) validateSensors() []string {
	var errs []string
	ids := make(map[int]bool, len(d.Sensors))
	names := make(map[string]bool, len(d.Sensors))

	for i, s := range d.Sensors {
		where := fmt.Sprintf("sensors[%d]", i)
		if s.ID <= 0 {
			errs = append(errs, where+": id must be positive")
		} else if ids[s.ID] {
			errs = append(errs, fmt.Sprintf("%s: duplicate id %d", where, s.ID))
		}
		ids[s.ID] = true

		if s.Name == "" {
			errs = append(errs, where+": name is required")
		} else if names[s.Name] {
			errs = append(errs, fmt.Sprintf("%s: duplicate name %q", where, s.Name))
		}
		names[s.Name] = true

		kind, err := event.ParseKind(s.Kind)
		switch {
		case err != nil:
			errs = append(errs, fmt.Sprintf("%s: %v", where, err))
		case kind == event.KindUnknown:
			errs = append(errs, where+": kind unknown cannot be deployed")
		case kind == event.KindRange && s.Min >= s.Max:
			errs = append(errs, fmt.Sprintf("%s: range needs min < max, got min %d max %d", where, s.Min, s.Max))
		}

		switch {
		case s.MQTT == nil && s.File == nil:
			errs = append(errs, where+": one of mqtt or file is required")
		case s.MQTT != nil && s.File != nil:
			errs = append(errs, where+": mqtt and file are mutually exclusive")
		case s.MQTT != nil:
			if s.MQTT.Topic == "" {
				errs = append(errs, where+": mqtt.topic is required")
			}
			if s.MQTT.QoS < 0 || s.MQTT.QoS > 2 {
				errs = append(errs, where+": mqtt.qos must be 0, 1, or 2")
			}
		case s.File != nil:
			if s.File.Path == "" {
				errs = append(errs, where+": file.path is required")
			}
			if s.File.Interval < 0 {
				errs = append(errs, where+": file.interval must not be negative")
			}
		}
	}
	return errs
}

func (d *Deployment) validateCommands() []string {
	var errs []string
	names := make(map[string]bool, len(d.Commands))

	for i, c := range d.Commands {
		where := fmt.Sprintf("commands[%d]", i)
		if c.Name == "" {
			errs = append(errs, where+": name is required")
		} else if names[c.Name] {
			errs = append(errs, fmt.Sprintf("%s: duplicate name %q", where, c.Name))
		}
		names[c.Name] = true

		if c.Protocol == "" || c.Address == "" {
			errs = append(errs, where+": protocol and address are required")
		}
		if c.QoS < 0 || c.QoS > 2 {
			errs = append(errs, where+": qos must be 0, 1, or 2")
		}
	}
	return errs
}

func (d *Deployment) validateMappings() []string {
	var errs []string
	sensors := d.sensorNames()
	seen := make(map[string]bool, len(d.Mappings))

	for i, m := range d.Mappings {
		where := fmt.Sprintf("mappings[%d]", i)
		if !sensors[m.Sensor] {
			errs = append(errs, fmt.Sprintf("%s: unknown sensor %q", where, m.Sensor))
		}
		if seen[m.Sensor] {
			errs = append(errs, fmt.Sprintf("%s: sensor %q mapped twice", where, m.Sensor))
		}
		seen[m.Sensor] = true
	}
	return errs
}

func (d *Deployment) validateRules() []string {
	var errs []string
	sensors := d.sensorNames()
	commands := make(map[string]bool, len(d.Commands))
	for _, c := range d.Commands {
		commands[c.Name] = true
	}

	for i, r := range d.Rules {
		where := fmt.Sprintf("rules[%d]", i)
		if r.Name != "" {
			where = fmt.Sprintf("rules[%d] %q", i, r.Name)
		}
		if !sensors[r.Sensor] {
			errs = append(errs, fmt.Sprintf("%s: unknown sensor %q", where, r.Sensor))
		}
		for _, c := range r.When {
			if !sensors[c.Sensor] {
				errs = append(errs, fmt.Sprintf("%s: condition on unknown sensor %q", where, c.Sensor))
			}
		}
		if r.Command == "" && !r.Suppress {
			errs = append(errs, where+": needs a command or suppress")
		}
		if r.Command != "" && !commands[r.Command] {
			errs = append(errs, fmt.Sprintf("%s: unknown command %q", where, r.Command))
		}
	}
	return errs
}

func (d *Deployment) sensorNames() map[string]bool {
	names := make(map[string]bool, len(d.Sensors))
	for _, s := range d.Sensors {
		names[s.Name] = true
	}
	return names
}

// UsesMQTT reports whether any sensor or command needs an MQTT client.
func (d *Deployment) UsesMQTT() bool {
	if len(d.Commands) > 0 {
		return true
	}
	for _, s := range d.Sensors {
		if s.MQTT != nil {
			return true
		}
	}
	return false
}

// ProcessorMappings converts the mappings for the mapper processor.
func (d *Deployment) ProcessorMappings() []processor.Mapping {
	out := make([]processor.Mapping, 0, len(d.Mappings))
	for _, m := range d.Mappings {
		out = append(out, processor.Mapping{
			Sensor: m.Sensor,
			Scale:  m.Scale,
			Offset: m.Offset,
			Lookup: m.Lookup,
		})
	}
	return out
}

// ProcessorRules converts the rules for the rules processor.
func (d *Deployment) ProcessorRules() []processor.Rule {
	out := make([]processor.Rule, 0, len(d.Rules))
	for _, r := range d.Rules {
		conds := make([]processor.Condition, 0, len(r.When))
		for _, c := range r.When {
			conds = append(conds, processor.Condition{Sensor: c.Sensor, Equals: c.Equals})
		}
		out = append(out, processor.Rule{
			Name:       r.Name,
			Sensor:     r.Sensor,
			Equals:     r.Equals,
			Conditions: conds,
			Command:    r.Command,
			Parameter:  r.Parameter,
			Suppress:   r.Suppress,
		})
	}
	return out
}
