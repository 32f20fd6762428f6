package processor

import (
	"fmt"

	"github.com/nerrad567/gray-logic-controller/internal/statuscache"
)

// Processor names accepted by Build.
const (
	NameMapper    = "mapper"
	NameRules     = "rules"
	NameHistory   = "history"
	NameTelemetry = "telemetry"
	NamePublisher = "publisher"
)

// Deps are the backends Build wires processors to. Mapper and Rules are
// shared with the deployment so it can reconfigure them.
type Deps struct {
	Mapper    *Mapper
	Rules     *Rules
	Recorder  Recorder
	Writer    PointWriter
	Publisher RetainedPublisher
}

// Build returns processors in the order named. A named processor whose
// dependency is nil is an error.
func Build(names []string, deps Deps) ([]statuscache.EventProcessor, error) {
	out := make([]statuscache.EventProcessor, 0, len(names))
	for _, name := range names {
		p, err := build(name, deps)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func build(name string, deps Deps) (statuscache.EventProcessor, error) {
	missing := func(what string) error {
		return fmt.Errorf("%w: %s needs %s", ErrMissingDependency, name, what)
	}

	switch name {
	case NameMapper:
		if deps.Mapper == nil {
			return nil, missing("a mapper")
		}
		return deps.Mapper, nil
	case NameRules:
		if deps.Rules == nil {
			return nil, missing("a rule set")
		}
		return deps.Rules, nil
	case NameHistory:
		if deps.Recorder == nil {
			return nil, missing("a history repository")
		}
		return NewHistory(deps.Recorder), nil
	case NameTelemetry:
		if deps.Writer == nil {
			return nil, missing("an InfluxDB client")
		}
		return NewTelemetry(deps.Writer), nil
	case NamePublisher:
		if deps.Publisher == nil {
			return nil, missing("an MQTT client")
		}
		return NewPublisher(deps.Publisher), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProcessor, name)
	}
}
