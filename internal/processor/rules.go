package processor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-controller/internal/event"
	"github.com/nerrad567/gray-logic-controller/internal/statuscache"
)

const defaultCommandTimeout = 5 * time.Second

// Condition requires another sensor to currently hold a serialized value.
type Condition struct {
	Sensor string
	Equals string
}

// Rule runs Command when Sensor changes to Equals (any change when Equals is
// empty) and every Condition holds.
//
// Parameter is passed to the command verbatim; when empty the triggering
// value is forwarded instead. Suppress terminates the triggering event so it
// is never committed.
type Rule struct {
	Name       string
	Sensor     string
	Equals     string
	Conditions []Condition
	Command    string
	Parameter  string
	Suppress   bool
}

func (r Rule) matches(e event.Event, current map[string]string) bool {
	if r.Sensor != e.Source() {
		return false
	}
	if r.Equals != "" && r.Equals != e.Serialize() {
		return false
	}
	for _, c := range r.Conditions {
		if current[c.Sensor] != c.Equals {
			return false
		}
	}
	return true
}

// Rules fires commands on sensor transitions. Rules are edge triggered: a
// repeated reading equal to the committed value does not fire again.
//
// Thread Safety:
//   - SetRules may run concurrently with Push.
type Rules struct {
	mu      sync.RWMutex
	rules   []Rule
	ctx     context.Context
	timeout time.Duration
	logger  Logger
}

// NewRules creates a rules processor. Commands run with the given timeout
// (5s when zero).
func NewRules(timeout time.Duration, logger Logger) *Rules {
	if logger == nil {
		logger = noopLogger{}
	}
	if timeout <= 0 {
		timeout = defaultCommandTimeout
	}
	return &Rules{ctx: context.Background(), timeout: timeout, logger: logger}
}

// SetRules replaces the rule set.
func (r *Rules) SetRules(rules []Rule) {
	next := append([]Rule(nil), rules...)
	r.mu.Lock()
	r.rules = next
	r.mu.Unlock()
}

// Len returns the number of rules.
func (r *Rules) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rules)
}

func (r *Rules) Name() string { return "rules" }

// Start keeps the cache context; commands are cancelled with it.
func (r *Rules) Start(ic *statuscache.InitContext) error {
	r.mu.Lock()
	r.ctx = ic.Context()
	r.mu.Unlock()
	return nil
}

func (r *Rules) Stop() error { return nil }

// Push evaluates every rule against the in-flight event. Command failures
// are joined into the returned error; the remaining rules still run.
func (r *Rules) Push(ec *statuscache.EventContext) error {
	r.mu.RLock()
	rules := r.rules
	ctx := r.ctx
	r.mu.RUnlock()

	if len(rules) == 0 || !changed(ec) {
		return nil
	}

	e := ec.Event()
	var current map[string]string
	var errs []error

	for _, rule := range rules {
		if rule.Sensor != e.Source() {
			continue
		}
		if current == nil {
			current = currentValues(ec.Events())
		}
		if !rule.matches(e, current) {
			continue
		}

		if rule.Command != "" {
			if err := r.execute(ctx, ec, rule); err != nil {
				errs = append(errs, fmt.Errorf("%w: rule %q: %w", ErrCommandFailed, rule.Name, err))
			} else {
				r.logger.Info("rule fired", "rule", rule.Name, "sensor", e.Source(), "value", e.Serialize(), "command", rule.Command)
			}
		}
		if rule.Suppress {
			ec.TerminateEvent()
		}
	}

	return errors.Join(errs...)
}

func (r *Rules) execute(parent context.Context, ec *statuscache.EventContext, rule Rule) error {
	ctx, cancel := context.WithTimeout(parent, r.timeout)
	defer cancel()

	facade := ec.Commands()
	if rule.Parameter != "" {
		return facade.Execute(ctx, rule.Command, rule.Parameter)
	}
	return facade.Send(ctx, rule.Command, ec.Event().Value())
}

func currentValues(events []event.Event) map[string]string {
	out := make(map[string]string, len(events))
	for _, e := range events {
		out[e.Source()] = e.Serialize()
	}
	return out
}
