package command

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/nerrad567/gray-logic-controller/internal/event"
)

// Command is an outbound actuation primitive invocable by name.
type Command interface {
	// Name is the user-visible command name used for lookup.
	Name() string

	// Execute runs the command with a string parameter.
	Execute(ctx context.Context, param string) error
}

// Facade is a read-only, name-keyed view over a deployment's commands.
//
// Thread Safety:
//   - A Facade is never modified after NewFacade returns; all methods are
//     safe for concurrent use.
type Facade struct {
	commands map[string]Command
}

// NewFacade builds a Facade from cmds. Nil entries are skipped and a later
// command replaces an earlier one with the same name.
func NewFacade(cmds []Command) *Facade {
	m := make(map[string]Command, len(cmds))
	for _, c := range cmds {
		if c == nil {
			continue
		}
		m[c.Name()] = c
	}
	return &Facade{commands: m}
}

// Command returns the command registered under name.
func (f *Facade) Command(name string) (Command, error) {
	if f == nil {
		return nil, fmt.Errorf("%w: %q", ErrCommandNotFound, name)
	}
	c, ok := f.commands[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrCommandNotFound, name)
	}
	return c, nil
}

// Execute looks up name and runs it with param.
func (f *Facade) Execute(ctx context.Context, name, param string) error {
	c, err := f.Command(name)
	if err != nil {
		return err
	}
	if err := c.Execute(ctx, param); err != nil {
		return fmt.Errorf("executing command %q: %w", name, err)
	}
	return nil
}

// Send runs name with the parameter form of v.
func (f *Facade) Send(ctx context.Context, name string, v event.Value) error {
	param, err := Parameter(v)
	if err != nil {
		return fmt.Errorf("sending to %q: %w", name, err)
	}
	return f.Execute(ctx, name, param)
}

// Parameter converts a typed value into a command parameter.
func Parameter(v event.Value) (string, error) {
	switch val := v.(type) {
	case event.Switch:
		return val.String(), nil
	case event.Range:
		return strconv.Itoa(val.Value), nil
	case event.Level:
		return strconv.Itoa(val.Percent), nil
	case event.Custom:
		return val.Text, nil
	case event.Unknown:
		return "", ErrNoParameter
	default:
		return "", fmt.Errorf("%w: %T", ErrNoParameter, v)
	}
}

// Names returns the registered command names in sorted order.
func (f *Facade) Names() []string {
	if f == nil {
		return nil
	}
	names := make([]string, 0, len(f.commands))
	for n := range f.commands {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered commands.
func (f *Facade) Len() int {
	if f == nil {
		return 0
	}
	return len(f.commands)
}
