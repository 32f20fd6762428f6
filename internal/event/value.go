package event

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Kind names a Value variant.
type Kind string

const (
	KindUnknown Kind = "unknown"
	KindSwitch  Kind = "switch"
	KindRange   Kind = "range"
	KindLevel   Kind = "level"
	KindCustom  Kind = "custom"
)

// Serialized forms shared with the REST layer and MQTT payloads.
const (
	SwitchOn     = "on"
	SwitchOff    = "off"
	UnknownValue = "unknown"
)

// Level bounds.
const (
	LevelMin = 0
	LevelMax = 100
)

// ParseKind converts a configuration string into a Kind.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindUnknown, KindSwitch, KindRange, KindLevel, KindCustom:
		return k, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
}

// Value is the typed payload of an Event.
//
// The set of implementations is closed: Unknown, Switch, Range, Level and
// Custom. Code that needs per-kind behaviour switches over these types.
type Value interface {
	Kind() Kind
	String() string
	isValue()
}

// Unknown is the placeholder value of a sensor that has not reported yet.
type Unknown struct{}

func (Unknown) Kind() Kind     { return KindUnknown }
func (Unknown) String() string { return UnknownValue }
func (Unknown) isValue()       {}

// Switch is an on/off reading.
type Switch struct {
	On bool
}

func (Switch) Kind() Kind { return KindSwitch }
func (Switch) isValue()   {}

func (s Switch) String() string {
	if s.On {
		return SwitchOn
	}
	return SwitchOff
}

// Range is an integer reading bounded by Min and Max.
type Range struct {
	Value int
	Min   int
	Max   int
}

// NewRange clamps v into [minValue, maxValue]. Swapped bounds are reordered.
func NewRange(v, minValue, maxValue int) Range {
	if minValue > maxValue {
		minValue, maxValue = maxValue, minValue
	}
	return Range{Value: clamp(v, minValue, maxValue), Min: minValue, Max: maxValue}
}

func (Range) Kind() Kind       { return KindRange }
func (r Range) String() string { return strconv.Itoa(r.Value) }
func (Range) isValue()         {}

// Level is a percentage in [0, 100].
type Level struct {
	Percent int
}

// NewLevel clamps p into [0, 100].
func NewLevel(p int) Level {
	return Level{Percent: clamp(p, LevelMin, LevelMax)}
}

func (Level) Kind() Kind       { return KindLevel }
func (l Level) String() string { return strconv.Itoa(l.Percent) }
func (Level) isValue()         {}

// Custom is free-form text.
type Custom struct {
	Text string
}

func (Custom) Kind() Kind       { return KindCustom }
func (c Custom) String() string { return c.Text }
func (Custom) isValue()         {}

// ValuesEqual reports whether two values are logically equal.
// Range bounds are not compared.
func ValuesEqual(a, b Value) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	switch av := a.(type) {
	case Unknown:
		_, ok := b.(Unknown)
		return ok
	case Switch:
		bv, ok := b.(Switch)
		return ok && av.On == bv.On
	case Range:
		bv, ok := b.(Range)
		return ok && av.Value == bv.Value
	case Level:
		bv, ok := b.(Level)
		return ok && av.Percent == bv.Percent
	case Custom:
		bv, ok := b.(Custom)
		return ok && av.Text == bv.Text
	default:
		return false
	}
}

// Numeric returns the value as a float for telemetry. Switch maps to 1/0.
// Unknown and Custom values have no numeric form.
func Numeric(v Value) (float64, bool) {
	switch val := v.(type) {
	case Switch:
		if val.On {
			return 1, true
		}
		return 0, true
	case Range:
		return float64(val.Value), true
	case Level:
		return float64(val.Percent), true
	case Unknown, Custom:
		return 0, false
	default:
		return 0, false
	}
}

// ParseOptions carries the bounds used when parsing Range readings.
type ParseOptions struct {
	Min int
	Max int
}

// Parse converts a raw reading into a Value of the given kind.
//
// Switch accepts on/off, true/false and 1/0 (case-insensitive). Range and
// Level accept integers or decimals; decimals are rounded before clamping.
func Parse(kind Kind, raw string, opts ParseOptions) (Value, error) {
	trimmed := strings.TrimSpace(raw)

	switch kind {
	case KindUnknown:
		return Unknown{}, nil
	case KindSwitch:
		switch strings.ToLower(trimmed) {
		case SwitchOn, "true", "1":
			return Switch{On: true}, nil
		case SwitchOff, "false", "0":
			return Switch{On: false}, nil
		}
		return nil, fmt.Errorf("%w: %q is not a switch state", ErrInvalidValue, raw)
	case KindRange:
		n, err := parseInt(trimmed)
		if err != nil {
			return nil, err
		}
		return NewRange(n, opts.Min, opts.Max), nil
	case KindLevel:
		n, err := parseInt(trimmed)
		if err != nil {
			return nil, err
		}
		return NewLevel(n), nil
	case KindCustom:
		return Custom{Text: raw}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}

func parseInt(s string) (int, error) {
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%w: %q is not a number", ErrInvalidValue, s)
	}
	// Out-of-range float to int conversion is implementation-defined.
	switch f = math.Round(f); {
	case f >= float64(math.MaxInt):
		return math.MaxInt, nil
	case f <= float64(math.MinInt):
		return math.MinInt, nil
	}
	return int(f), nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
