package processor

import (
	"time"

	"github.com/nerrad567/gray-logic-controller/internal/event"
	"github.com/nerrad567/gray-logic-controller/internal/statuscache"
)

// PointWriter queues a numeric reading without blocking. Satisfied by
// *influxdb.Client.
type PointWriter interface {
	WriteSensorReading(sensorID int, sensor, kind string, value float64, ts time.Time)
	Flush()
}

// Telemetry writes every surviving reading with a numeric form, including
// unchanged repeats, so the time series keeps the sensor's sampling rate.
type Telemetry struct {
	writer PointWriter
}

// NewTelemetry creates a telemetry processor writing to w.
func NewTelemetry(w PointWriter) *Telemetry {
	return &Telemetry{writer: w}
}

func (t *Telemetry) Name() string                        { return "telemetry" }
func (t *Telemetry) Start(*statuscache.InitContext) error { return nil }

// Stop flushes buffered points.
func (t *Telemetry) Stop() error {
	t.writer.Flush()
	return nil
}

func (t *Telemetry) Push(ec *statuscache.EventContext) error {
	e := ec.Event()
	v, ok := event.Numeric(e.Value())
	if !ok {
		return nil
	}
	t.writer.WriteSensorReading(e.SourceID(), e.Source(), string(e.Kind()), v, e.Timestamp())
	return nil
}
