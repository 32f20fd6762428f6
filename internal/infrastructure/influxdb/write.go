package influxdb

import (
	"strconv"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// MeasurementSensorReadings is the measurement every sensor point is written to.
const MeasurementSensorReadings = "sensor_readings"

// WriteSensorReading queues one reading. It never blocks; points are dropped
// silently once the client is closed.
func (c *Client) WriteSensorReading(sensorID int, sensor, kind string, value float64, ts time.Time) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(sensorPoint(sensorID, sensor, kind, value, ts))
}

// sensorPoint builds the point for one reading. A zero ts uses the current time.
func sensorPoint(sensorID int, sensor, kind string, value float64, ts time.Time) *write.Point {
	if ts.IsZero() {
		ts = time.Now()
	}
	return write.NewPoint(
		MeasurementSensorReadings,
		map[string]string{
			"sensor":    sensor,
			"sensor_id": strconv.Itoa(sensorID),
			"kind":      kind,
		},
		map[string]any{
			"value": value,
		},
		ts,
	)
}
