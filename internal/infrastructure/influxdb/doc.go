// Package influxdb writes sensor telemetry to InfluxDB v2.
//
// It wraps influxdb-client-go's non-blocking WriteAPI: points are buffered
// and flushed in batches (batch_size, flush_interval), and write failures
// are reported asynchronously through SetOnError.
//
// Every committed sensor reading with a numeric form becomes one point in the
// "sensor_readings" measurement:
//
//	sensor_readings,sensor=kitchen-temp,sensor_id=3,kind=range value=21
//
// Switch readings are written as 1/0 so they can be graphed alongside
// analogue values.
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	client.WriteSensorReading(3, "kitchen-temp", "range", 21, time.Now())
package influxdb
