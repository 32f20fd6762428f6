package statuscache

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds Prometheus metrics for the status cache.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	received   prometheus.Counter
	committed  prometheus.Counter
	unchanged  prometheus.Counter
	terminated prometheus.Counter
	dropped    prometheus.Counter
	sensors    prometheus.Gauge
}

// NewMetrics creates the cache metrics and registers them with reg.
// A nil reg returns nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		return nil
	}

	m := &Metrics{
		received: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "graylogic",
			Subsystem: "statuscache",
			Name:      "events_received_total",
			Help:      "Events passed to Update.",
		}),
		committed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "graylogic",
			Subsystem: "statuscache",
			Name:      "events_committed_total",
			Help:      "Events that changed a sensor's stored state.",
		}),
		unchanged: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "graylogic",
			Subsystem: "statuscache",
			Name:      "events_unchanged_total",
			Help:      "Events equal to the stored state.",
		}),
		terminated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "graylogic",
			Subsystem: "statuscache",
			Name:      "events_terminated_total",
			Help:      "Events terminated by an event processor.",
		}),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "graylogic",
			Subsystem: "statuscache",
			Name:      "events_dropped_total",
			Help:      "Events discarded because the cache was shutting down.",
		}),
		sensors: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "graylogic",
			Subsystem: "statuscache",
			Name:      "registered_sensors",
			Help:      "Sensors currently registered.",
		}),
	}

	reg.MustRegister(m.received, m.committed, m.unchanged, m.terminated, m.dropped, m.sensors)
	return m
}

func (m *Metrics) incReceived() {
	if m != nil {
		m.received.Inc()
	}
}

func (m *Metrics) incCommitted() {
	if m != nil {
		m.committed.Inc()
	}
}

func (m *Metrics) incUnchanged() {
	if m != nil {
		m.unchanged.Inc()
	}
}

func (m *Metrics) incTerminated() {
	if m != nil {
		m.terminated.Inc()
	}
}

func (m *Metrics) incDropped() {
	if m != nil {
		m.dropped.Inc()
	}
}

func (m *Metrics) setSensors(n int) {
	if m != nil {
		m.sensors.Set(float64(n))
	}
}
