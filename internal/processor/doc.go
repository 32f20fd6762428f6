// Package processor provides the event processors the controller plugs into
// the status cache chain.
//
// Processors run in the configured order for every sensor update, under the
// cache's update lock, before the value is committed:
//
//   - Mapper rewrites readings (scale/offset or a lookup table) via Replace.
//   - Rules executes commands when a sensor takes a value, optionally gated by
//     the state of other sensors, and can suppress the event.
//   - History records changed values to SQLite.
//   - Telemetry writes numeric readings to InfluxDB.
//   - Publisher republishes changed values on the core sensor state topic.
//
// Mapper and Rules are reconfigured on every deployment with SetMappings and
// SetRules; the others are wired once at startup. Build assembles a chain
// from the names listed in configuration.
package processor
