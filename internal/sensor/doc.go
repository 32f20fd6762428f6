// Package sensor provides the readers that feed the status cache.
//
// Every sensor is described by a Definition (id, name, kind and range bounds)
// that turns raw readings into events, and pushes those events into a Sink,
// normally the *statuscache.StatusCache.
//
// Two sensor types are provided:
//
//   - PollingSensor reads a Reader on a fixed interval. FileReader covers
//     sysfs and 1-wire style files ("45000", "t=23125").
//   - MQTTSensor subscribes to a topic and converts every message.
//
// Stop cancels a sensor and returns immediately. A reading that is already
// being delivered finishes on its own; Stop never waits for it, since the
// cache may be holding its lock while calling Stop.
package sensor
