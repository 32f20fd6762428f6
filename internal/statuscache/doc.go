// Package statuscache holds the controller's live view of sensor state and
// runs every incoming reading through an ordered chain of event processors.
//
// # Architecture
//
//	Sensor ──Update(e)──► StatusCache ──Push──► EventProcessorChain
//	                          │                   mapper → rules → history → ...
//	                          │                        (may Replace or Terminate)
//	                          ▼
//	                      sensorMap ──UpdateStatusChangedIDs──► ChangedStatusTable
//	                                                               │
//	                          long-poll / websocket clients ◄─Wait─┘
//
// # Processing model
//
// Update, RegisterSensor and Shutdown share one cache-wide lock, so events are
// processed strictly one at a time. Processors may issue commands as a side
// effect and rely on that ordering.
//
// For each event the cache builds an EventContext and pushes it through the
// chain. A processor may replace the in-flight event (for example to rescale a
// raw reading) or terminate it. A terminated event stops the chain and is
// never committed. The surviving event is committed to the sensor map only if
// it differs from the stored reading; an equal reading is a no-op and wakes
// nobody.
//
// # Status values
//
// Registering a sensor installs an "unknown" placeholder, so a sensor that has
// not reported yet is distinguishable from an id that was never registered.
// Unregistered ids resolve to UnknownStatus ("N/A") rather than an error.
//
// # Long polling
//
// ChangedStatusTable keeps one ChangedStatusRecord per (panel, id set). A
// commit marks the sensor id as changed in every record that watches it and
// wakes their waiters. Records are kept between polls so changes made while
// no request is in flight are not lost; PruneIdle removes records nobody has
// polled for a while.
//
// # Lifecycle
//
//	Created ──Start──► Started ──Shutdown──► ShuttingDown ──► Shutdown
//
// Shutdown stops the chain, stops every sensor, wakes and drops all change
// records, then clears the registry. Once shutdown has begun, Update and
// RegisterSensor are silently ignored.
package statuscache
