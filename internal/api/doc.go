// Package api implements the HTTP REST API and WebSocket server for the
// Gray Logic controller.
//
// This package provides:
//   - Bulk and by-name sensor status queries
//   - Long polling on per-panel change records (HTTP 504 on timeout)
//   - A WebSocket stream of changed statuses per panel
//   - Sensor history queries backed by SQLite
//   - Health and Prometheus metrics endpoints
//   - Middleware stack (request ID, logging, recovery, body limit)
//
// # Architecture
//
// Wall panels first read the statuses they display with GET /rest/status,
// then long poll (or stream) the same id set. Every poll for a panel and id
// set shares one statuscache.ChangedStatusRecord, so a change that lands
// between two polls is reported by the next one.
//
// Idle records are pruned in the background once nobody has polled them
// for the configured TTL.
package api
