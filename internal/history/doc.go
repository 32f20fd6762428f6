// Package history keeps a local record of committed sensor values in SQLite.
//
// It is the controller's audit trail when no time-series database is
// configured: the history processor writes every surviving change, and the
// API serves the most recent entries per sensor. Entries older than the
// configured retention are removed by Prune.
package history
