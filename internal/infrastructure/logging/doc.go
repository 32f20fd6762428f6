// Package logging provides structured logging for the Gray Logic Controller.
//
// This package wraps Go's standard log/slog package to provide
// consistent, structured logging across the entire application.
//
// # Features
//
//   - JSON output for production (machine-parsable)
//   - Text output for development (human-readable)
//   - Default fields (service, version) on all log entries
//   - Level-based filtering (trace, debug, info, warn, error)
//   - Thread-safe for concurrent use
//
// # Configuration
//
// Logging is configured via the LoggingConfig in config.yaml:
//
//	logging:
//	  level: "info"      # trace, debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// The trace level is reserved for per-event sensor state transitions and is
// far too chatty for production.
//
// # Usage
//
//	logger := logging.New(cfg.Logging, "1.0.0")
//	logger.Info("sensor registered", "sensor_id", 5)
//	logger.Error("failed to stop sensor", "error", err)
//
// Never log secrets, tokens, passwords, or API keys.
package logging
