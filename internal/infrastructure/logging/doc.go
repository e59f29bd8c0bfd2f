// Package logging provides structured logging for FrameHub Core.
//
// This package wraps Go's standard log/slog package so every component logs
// with the same handler and default fields.
//
// # Features
//
//   - JSON output for production, text output for development
//   - Default fields (service, version) on all log entries
//   - Level-based filtering (debug, info, warn, error)
//   - Component-tagged child loggers
//
// # Configuration
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// # Usage
//
//	logger := logging.New(cfg.Logging, version)
//	reg.SetLogger(logger.Component("registry"))
//	logger.Error("failed to connect", "error", err)
//
// Never log the Hue username, MQTT password or InfluxDB token.
package logging
