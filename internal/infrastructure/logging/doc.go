// Package logging provides structured logging for SensorHub Core.
//
// It wraps log/slog with JSON or text output, level filtering and the
// default fields service and version on every entry.
//
// Logging is configured via the logging section of config.yaml:
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// Usage:
//
//	logger := logging.New(cfg.Logging, version)
//	logger.Component("ingest").Warn("dropping message", "topic", topic, "error", err)
//
// Never log broker passwords, database DSNs or InfluxDB tokens.
package logging
