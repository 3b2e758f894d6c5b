// Package logging provides structured logging for HomeLink Core.
//
// It wraps log/slog with the settings from the logging section of
// config.yaml: JSON or text format, stdout or stderr output, and a
// minimum level. Every entry carries the service name and version.
//
//	logger := logging.New(cfg.Logging, version)
//	logger.Info("starting service", "port", cfg.API.Port)
//
// Components derive a tagged child logger with With:
//
//	wsLogger := logger.With("component", "realtime")
//
// # Security
//
// Never log raw tokens, PINs, password hashes, or signing secrets.
// Log token digests or id prefixes instead:
//
//	logger.Info("client authenticated", "client_id", client.ID)
package logging
