// Package logging provides structured logging using uber/zap.
//
// Two modes are supported:
//   - Production: JSON output for machine parsing
//   - Development: Colored console output for human readability
//
// Production entries carry a service field and are sampled so a burst of
// identical background messages cannot flood the output. The level is an
// zap.AtomicLevel; the server exposes it on /debug/log-level.
//
// Components receive named child loggers (logger.Component("navigation"))
// so every line carries the subsystem that produced it.
//
// Example Usage:
//
//	logger := logging.NewDefault()
//	logger.Info("Server starting", zap.String("port", "8000"))
//	nav := logger.Component("navigation")
//	nav.Debug("unit cancelled", zap.String("project", id))
package logging
