// Package main is the entry point for the file prediction server.
//
// The server receives navigation notifications from an editor (file selected,
// opened, closed), samples them into navigation sessions and, in the
// background, logs features of opened files and next-file candidates to an
// event log.
//
// The server provides:
//   - REST API for projects and navigation notifications
//   - WebSocket stream of logged events
//   - Prometheus metrics
//   - Rate limiting and CORS
//
// Configuration:
//   - Environment variables (12-factor, see internal/config)
//   - CLI flags (override env vars)
//
// Usage:
//
//	# Production mode
//	./server -port 8000 -events sqlite -events-path data/events.db
//
//	# Development mode (console logs, debug level)
//	./server -dev
//
// Signals:
//   - SIGINT, SIGTERM: Graceful shutdown
package main
