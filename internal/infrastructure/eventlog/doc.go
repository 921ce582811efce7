// Package eventlog persists navigation event records.
//
// Sinks:
//   - JSONLSink: one JSON object per line, encoded with sonic
//   - SQLiteSink: a navigation_events table in a local SQLite database
//   - Discard: drops everything (telemetry disabled)
//
// Broadcaster wraps any sink, keeps a ring of recent records and fans them
// out to live subscribers such as the websocket feed.
//
// Every record gets an event ID and a timestamp before it is written.
package eventlog
