// Package ws streams logged navigation events to websocket clients.
//
// Messages are JSON objects with a "type" field:
//   - "system": sent once after connecting
//   - "event": one logged event in "event"
//
// Clients may pass ?backlog=N to receive up to N recent events first.
package ws
