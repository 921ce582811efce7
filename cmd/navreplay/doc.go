// Package main replays a scripted editor session through the navigation
// service and writes the resulting training records to the event log.
//
// Usage:
//
//	./navreplay -script session.yaml -events jsonl -events-path data/replay.jsonl
//	./navreplay -script session.toml -seed 42 -events discard
package main
