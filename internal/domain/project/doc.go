// Package project models the lifetime of an open project.
//
// Every project owns a context that is cancelled when the project is
// disposed. Background work spawned on behalf of a project derives from that
// context, so disposing the project aborts queued and running units.
//
// Light projects are throwaway instances (tests, scratch windows) for which
// navigation telemetry is suppressed entirely.
//
// Example Usage:
//
//	registry := project.NewRegistry()
//	p := registry.Open("demo", "/work/demo", false)
//	defer registry.Dispose(p.ID)
package project
