// Package navigation reacts to file navigation events of a project.
//
// For every selection a Coordinator updates the navigation context on the
// caller's goroutine, then hands a unit of work to the background executor.
// The unit samples the previous session for an opened-file record, starts a
// new session, samples it for a next-file prediction and finally records the
// selection in the history. The unit is bound to the project's context and
// stops at the next step boundary once the project is disposed. If the
// executor rejects the unit, only the history update runs, inline.
//
// A failure while building an opened-file record drops that record and
// nothing else.
//
// Service maps projects to coordinators built by a Factory.
package navigation
