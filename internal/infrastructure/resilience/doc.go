/*
Package resilience provides the circuit breaker guarding event log writes.

# Overview

The event log store (a JSONL file or a SQLite database) can fail for as long
as a disk stays full or a database stays locked. When writes fail
repeatedly, the breaker opens and further records are refused for a while
instead of each one waiting on the broken store. Collaborator failures are
not routed through it: a failed reference or feature computation drops only
its own record.

# Usage

	breaker := resilience.New("eventlog:sqlite", resilience.Settings{
		MaxFailures: 5,
		Timeout:     30 * time.Second,
	})

	err := breaker.ExecuteContext(ctx, func(ctx context.Context) error {
		return store.LogEvent(ctx, ev)
	})
	if errors.Is(err, resilience.ErrCircuitOpen) {
		// refused
	}

Context cancellation is not counted as a failure: a disposed project says
nothing about the health of the store.

Each state change starts a new generation. A request admitted under an
earlier generation does not count once it finishes, so a slow write accepted
while closed cannot stand in for the half-open probe.

# States

	Closed --[MaxFailures]-> Open --[Timeout]-> Half-Open --[Probes]-> Closed
	                                                |
	                                            [failure]
	                                                v
	                                              Open
*/
package resilience
