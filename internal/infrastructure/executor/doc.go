// Package executor runs non-urgent background units off the caller's thread.
//
// Every unit is submitted together with the context of the scope that owns
// it, normally a project. A unit whose context is already done when a worker
// picks it up is dropped without running; a running unit sees the same
// context and is expected to stop early when it is cancelled.
//
// Submission never blocks: when the queue is full the unit is rejected and
// the caller decides what to do (the navigation coordinator still records
// the selection in the history inline).
//
// Example Usage:
//
//	pool := executor.NewPool(executor.Config{Workers: 2, QueueSize: 256}, logger, metrics)
//	defer pool.Close(context.Background())
//
//	err := pool.Submit(project.Context(), "navigation.selected", func(ctx context.Context) {
//	    // background work
//	})
package executor
