/*
Package tracing provides lightweight spans for background navigation work.

# Overview

Each background unit spawned for a navigation event runs inside a span. The
span records the project, the sessions involved and the unit's outcome, and
is reported through the structured logger once finished. Child spans for the
opened-file logging and prediction steps share the unit's trace ID, so one
grep over the logs reconstructs what happened to a single event.

# Usage

	tracer := tracing.New("navigation", logger, 1000)
	defer tracer.Close()

	span, ctx := tracer.StartSpan(ctx, "navigation.selected")
	defer func() {
		span.Finish()
		tracer.Submit(span)
	}()
	span.SetTag("project", projectID)

# Performance

Spans are collected through a buffered channel and processed by a single
goroutine. When the buffer is full, spans are dropped with a warning rather
than blocking the unit.
*/
package tracing
