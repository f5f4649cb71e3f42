// Package emit wires an Executor's superstep/node lifecycle to pluggable
// observability backends: stdout logging, OpenTelemetry spans, an in-memory
// buffer for tests, or a no-op sink when nothing is configured.
package emit

import "context"

// Emitter receives Event values from an Executor as it runs a graph.
// Implementations must be non-blocking and thread-safe: Executor calls Emit
// concurrently from every node goroutine in a superstep, and a slow or
// failing Emitter must never slow down or fail execution itself.
type Emitter interface {
	// Emit sends one event. Must not block or panic; a failing backend
	// should drop the event and log internally rather than propagate.
	Emit(event Event)

	// EmitBatch sends multiple events, preserving their order. Returns an
	// error only for catastrophic/configuration failures, never for
	// individual event delivery failures.
	EmitBatch(ctx context.Context, events []Event) error

	// Flush blocks until buffered events are delivered or ctx is done.
	// Safe to call multiple times. graph.Executor calls Flush once a run
	// completes so its caller can rely on events being visible by then.
	Flush(ctx context.Context) error
}
