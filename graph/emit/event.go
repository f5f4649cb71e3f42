package emit

// Event is one observability event emitted by an Executor as it runs a
// graph's supersteps. This is an explicit-field design rather than the
// contextvars-based LogContext correlation original_source's
// core/log_context.py attaches implicitly to every log line: a graphrun
// Event always carries its RunID/Step/NodeID directly, so an Emitter never
// needs ambient state to know which run or superstep it belongs to.
type Event struct {
	// RunID identifies the Executor.Execute call that emitted this event.
	RunID string

	// Step is the superstep number (0-indexed, the first superstep is 0).
	// A "checkpoint_saved" event carries the superstep the checkpoint
	// resumes at, i.e. the current superstep plus one.
	Step int

	// NodeID identifies which node emitted this event, e.g. a Processing,
	// Aggregator, Tool, ToolSet, AI, or HumanInTheLoop node's ID. Empty for
	// superstep-level events (superstep_start, superstep_end,
	// checkpoint_saved).
	NodeID string

	// Msg names the event: "superstep_start", "superstep_end",
	// "checkpoint_saved", "node_start", "node_success", "node_failed",
	// "node_timeout", "fallback_start", or "fallback_success".
	Msg string

	// Meta carries event-specific structured data: "attempts" and "error"
	// on node_failed, "fallback_id" on fallback_start. Nil otherwise.
	Meta map[string]interface{}
}
