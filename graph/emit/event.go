package emit

// Event messages emitted by the engine and its collaborators.
const (
	MsgRunStart     = "run_start"
	MsgNodeStart    = "node_start"
	MsgNodeEnd      = "node_end"
	MsgRoute        = "route"
	MsgRunComplete  = "run_complete"
	MsgRunError     = "run_error"
	MsgRunAbandoned = "run_abandoned"
	MsgToolCall     = "tool_call"
	MsgMemoryHit    = "memory_hit"
)

// Event represents an observability event emitted during workflow execution.
//
// Events are emitted to an Emitter which can log them, turn them into
// OpenTelemetry spans, or buffer them for inspection.
type Event struct {
	// RunID identifies the workflow execution that emitted this event.
	RunID string

	// Step is the 1-indexed transition number.
	// Zero for events emitted before the first node runs.
	Step int

	// NodeID identifies the node the event concerns.
	// Empty for run-level events.
	NodeID string

	// Msg is one of the Msg constants.
	Msg string

	// Meta contains additional structured data specific to this event.
	// Common keys:
	//   - "duration_ms": execution duration in milliseconds
	//   - "error": error details
	//   - "code": NodeError code of a failed run
	//   - "to", "branch", "key": routing decision
	//   - "tool": tool name for tool_call events
	Meta map[string]interface{}
}

// IsTerminal reports whether the event ends a run.
func (e Event) IsTerminal() bool {
	switch e.Msg {
	case MsgRunComplete, MsgRunError, MsgRunAbandoned:
		return true
	}
	return false
}
