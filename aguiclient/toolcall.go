// Copyright (c) The agui-client-go authors. All rights reserved.

package aguiclient

// ToolCallStatus tracks a tool call through its lifecycle.
type ToolCallStatus string

const (
	// ToolCallStarted: created by TOOL_CALL_START, arguments still streaming.
	ToolCallStarted ToolCallStatus = "started"

	// ToolCallArgsComplete: arguments parsed; the tool is client-rendered
	// (a renderer is registered for its name) and may never receive a
	// server-side result.
	ToolCallArgsComplete ToolCallStatus = "args_complete"

	// ToolCallAwaitingResult: arguments parsed, waiting for TOOL_CALL_RESULT.
	ToolCallAwaitingResult ToolCallStatus = "awaiting_result"

	// ToolCallAwaitingApproval: result arrived for a gated action and is
	// suspended until the human decision resolves it.
	ToolCallAwaitingApproval ToolCallStatus = "awaiting_approval"

	// ToolCallResolved: result delivered (and approved, if gated).
	ToolCallResolved ToolCallStatus = "resolved"

	// ToolCallError: the argument buffer did not parse as JSON. The raw
	// buffer is retained for diagnostics; the run continues.
	ToolCallError ToolCallStatus = "error"
)

// ToolCallRecord is the accumulated state of one tool call. Records are
// created by TOOL_CALL_START, mutated by subsequent events and never
// deleted: they live as long as the Session for audit and render replay.
type ToolCallRecord struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	ArgsBuffer string         `json:"argsBuffer"`
	Args       any            `json:"args,omitempty"`
	ArgsError  string         `json:"argsError,omitempty"`
	Status     ToolCallStatus `json:"status"`
	Result     any            `json:"result,omitempty"`
}

// clone returns a shallow copy for read-only exposure outside the session lock.
func (r *ToolCallRecord) clone() ToolCallRecord {
	return *r
}
