// Copyright (c) The agui-client-go authors. All rights reserved.

package aguiclient

import "encoding/json"

// EventType identifies the kind of a protocol event. The values match the
// `type` discriminator used on the wire.
type EventType string

const (
	EventTypeRunStarted     EventType = "RUN_STARTED"
	EventTypeTextStart      EventType = "TEXT_MESSAGE_START"
	EventTypeTextContent    EventType = "TEXT_MESSAGE_CONTENT"
	EventTypeTextEnd        EventType = "TEXT_MESSAGE_END"
	EventTypeToolCallStart  EventType = "TOOL_CALL_START"
	EventTypeToolCallArgs   EventType = "TOOL_CALL_ARGS"
	EventTypeToolCallEnd    EventType = "TOOL_CALL_END"
	EventTypeToolCallResult EventType = "TOOL_CALL_RESULT"
	EventTypeRunFinished    EventType = "RUN_FINISHED"
	EventTypeRunError       EventType = "RUN_ERROR"
)

// Event is a sealed interface representing a single typed protocol event
// decoded from the stream. Use a type switch to inspect the underlying type.
//
// Every event except [RunStartedEvent] and [RunErrorEvent] carries the id of
// an entity created by a prior start event; the [Session] accumulator treats
// references to unknown ids as recoverable protocol violations.
type Event interface {
	// Type returns the discriminator for this event.
	Type() EventType

	// sealed prevents external implementations.
	sealed()
}

// eventBase is embedded by every concrete Event type to satisfy the sealed marker.
type eventBase struct{}

func (eventBase) sealed() {}

// RunStartedEvent marks the beginning of an agent run.
type RunStartedEvent struct {
	eventBase
	RunID    string
	ThreadID string
}

func (RunStartedEvent) Type() EventType { return EventTypeRunStarted }

// TextMessageStartEvent opens a new streamed assistant message.
type TextMessageStartEvent struct {
	eventBase
	MessageID string
	Role      Role
}

func (TextMessageStartEvent) Type() EventType { return EventTypeTextStart }

// TextMessageContentEvent carries one text delta for an open message.
type TextMessageContentEvent struct {
	eventBase
	MessageID string
	Delta     string
}

func (TextMessageContentEvent) Type() EventType { return EventTypeTextContent }

// TextMessageEndEvent freezes a streamed message; no further deltas are
// accepted for its id.
type TextMessageEndEvent struct {
	eventBase
	MessageID string
}

func (TextMessageEndEvent) Type() EventType { return EventTypeTextEnd }

// ToolCallStartEvent announces a tool invocation; arguments follow as deltas.
type ToolCallStartEvent struct {
	eventBase
	ToolCallID      string
	Name            string
	ParentMessageID string
}

func (ToolCallStartEvent) Type() EventType { return EventTypeToolCallStart }

// ToolCallArgsEvent carries one chunk of the streamed JSON argument text.
type ToolCallArgsEvent struct {
	eventBase
	ToolCallID string
	Delta      string
}

func (ToolCallArgsEvent) Type() EventType { return EventTypeToolCallArgs }

// ToolCallEndEvent marks the argument stream for a tool call as complete.
type ToolCallEndEvent struct {
	eventBase
	ToolCallID string
}

func (ToolCallEndEvent) Type() EventType { return EventTypeToolCallEnd }

// ToolCallResultEvent delivers the terminal result of a tool call.
//
// Content is kept raw: producers send it either as a JSON string (sometimes
// itself containing encoded JSON) or as a structured value. Both forms are
// accepted; see [Session] for the normalization rules.
type ToolCallResultEvent struct {
	eventBase
	ToolCallID string
	Content    json.RawMessage
}

func (ToolCallResultEvent) Type() EventType { return EventTypeToolCallResult }

// RunFinishedEvent marks the successful end of a run.
type RunFinishedEvent struct {
	eventBase
	RunID string
}

func (RunFinishedEvent) Type() EventType { return EventTypeRunFinished }

// RunErrorEvent marks the failed end of a run. Code is optional and carries
// a machine-readable classification when the producer (or the local decoder)
// supplies one.
type RunErrorEvent struct {
	eventBase
	RunID   string
	Message string
	Code    string
}

func (RunErrorEvent) Type() EventType { return EventTypeRunError }
