// Copyright (c) The agui-client-go authors. All rights reserved.

package aguiclient

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
)

const dataPrefix = "data:"

// DecoderStats counts decoder activity and locally recovered protocol
// violations. Malformed lines are dropped, never fatal.
type DecoderStats struct {
	Lines          int
	Events         int
	MalformedLines int
	UnknownTypes   int
}

// Decoder turns a raw chunk stream into typed [Event] values. Chunks may
// split a logical line at any byte offset; the decoder carries the trailing
// incomplete line over to the next Feed call.
//
// A Decoder is not safe for concurrent use. One Decoder decodes one run.
type Decoder struct {
	buf    []byte
	closed bool
	stats  DecoderStats
	logger *slog.Logger
}

// DecoderOption configures a [Decoder].
type DecoderOption func(*Decoder)

// WithDecoderLogger sets the logger used for dropped-line diagnostics.
func WithDecoderLogger(logger *slog.Logger) DecoderOption {
	return func(d *Decoder) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// NewDecoder creates an empty Decoder.
func NewDecoder(opts ...DecoderOption) *Decoder {
	d := &Decoder{logger: slog.Default()}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Feed appends chunk to the internal buffer and returns the events decoded
// from every line completed by it, in wire order. An empty chunk is a no-op.
// Feeding a closed decoder returns nil.
func (d *Decoder) Feed(chunk []byte) []Event {
	if d.closed || len(chunk) == 0 {
		return nil
	}
	d.buf = append(d.buf, chunk...)

	var events []Event
	for {
		i := bytes.IndexByte(d.buf, '\n')
		if i < 0 {
			break
		}
		line := string(d.buf[:i])
		d.buf = d.buf[i+1:]
		if ev, ok := d.decodeLine(line); ok {
			events = append(events, ev)
		}
	}
	return events
}

// Close flushes the decoder. A non-terminated partial line is discarded and
// reported as a synthesized [RunErrorEvent]: trailing data without a line
// terminator is truncation, not a retriable condition. A non-empty reason
// (for example "aborted" on caller-driven cancellation) synthesizes a
// further RunErrorEvent carrying it. Close is idempotent.
func (d *Decoder) Close(reason string) []Event {
	if d.closed {
		return nil
	}
	d.closed = true

	var events []Event
	if rest := strings.TrimSpace(string(d.buf)); rest != "" {
		d.logger.Warn("discarding truncated trailing data", "bytes", len(rest))
		events = append(events, RunErrorEvent{
			Message: "stream truncated: partial line discarded",
			Code:    "TRUNCATED",
		})
	}
	d.buf = nil

	if reason != "" {
		code := "STREAM_CLOSED"
		if reason == "aborted" {
			code = "ABORTED"
		}
		events = append(events, RunErrorEvent{Message: reason, Code: code})
	}
	return events
}

// Stats returns a snapshot of the decoder's diagnostic counters.
func (d *Decoder) Stats() DecoderStats { return d.stats }

// decodeLine parses one complete line. Blank keep-alives, SSE comments and
// lines without the data prefix are skipped silently; malformed JSON and
// unknown event types are counted and dropped.
func (d *Decoder) decodeLine(line string) (Event, bool) {
	line = strings.TrimSuffix(line, "\r")
	d.stats.Lines++

	if line == "" || strings.HasPrefix(line, ":") {
		return nil, false
	}
	if !strings.HasPrefix(line, dataPrefix) {
		return nil, false
	}
	payload := strings.TrimSpace(line[len(dataPrefix):])
	if payload == "" || payload == "[DONE]" {
		return nil, false
	}

	var raw wireEvent
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		d.stats.MalformedLines++
		d.logger.Warn("dropping malformed event line",
			"error", err,
			"line", truncateForLog(payload),
		)
		return nil, false
	}
	if raw.Type == "" {
		d.stats.MalformedLines++
		d.logger.Warn("dropping event line without type", "line", truncateForLog(payload))
		return nil, false
	}

	ev, known := raw.event()
	if !known {
		d.stats.UnknownTypes++
		d.logger.Debug("ignoring unknown event type", "type", string(raw.Type))
		return nil, false
	}
	d.stats.Events++
	return ev, true
}

// wireEvent is the flat JSON envelope used on the wire. Producers are
// inconsistent about the tool call id field: most events use toolCallId but
// TOOL_CALL_RESULT uses tool_call_id, so both spellings are accepted.
type wireEvent struct {
	Type            EventType       `json:"type"`
	RunID           string          `json:"runId"`
	ThreadID        string          `json:"threadId"`
	MessageID       string          `json:"messageId"`
	Role            string          `json:"role"`
	Delta           string          `json:"delta"`
	ToolCallID      string          `json:"toolCallId"`
	ToolCallIDSnake string          `json:"tool_call_id"`
	ToolCallName    string          `json:"toolCallName"`
	Name            string          `json:"name"`
	ParentMessageID string          `json:"parentMessageId"`
	Content         json.RawMessage `json:"content"`
	Message         string          `json:"message"`
	Code            string          `json:"code"`
}

func (w *wireEvent) callID() string {
	if w.ToolCallID != "" {
		return w.ToolCallID
	}
	return w.ToolCallIDSnake
}

func (w *wireEvent) toolName() string {
	if w.ToolCallName != "" {
		return w.ToolCallName
	}
	return w.Name
}

// event maps the envelope to its typed form. The second return is false for
// event types this client does not recognize.
func (w *wireEvent) event() (Event, bool) {
	switch w.Type {
	case EventTypeRunStarted:
		return RunStartedEvent{RunID: w.RunID, ThreadID: w.ThreadID}, true
	case EventTypeTextStart:
		role := RoleAssistant
		if w.Role != "" {
			role = Role(w.Role)
		}
		return TextMessageStartEvent{MessageID: w.MessageID, Role: role}, true
	case EventTypeTextContent:
		return TextMessageContentEvent{MessageID: w.MessageID, Delta: w.Delta}, true
	case EventTypeTextEnd:
		return TextMessageEndEvent{MessageID: w.MessageID}, true
	case EventTypeToolCallStart:
		return ToolCallStartEvent{
			ToolCallID:      w.callID(),
			Name:            w.toolName(),
			ParentMessageID: w.ParentMessageID,
		}, true
	case EventTypeToolCallArgs:
		return ToolCallArgsEvent{ToolCallID: w.callID(), Delta: w.Delta}, true
	case EventTypeToolCallEnd:
		return ToolCallEndEvent{ToolCallID: w.callID()}, true
	case EventTypeToolCallResult:
		return ToolCallResultEvent{ToolCallID: w.callID(), Content: w.Content}, true
	case EventTypeRunFinished:
		return RunFinishedEvent{RunID: w.RunID}, true
	case EventTypeRunError:
		return RunErrorEvent{RunID: w.RunID, Message: w.Message, Code: w.Code}, true
	}
	return nil, false
}

// truncateForLog keeps dropped-line diagnostics bounded.
func truncateForLog(s string) string {
	const max = 200
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
