// Copyright (c) The agui-client-go authors. All rights reserved.

package aguiclient_test

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"testing"

	agui "github.com/raphaelmansuy/agui-client-go/aguiclient"
)

func apply(t *testing.T, s *agui.Session, events ...agui.Event) []agui.Update {
	t.Helper()
	var updates []agui.Update
	for _, ev := range events {
		ups, err := s.Apply(ev)
		if err != nil {
			t.Fatalf("Apply(%T) error: %v", ev, err)
		}
		updates = append(updates, ups...)
	}
	return updates
}

func TestSession_TextAccumulation(t *testing.T) {
	s := agui.OpenSession("t-1")

	updates := apply(t, s,
		agui.RunStartedEvent{RunID: "run-1", ThreadID: "t-1"},
		agui.TextMessageStartEvent{MessageID: "m-1", Role: agui.RoleAssistant},
		agui.TextMessageContentEvent{MessageID: "m-1", Delta: "Hello, "},
		agui.TextMessageContentEvent{MessageID: "m-1", Delta: "world"},
		agui.TextMessageEndEvent{MessageID: "m-1"},
	)

	msgs := s.Messages()
	if len(msgs) != 1 {
		t.Fatalf("len(msgs) = %d, want 1", len(msgs))
	}
	if msgs[0].Content != "Hello, world" || !msgs[0].Complete || msgs[0].Role != agui.RoleAssistant {
		t.Errorf("message = %+v", msgs[0])
	}

	var deltas []string
	var done int
	for _, u := range updates {
		switch u := u.(type) {
		case agui.TextUpdate:
			deltas = append(deltas, u.Delta)
		case agui.MessageDoneUpdate:
			done++
			if u.Content != "Hello, world" {
				t.Errorf("MessageDoneUpdate.Content = %q", u.Content)
			}
		}
	}
	if !reflect.DeepEqual(deltas, []string{"Hello, ", "world"}) || done != 1 {
		t.Errorf("deltas = %v, done = %d", deltas, done)
	}
}

func TestSession_FrozenMessageRejectsDeltas(t *testing.T) {
	s := agui.OpenSession("t-1")
	apply(t, s,
		agui.RunStartedEvent{RunID: "run-1"},
		agui.TextMessageStartEvent{MessageID: "m-1"},
		agui.TextMessageContentEvent{MessageID: "m-1", Delta: "final"},
		agui.TextMessageEndEvent{MessageID: "m-1"},
	)

	ups := apply(t, s, agui.TextMessageContentEvent{MessageID: "m-1", Delta: " extra"})
	if len(ups) != 0 {
		t.Errorf("late delta produced updates: %#v", ups)
	}
	if got := s.Messages()[0].Content; got != "final" {
		t.Errorf("content = %q, want %q", got, "final")
	}
	if d := s.Diagnostics(); d.FrozenMessageDeltas != 1 {
		t.Errorf("FrozenMessageDeltas = %d, want 1", d.FrozenMessageDeltas)
	}
}

func TestSession_UnknownIDsCountedNotFatal(t *testing.T) {
	s := agui.OpenSession("t-1")
	apply(t, s,
		agui.RunStartedEvent{RunID: "run-1"},
		agui.TextMessageContentEvent{MessageID: "ghost", Delta: "x"},
		agui.TextMessageEndEvent{MessageID: "ghost"},
		agui.ToolCallArgsEvent{ToolCallID: "ghost-tc", Delta: "{}"},
		agui.ToolCallResultEvent{ToolCallID: "ghost-tc", Content: json.RawMessage(`"x"`)},
		agui.RunFinishedEvent{RunID: "run-1"},
	)

	d := s.Diagnostics()
	if d.UnknownMessageEvents != 2 {
		t.Errorf("UnknownMessageEvents = %d, want 2", d.UnknownMessageEvents)
	}
	if d.UnknownToolCallEvents != 2 {
		t.Errorf("UnknownToolCallEvents = %d, want 2", d.UnknownToolCallEvents)
	}
	if !s.Terminal() {
		t.Error("session should be terminal after RUN_FINISHED")
	}
}

func TestSession_SingleActiveRun(t *testing.T) {
	s := agui.OpenSession("t-1")
	apply(t, s, agui.RunStartedEvent{RunID: "run-1"})

	if _, err := s.Apply(agui.RunStartedEvent{RunID: "run-2"}); !errors.Is(err, agui.ErrRunActive) {
		t.Fatalf("second RUN_STARTED error = %v, want ErrRunActive", err)
	}
	if s.RunID() != "run-1" {
		t.Errorf("RunID = %q, want run-1", s.RunID())
	}

	// After the terminal event a new run is allowed.
	apply(t, s, agui.RunFinishedEvent{RunID: "run-1"})
	if _, err := s.Apply(agui.RunStartedEvent{RunID: "run-2"}); err != nil {
		t.Fatalf("new run after terminal: %v", err)
	}
	if s.RunID() != "run-2" {
		t.Errorf("RunID = %q, want run-2", s.RunID())
	}
}

func TestSession_ToolCallArgsAssembled(t *testing.T) {
	s := agui.OpenSession("t-1")
	apply(t, s,
		agui.RunStartedEvent{RunID: "run-1"},
		agui.ToolCallStartEvent{ToolCallID: "tc-1", Name: "get_weather"},
		agui.ToolCallArgsEvent{ToolCallID: "tc-1", Delta: `{"city":`},
		agui.ToolCallArgsEvent{ToolCallID: "tc-1", Delta: `"Oslo"}`},
		agui.ToolCallEndEvent{ToolCallID: "tc-1"},
	)

	rec, ok := s.ToolCall("tc-1")
	if !ok {
		t.Fatal("record missing")
	}
	if rec.Status != agui.ToolCallAwaitingResult {
		t.Errorf("Status = %q, want awaiting_result", rec.Status)
	}
	args, ok := rec.Args.(map[string]any)
	if !ok || args["city"] != "Oslo" {
		t.Errorf("Args = %#v", rec.Args)
	}
}

func TestSession_ToolCallArgsParseError(t *testing.T) {
	s := agui.OpenSession("t-1")
	apply(t, s,
		agui.RunStartedEvent{RunID: "run-1"},
		agui.ToolCallStartEvent{ToolCallID: "tc-1", Name: "broken"},
		agui.ToolCallArgsEvent{ToolCallID: "tc-1", Delta: `{"city": OSLO`},
		agui.ToolCallEndEvent{ToolCallID: "tc-1"},
		agui.RunFinishedEvent{RunID: "run-1"},
	)

	rec, _ := s.ToolCall("tc-1")
	if rec.Status != agui.ToolCallError {
		t.Errorf("Status = %q, want error", rec.Status)
	}
	if rec.ArgsError == "" {
		t.Error("ArgsError empty, want parse diagnostic")
	}
	if rec.ArgsBuffer != `{"city": OSLO` {
		t.Errorf("ArgsBuffer = %q, raw buffer must be retained", rec.ArgsBuffer)
	}
}

func TestSession_StringResultPassthrough(t *testing.T) {
	s := agui.OpenSession("t-1")
	apply(t, s,
		agui.RunStartedEvent{RunID: "run-1"},
		agui.ToolCallStartEvent{ToolCallID: "tc-1", Name: "get_weather"},
		agui.ToolCallEndEvent{ToolCallID: "tc-1"},
		agui.ToolCallResultEvent{ToolCallID: "tc-1", Content: json.RawMessage(`"sunny, 21C"`)},
	)

	rec, _ := s.ToolCall("tc-1")
	if rec.Status != agui.ToolCallResolved {
		t.Errorf("Status = %q, want resolved", rec.Status)
	}
	// Plain text results flow into the transcript as assistant messages.
	msgs := s.Messages()
	if len(msgs) != 1 || msgs[0].Content != "sunny, 21C" || msgs[0].Role != agui.RoleAssistant {
		t.Errorf("transcript = %+v", msgs)
	}
}

func TestSession_EncodedJSONResultNormalized(t *testing.T) {
	s := agui.OpenSession("t-1")
	apply(t, s,
		agui.RunStartedEvent{RunID: "run-1"},
		agui.ToolCallStartEvent{ToolCallID: "tc-1", Name: "lookup"},
		agui.ToolCallEndEvent{ToolCallID: "tc-1"},
		// A JSON string whose content is itself encoded JSON.
		agui.ToolCallResultEvent{ToolCallID: "tc-1", Content: json.RawMessage(`"{\"temp\":21}"`)},
	)

	rec, _ := s.ToolCall("tc-1")
	m, ok := rec.Result.(map[string]any)
	if !ok || m["temp"] != float64(21) {
		t.Errorf("Result = %#v, want decoded map", rec.Result)
	}
}

func TestSession_DuplicateResultIgnored(t *testing.T) {
	s := agui.OpenSession("t-1")
	apply(t, s,
		agui.RunStartedEvent{RunID: "run-1"},
		agui.ToolCallStartEvent{ToolCallID: "tc-1", Name: "get_weather"},
		agui.ToolCallEndEvent{ToolCallID: "tc-1"},
		agui.ToolCallResultEvent{ToolCallID: "tc-1", Content: json.RawMessage(`"first"`)},
		agui.ToolCallResultEvent{ToolCallID: "tc-1", Content: json.RawMessage(`"second"`)},
	)

	rec, _ := s.ToolCall("tc-1")
	if rec.Result != "first" {
		t.Errorf("Result = %#v, want first", rec.Result)
	}
	if d := s.Diagnostics(); d.DuplicateResults != 1 {
		t.Errorf("DuplicateResults = %d, want 1", d.DuplicateResults)
	}
}

func TestSession_EventsAfterTerminal(t *testing.T) {
	s := agui.OpenSession("t-1")
	apply(t, s,
		agui.RunStartedEvent{RunID: "run-1"},
		agui.RunFinishedEvent{RunID: "run-1"},
		agui.TextMessageStartEvent{MessageID: "late"},
		agui.RunFinishedEvent{RunID: "run-1"},
	)

	d := s.Diagnostics()
	if d.EventsAfterTerminal != 1 {
		t.Errorf("EventsAfterTerminal = %d, want 1", d.EventsAfterTerminal)
	}
	if d.DuplicateTerminals != 1 {
		t.Errorf("DuplicateTerminals = %d, want 1", d.DuplicateTerminals)
	}
	if len(s.Messages()) != 0 {
		t.Errorf("late message reached transcript: %+v", s.Messages())
	}
}

func TestSession_RunErrorIsTerminal(t *testing.T) {
	s := agui.OpenSession("t-1")
	updates := apply(t, s,
		agui.RunStartedEvent{RunID: "run-1"},
		agui.RunErrorEvent{RunID: "run-1", Message: "boom", Code: "INTERNAL"},
	)

	if !s.Terminal() {
		t.Error("session should be terminal after RUN_ERROR")
	}
	var failed *agui.RunFailedUpdate
	for _, u := range updates {
		if f, ok := u.(agui.RunFailedUpdate); ok {
			failed = &f
		}
	}
	if failed == nil || failed.Code != "INTERNAL" || failed.Message != "boom" {
		t.Errorf("RunFailedUpdate = %+v", failed)
	}
}

func TestSession_SendMessageWithoutTransport(t *testing.T) {
	s := agui.OpenSession("t-1")
	if _, err := s.SendMessage(context.Background(), "hi"); !errors.Is(err, agui.ErrNoTransport) {
		t.Fatalf("err = %v, want ErrNoTransport", err)
	}
}

func TestSession_Serialize(t *testing.T) {
	s := agui.OpenSession("t-1")
	apply(t, s,
		agui.RunStartedEvent{RunID: "run-1"},
		agui.TextMessageStartEvent{MessageID: "m-1"},
		agui.TextMessageContentEvent{MessageID: "m-1", Delta: "hi"},
		agui.TextMessageEndEvent{MessageID: "m-1"},
		agui.ToolCallStartEvent{ToolCallID: "tc-1", Name: "get_weather"},
		agui.ToolCallEndEvent{ToolCallID: "tc-1"},
		agui.RunFinishedEvent{RunID: "run-1"},
	)

	state, err := s.Serialize()
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	if state["threadId"] != "t-1" || state["runId"] != "run-1" {
		t.Errorf("state identity = %v / %v", state["threadId"], state["runId"])
	}
	calls, ok := state["toolCalls"].([]agui.ToolCallRecord)
	if !ok || len(calls) != 1 || calls[0].ID != "tc-1" {
		t.Errorf("toolCalls = %#v", state["toolCalls"])
	}
	if _, ok := state["store"]; !ok {
		t.Error("store state missing")
	}

	// The serialized form must round-trip through JSON.
	if _, err := json.Marshal(state); err != nil {
		t.Fatalf("state not JSON-serializable: %v", err)
	}
}
