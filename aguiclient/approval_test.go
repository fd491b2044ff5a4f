// Copyright (c) The agui-client-go authors. All rights reserved.

package aguiclient_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	agui "github.com/raphaelmansuy/agui-client-go/aguiclient"
)

// rendererSpy records every artifact update a renderer receives.
type rendererSpy struct {
	got []agui.ArtifactUpdate
}

func (r *rendererSpy) render(up agui.ArtifactUpdate) { r.got = append(r.got, up) }

func refundEvents(id string) []agui.Event {
	return []agui.Event{
		agui.ToolCallStartEvent{ToolCallID: id, Name: "process_refund"},
		agui.ToolCallArgsEvent{ToolCallID: id, Delta: `{"amount":50}`},
		agui.ToolCallEndEvent{ToolCallID: id},
		agui.ToolCallResultEvent{ToolCallID: id, Content: json.RawMessage(`"refund queued"`)},
	}
}

func TestApproval_GatedCallSuspends(t *testing.T) {
	spy := &rendererSpy{}
	s := agui.OpenSession("t-1",
		agui.WithGatedAction("process_refund", nil),
		agui.WithRenderer("process_refund", spy.render),
	)

	updates := apply(t, s, agui.RunStartedEvent{RunID: "run-1"})
	updates = append(updates, apply(t, s, refundEvents("tc-1")...)...)

	rec, _ := s.ToolCall("tc-1")
	if rec.Status != agui.ToolCallAwaitingApproval {
		t.Fatalf("Status = %q, want awaiting_approval", rec.Status)
	}
	pending := s.PendingApprovals()
	if len(pending) != 1 || pending[0].ToolCallID != "tc-1" || pending[0].ToolName != "process_refund" {
		t.Fatalf("pending = %+v", pending)
	}

	var approvals int
	for _, u := range updates {
		if _, ok := u.(agui.ApprovalUpdate); ok {
			approvals++
		}
	}
	if approvals != 1 {
		t.Errorf("ApprovalUpdate count = %d, want 1", approvals)
	}

	// No completion may be dispatched while the decision is outstanding.
	for _, up := range spy.got {
		if up.Status == agui.RenderComplete {
			t.Fatalf("complete dispatched before approval: %+v", up)
		}
	}
}

func TestApproval_ResolveApprovedDispatchesOnce(t *testing.T) {
	spy := &rendererSpy{}
	s := agui.OpenSession("t-1",
		agui.WithGatedAction("process_refund", nil),
		agui.WithRenderer("process_refund", spy.render),
	)
	apply(t, s, agui.RunStartedEvent{RunID: "run-1"})
	apply(t, s, refundEvents("tc-1")...)
	before := len(spy.got)

	if err := s.Gate().Resolve("tc-1", true, nil); err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	rec, _ := s.ToolCall("tc-1")
	if rec.Status != agui.ToolCallResolved {
		t.Errorf("Status = %q, want resolved", rec.Status)
	}
	completes := spy.got[before:]
	if len(completes) != 1 || completes[0].Status != agui.RenderComplete {
		t.Fatalf("dispatched after resolve: %+v", completes)
	}
	if completes[0].Decision == nil || !completes[0].Decision.Approved {
		t.Errorf("Decision = %+v, want approved", completes[0].Decision)
	}
	if completes[0].Result != "refund queued" {
		t.Errorf("Result = %#v", completes[0].Result)
	}
	if len(s.PendingApprovals()) != 0 {
		t.Error("request still pending after resolve")
	}
}

func TestApproval_ResolveIsIdempotent(t *testing.T) {
	spy := &rendererSpy{}
	s := agui.OpenSession("t-1",
		agui.WithGatedAction("process_refund", nil),
		agui.WithRenderer("process_refund", spy.render),
	)
	apply(t, s, agui.RunStartedEvent{RunID: "run-1"})
	apply(t, s, refundEvents("tc-1")...)
	req := s.PendingApprovals()[0]

	if err := s.Gate().Resolve("tc-1", false, "too large"); err != nil {
		t.Fatalf("first Resolve: %v", err)
	}
	dispatched := len(spy.got)

	// A second resolution, even with the opposite verdict, is a no-op.
	if err := s.Gate().Resolve("tc-1", true, nil); err != nil {
		t.Fatalf("second Resolve: %v", err)
	}
	if len(spy.got) != dispatched {
		t.Errorf("second resolve dispatched again: %d -> %d", dispatched, len(spy.got))
	}

	dec, ok := req.Decision()
	if !ok || dec.Approved || dec.Value != "too large" {
		t.Errorf("Decision = %+v ok=%v, first verdict must win", dec, ok)
	}
}

func TestApproval_UnknownIDRejected(t *testing.T) {
	s := agui.OpenSession("t-1")
	if err := s.Gate().Resolve("nope", true, nil); !errors.Is(err, agui.ErrUnknownApproval) {
		t.Fatalf("err = %v, want ErrUnknownApproval", err)
	}
}

func TestApproval_UngatedCallsFlowWhilePending(t *testing.T) {
	s := agui.OpenSession("t-1", agui.WithGatedAction("process_refund", nil))
	apply(t, s, agui.RunStartedEvent{RunID: "run-1"})
	apply(t, s, refundEvents("tc-1")...)

	// An ungated call interleaved with the suspension resolves normally.
	apply(t, s,
		agui.ToolCallStartEvent{ToolCallID: "tc-2", Name: "get_weather"},
		agui.ToolCallEndEvent{ToolCallID: "tc-2"},
		agui.ToolCallResultEvent{ToolCallID: "tc-2", Content: json.RawMessage(`"sunny"`)},
	)

	if rec, _ := s.ToolCall("tc-2"); rec.Status != agui.ToolCallResolved {
		t.Errorf("ungated Status = %q, want resolved", rec.Status)
	}
	if rec, _ := s.ToolCall("tc-1"); rec.Status != agui.ToolCallAwaitingApproval {
		t.Errorf("gated Status = %q, want awaiting_approval", rec.Status)
	}
}

func TestApproval_FinishWhilePendingStaysResumable(t *testing.T) {
	s := agui.OpenSession("t-1", agui.WithGatedAction("process_refund", nil))
	apply(t, s, agui.RunStartedEvent{RunID: "run-1"})
	apply(t, s, refundEvents("tc-1")...)
	apply(t, s, agui.RunFinishedEvent{RunID: "run-1"})

	if d := s.Diagnostics(); d.ApprovalAnomalies != 1 {
		t.Errorf("ApprovalAnomalies = %d, want 1", d.ApprovalAnomalies)
	}
	if s.Terminal() {
		t.Fatal("session terminal while approval pending")
	}

	if err := s.Gate().Resolve("tc-1", true, nil); err != nil {
		t.Fatalf("late Resolve: %v", err)
	}
	if !s.Terminal() {
		t.Error("session not terminal after the pending approval resolved")
	}
}

func TestApproval_PredicateSkipsGate(t *testing.T) {
	s := agui.OpenSession("t-1")
	s.RegisterGatedAction("process_refund", func(rec *agui.ToolCallRecord, result any) bool {
		args, _ := rec.Args.(map[string]any)
		amount, _ := args["amount"].(float64)
		return amount >= 100
	})
	apply(t, s, agui.RunStartedEvent{RunID: "run-1"})
	apply(t, s, refundEvents("tc-1")...) // amount 50, under the threshold

	rec, _ := s.ToolCall("tc-1")
	if rec.Status != agui.ToolCallResolved {
		t.Errorf("Status = %q, want resolved without suspension", rec.Status)
	}
	if len(s.PendingApprovals()) != 0 {
		t.Error("unexpected pending approval")
	}
}

func TestApproval_ResolveAfterAbortIsBookkeepingOnly(t *testing.T) {
	spy := &rendererSpy{}
	s := agui.OpenSession("t-1",
		agui.WithGatedAction("process_refund", nil),
		agui.WithRenderer("process_refund", spy.render),
	)
	apply(t, s, agui.RunStartedEvent{RunID: "run-1"})
	apply(t, s, refundEvents("tc-1")...)
	apply(t, s, agui.RunErrorEvent{RunID: "run-1", Message: "aborted", Code: "ABORTED"})
	before := len(spy.got)

	if err := s.Gate().Resolve("tc-1", true, nil); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if rec, _ := s.ToolCall("tc-1"); rec.Status != agui.ToolCallResolved {
		t.Errorf("Status = %q, want resolved", rec.Status)
	}
	if len(spy.got) != before {
		t.Errorf("dispatch after abort: %+v", spy.got[before:])
	}
	if !s.Terminal() {
		t.Error("session not terminal after bookkeeping resolve")
	}
}

func TestApproval_DoneChannel(t *testing.T) {
	s := agui.OpenSession("t-1", agui.WithGatedAction("process_refund", nil))
	apply(t, s, agui.RunStartedEvent{RunID: "run-1"})
	apply(t, s, refundEvents("tc-1")...)

	req := s.PendingApprovals()[0]
	select {
	case <-req.Done():
		t.Fatal("Done closed before resolution")
	default:
	}
	if !req.Pending() {
		t.Fatal("request not pending")
	}

	if err := s.Gate().Resolve("tc-1", true, nil); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	select {
	case <-req.Done():
	default:
		t.Fatal("Done not closed after resolution")
	}
}

func TestApproval_DecisionRelayInvoked(t *testing.T) {
	var relayed []agui.Decision
	s := agui.OpenSession("t-1",
		agui.WithGatedAction("process_refund", nil),
		agui.WithDecisionRelay(func(ctx context.Context, req *agui.ApprovalRequest, dec agui.Decision) error {
			relayed = append(relayed, dec)
			return nil
		}),
	)
	apply(t, s, agui.RunStartedEvent{RunID: "run-1"})
	apply(t, s, refundEvents("tc-1")...)

	if err := s.Gate().Resolve("tc-1", false, "declined"); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(relayed) != 1 || relayed[0].Approved || relayed[0].Value != "declined" {
		t.Errorf("relayed = %+v", relayed)
	}
}
