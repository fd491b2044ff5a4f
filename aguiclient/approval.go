// Copyright (c) The agui-client-go authors. All rights reserved.

package aguiclient

import (
	"log/slog"
	"sync"
)

// Decision is the human verdict on a gated tool call. Value optionally
// augments the tool result delivered to renderers (for example a reason for
// a denial).
type Decision struct {
	Approved bool
	Value    any
}

// ApprovalRequest suspends the completion of one gated tool call until a
// human decision arrives. Exactly one ApprovalRequest exists per gated tool
// call; it is resolved exactly once.
//
// Done exposes the suspension as a channel the caller can await; Decision
// reports the recorded verdict once resolved.
type ApprovalRequest struct {
	ToolCallID string
	ToolName   string
	Payload    any

	mu       sync.Mutex
	decision *Decision
	done     chan struct{}
}

func newApprovalRequest(rec *ToolCallRecord, payload any) *ApprovalRequest {
	return &ApprovalRequest{
		ToolCallID: rec.ID,
		ToolName:   rec.Name,
		Payload:    payload,
		done:       make(chan struct{}),
	}
}

// Done returns a channel closed when the request is resolved.
func (r *ApprovalRequest) Done() <-chan struct{} { return r.done }

// Decision returns the recorded decision. ok is false while the request is
// still pending.
func (r *ApprovalRequest) Decision() (Decision, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.decision == nil {
		return Decision{}, false
	}
	return *r.decision, true
}

// Pending reports whether the request has not been resolved yet.
func (r *ApprovalRequest) Pending() bool {
	_, ok := r.Decision()
	return !ok
}

// resolve records the decision exactly once. The second return is false on
// repeat resolution.
func (r *ApprovalRequest) resolve(dec Decision) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.decision != nil {
		return false
	}
	r.decision = &dec
	close(r.done)
	return true
}

// ApprovalGate intercepts results of gated tool calls, suspends their
// completion and resumes the owning session once the decision arrives.
// There is no intrinsic timeout: a decision may arrive arbitrarily late,
// even after the run has otherwise finished.
type ApprovalGate struct {
	mu      sync.Mutex
	pending map[string]*ApprovalRequest
	logger  *slog.Logger

	// onResolve is installed by the owning session to transition the tool
	// call record and trigger dispatch. Called outside the gate lock.
	onResolve func(req *ApprovalRequest, dec Decision)
}

func newApprovalGate(logger *slog.Logger) *ApprovalGate {
	return &ApprovalGate{
		pending: make(map[string]*ApprovalRequest),
		logger:  logger,
	}
}

// request registers a new suspension for rec. The caller guarantees at most
// one request per tool call id.
func (g *ApprovalGate) request(rec *ToolCallRecord, payload any) *ApprovalRequest {
	req := newApprovalRequest(rec, payload)
	g.mu.Lock()
	g.pending[rec.ID] = req
	g.mu.Unlock()
	return req
}

// Resolve records the human decision for a suspended tool call and resumes
// its completion: the record transitions to resolved and the (possibly
// decision-augmented) result becomes eligible for dispatch.
//
// Resolution is idempotent: a second call for the same tool call is a
// logged no-op, whatever decision it carries. Resolving an id with no
// pending request returns [ErrUnknownApproval].
func (g *ApprovalGate) Resolve(toolCallID string, approved bool, value any) error {
	g.mu.Lock()
	req, ok := g.pending[toolCallID]
	g.mu.Unlock()
	if !ok {
		return ErrUnknownApproval
	}

	dec := Decision{Approved: approved, Value: value}
	if !req.resolve(dec) {
		g.logger.Warn("duplicate approval resolution ignored", "tool_call_id", toolCallID)
		return nil
	}

	g.logger.Debug("approval resolved",
		"tool_call_id", toolCallID,
		"tool", req.ToolName,
		"approved", approved,
	)
	if g.onResolve != nil {
		g.onResolve(req, dec)
	}
	return nil
}

// Pending returns the requests that have not been resolved yet.
func (g *ApprovalGate) Pending() []*ApprovalRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []*ApprovalRequest
	for _, req := range g.pending {
		if req.Pending() {
			out = append(out, req)
		}
	}
	return out
}

func (g *ApprovalGate) pendingCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := 0
	for _, req := range g.pending {
		if req.Pending() {
			n++
		}
	}
	return n
}
