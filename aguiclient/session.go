// Copyright (c) The agui-client-go authors. All rights reserved.

package aguiclient

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// GatePredicate decides whether a tool call result must go through the
// approval gate. It receives the accumulated record and the normalized
// result payload. A nil predicate registered for a name gates every call of
// that name.
type GatePredicate func(rec *ToolCallRecord, result any) bool

// DecisionRelay re-submits a human decision to the backend so the agent run
// can continue server-side. Optional; installed with [WithDecisionRelay].
type DecisionRelay func(ctx context.Context, req *ApprovalRequest, dec Decision) error

// Diagnostics counts protocol violations the session recovered from
// locally. None of these abort a stream; they are invisible to the end user
// and only observable here.
type Diagnostics struct {
	UnknownMessageEvents  int
	FrozenMessageDeltas   int
	UnknownToolCallEvents int
	DuplicateStarts       int
	DuplicateResults      int
	EventsAfterTerminal   int
	DuplicateTerminals    int
	ApprovalAnomalies     int
}

// Session accumulates one conversation: the ordered transcript, the table of
// tool call records, and the pending approval requests. A session supports
// at most one active run at a time and is mutated only by [Session.Apply];
// it lives until the caller discards it.
type Session struct {
	mu        sync.Mutex
	id        string
	threadID  string
	runID     string
	active    bool
	finished  bool
	aborted   bool
	messages  []*Message
	byID      map[string]*Message
	flushed   int // messages[:flushed] are already in the store
	toolCalls map[string]*ToolCallRecord
	toolOrder []string
	gated     map[string]GatePredicate
	state     any
	tools     []ToolDefinition
	ctxItems  []ContextItem

	gate       *ApprovalGate
	dispatcher *artifactDispatcher
	store      MessageStore
	transport  RunTransport
	relay      DecisionRelay
	logger     *slog.Logger
	diag       Diagnostics
}

// SessionOption configures a [Session].
type SessionOption func(*Session)

// WithTransport sets the transport used by [Session.SendMessage].
func WithTransport(tp RunTransport) SessionOption {
	return func(s *Session) { s.transport = tp }
}

// WithLogger sets the session's logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) SessionOption {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithSessionStore sets the transcript store. Messages already in the store
// are preloaded as conversation history. Defaults to an [InMemoryStore].
func WithSessionStore(store MessageStore) SessionOption {
	return func(s *Session) {
		if store != nil {
			s.store = store
		}
	}
}

// WithRenderer registers a renderer for a tool name at construction.
func WithRenderer(name string, r Renderer) SessionOption {
	return func(s *Session) { s.dispatcher.register(name, r) }
}

// WithGatedAction registers a gated action at construction.
func WithGatedAction(name string, pred GatePredicate) SessionOption {
	return func(s *Session) { s.gated[name] = pred }
}

// WithDecisionRelay installs an outbound relay invoked after each approval
// resolution.
func WithDecisionRelay(relay DecisionRelay) SessionOption {
	return func(s *Session) { s.relay = relay }
}

// OpenSession creates a Session for the given thread. An empty threadID is
// replaced with a synthesized uuid.
func OpenSession(threadID string, opts ...SessionOption) *Session {
	if threadID == "" {
		threadID = uuid.NewString()
	}
	s := &Session{
		id:        uuid.NewString(),
		threadID:  threadID,
		byID:      make(map[string]*Message),
		toolCalls: make(map[string]*ToolCallRecord),
		gated:     make(map[string]GatePredicate),
		store:     NewInMemoryStore(),
		logger:    slog.Default(),
	}
	s.gate = newApprovalGate(s.logger)
	s.dispatcher = newArtifactDispatcher(s.logger)
	for _, opt := range opts {
		opt(s)
	}
	s.gate.logger = s.logger
	s.dispatcher.logger = s.logger
	s.gate.onResolve = s.completeApproval

	if history, err := s.store.ListMessages(context.Background()); err != nil {
		s.logger.Warn("failed to load transcript history", "error", err)
	} else {
		for i := range history {
			m := history[i]
			s.messages = append(s.messages, &m)
			s.byID[m.ID] = &m
		}
		s.flushed = len(s.messages)
	}
	return s
}

// ID returns the session's unique identifier.
func (s *Session) ID() string { return s.id }

// ThreadID returns the conversation thread identifier.
func (s *Session) ThreadID() string { return s.threadID }

// RunID returns the id of the current (or last) run, or empty before the
// first RUN_STARTED.
func (s *Session) RunID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runID
}

// Gate returns the session's approval gate.
func (s *Session) Gate() *ApprovalGate { return s.gate }

// Diagnostics returns a snapshot of the violation counters.
func (s *Session) Diagnostics() Diagnostics {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.diag
}

// Terminal reports whether the current run has ended and no approval is
// outstanding. A run that finishes while an approval is pending is recorded
// as an anomaly but stays resumable: the session becomes terminal only once
// that approval resolves.
func (s *Session) Terminal() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.terminalLocked()
}

func (s *Session) terminalLocked() bool {
	return s.finished && s.gate.pendingCount() == 0
}

// idleLocked reports whether a new run may start.
func (s *Session) idleLocked() bool {
	if s.active {
		return false
	}
	return s.runID == "" || s.terminalLocked()
}

// Messages returns a copy of the transcript in insertion order.
func (s *Session) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, 0, len(s.messages))
	for _, m := range s.messages {
		out = append(out, *m)
	}
	return out
}

// ToolCalls returns copies of all tool call records in creation order.
func (s *Session) ToolCalls() []ToolCallRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ToolCallRecord, 0, len(s.toolOrder))
	for _, id := range s.toolOrder {
		out = append(out, s.toolCalls[id].clone())
	}
	return out
}

// ToolCall returns a copy of one record by id.
func (s *Session) ToolCall(id string) (ToolCallRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.toolCalls[id]
	if !ok {
		return ToolCallRecord{}, false
	}
	return rec.clone(), true
}

// PendingApprovals returns the approval requests awaiting a decision.
func (s *Session) PendingApprovals() []*ApprovalRequest {
	return s.gate.Pending()
}

// RegisterGatedAction marks a tool name as requiring human approval before
// its result is acted upon. A nil predicate gates every call of the name.
func (s *Session) RegisterGatedAction(name string, pred GatePredicate) {
	s.mu.Lock()
	s.gated[name] = pred
	s.mu.Unlock()
}

// RegisterRenderer registers the renderer invoked for artifacts produced by
// the named tool.
func (s *Session) RegisterRenderer(name string, r Renderer) {
	s.dispatcher.register(name, r)
}

// RegisterTool advertises a tool definition on subsequent outbound runs.
func (s *Session) RegisterTool(def ToolDefinition) {
	s.mu.Lock()
	s.tools = append(s.tools, def)
	s.mu.Unlock()
}

// AddContext forwards a named piece of frontend context on subsequent runs.
func (s *Session) AddContext(item ContextItem) {
	s.mu.Lock()
	s.ctxItems = append(s.ctxItems, item)
	s.mu.Unlock()
}

// SetState sets the opaque shared state forwarded on subsequent runs.
func (s *Session) SetState(state any) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

// Apply folds one event into the session. It returns the render updates the
// event produced, in order. The only returned error is [ErrRunActive] for a
// RUN_STARTED while the previous run is non-terminal; every other violation
// is recovered locally (logged, counted, ignored) so a single bad frame
// never aborts an otherwise healthy stream.
func (s *Session) Apply(ev Event) ([]Update, error) {
	s.mu.Lock()
	updates, renders, err := s.applyLocked(ev)
	s.mu.Unlock()

	// Renderer callbacks run outside the session lock: a renderer may call
	// back into the session (e.g. to inspect records).
	s.render(renders)
	return updates, err
}

func (s *Session) render(renders []ArtifactUpdate) {
	for _, up := range renders {
		if fn, ok := s.dispatcher.renderer(up.Name); ok {
			fn(up)
		}
	}
}

func (s *Session) applyLocked(ev Event) ([]Update, []ArtifactUpdate, error) {
	switch e := ev.(type) {
	case RunStartedEvent:
		return nil, nil, s.runStartedLocked(e)
	case RunFinishedEvent:
		return s.runFinishedLocked(e)
	case RunErrorEvent:
		return s.runErrorLocked(e)
	}

	// Everything else references the current run; late or duplicate frames
	// after a terminal event must not corrupt a finished session.
	if s.finished {
		s.diag.EventsAfterTerminal++
		s.logger.Debug("ignoring event after terminal", "type", string(ev.Type()))
		return nil, nil, nil
	}

	switch e := ev.(type) {
	case TextMessageStartEvent:
		return s.textStartLocked(e), nil, nil
	case TextMessageContentEvent:
		return s.textContentLocked(e), nil, nil
	case TextMessageEndEvent:
		return s.textEndLocked(e), nil, nil
	case ToolCallStartEvent:
		return s.toolStartLocked(e), nil, nil
	case ToolCallArgsEvent:
		ups, renders := s.toolArgsLocked(e)
		return ups, renders, nil
	case ToolCallEndEvent:
		ups, renders := s.toolEndLocked(e)
		return ups, renders, nil
	case ToolCallResultEvent:
		ups, renders := s.toolResultLocked(e)
		return ups, renders, nil
	}
	return nil, nil, nil
}

func (s *Session) runStartedLocked(e RunStartedEvent) error {
	if !s.idleLocked() {
		return ErrRunActive
	}
	s.runID = e.RunID
	if e.ThreadID != "" {
		s.threadID = e.ThreadID
	}
	s.active = true
	s.finished = false
	s.aborted = false
	s.logger.Debug("run started", "run_id", s.runID, "thread_id", s.threadID)
	return nil
}

func (s *Session) textStartLocked(e TextMessageStartEvent) []Update {
	if _, exists := s.byID[e.MessageID]; exists {
		s.diag.DuplicateStarts++
		s.logger.Warn("duplicate message start ignored", "message_id", e.MessageID)
		return nil
	}
	role := e.Role
	if role == "" {
		role = RoleAssistant
	}
	m := &Message{ID: e.MessageID, Role: role}
	s.messages = append(s.messages, m)
	s.byID[m.ID] = m
	return nil
}

func (s *Session) textContentLocked(e TextMessageContentEvent) []Update {
	m, ok := s.byID[e.MessageID]
	if !ok {
		s.diag.UnknownMessageEvents++
		s.logger.Warn("text delta for unknown message ignored", "message_id", e.MessageID)
		return nil
	}
	if m.Complete {
		s.diag.FrozenMessageDeltas++
		s.logger.Warn("text delta for frozen message ignored", "message_id", e.MessageID)
		return nil
	}
	m.Content += e.Delta
	return []Update{TextUpdate{MessageID: m.ID, Delta: e.Delta}}
}

func (s *Session) textEndLocked(e TextMessageEndEvent) []Update {
	m, ok := s.byID[e.MessageID]
	if !ok {
		s.diag.UnknownMessageEvents++
		s.logger.Warn("text end for unknown message ignored", "message_id", e.MessageID)
		return nil
	}
	if m.Complete {
		s.diag.DuplicateStarts++
		return nil
	}
	m.Complete = true
	return []Update{MessageDoneUpdate{MessageID: m.ID, Role: m.Role, Content: m.Content}}
}

func (s *Session) toolStartLocked(e ToolCallStartEvent) []Update {
	if _, exists := s.toolCalls[e.ToolCallID]; exists {
		s.diag.DuplicateStarts++
		s.logger.Warn("duplicate tool call start ignored", "tool_call_id", e.ToolCallID)
		return nil
	}
	rec := &ToolCallRecord{ID: e.ToolCallID, Name: e.Name, Status: ToolCallStarted}
	s.toolCalls[rec.ID] = rec
	s.toolOrder = append(s.toolOrder, rec.ID)
	return []Update{ToolUpdate{ToolCallID: rec.ID, Name: rec.Name, Status: rec.Status}}
}

func (s *Session) toolArgsLocked(e ToolCallArgsEvent) ([]Update, []ArtifactUpdate) {
	rec, ok := s.toolCalls[e.ToolCallID]
	if !ok {
		s.diag.UnknownToolCallEvents++
		s.logger.Warn("args delta for unknown tool call ignored", "tool_call_id", e.ToolCallID)
		return nil, nil
	}
	if rec.Status != ToolCallStarted {
		s.diag.UnknownToolCallEvents++
		s.logger.Warn("args delta after tool call end ignored", "tool_call_id", e.ToolCallID)
		return nil, nil
	}
	rec.ArgsBuffer += e.Delta

	// Client-rendered tools get progressive updates while arguments stream.
	// Gated tools do not: their renderer stays silent until the decision.
	_, gated := s.gated[rec.Name]
	if _, rendered := s.dispatcher.renderer(rec.Name); rendered && !gated {
		up := s.dispatcher.executing(rec)
		return []Update{up}, []ArtifactUpdate{up}
	}
	return nil, nil
}

func (s *Session) toolEndLocked(e ToolCallEndEvent) ([]Update, []ArtifactUpdate) {
	rec, ok := s.toolCalls[e.ToolCallID]
	if !ok {
		s.diag.UnknownToolCallEvents++
		s.logger.Warn("tool call end for unknown tool call ignored", "tool_call_id", e.ToolCallID)
		return nil, nil
	}
	if rec.Status != ToolCallStarted {
		s.diag.UnknownToolCallEvents++
		return nil, nil
	}

	if rec.ArgsBuffer != "" {
		var args any
		if err := json.Unmarshal([]byte(rec.ArgsBuffer), &args); err != nil {
			// Keep the raw buffer for diagnostics; the run continues.
			rec.Status = ToolCallError
			rec.ArgsError = err.Error()
			s.logger.Warn("tool call arguments failed to parse",
				"tool_call_id", rec.ID,
				"tool", rec.Name,
				"error", err,
			)
			return []Update{ToolUpdate{ToolCallID: rec.ID, Name: rec.Name, Status: rec.Status}}, nil
		}
		rec.Args = args
	}

	_, gated := s.gated[rec.Name]
	_, rendered := s.dispatcher.renderer(rec.Name)
	if rendered && !gated {
		// Client-rendered tools may never receive a server-side result:
		// their argument stream ending is the final state. Gated tools are
		// excluded; nothing is dispatched for them before the decision.
		rec.Status = ToolCallArgsComplete
		if up, fresh := s.dispatcher.complete(rec, nil); fresh {
			return []Update{
				ToolUpdate{ToolCallID: rec.ID, Name: rec.Name, Status: rec.Status},
				up,
			}, []ArtifactUpdate{up}
		}
		return []Update{ToolUpdate{ToolCallID: rec.ID, Name: rec.Name, Status: rec.Status}}, nil
	}
	rec.Status = ToolCallAwaitingResult
	return []Update{ToolUpdate{ToolCallID: rec.ID, Name: rec.Name, Status: rec.Status}}, nil
}

func (s *Session) toolResultLocked(e ToolCallResultEvent) ([]Update, []ArtifactUpdate) {
	rec, ok := s.toolCalls[e.ToolCallID]
	if !ok {
		// Result before start is a protocol violation, recovered locally.
		s.diag.UnknownToolCallEvents++
		s.logger.Warn("result for unknown tool call ignored", "tool_call_id", e.ToolCallID)
		return nil, nil
	}
	if rec.Status == ToolCallResolved || rec.Status == ToolCallAwaitingApproval {
		s.diag.DuplicateResults++
		s.logger.Warn("duplicate tool call result ignored", "tool_call_id", e.ToolCallID)
		return nil, nil
	}

	result := normalizeResultContent(e.Content)
	rec.Result = result

	if pred, gatedName := s.gated[rec.Name]; gatedName && (pred == nil || pred(rec, result)) {
		rec.Status = ToolCallAwaitingApproval
		req := s.gate.request(rec, result)
		s.logger.Debug("tool call suspended for approval",
			"tool_call_id", rec.ID,
			"tool", rec.Name,
		)
		return []Update{
			ToolUpdate{ToolCallID: rec.ID, Name: rec.Name, Status: rec.Status},
			ApprovalUpdate{Request: req},
		}, nil
	}

	return s.resolveLocked(rec, nil)
}

// resolveLocked transitions a record to resolved and routes its result:
// registered renderer first, then the structural artifact match, then plain
// text passthrough into the transcript.
func (s *Session) resolveLocked(rec *ToolCallRecord, dec *Decision) ([]Update, []ArtifactUpdate) {
	rec.Status = ToolCallResolved
	updates := []Update{ToolUpdate{ToolCallID: rec.ID, Name: rec.Name, Status: rec.Status}}

	if _, rendered := s.dispatcher.renderer(rec.Name); rendered {
		if up, fresh := s.dispatcher.complete(rec, dec); fresh {
			return append(updates, up), []ArtifactUpdate{up}
		}
		return updates, nil
	}
	if _, ok := MatchChartSpec(rec.Result); ok {
		// Recognized artifact without a renderer: surface it on the stream
		// so the caller can still render it.
		if up, fresh := s.dispatcher.complete(rec, dec); fresh {
			return append(updates, up), nil
		}
		return updates, nil
	}

	if text := passthroughText(rec.Result); text != "" {
		m := &Message{ID: uuid.NewString(), Role: RoleAssistant, Content: text, Complete: true}
		s.messages = append(s.messages, m)
		s.byID[m.ID] = m
		updates = append(updates, MessageDoneUpdate{MessageID: m.ID, Role: m.Role, Content: m.Content})
	}
	return updates, nil
}

func (s *Session) runFinishedLocked(e RunFinishedEvent) ([]Update, []ArtifactUpdate, error) {
	if s.finished {
		s.diag.DuplicateTerminals++
		s.logger.Debug("duplicate terminal event ignored", "type", "RUN_FINISHED")
		return nil, nil, nil
	}
	s.finished = true
	s.active = false
	if n := s.gate.pendingCount(); n > 0 {
		// Finishing with approvals outstanding is an anomaly, not fatal:
		// the pending requests stay resumable.
		s.diag.ApprovalAnomalies++
		s.logger.Warn("run finished with approvals outstanding", "pending", n)
	}
	s.flushLocked(context.Background())
	return []Update{RunDoneUpdate{RunID: e.RunID}}, nil, nil
}

func (s *Session) runErrorLocked(e RunErrorEvent) ([]Update, []ArtifactUpdate, error) {
	if s.finished {
		s.diag.DuplicateTerminals++
		s.logger.Debug("duplicate terminal event ignored", "type", "RUN_ERROR")
		return nil, nil, nil
	}
	s.finished = true
	s.active = false
	if e.Code == "ABORTED" {
		s.aborted = true
	}
	if n := s.gate.pendingCount(); n > 0 {
		s.diag.ApprovalAnomalies++
		s.logger.Warn("run errored with approvals outstanding", "pending", n)
	}
	s.logger.Warn("run error", "run_id", e.RunID, "code", e.Code, "message", e.Message)
	s.flushLocked(context.Background())
	return []Update{RunFailedUpdate{RunID: e.RunID, Message: e.Message, Code: e.Code}}, nil, nil
}

// flushLocked persists completed messages the store has not seen yet.
func (s *Session) flushLocked(ctx context.Context) {
	if s.flushed >= len(s.messages) {
		return
	}
	var batch []Message
	for _, m := range s.messages[s.flushed:] {
		if m.Complete {
			batch = append(batch, *m)
		}
	}
	if err := s.store.AddMessages(ctx, batch); err != nil {
		s.logger.Warn("failed to persist transcript", "error", err)
		return
	}
	s.flushed = len(s.messages)
}

// completeApproval is installed as the gate's resolve hook. It transitions
// the record, dispatches the decision-augmented result, and relays the
// decision outbound. After a caller-driven abort the resolution is
// bookkeeping only: the decision is recorded but nothing is dispatched.
func (s *Session) completeApproval(req *ApprovalRequest, dec Decision) {
	s.mu.Lock()
	rec, ok := s.toolCalls[req.ToolCallID]
	if !ok {
		s.mu.Unlock()
		return
	}
	aborted := s.aborted
	var renders []ArtifactUpdate
	if aborted {
		rec.Status = ToolCallResolved
		s.logger.Debug("approval resolved after abort; dispatch suppressed",
			"tool_call_id", rec.ID,
		)
	} else {
		_, renders = s.resolveLocked(rec, &dec)
	}
	becameTerminal := s.terminalLocked()
	s.mu.Unlock()

	s.render(renders)

	if s.relay != nil && !aborted {
		if err := s.relay(context.Background(), req, dec); err != nil {
			s.logger.Warn("decision relay failed",
				"tool_call_id", req.ToolCallID,
				"error", err,
			)
		}
	}
	if becameTerminal {
		s.mu.Lock()
		s.flushLocked(context.Background())
		s.mu.Unlock()
	}
}

// SendMessage appends a user message to the transcript, starts a run on the
// configured transport and returns the stream of render updates for it. The
// returned stream ends when the run reaches a terminal event or the context
// is cancelled; cancelling the context closes the decoder with an "aborted"
// reason and leaves any pending approval resolvable for bookkeeping only.
func (s *Session) SendMessage(ctx context.Context, text string) (*Stream[Update], error) {
	s.mu.Lock()
	if s.transport == nil {
		s.mu.Unlock()
		return nil, ErrNoTransport
	}
	if !s.idleLocked() {
		s.mu.Unlock()
		return nil, ErrRunActive
	}
	msg := NewUserMessage(text)
	m := &msg
	s.messages = append(s.messages, m)
	s.byID[m.ID] = m
	input := s.buildRunInputLocked(uuid.NewString())
	s.mu.Unlock()

	body, err := s.transport.Run(ctx, input)
	if err != nil {
		return nil, err
	}

	return NewStream(ctx, func(ctx context.Context, ch chan<- Update) error {
		defer body.Close()
		dec := NewDecoder(WithDecoderLogger(s.logger))

		emit := func(updates []Update) error {
			for _, u := range updates {
				select {
				case ch <- u:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
			return nil
		}
		sawTerminal := false
		applyAll := func(events []Event) error {
			for _, ev := range events {
				updates, aerr := s.Apply(ev)
				if aerr != nil {
					s.logger.Warn("event rejected", "type", string(ev.Type()), "error", aerr)
					continue
				}
				switch ev.Type() {
				case EventTypeRunFinished, EventTypeRunError:
					sawTerminal = true
				}
				if err := emit(updates); err != nil {
					return err
				}
			}
			return nil
		}

		buf := make([]byte, 4096)
		for {
			n, rerr := body.Read(buf)
			if n > 0 {
				if err := applyAll(dec.Feed(buf[:n])); err != nil {
					s.drainAbort(dec)
					return err
				}
			}
			if rerr == nil {
				continue
			}

			reason := ""
			switch {
			case errors.Is(rerr, io.EOF):
				// clean end of stream
			case ctx.Err() != nil:
				reason = "aborted"
			default:
				reason = rerr.Error()
			}
			if err := applyAll(dec.Close(reason)); err != nil {
				return err
			}
			// A stream that ends cleanly without a terminal event is
			// truncation at the transport level.
			if reason == "" && !sawTerminal {
				updates, _ := s.Apply(RunErrorEvent{
					RunID:   s.RunID(),
					Message: "stream closed before run finished",
					Code:    "TRUNCATED",
				})
				if err := emit(updates); err != nil {
					return err
				}
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return nil
		}
	}), nil
}

// drainAbort closes the decoder and records the abort on the session when
// the consumer went away mid-stream.
func (s *Session) drainAbort(dec *Decoder) {
	for _, ev := range dec.Close("aborted") {
		if _, err := s.Apply(ev); err != nil {
			s.logger.Warn("event rejected during abort", "error", err)
		}
	}
}

func (s *Session) buildRunInputLocked(runID string) *RunAgentInput {
	msgs := make([]InputMessage, 0, len(s.messages))
	for _, m := range s.messages {
		if !m.Complete {
			continue
		}
		msgs = append(msgs, InputMessage{ID: m.ID, Role: m.Role, Content: m.Content})
	}
	tools := make([]ToolDefinition, len(s.tools))
	copy(tools, s.tools)
	ctxItems := make([]ContextItem, len(s.ctxItems))
	copy(ctxItems, s.ctxItems)
	return &RunAgentInput{
		ThreadID: s.threadID,
		RunID:    runID,
		Messages: msgs,
		State:    s.state,
		Tools:    tools,
		Context:  ctxItems,
	}
}

// Serialize returns the session state as a serializable map.
func (s *Session) Serialize() (map[string]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state := map[string]any{
		"id":       s.id,
		"threadId": s.threadID,
	}
	if s.runID != "" {
		state["runId"] = s.runID
	}
	storeState, err := s.store.Serialize()
	if err != nil {
		return nil, err
	}
	state["store"] = storeState

	if len(s.toolOrder) > 0 {
		calls := make([]ToolCallRecord, 0, len(s.toolOrder))
		for _, id := range s.toolOrder {
			calls = append(calls, s.toolCalls[id].clone())
		}
		state["toolCalls"] = calls
	}
	return state, nil
}

// normalizeResultContent accepts both producer forms of a tool result:
// a JSON string (which may itself contain encoded JSON) or an
// already-structured value. The tagged attempts run strictest first and
// fall back to opaque text.
func normalizeResultContent(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		var nested any
		if err := json.Unmarshal([]byte(str), &nested); err == nil {
			switch nested.(type) {
			case map[string]any, []any:
				return nested
			}
		}
		return str
	}
	var v any
	if err := json.Unmarshal(raw, &v); err == nil {
		return v
	}
	return string(raw)
}
