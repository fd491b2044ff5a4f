// Copyright (c) The agui-client-go authors. All rights reserved.

package aguiclient

import (
	"context"
	"encoding/json"
	"io"

	"github.com/google/uuid"
)

// RunTransport starts one agent run on the backend and returns the raw event
// byte stream. Implementations live in binding packages (HTTP/SSE,
// WebSocket); the session only consumes the returned reader.
type RunTransport interface {
	Run(ctx context.Context, input *RunAgentInput) (io.ReadCloser, error)
}

// RunAgentInput is the outbound request body that starts a run.
type RunAgentInput struct {
	ThreadID string           `json:"threadId"`
	RunID    string           `json:"runId"`
	Messages []InputMessage   `json:"messages"`
	State    any              `json:"state,omitempty"`
	Tools    []ToolDefinition `json:"tools,omitempty"`
	Context  []ContextItem    `json:"context,omitempty"`
}

// InputMessage is one conversation entry on the outbound request. ID must be
// non-empty: strict backends reject messages without one, so ids are always
// synthesized client-side rather than left to chance (see
// [EnsureMessageIDs]).
type InputMessage struct {
	ID         string `json:"id"`
	Role       Role   `json:"role"`
	Content    string `json:"content"`
	Name       string `json:"name,omitempty"`
	ToolCallID string `json:"toolCallId,omitempty"`
}

// ToolDefinition advertises a callable tool to the agent backend.
type ToolDefinition struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}

// ContextItem is a named piece of frontend context forwarded with the run.
type ContextItem struct {
	Description string `json:"description"`
	Value       string `json:"value"`
}

// EnsureMessageIDs synthesizes a uuid for every message missing an id, in
// place. Transports call this before encoding the request.
func EnsureMessageIDs(msgs []InputMessage) {
	for i := range msgs {
		if msgs[i].ID == "" {
			msgs[i].ID = uuid.NewString()
		}
	}
}
