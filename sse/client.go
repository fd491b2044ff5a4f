// Copyright (c) The agui-client-go authors. All rights reserved.

// Package sse provides transports for the agent event stream protocol:
// an HTTP client that POSTs the run input and consumes the Server-Sent
// Events response, and a WebSocket variant that re-frames socket messages
// for the same decoder.
//
// Create a client with [New] and pass it to [aguiclient.OpenSession]:
//
//	client  := sse.New("https://agent.example.com/awp", sse.WithAPIKey(key))
//	session := aguiclient.OpenSession("thread-1", aguiclient.WithTransport(client))
package sse

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	agui "github.com/raphaelmansuy/agui-client-go/aguiclient"
)

// Client implements [aguiclient.RunTransport] over HTTP with a streaming
// Server-Sent Events response body. Use [New] to create one.
type Client struct {
	tp     transport
	url    string
	logger *slog.Logger
}

// Verify interface compliance at compile time.
var _ agui.RunTransport = (*Client)(nil)

// New creates a Client for the given agent endpoint URL.
//
//	client := sse.New("https://agent.example.com/awp",
//	    sse.WithAPIKey(os.Getenv("AGUI_API_KEY")),
//	)
func New(endpointURL string, opts ...Option) *Client {
	cfg := &clientConfig{}
	for _, o := range opts {
		o(cfg)
	}
	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		tp:     newHTTPTransport(cfg),
		url:    endpointURL,
		logger: logger,
	}
}

// newWithTransport creates a Client with a custom transport (for testing).
func newWithTransport(tp transport, endpointURL string) *Client {
	return &Client{tp: tp, url: endpointURL, logger: slog.Default()}
}

// Run posts the input and returns the raw event stream. The caller owns the
// returned reader and must close it.
func (c *Client) Run(ctx context.Context, input *agui.RunAgentInput) (io.ReadCloser, error) {
	req, err := encodeRunInput(input)
	if err != nil {
		return nil, err
	}

	c.logger.DebugContext(ctx, "starting agent run",
		"thread_id", req.ThreadID,
		"run_id", req.RunID,
		"message_count", len(req.Messages),
	)

	resp, err := c.tp.do(ctx, http.MethodPost, c.url, req)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// encodeRunInput validates the input and normalizes it for the wire: the
// run id is synthesized when absent and every message gets an id. Some
// servers validate message ids strictly, so they are never left empty.
func encodeRunInput(input *agui.RunAgentInput) (*agui.RunAgentInput, error) {
	if input == nil {
		return nil, fmt.Errorf("%w: nil run input", agui.ErrInvalidRequest)
	}
	if input.ThreadID == "" {
		return nil, fmt.Errorf("%w: missing thread id", agui.ErrInvalidRequest)
	}

	out := *input
	out.Messages = make([]agui.InputMessage, len(input.Messages))
	copy(out.Messages, input.Messages)
	agui.EnsureMessageIDs(out.Messages)
	if out.RunID == "" {
		out.RunID = "run-" + uuid.NewString()
	}
	return &out, nil
}
