// Copyright (c) The agui-client-go authors. All rights reserved.

package sse

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	agui "github.com/raphaelmansuy/agui-client-go/aguiclient"
)

// WebSocketTransport implements [aguiclient.RunTransport] over a WebSocket.
// The run input is sent as the first text frame; each subsequent frame
// carries one event JSON object, which the transport re-frames as a
// `data: <json>` line so the same decoder consumes both bindings.
type WebSocketTransport struct {
	url    string
	dialer *websocket.Dialer
	header http.Header
	logger *slog.Logger
}

// Verify interface compliance at compile time.
var _ agui.RunTransport = (*WebSocketTransport)(nil)

// WSOption configures a [WebSocketTransport].
type WSOption func(*WebSocketTransport)

// WithWSHeader adds a header sent on the dial handshake.
func WithWSHeader(key, value string) WSOption {
	return func(t *WebSocketTransport) { t.header.Set(key, value) }
}

// WithWSDialer sets a custom dialer (e.g. with TLS config).
func WithWSDialer(d *websocket.Dialer) WSOption {
	return func(t *WebSocketTransport) { t.dialer = d }
}

// WithWSLogger sets the transport logger. Defaults to slog.Default().
func WithWSLogger(logger *slog.Logger) WSOption {
	return func(t *WebSocketTransport) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// NewWebSocketTransport creates a transport dialing the given ws:// or
// wss:// URL.
func NewWebSocketTransport(url string, opts ...WSOption) *WebSocketTransport {
	t := &WebSocketTransport{
		url:    url,
		dialer: websocket.DefaultDialer,
		header: make(http.Header),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Run dials the endpoint, sends the input and returns a reader over the
// re-framed event stream. Closing the reader closes the connection.
func (t *WebSocketTransport) Run(ctx context.Context, input *agui.RunAgentInput) (io.ReadCloser, error) {
	if input == nil || input.ThreadID == "" {
		return nil, fmt.Errorf("%w: missing thread id", agui.ErrInvalidRequest)
	}
	msgs := make([]agui.InputMessage, len(input.Messages))
	copy(msgs, input.Messages)
	agui.EnsureMessageIDs(msgs)
	normalized := *input
	normalized.Messages = msgs

	conn, resp, err := t.dialer.DialContext(ctx, t.url, t.header)
	if err != nil {
		if resp != nil {
			defer resp.Body.Close()
			return nil, parseErrorResponse(resp)
		}
		return nil, fmt.Errorf("%w: dial: %v", agui.ErrService, err)
	}
	if err := conn.WriteJSON(&normalized); err != nil {
		conn.Close()
		return nil, fmt.Errorf("%w: send run input: %v", agui.ErrService, err)
	}

	pr, pw := io.Pipe()
	go func() {
		defer conn.Close()
		for {
			kind, data, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					pw.Close()
				} else {
					pw.CloseWithError(err)
				}
				return
			}
			if kind != websocket.TextMessage {
				continue
			}
			if _, err := fmt.Fprintf(pw, "data: %s\n", data); err != nil {
				// Reader closed; stop pumping.
				return
			}
		}
	}()

	return &wsReadCloser{Reader: pr, pr: pr, conn: conn}, nil
}

// wsReadCloser closes both the pipe and the underlying connection so the
// pump goroutine exits when the caller is done.
type wsReadCloser struct {
	io.Reader
	pr   *io.PipeReader
	conn *websocket.Conn
}

func (w *wsReadCloser) Close() error {
	w.pr.Close()
	return w.conn.Close()
}
