// Copyright (c) The agui-client-go authors. All rights reserved.

// Package aguiclient implements the client side of an agent event stream:
// it decodes the chunked wire protocol into typed events, folds them into a
// conversation transcript and a table of tool calls, suspends gated tool
// calls until a human decision arrives, and routes recognized artifact
// payloads to registered renderers.
//
// # Quick Start
//
// Create a transport (e.g. from the sse package) and open a session:
//
//	client := sse.New("https://agent.example.com/awp")
//
//	session := aguiclient.OpenSession("thread-1",
//	    aguiclient.WithTransport(client),
//	    aguiclient.WithGatedAction("process_refund", nil),
//	    aguiclient.WithRenderer("render_chart", drawChart),
//	)
//
//	stream, err := session.SendMessage(ctx, "Refund order #42")
//
// Iterate the stream with Next and type-switch on [Update]. When an
// [ApprovalUpdate] arrives, surface it to the user and resolve it:
//
//	session.Gate().Resolve(req.ToolCallID, true, nil)
//
// # Architecture
//
// The pipeline is single-threaded and one-directional: transport bytes flow
// through the [Decoder] into typed [Event] values, which [Session.Apply]
// folds into session state in strict arrival order. The [ApprovalGate] is
// the only suspension point; while a request is pending the pipeline keeps
// consuming events for other tool calls. The artifact dispatcher reads
// completed results and invokes the session's registered renderers.
//
// Protocol violations (unknown ids, malformed lines, duplicate terminal
// events) are recovered locally and counted in [Diagnostics]; only
// transport-level failures surface to the end user, as [RunFailedUpdate].
package aguiclient
