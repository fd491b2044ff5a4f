// Copyright (c) The agui-client-go authors. All rights reserved.

// Command approval demonstrates human-in-the-loop gating and client-side
// artifact rendering against a built-in demo agent. No external endpoint
// is needed: the sample starts a local server that streams a canned run
// containing a gated refund action and a chart artifact.
//
// Usage:
//
//	go run .
package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http/httptest"
	"os"
	"strings"

	agui "github.com/raphaelmansuy/agui-client-go/aguiclient"
	"github.com/raphaelmansuy/agui-client-go/sse"
)

func main() {
	if os.Getenv("DEBUG") != "" {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})))
	}

	srv := httptest.NewServer(demoAgent())
	defer srv.Close()
	fmt.Printf("Demo agent listening on %s\n\n", srv.URL)

	session := agui.OpenSession("approval-demo",
		agui.WithTransport(sse.New(srv.URL)),
		agui.WithGatedAction("process_refund", nil),
		agui.WithRenderer("process_refund", renderRefund),
		agui.WithRenderer("render_chart", renderChart),
	)

	stream, err := session.SendMessage(context.Background(), "Refund order #1042 and show me this month's revenue.")
	if err != nil {
		log.Fatalf("send: %v", err)
	}
	defer stream.Close()

	for {
		update, ok, err := stream.Next(context.Background())
		if err != nil {
			log.Fatalf("stream: %v", err)
		}
		if !ok {
			break
		}
		switch u := update.(type) {
		case agui.TextUpdate:
			fmt.Print(u.Delta)
		case agui.MessageDoneUpdate:
			fmt.Println()
		case agui.ApprovalUpdate:
			decide(session, u.Request)
		case agui.RunFailedUpdate:
			fmt.Printf("[run failed: %s (%s)]\n", u.Message, u.Code)
		}
	}

	for _, rec := range session.ToolCalls() {
		fmt.Printf("tool %-16s %s\n", rec.Name, rec.Status)
	}
}

// decide prompts on stdin and resolves the request. Resolution is
// idempotent, so a stray second answer would be a no-op.
func decide(session *agui.Session, req *agui.ApprovalRequest) {
	fmt.Printf("\nApproval needed: %s\n  payload: %v\nApprove? [y/N] ", req.ToolName, req.Payload)
	scanner := bufio.NewScanner(os.Stdin)
	approved := scanner.Scan() && strings.HasPrefix(strings.ToLower(strings.TrimSpace(scanner.Text())), "y")

	var reason any
	if !approved {
		reason = "declined by operator"
	}
	if err := session.Gate().Resolve(req.ToolCallID, approved, reason); err != nil {
		log.Printf("resolve: %v", err)
	}
}

func renderRefund(up agui.ArtifactUpdate) {
	if up.Status != agui.RenderComplete {
		return
	}
	verdict := "pending"
	if up.Decision != nil {
		if up.Decision.Approved {
			verdict = "approved"
		} else {
			verdict = fmt.Sprintf("denied (%v)", up.Decision.Value)
		}
	}
	fmt.Printf("\n[refund %s] result: %v\n", verdict, up.Result)
}

// renderChart draws a crude horizontal bar chart on stdout.
func renderChart(up agui.ArtifactUpdate) {
	if up.Status != agui.RenderComplete || up.Chart == nil {
		return
	}
	fmt.Printf("\n%s (%s)\n", up.Chart.Title, up.Chart.ChartType)
	max := 0.0
	for _, v := range up.Chart.Data {
		if v > max {
			max = v
		}
	}
	for i, v := range up.Chart.Data {
		label := ""
		if i < len(up.Chart.Labels) {
			label = up.Chart.Labels[i]
		}
		width := 0
		if max > 0 {
			width = int(v / max * 40)
		}
		fmt.Printf("  %-8s %s %.0f\n", label, strings.Repeat("#", width), v)
	}
}
