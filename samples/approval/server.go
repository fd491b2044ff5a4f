// Copyright (c) The agui-client-go authors. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// demoAgent serves one canned agent run as a Server-Sent Events stream:
// a greeting, a gated refund tool call, a chart artifact, and a closing
// message. Frames are paced slightly so streaming is visible.
func demoAgent() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var input struct {
			ThreadID string `json:"threadId"`
			RunID    string `json:"runId"`
		}
		if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
			http.Error(w, `{"detail":"invalid run input"}`, http.StatusBadRequest)
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		flusher, _ := w.(http.Flusher)

		emit := func(payload map[string]any) {
			b, _ := json.Marshal(payload)
			fmt.Fprintf(w, "data: %s\n", b)
			if flusher != nil {
				flusher.Flush()
			}
			time.Sleep(30 * time.Millisecond)
		}

		emit(map[string]any{"type": "RUN_STARTED", "runId": input.RunID, "threadId": input.ThreadID})

		emit(map[string]any{"type": "TEXT_MESSAGE_START", "messageId": "m-1", "role": "assistant"})
		for _, delta := range []string{"Processing the refund ", "and pulling up revenue..."} {
			emit(map[string]any{"type": "TEXT_MESSAGE_CONTENT", "messageId": "m-1", "delta": delta})
		}
		emit(map[string]any{"type": "TEXT_MESSAGE_END", "messageId": "m-1"})

		emit(map[string]any{"type": "TOOL_CALL_START", "toolCallId": "tc-refund", "toolCallName": "process_refund"})
		emit(map[string]any{"type": "TOOL_CALL_ARGS", "toolCallId": "tc-refund", "delta": `{"order":"#1042","amount":50}`})
		emit(map[string]any{"type": "TOOL_CALL_END", "toolCallId": "tc-refund"})
		emit(map[string]any{"type": "TOOL_CALL_RESULT", "tool_call_id": "tc-refund", "content": "refund of $50 queued for order #1042"})

		emit(map[string]any{"type": "TOOL_CALL_START", "toolCallId": "tc-chart", "toolCallName": "render_chart"})
		emit(map[string]any{"type": "TOOL_CALL_ARGS", "toolCallId": "tc-chart", "delta": `{"chart_type":"bar","title":"Revenue",`})
		emit(map[string]any{"type": "TOOL_CALL_ARGS", "toolCallId": "tc-chart", "delta": `"labels":["Jun","Jul","Aug"],"data":[1200,1850,2100]}`})
		emit(map[string]any{"type": "TOOL_CALL_END", "toolCallId": "tc-chart"})

		emit(map[string]any{"type": "TEXT_MESSAGE_START", "messageId": "m-2", "role": "assistant"})
		emit(map[string]any{"type": "TEXT_MESSAGE_CONTENT", "messageId": "m-2", "delta": "Done. The refund awaits your approval above."})
		emit(map[string]any{"type": "TEXT_MESSAGE_END", "messageId": "m-2"})

		emit(map[string]any{"type": "RUN_FINISHED", "runId": input.RunID})
	})
}
