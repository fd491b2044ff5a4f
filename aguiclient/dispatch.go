// Copyright (c) The agui-client-go authors. All rights reserved.

package aguiclient

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
)

// RenderStatus tells a renderer how complete the artifact state is.
type RenderStatus string

const (
	// RenderExecuting: arguments are still streaming; the update carries the
	// best-effort parse of the partial buffer.
	RenderExecuting RenderStatus = "executing"

	// RenderComplete: the final state for this tool call.
	RenderComplete RenderStatus = "complete"
)

// ArtifactUpdate is the payload delivered to a [Renderer], and also yielded
// on the session's update stream. Renderers are invoked repeatedly for the
// same tool call with increasing completeness and must be idempotent on
// repeat calls with identical final state; the dispatcher suppresses exact
// repeats of the complete state itself.
type ArtifactUpdate struct {
	updateBase
	ToolCallID string
	Name       string
	Status     RenderStatus

	// Args is the parsed argument object, nil while the partial buffer does
	// not yet parse. ArgsText always carries the raw buffer so far.
	Args     any
	ArgsText string

	// Result is the normalized tool result, nil until one arrives.
	Result any

	// Chart is set when the args or result structurally match a chart
	// specification.
	Chart *ChartSpec

	// Decision is set when the tool call went through the approval gate.
	Decision *Decision
}

func (ArtifactUpdate) Kind() UpdateKind { return UpdateKindArtifact }

// Renderer receives artifact updates for one registered tool name.
type Renderer func(ArtifactUpdate)

// ChartSpec is the recognized generative-artifact shape: a record carrying a
// chart_type field. Unknown extra fields are tolerated.
type ChartSpec struct {
	ChartType string    `json:"chart_type"`
	Title     string    `json:"title,omitempty"`
	Labels    []string  `json:"labels,omitempty"`
	Data      []float64 `json:"data,omitempty"`
}

// MatchChartSpec attempts a strict tagged parse of v as a chart
// specification. It replaces ad hoc field probing: the value is re-encoded
// to JSON and decoded into [ChartSpec]; the match holds only when chart_type
// is a non-empty string. Anything else is treated as opaque content.
func MatchChartSpec(v any) (*ChartSpec, bool) {
	var raw []byte
	switch t := v.(type) {
	case nil:
		return nil, false
	case json.RawMessage:
		raw = t
	case []byte:
		raw = t
	case string:
		raw = []byte(t)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return nil, false
		}
		raw = b
	}
	var spec ChartSpec
	if err := json.Unmarshal(raw, &spec); err != nil {
		return nil, false
	}
	if spec.ChartType == "" {
		return nil, false
	}
	return &spec, true
}

// artifactDispatcher routes completed (and, for client-rendered tools,
// in-progress) tool call states to registered renderers. The registry is
// owned by the session that created the dispatcher; there is no ambient
// global state.
type artifactDispatcher struct {
	mu        sync.Mutex
	renderers map[string]Renderer
	delivered map[string]deliveredState
	logger    *slog.Logger
}

// deliveredState fingerprints what has been delivered for a tool call so
// repeat dispatch of an identical final state is a no-op, while a later,
// more complete state (e.g. a result arriving after an args-only render)
// still goes out.
type deliveredState struct {
	status     RenderStatus
	withResult bool
}

func newArtifactDispatcher(logger *slog.Logger) *artifactDispatcher {
	return &artifactDispatcher{
		renderers: make(map[string]Renderer),
		delivered: make(map[string]deliveredState),
		logger:    logger,
	}
}

func (d *artifactDispatcher) register(name string, r Renderer) {
	d.mu.Lock()
	d.renderers[name] = r
	d.mu.Unlock()
}

func (d *artifactDispatcher) renderer(name string) (Renderer, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	r, ok := d.renderers[name]
	return r, ok
}

// executing builds a progressive update for a tool call whose arguments are
// still streaming. Args carries the best-effort parse of the partial buffer
// and is nil when the buffer does not yet form valid JSON.
func (d *artifactDispatcher) executing(rec *ToolCallRecord) ArtifactUpdate {
	up := ArtifactUpdate{
		ToolCallID: rec.ID,
		Name:       rec.Name,
		Status:     RenderExecuting,
		ArgsText:   rec.ArgsBuffer,
	}
	var args any
	if json.Unmarshal([]byte(rec.ArgsBuffer), &args) == nil {
		up.Args = args
		if chart, ok := MatchChartSpec(json.RawMessage(rec.ArgsBuffer)); ok {
			up.Chart = chart
		}
	}
	d.mu.Lock()
	d.delivered[rec.ID] = deliveredState{status: RenderExecuting}
	d.mu.Unlock()
	return up
}

// complete builds the final update for a resolved tool call. The second
// return is false when an identical complete state was already delivered
// (repeat dispatch is a no-op).
func (d *artifactDispatcher) complete(rec *ToolCallRecord, dec *Decision) (ArtifactUpdate, bool) {
	next := deliveredState{status: RenderComplete, withResult: rec.Result != nil}
	d.mu.Lock()
	if d.delivered[rec.ID] == next {
		d.mu.Unlock()
		d.logger.Debug("suppressing repeat artifact dispatch", "tool_call_id", rec.ID)
		return ArtifactUpdate{}, false
	}
	d.delivered[rec.ID] = next
	d.mu.Unlock()

	up := ArtifactUpdate{
		ToolCallID: rec.ID,
		Name:       rec.Name,
		Status:     RenderComplete,
		Args:       rec.Args,
		ArgsText:   rec.ArgsBuffer,
		Result:     rec.Result,
		Decision:   dec,
	}
	// Results take precedence over args for the structural match: the final
	// payload may refine what the arguments described.
	if chart, ok := MatchChartSpec(rec.Result); ok {
		up.Chart = chart
	} else if chart, ok := MatchChartSpec(rec.Args); ok {
		up.Chart = chart
	}
	return up, true
}

// passthroughText renders a result with no structural match as plain text
// for the transcript. It never fails on unrecognized shapes.
func passthroughText(result any) string {
	switch t := result.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprintf("%v", t)
		}
		return string(b)
	}
}
