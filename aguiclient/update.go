// Copyright (c) The agui-client-go authors. All rights reserved.

package aguiclient

// UpdateKind identifies the kind of a render update.
type UpdateKind string

const (
	UpdateKindText        UpdateKind = "text"
	UpdateKindMessageDone UpdateKind = "message_done"
	UpdateKindTool        UpdateKind = "tool"
	UpdateKindArtifact    UpdateKind = "artifact"
	UpdateKindApproval    UpdateKind = "approval"
	UpdateKindRunDone     UpdateKind = "run_done"
	UpdateKindRunFailed   UpdateKind = "run_failed"
)

// Update is a sealed interface representing one caller-facing render update
// yielded by [Session.SendMessage]. Use a type switch to inspect the
// underlying type.
type Update interface {
	// Kind returns the discriminator for this update.
	Kind() UpdateKind

	// sealed prevents external implementations.
	sealed()
}

type updateBase struct{}

func (updateBase) sealed() {}

// TextUpdate carries one streamed text delta for an open assistant message.
type TextUpdate struct {
	updateBase
	MessageID string
	Delta     string
}

func (TextUpdate) Kind() UpdateKind { return UpdateKindText }

// MessageDoneUpdate reports a transcript message that has been frozen, with
// its full accumulated content.
type MessageDoneUpdate struct {
	updateBase
	MessageID string
	Role      Role
	Content   string
}

func (MessageDoneUpdate) Kind() UpdateKind { return UpdateKindMessageDone }

// ToolUpdate reports a tool call lifecycle transition.
type ToolUpdate struct {
	updateBase
	ToolCallID string
	Name       string
	Status     ToolCallStatus
}

func (ToolUpdate) Kind() UpdateKind { return UpdateKindTool }

// ApprovalUpdate surfaces a pending approval request to the caller,
// typically rendered as a modal. The run keeps streaming events for other
// tool calls while the request is pending; only this record is suspended.
type ApprovalUpdate struct {
	updateBase
	Request *ApprovalRequest
}

func (ApprovalUpdate) Kind() UpdateKind { return UpdateKindApproval }

// RunDoneUpdate reports the successful end of the run.
type RunDoneUpdate struct {
	updateBase
	RunID string
}

func (RunDoneUpdate) Kind() UpdateKind { return UpdateKindRunDone }

// RunFailedUpdate reports the failed end of the run. This is the only
// failure kind that is user-visible; recovered protocol violations are
// reported through [Session.Diagnostics] instead.
type RunFailedUpdate struct {
	updateBase
	RunID   string
	Message string
	Code    string
}

func (RunFailedUpdate) Kind() UpdateKind { return UpdateKindRunFailed }
