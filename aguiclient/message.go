// Copyright (c) The agui-client-go authors. All rights reserved.

package aguiclient

import "github.com/google/uuid"

// Role identifies the author of a [Message].
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	RoleTool      Role = "tool"
)

// Message is a single transcript entry. Content is append-only while the
// message streams and frozen once the producer ends it; Complete reports
// whether the message has been frozen.
//
// Messages are owned by their [Session]; insertion order is the rendered
// transcript order.
type Message struct {
	ID       string `json:"id"`
	Role     Role   `json:"role"`
	Content  string `json:"content"`
	Complete bool   `json:"complete"`
}

// NewUserMessage creates a completed user-role [Message] with a synthesized
// id. Outbound messages always carry an id: some backends reject messages
// without one, so the client never relies on the producer to supply it.
func NewUserMessage(text string) Message {
	return Message{
		ID:       uuid.NewString(),
		Role:     RoleUser,
		Content:  text,
		Complete: true,
	}
}

// NewAssistantMessage creates a completed assistant-role [Message] with a
// synthesized id.
func NewAssistantMessage(text string) Message {
	return Message{
		ID:       uuid.NewString(),
		Role:     RoleAssistant,
		Content:  text,
		Complete: true,
	}
}
