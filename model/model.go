// Package model defines the opaque call contract for LLM backends.
//
// The runner treats provider identity, auth, retries, and prompt accounting
// as the collaborator's concern: a backend is anything that satisfies Client.
// Implementations are injected per run rather than held in process-wide
// singletons, keeping concurrent runs isolated and tests hermetic.
package model

import "context"

// Role identifies the sender of a conversation message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message represents a single message in a conversation.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// NewMessage creates a Message with the given role and content.
func NewMessage(role Role, content string) Message {
	return Message{Role: role, Content: content}
}

// Client is the asynchronous call contract to an LLM backend.
type Client interface {
	// Call sends the conversation and returns the complete response text.
	Call(ctx context.Context, messages []Message) (string, error)

	// CallStream sends the conversation and returns a channel of response
	// fragments. The channel is closed when the response is complete or the
	// context is cancelled; fragments concatenate to the full response.
	CallStream(ctx context.Context, messages []Message) (<-chan string, error)
}
