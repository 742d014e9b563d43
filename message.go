// Package dcbev holds the domain types for the DCBEV dealership assistant
// client: conversation messages, state snapshots, the streaming source
// contract, and UI events.
package dcbev

import (
	"time"

	"github.com/google/uuid"
)

// Sender identifies who produced a message.
type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
	SenderSystem    Sender = "system"
)

// ParseSender maps a wire-format sender string onto a Sender. It accepts
// the aliases used by older backend revisions ("USER", "AI", "human").
// Unknown values report ok = false.
func ParseSender(s string) (Sender, bool) {
	switch s {
	case "user", "USER", "human":
		return SenderUser, true
	case "assistant", "ASSISTANT", "ai", "AI":
		return SenderAssistant, true
	case "system", "SYSTEM":
		return SenderSystem, true
	default:
		return "", false
	}
}

// Feedback values a user can attach to an assistant message.
const (
	FeedbackPositive = "positive"
	FeedbackNegative = "negative"
)

// Message is one utterance in a conversation. Content is append-only while
// Streaming is true and frozen once Streaming flips to false.
type Message struct {
	ID             string
	ConversationID string
	Content        string
	Sender         Sender
	CreatedAt      time.Time
	Streaming      bool
	Feedback       string // "", FeedbackPositive or FeedbackNegative
	Tokens         int    // 0 = unreported
	Model          string // "" = unreported
}

// NewUserMessage creates a user message with a fresh id.
func NewUserMessage(conversationID, content string) Message {
	return Message{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		Content:        content,
		Sender:         SenderUser,
		CreatedAt:      time.Now(),
	}
}

// NewAssistantMessage creates an empty assistant message in streaming state.
// Deltas are appended to it until the stream completes.
func NewAssistantMessage(conversationID string) Message {
	return Message{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		Sender:         SenderAssistant,
		CreatedAt:      time.Now(),
		Streaming:      true,
	}
}

// NewSystemMessage creates a system message with a fresh id.
func NewSystemMessage(conversationID, content string) Message {
	return Message{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		Content:        content,
		Sender:         SenderSystem,
		CreatedAt:      time.Now(),
	}
}
