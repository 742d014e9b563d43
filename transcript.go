package dcbev

import "time"

// Transcript is a saved conversation: the id plus the full message list.
type Transcript struct {
	ConversationID string
	CreatedAt      time.Time
	UpdatedAt      time.Time
	Messages       []Message
}
