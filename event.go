package dcbev

// Event is a sealed interface representing a user-initiated conversation
// action. The unexported marker method prevents external implementations.
type Event interface {
	event()
}

// SendMessage submits new user content for a streaming reply.
type SendMessage struct {
	Content string
}

func (SendMessage) event() {}

// RetryLast re-submits the most recent user message. It only applies when
// the previous turn finished (the last message is an assistant message).
type RetryLast struct{}

func (RetryLast) event() {}

// Regenerate re-sends the user message immediately preceding the target
// assistant message, producing a fresh reply.
type Regenerate struct {
	MessageID string
}

func (Regenerate) event() {}

// ClearConversation resets the conversation to empty.
type ClearConversation struct{}

func (ClearConversation) event() {}

// Interface compliance checks.
var (
	_ Event = SendMessage{}
	_ Event = RetryLast{}
	_ Event = Regenerate{}
	_ Event = ClearConversation{}
)
