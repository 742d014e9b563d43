package dcbev

// Snapshot is an immutable point-in-time view of conversation state,
// published to observers on every state transition. The Messages slice is
// owned by the snapshot; callers may read it freely but must not share it
// back into the store.
type Snapshot struct {
	Messages  []Message
	Streaming bool
	Err       string // "" = no error
}

// Last returns the final message in the snapshot, or ok = false when the
// conversation is empty.
func (s Snapshot) Last() (Message, bool) {
	if len(s.Messages) == 0 {
		return Message{}, false
	}
	return s.Messages[len(s.Messages)-1], true
}

// LastUser returns the most recent user message, scanning backwards.
func (s Snapshot) LastUser() (Message, bool) {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Sender == SenderUser {
			return s.Messages[i], true
		}
	}
	return Message{}, false
}

// ByID returns the index of the message with the given id, or -1.
func (s Snapshot) ByID(id string) int {
	for i, m := range s.Messages {
		if m.ID == id {
			return i
		}
	}
	return -1
}
