// Package store is the single source of truth for conversation state: the
// ordered message list plus the streaming and error flags. It is mutated
// only by the chat controller and observed by the UI through immutable
// snapshots, published on every state transition.
package store

import (
	"sync"

	"github.com/dealerscloud/dcbev"
	"github.com/lithammer/shortuuid/v4"
)

// Store holds one conversation. All methods are safe for concurrent use,
// though mutation is expected to come from a single controller at a time.
type Store struct {
	mu             sync.Mutex
	messages       []dcbev.Message
	streaming      bool
	err            string
	conversationID string

	subs    map[int]chan dcbev.Snapshot
	nextSub int
}

// New creates an empty Store.
func New() *Store {
	return &Store{subs: make(map[int]chan dcbev.Snapshot)}
}

// ConversationID returns the current conversation id, generating one on
// first use. Clear resets it so the next turn starts a new conversation.
func (s *Store) ConversationID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conversationIDLocked()
}

func (s *Store) conversationIDLocked() string {
	if s.conversationID == "" {
		s.conversationID = shortuuid.New()
	}
	return s.conversationID
}

// AppendUser appends a user message with the given content and clears any
// existing error. It returns the appended message.
func (s *Store) AppendUser(content string) dcbev.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg := dcbev.NewUserMessage(s.conversationIDLocked(), content)
	s.messages = append(s.messages, msg)
	s.err = ""
	s.publishLocked()
	return msg
}

// BeginAssistant appends an empty assistant message in streaming state and
// raises the global streaming flag. Callers must guarantee at most one
// concurrent stream; the store does not guard against a second one.
func (s *Store) BeginAssistant() dcbev.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg := dcbev.NewAssistantMessage(s.conversationIDLocked())
	s.messages = append(s.messages, msg)
	s.streaming = true
	s.publishLocked()
	return msg
}

// AppendDelta concatenates a fragment onto the streaming assistant message.
// Fragments are applied in call order. Empty fragments, and fragments
// arriving with no active streaming message, are dropped.
func (s *Store) AppendDelta(fragment string) {
	if fragment == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	last := len(s.messages) - 1
	if last < 0 {
		return
	}
	msg := s.messages[last]
	if msg.Sender != dcbev.SenderAssistant || !msg.Streaming {
		return
	}
	msg.Content += fragment
	s.messages[last] = msg
	s.publishLocked()
}

// CompleteAssistant freezes the streaming assistant message, if present,
// and lowers the global streaming flag. Calling it twice is harmless.
func (s *Store) CompleteAssistant() {
	s.mu.Lock()
	defer s.mu.Unlock()
	changed := s.streaming
	s.streaming = false
	last := len(s.messages) - 1
	if last >= 0 && s.messages[last].Sender == dcbev.SenderAssistant && s.messages[last].Streaming {
		s.messages[last].Streaming = false
		changed = true
	}
	if changed {
		s.publishLocked()
	}
}

// SetError records a user-visible error description. No message is removed;
// partial assistant content stays on screen alongside the error.
func (s *Store) SetError(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = msg
	s.publishLocked()
}

// SetFeedback tags the message with the given id. Unknown ids are ignored.
func (s *Store) SetFeedback(messageID, feedback string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.messages {
		if s.messages[i].ID == messageID {
			s.messages[i].Feedback = feedback
			s.publishLocked()
			return
		}
	}
}

// Clear resets the conversation to empty and drops the conversation id so
// the next send starts a fresh one.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = nil
	s.streaming = false
	s.err = ""
	s.conversationID = ""
	s.publishLocked()
}

// Restore replaces the conversation with a previously saved transcript.
// Any streaming flag left over in the saved messages is cleared; a restored
// conversation is never mid-stream.
func (s *Store) Restore(conversationID string, msgs []dcbev.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conversationID = conversationID
	s.messages = make([]dcbev.Message, len(msgs))
	copy(s.messages, msgs)
	for i := range s.messages {
		s.messages[i].Streaming = false
	}
	s.streaming = false
	s.err = ""
	s.publishLocked()
}

// Snapshot returns an immutable copy of the current state.
func (s *Store) Snapshot() dcbev.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() dcbev.Snapshot {
	msgs := make([]dcbev.Message, len(s.messages))
	copy(msgs, s.messages)
	return dcbev.Snapshot{Messages: msgs, Streaming: s.streaming, Err: s.err}
}

// Subscribe registers an observer. The returned channel carries at most
// one pending snapshot: when the observer lags, intermediate snapshots are
// coalesced and only the latest is kept. The returned function cancels the
// subscription and closes the channel.
func (s *Store) Subscribe() (<-chan dcbev.Snapshot, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch := make(chan dcbev.Snapshot, 1)
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	// Seed with the current state so new observers render immediately.
	ch <- s.snapshotLocked()
	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(ch)
		}
	}
}

// publishLocked delivers the current snapshot to every subscriber without
// blocking. A full channel is drained first so the subscriber always sees
// the newest state next.
func (s *Store) publishLocked() {
	if len(s.subs) == 0 {
		return
	}
	snap := s.snapshotLocked()
	for _, ch := range s.subs {
		select {
		case ch <- snap:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snap:
			default:
			}
		}
	}
}
