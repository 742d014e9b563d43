package store_test

import (
	"testing"

	"github.com/dealerscloud/dcbev"
	"github.com/dealerscloud/dcbev/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_AppendUser(t *testing.T) {
	t.Parallel()

	s := store.New()
	s.SetError("stale error")
	msg := s.AppendUser("Hello")

	snap := s.Snapshot()
	require.Len(t, snap.Messages, 1)
	assert.Equal(t, dcbev.SenderUser, snap.Messages[0].Sender)
	assert.Equal(t, "Hello", snap.Messages[0].Content)
	assert.Equal(t, msg.ID, snap.Messages[0].ID)
	assert.NotEmpty(t, snap.Messages[0].ConversationID)
	assert.Empty(t, snap.Err, "appending a user message clears the error")
	assert.False(t, snap.Streaming)
}

func TestStore_DeltaConcatenation(t *testing.T) {
	t.Parallel()

	// The final content must equal the in-order concatenation of the
	// fragments, regardless of how the text was chunked.
	chunkings := map[string][]string{
		"single":     {"Hi there!"},
		"words":      {"Hi", " there", "!"},
		"characters": {"H", "i", " ", "t", "h", "e", "r", "e", "!"},
	}

	for name, deltas := range chunkings {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			s := store.New()
			s.AppendUser("Hello")
			s.BeginAssistant()
			for _, d := range deltas {
				s.AppendDelta(d)
			}
			s.CompleteAssistant()

			snap := s.Snapshot()
			require.Len(t, snap.Messages, 2)
			assert.Equal(t, "Hi there!", snap.Messages[1].Content)
			assert.False(t, snap.Messages[1].Streaming)
		})
	}
}

func TestStore_AtMostOneStreamingAndLast(t *testing.T) {
	t.Parallel()

	s := store.New()
	s.AppendUser("a")
	s.BeginAssistant()
	s.AppendDelta("x")

	snap := s.Snapshot()
	var streaming []int
	for i, m := range snap.Messages {
		if m.Streaming {
			streaming = append(streaming, i)
		}
	}
	require.Len(t, streaming, 1)
	assert.Equal(t, len(snap.Messages)-1, streaming[0])
	assert.Equal(t, dcbev.SenderAssistant, snap.Messages[streaming[0]].Sender)
	assert.True(t, snap.Streaming)
}

func TestStore_EmptyFragmentDropped(t *testing.T) {
	t.Parallel()

	s := store.New()
	s.BeginAssistant()
	s.AppendDelta("")
	s.AppendDelta("ok")

	snap := s.Snapshot()
	require.Len(t, snap.Messages, 1)
	assert.Equal(t, "ok", snap.Messages[0].Content)
}

func TestStore_DeltaWithoutActiveStreamDropped(t *testing.T) {
	t.Parallel()

	t.Run("empty conversation", func(t *testing.T) {
		t.Parallel()

		s := store.New()
		s.AppendDelta("orphan")
		assert.Empty(t, s.Snapshot().Messages)
	})

	t.Run("last message not streaming", func(t *testing.T) {
		t.Parallel()

		s := store.New()
		s.AppendUser("question")
		s.AppendDelta("orphan")

		snap := s.Snapshot()
		require.Len(t, snap.Messages, 1)
		assert.Equal(t, "question", snap.Messages[0].Content)
	})

	t.Run("after completion content is frozen", func(t *testing.T) {
		t.Parallel()

		s := store.New()
		s.BeginAssistant()
		s.AppendDelta("final")
		s.CompleteAssistant()
		s.AppendDelta(" extra")

		snap := s.Snapshot()
		require.Len(t, snap.Messages, 1)
		assert.Equal(t, "final", snap.Messages[0].Content)
	})
}

func TestStore_CompleteAssistantIdempotent(t *testing.T) {
	t.Parallel()

	s := store.New()
	s.AppendUser("a")
	s.BeginAssistant()
	s.AppendDelta("b")

	s.CompleteAssistant()
	once := s.Snapshot()
	s.CompleteAssistant()
	twice := s.Snapshot()

	assert.Equal(t, once, twice)
	assert.False(t, twice.Streaming)
}

func TestStore_Clear(t *testing.T) {
	t.Parallel()

	s := store.New()
	first := s.ConversationID()
	s.AppendUser("a")
	s.BeginAssistant()
	s.SetError("boom")

	s.Clear()

	snap := s.Snapshot()
	assert.Empty(t, snap.Messages)
	assert.False(t, snap.Streaming)
	assert.Empty(t, snap.Err)
	assert.NotEqual(t, first, s.ConversationID(), "clear starts a new conversation")
}

func TestStore_SetErrorKeepsMessages(t *testing.T) {
	t.Parallel()

	s := store.New()
	s.AppendUser("q")
	s.BeginAssistant()
	s.AppendDelta("Par")
	s.AppendDelta("tial")
	s.CompleteAssistant()
	s.SetError("failed to get response: HTTP 503: unavailable")

	snap := s.Snapshot()
	require.Len(t, snap.Messages, 2)
	assert.Equal(t, "Partial", snap.Messages[1].Content)
	assert.Contains(t, snap.Err, "503")
}

func TestStore_SetFeedback(t *testing.T) {
	t.Parallel()

	s := store.New()
	s.AppendUser("q")
	reply := s.BeginAssistant()
	s.CompleteAssistant()

	s.SetFeedback(reply.ID, dcbev.FeedbackPositive)
	s.SetFeedback("no-such-id", dcbev.FeedbackNegative)

	snap := s.Snapshot()
	assert.Equal(t, dcbev.FeedbackPositive, snap.Messages[1].Feedback)
	assert.Empty(t, snap.Messages[0].Feedback)
}

func TestStore_Restore(t *testing.T) {
	t.Parallel()

	saved := []dcbev.Message{
		dcbev.NewUserMessage("conv-1", "hi"),
		{ID: "m2", ConversationID: "conv-1", Content: "partial", Sender: dcbev.SenderAssistant, Streaming: true},
	}

	s := store.New()
	s.Restore("conv-1", saved)

	snap := s.Snapshot()
	require.Len(t, snap.Messages, 2)
	assert.False(t, snap.Messages[1].Streaming, "restored transcripts are never mid-stream")
	assert.False(t, snap.Streaming)
	assert.Equal(t, "conv-1", s.ConversationID())
}

func TestStore_Subscribe(t *testing.T) {
	t.Parallel()

	t.Run("seeded with current state", func(t *testing.T) {
		t.Parallel()

		s := store.New()
		s.AppendUser("existing")
		ch, cancel := s.Subscribe()
		defer cancel()

		snap := <-ch
		require.Len(t, snap.Messages, 1)
	})

	t.Run("coalesces to latest snapshot", func(t *testing.T) {
		t.Parallel()

		s := store.New()
		ch, cancel := s.Subscribe()
		defer cancel()
		<-ch // drain the seed

		s.BeginAssistant()
		s.AppendDelta("a")
		s.AppendDelta("b")
		s.AppendDelta("c")

		snap := <-ch
		assert.Equal(t, "abc", snap.Messages[0].Content)
	})

	t.Run("cancel closes the channel", func(t *testing.T) {
		t.Parallel()

		s := store.New()
		ch, cancel := s.Subscribe()
		cancel()
		cancel() // second cancel is a no-op

		_, ok := <-ch
		assert.False(t, ok)
	})
}

func TestStore_SnapshotIsACopy(t *testing.T) {
	t.Parallel()

	s := store.New()
	s.BeginAssistant()
	snap := s.Snapshot()
	snap.Messages[0].Content = "mutated by observer"

	assert.Empty(t, s.Snapshot().Messages[0].Content)
}
