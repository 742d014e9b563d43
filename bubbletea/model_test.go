package bubbletea_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/exp/teatest"
	"github.com/dealerscloud/dcbev"
	bt "github.com/dealerscloud/dcbev/bubbletea"
	"github.com/dealerscloud/dcbev/chat"
	"github.com/dealerscloud/dcbev/mock"
	"github.com/dealerscloud/dcbev/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeController records calls for Update-level tests.
type fakeController struct {
	sent     []string
	retries  int
	clears   int
	cancels  int
	sendErr  error
	clearErr error
}

func (f *fakeController) Send(_ context.Context, content string) error {
	f.sent = append(f.sent, content)
	return f.sendErr
}

func (f *fakeController) RetryLast(context.Context) error {
	f.retries++
	return f.sendErr
}

func (f *fakeController) Clear() error {
	f.clears++
	return f.clearErr
}

func (f *fakeController) Cancel() { f.cancels++ }

func newModel(ctrl bt.Controller, unsubscribe func()) bt.Model {
	ch := make(chan dcbev.Snapshot, 1)
	return bt.New(ctrl, ch, unsubscribe, dcbev.DefaultTheme())
}

func initModel(t *testing.T, ctrl bt.Controller) bt.Model {
	t.Helper()
	m := newModel(ctrl, nil)
	return updateModel(t, m, tea.WindowSizeMsg{Width: 80, Height: 24})
}

func updateModel(t *testing.T, m bt.Model, msg tea.Msg) bt.Model {
	t.Helper()
	updated, _ := m.Update(msg)
	model, ok := updated.(bt.Model)
	require.True(t, ok)
	return model
}

func TestNew(t *testing.T) {
	t.Parallel()

	m := newModel(&fakeController{}, nil)
	assert.False(t, m.Sending())
	assert.NoError(t, m.Err())
}

func TestModel_Update(t *testing.T) {
	t.Parallel()

	t.Run("window size initializes viewport", func(t *testing.T) {
		t.Parallel()

		m := newModel(&fakeController{}, nil)
		m = updateModel(t, m, tea.WindowSizeMsg{Width: 80, Height: 24})
		assert.NotEmpty(t, m.View())
	})

	t.Run("window size resize updates viewport dimensions", func(t *testing.T) {
		t.Parallel()

		m := initModel(t, &fakeController{})
		assert.Equal(t, 80, m.Viewport.Width)
		assert.Equal(t, 20, m.Viewport.Height) // 24 - 1 - 1 - 2 = 20

		m = updateModel(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})
		assert.Equal(t, 120, m.Viewport.Width)
		assert.Equal(t, 36, m.Viewport.Height)
	})

	t.Run("snapshot renders transcript and re-arms the listener", func(t *testing.T) {
		t.Parallel()

		m := initModel(t, &fakeController{})
		snap := dcbev.Snapshot{Messages: []dcbev.Message{
			dcbev.NewUserMessage("c1", "any EVs in stock?"),
			{Sender: dcbev.SenderAssistant, Content: "We have three."},
		}}

		updated, cmd := m.Update(bt.SnapshotMsg{Snapshot: snap})
		m = updated.(bt.Model)

		assert.NotNil(t, cmd, "listener must be re-armed")
		view := m.View()
		assert.Contains(t, view, "any EVs in stock?")
		assert.Contains(t, view, "We have three.")
	})

	t.Run("enter submits trimmed input", func(t *testing.T) {
		t.Parallel()

		ctrl := &fakeController{}
		m := initModel(t, ctrl)
		m.Input.SetValue("  test drive?  ")

		updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
		m = updated.(bt.Model)
		require.NotNil(t, cmd)
		assert.True(t, m.Sending())
		assert.Empty(t, m.Input.Value())

		msg := cmd()
		done, ok := msg.(bt.SendDoneMsg)
		require.True(t, ok)
		assert.NoError(t, done.Err)
		assert.Equal(t, []string{"test drive?"}, ctrl.sent)

		m = updateModel(t, m, done)
		assert.False(t, m.Sending())
	})

	t.Run("enter with empty input does nothing", func(t *testing.T) {
		t.Parallel()

		ctrl := &fakeController{}
		m := initModel(t, ctrl)
		updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})

		assert.Nil(t, cmd)
		assert.False(t, updated.(bt.Model).Sending())
		assert.Empty(t, ctrl.sent)
	})

	t.Run("enter while sending is ignored", func(t *testing.T) {
		t.Parallel()

		ctrl := &fakeController{}
		m := initModel(t, ctrl)
		m, _ = bt.SetSending(m)
		m.Input.SetValue("queued")

		_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
		assert.Nil(t, cmd)
		assert.Empty(t, ctrl.sent)
	})

	t.Run("ctrl+c when idle quits and unsubscribes", func(t *testing.T) {
		t.Parallel()

		unsubscribed := false
		m := newModel(&fakeController{}, func() { unsubscribed = true })
		m = updateModel(t, m, tea.WindowSizeMsg{Width: 80, Height: 24})

		_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
		require.NotNil(t, cmd)
		_, isQuit := cmd().(tea.QuitMsg)
		assert.True(t, isQuit)
		assert.True(t, unsubscribed)
	})

	t.Run("ctrl+c while streaming cancels instead of quitting", func(t *testing.T) {
		t.Parallel()

		ctrl := &fakeController{}
		m := initModel(t, ctrl)
		m = updateModel(t, m, bt.SnapshotMsg{Snapshot: dcbev.Snapshot{Streaming: true}})

		_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
		assert.Nil(t, cmd)
		assert.Equal(t, 1, ctrl.cancels)
	})

	t.Run("ctrl+r retries the last message", func(t *testing.T) {
		t.Parallel()

		ctrl := &fakeController{}
		m := initModel(t, ctrl)

		updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlR})
		m = updated.(bt.Model)
		require.NotNil(t, cmd)
		assert.True(t, m.Sending())

		done, ok := cmd().(bt.SendDoneMsg)
		require.True(t, ok)
		assert.NoError(t, done.Err)
		assert.Equal(t, 1, ctrl.retries)
	})

	t.Run("retry rejection surfaces on the status line", func(t *testing.T) {
		t.Parallel()

		ctrl := &fakeController{sendErr: dcbev.ErrNothingToResend}
		m := initModel(t, ctrl)

		updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlR})
		m = updated.(bt.Model)
		require.NotNil(t, cmd)
		m = updateModel(t, m, cmd())

		assert.ErrorIs(t, m.Err(), dcbev.ErrNothingToResend)
		assert.Contains(t, m.View(), "Error:")
	})

	t.Run("cancellation surfaces no error", func(t *testing.T) {
		t.Parallel()

		m := initModel(t, &fakeController{})
		m, _ = bt.SetSending(m)
		m = updateModel(t, m, bt.SendDoneMsg{Err: context.Canceled})

		assert.False(t, m.Sending())
		assert.NoError(t, m.Err())
	})

	t.Run("ctrl+l clears the conversation", func(t *testing.T) {
		t.Parallel()

		ctrl := &fakeController{}
		m := initModel(t, ctrl)
		m = updateModel(t, m, tea.KeyMsg{Type: tea.KeyCtrlL})
		assert.Equal(t, 1, ctrl.clears)

		ctrl.clearErr = dcbev.ErrBusy
		m = updateModel(t, m, tea.KeyMsg{Type: tea.KeyCtrlL})
		assert.ErrorIs(t, m.Err(), dcbev.ErrBusy)
	})

	t.Run("snapshot error shows on the status line", func(t *testing.T) {
		t.Parallel()

		m := initModel(t, &fakeController{})
		m = updateModel(t, m, bt.SnapshotMsg{Snapshot: dcbev.Snapshot{Err: "failed to get response: HTTP 503"}})

		assert.Contains(t, m.View(), "HTTP 503")
	})
}

func TestModel_Teatest(t *testing.T) {
	t.Parallel()

	t.Run("full send cycle", func(t *testing.T) {
		t.Parallel()

		src := &mock.Source{
			StreamFn: func(ctx context.Context, req dcbev.ChatRequest) (dcbev.Stream, error) {
				return mock.Script("Hello from the dealership!"), nil
			},
		}
		st := store.New()
		ctrl := chat.New(st, src)
		snapshots, unsubscribe := st.Subscribe()
		m := bt.New(ctrl, snapshots, unsubscribe, dcbev.DefaultTheme())

		tm := teatest.NewTestModel(t, m,
			teatest.WithInitialTermSize(80, 24),
		)

		tm.Type("hi")
		tm.Send(tea.KeyMsg{Type: tea.KeyEnter})

		teatest.WaitFor(t, tm.Output(), func(out []byte) bool {
			return bytes.Contains(out, []byte("Hello from the dealership!")) &&
				bytes.Contains(out, []byte("Enter to send"))
		}, teatest.WithDuration(5*time.Second))

		tm.Send(tea.KeyMsg{Type: tea.KeyCtrlC})

		fm := tm.FinalModel(t, teatest.WithFinalTimeout(5*time.Second))
		final, ok := fm.(bt.Model)
		require.True(t, ok)
		assert.False(t, final.Sending())
		assert.NoError(t, final.Err())
		assert.Len(t, st.Snapshot().Messages, 2)
	})

	t.Run("restored conversation renders on init", func(t *testing.T) {
		t.Parallel()

		st := store.New()
		st.Restore("conv-1", []dcbev.Message{
			dcbev.NewUserMessage("conv-1", "hello there"),
			{Sender: dcbev.SenderAssistant, Content: "Hi! How can I help?"},
		})
		ctrl := chat.New(st, &mock.Source{})
		snapshots, unsubscribe := st.Subscribe()
		m := bt.New(ctrl, snapshots, unsubscribe, dcbev.DefaultTheme())

		tm := teatest.NewTestModel(t, m,
			teatest.WithInitialTermSize(80, 24),
		)

		teatest.WaitFor(t, tm.Output(), func(out []byte) bool {
			return bytes.Contains(out, []byte("hello there")) &&
				bytes.Contains(out, []byte("Hi! How can I help?"))
		}, teatest.WithDuration(5*time.Second))

		tm.Send(tea.KeyMsg{Type: tea.KeyCtrlC})
		tm.WaitFinished(t, teatest.WithFinalTimeout(5*time.Second))
	})
}
