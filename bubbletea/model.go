package bubbletea

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/dealerscloud/dcbev"
)

var _ tea.Model = Model{}

// Model is the Bubble Tea model for the chat TUI. It renders the latest
// store snapshot and translates key presses into controller calls.
type Model struct {
	// Input is the text input component. Exported for test access.
	Input textinput.Model
	// Viewport is the scrollable transcript area. Exported for test access.
	Viewport viewport.Model

	ctrl   Controller
	theme  dcbev.Theme
	styles Styles

	snapshots   <-chan dcbev.Snapshot
	unsubscribe func()

	snapshot dcbev.Snapshot
	sending  bool
	err      error // local rejections (busy, nothing to resend); stream errors arrive via snapshots
	ready    bool
}

// New creates a TUI Model reading snapshots from the given subscription
// channel and driving the given controller. The unsubscribe function is
// called when the user quits; it may be nil.
func New(ctrl Controller, snapshots <-chan dcbev.Snapshot, unsubscribe func(), theme dcbev.Theme) Model {
	ti := textinput.New()
	ti.Placeholder = "Ask about inventory, financing, EVs..."
	ti.Prompt = ""
	ti.Focus()
	ti.CharLimit = 0

	return Model{
		Input:       ti,
		ctrl:        ctrl,
		theme:       theme,
		styles:      NewStyles(theme),
		snapshots:   snapshots,
		unsubscribe: unsubscribe,
	}
}

// Sending returns whether a send or retry is currently in flight.
func (m Model) Sending() bool { return m.sending }

// Err returns the last local rejection, if any.
func (m Model) Err() error { return m.err }

// SetSending is a test helper that puts the model in a sending state.
func SetSending(m Model) (Model, tea.Cmd) {
	m.sending = true
	return m, nil
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, listenForSnapshot(m.snapshots))
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m = m.handleWindowSize(msg)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case SnapshotMsg:
		m.snapshot = msg.Snapshot
		m.Viewport.SetContent(m.renderContent())
		m.Viewport.GotoBottom()
		return m, listenForSnapshot(m.snapshots)

	case SendDoneMsg:
		m.sending = false
		if msg.Err != nil && !errors.Is(msg.Err, context.Canceled) {
			// Stream failures are already on the snapshot; keep local
			// rejections (busy, nothing to resend) visible too.
			m.err = msg.Err
		}
		cmd := m.Input.Focus()
		cmds = append(cmds, cmd)
		return m, tea.Batch(cmds...)
	}

	// Pass remaining messages to sub-components.
	// Viewport always receives messages for scrolling (keyboard and mouse).
	var cmd tea.Cmd
	m.Viewport, cmd = m.Viewport.Update(msg)
	cmds = append(cmds, cmd)

	if !m.sending {
		m.Input, cmd = m.Input.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	var b strings.Builder
	b.WriteString(m.Viewport.View())
	b.WriteString("\n")
	b.WriteString(m.statusLine())
	b.WriteString("\n")
	b.WriteString(m.Input.View())
	return b.String()
}

func (m Model) handleWindowSize(msg tea.WindowSizeMsg) Model {
	inputH := 1
	statusH := 1
	gapH := 2 // newlines between sections
	vpHeight := msg.Height - inputH - statusH - gapH
	if vpHeight < 1 {
		vpHeight = 1
	}

	if !m.ready {
		m.Viewport = viewport.New(msg.Width, vpHeight)
		m.ready = true
	} else {
		m.Viewport.Width = msg.Width
		m.Viewport.Height = vpHeight
	}
	m.Viewport.SetContent(m.renderContent())
	m.Viewport.GotoBottom()

	m.Input.Width = msg.Width
	return m
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		if m.sending || m.snapshot.Streaming {
			m.ctrl.Cancel()
			return m, nil
		}
		if m.unsubscribe != nil {
			m.unsubscribe()
		}
		return m, tea.Quit

	case tea.KeyEnter:
		if m.sending {
			return m, nil
		}
		text := strings.TrimSpace(m.Input.Value())
		if text == "" {
			return m, nil
		}
		return m.submit(text)

	case tea.KeyCtrlR:
		if m.sending {
			return m, nil
		}
		m.err = nil
		m.sending = true
		m.Input.Blur()
		ctrl := m.ctrl
		return m, func() tea.Msg {
			return SendDoneMsg{Err: ctrl.RetryLast(context.Background())}
		}

	case tea.KeyCtrlL:
		if m.sending {
			return m, nil
		}
		m.err = m.ctrl.Clear()
		m.Viewport.SetContent(m.renderContent())
		return m, nil
	}

	// When idle, pass keys to both the input (for typing) and the viewport
	// (for scrolling). Only forward non-character keys to the viewport to
	// avoid conflicts (e.g. 'j'/'k' are viewport scroll AND text characters).
	if !m.sending {
		var cmd tea.Cmd
		var cmds []tea.Cmd

		if msg.Type != tea.KeyRunes {
			m.Viewport, cmd = m.Viewport.Update(msg)
			cmds = append(cmds, cmd)
		}

		m.Input, cmd = m.Input.Update(msg)
		cmds = append(cmds, cmd)

		return m, tea.Batch(cmds...)
	}

	return m, nil
}

func (m Model) submit(text string) (tea.Model, tea.Cmd) {
	m.Input.SetValue("")
	m.err = nil
	m.sending = true
	m.Input.Blur()

	ctrl := m.ctrl
	return m, func() tea.Msg {
		return SendDoneMsg{Err: ctrl.Send(context.Background(), text)}
	}
}

func (m Model) renderContent() string {
	if len(m.snapshot.Messages) == 0 {
		return m.styles.Muted.Render("Start a conversation.")
	}
	var b strings.Builder
	for i, msg := range m.snapshot.Messages {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(renderMessage(msg, m.Viewport.Width, m.theme, m.styles))
	}
	return b.String()
}

func (m Model) statusLine() string {
	if m.err != nil {
		return m.styles.Error.Render(fmt.Sprintf("Error: %v", m.err))
	}
	if m.snapshot.Err != "" {
		return m.styles.Error.Render("Error: " + m.snapshot.Err)
	}
	if m.sending || m.snapshot.Streaming {
		return m.styles.Muted.Render("Generating... (Ctrl+C to stop)")
	}
	return m.styles.Muted.Render("Enter to send, Ctrl+R to retry, Ctrl+L to clear, Ctrl+C to quit")
}

// listenForSnapshot waits for the next snapshot from the subscription.
// A closed channel ends the listen loop.
func listenForSnapshot(ch <-chan dcbev.Snapshot) tea.Cmd {
	return func() tea.Msg {
		snap, ok := <-ch
		if !ok {
			return nil
		}
		return SnapshotMsg{Snapshot: snap}
	}
}
