// Package bubbletea provides a Bubble Tea TUI for the dealership chat
// client. The model observes conversation state through store snapshots
// and hands user intent to a chat controller.
package bubbletea

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/dealerscloud/dcbev"
)

// Controller is the subset of chat operations the TUI drives.
type Controller interface {
	Send(ctx context.Context, content string) error
	RetryLast(ctx context.Context) error
	Clear() error
	Cancel()
}

// Run creates and runs the Bubble Tea TUI program. It blocks until the
// program exits. Cancelling the context quits the program.
func Run(ctx context.Context, m Model) error {
	p := tea.NewProgram(m, tea.WithAltScreen())
	go func() {
		<-ctx.Done()
		p.Quit()
	}()
	_, err := p.Run()
	return err
}

// SnapshotMsg delivers a conversation snapshot to the Bubble Tea model.
type SnapshotMsg struct {
	Snapshot dcbev.Snapshot
}

// SendDoneMsg signals that a send (or retry) has settled.
type SendDoneMsg struct {
	Err error
}
