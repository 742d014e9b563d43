package bubbletea

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dealerscloud/dcbev"
	"github.com/dealerscloud/dcbev/markdown"
)

// renderMessage renders one transcript message for the viewport.
func renderMessage(msg dcbev.Message, width int, theme dcbev.Theme, styles Styles) string {
	switch msg.Sender {
	case dcbev.SenderUser:
		content := styles.UserMsg.Render("> ") + msg.Content
		return lipgloss.NewStyle().Width(width).Render(content)
	case dcbev.SenderAssistant:
		return renderAssistant(msg, width, theme, styles)
	default:
		return styles.Muted.Render(lipgloss.NewStyle().Width(width).Render(msg.Content))
	}
}

func renderAssistant(msg dcbev.Message, width int, theme dcbev.Theme, styles Styles) string {
	if msg.Content == "" {
		if msg.Streaming {
			return styles.Muted.Render("...")
		}
		return ""
	}
	source := msg.Content
	if msg.Streaming && hasUnclosedFence(source) {
		// Close fence only for rendering so partial streams display safely.
		source += "\n```"
	}
	return markdown.Render(source, width, theme)
}

// hasUnclosedFence detects an unclosed fenced code block by counting "```"
// occurrences. Literal triple backticks inside inline code would fool it,
// which streamed assistant replies do not produce in practice.
func hasUnclosedFence(s string) bool {
	return strings.Count(s, "```")%2 == 1
}
