package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
)

var (
	titleStyle     = lipgloss.NewStyle().Bold(true)
	userStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
	assistantStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("15"))
	infoStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	statusStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	spinnerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	inputBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

// View renders the transcript, the input box and the status line
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	status := m.status
	if m.waiting {
		status = m.spinner.View() + " " + status
	}
	if m.conversationID != uuid.Nil {
		status += infoStyle.Render("  conversation " + m.conversationID.String()[:8])
	}

	return titleStyle.Render("docchat") + "\n" +
		m.viewport.View() + "\n" +
		inputBoxStyle.Render(m.input.View()) + "\n" +
		statusStyle.Render(status)
}

func (m Model) renderEntries() string {
	if len(m.entries) == 0 {
		return infoStyle.Render("Ask a question, or type /help for commands.")
	}

	blocks := make([]string, 0, len(m.entries))
	for _, e := range m.entries {
		switch e.role {
		case roleUser:
			blocks = append(blocks, userStyle.Render("You: "+e.content))
		case roleAssistant:
			blocks = append(blocks, assistantStyle.Render("AI: ")+formatMarkdown(e.content))
		case roleInfo:
			blocks = append(blocks, infoStyle.Render(e.content))
		case roleError:
			blocks = append(blocks, errorStyle.Render("Error: "+e.content))
		}
	}
	return strings.Join(blocks, "\n\n")
}
