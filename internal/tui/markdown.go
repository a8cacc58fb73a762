package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	headingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	boldStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	bulletStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// formatMarkdown renders headings, bullets and **bold** spans
func formatMarkdown(text string) string {
	lines := strings.Split(text, "\n")
	formatted := make([]string, 0, len(lines))

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)

		if heading, ok := headingText(trimmed); ok {
			formatted = append(formatted, headingStyle.Render(heading))
			continue
		}
		if strings.HasPrefix(trimmed, "- ") || strings.HasPrefix(trimmed, "* ") {
			formatted = append(formatted, "  "+bulletStyle.Render("•")+" "+processBold(trimmed[2:]))
			continue
		}
		formatted = append(formatted, processBold(line))
	}

	return strings.Join(formatted, "\n")
}

func headingText(line string) (string, bool) {
	for _, prefix := range []string{"### ", "## ", "# "} {
		if strings.HasPrefix(line, prefix) {
			return strings.TrimPrefix(line, prefix), true
		}
	}
	return "", false
}

// processBold styles text between ** pairs; an unclosed pair runs to the end
func processBold(text string) string {
	parts := strings.Split(text, "**")
	if len(parts) == 1 {
		return text
	}

	var b strings.Builder
	for i, part := range parts {
		if i%2 == 1 {
			b.WriteString(boldStyle.Render(part))
		} else {
			b.WriteString(part)
		}
	}
	return b.String()
}
