package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"

	"github.com/docchat/docchat/internal/playback"
)

// Update handles key, window and response events
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		m.input.Width = max(10, msg.Width-4)
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, msg.Height-4)
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Skip):
			if m.player != nil {
				m.player.Finish()
				m.setLast(m.player.Text())
				m.player = nil
				m.refresh()
			}
			return m, nil
		case key.Matches(msg, m.keys.Send):
			return m.submit()
		case key.Matches(msg, m.keys.Up), key.Matches(msg, m.keys.Down):
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}

	case spinner.TickMsg:
		if !m.waiting {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case completionMsg:
		m.waiting = false
		m.conversationID = msg.completion.ConversationID
		m.status = "Ready"
		m.entries = append(m.entries, entry{role: roleAssistant})
		m.player = playback.New(msg.completion.Words)
		m.generation++
		m.refresh()
		return m, m.tick()

	case tickMsg:
		if m.player == nil || msg.generation != m.generation {
			return m, nil
		}
		more := m.player.Advance()
		m.setLast(m.player.Text())
		m.refresh()
		if !more {
			m.player = nil
			return m, nil
		}
		return m, m.tick()

	case uploadMsg:
		m.waiting = false
		m.status = "Ready"
		text := fmt.Sprintf("Uploaded %s (%d chunks)", msg.path, msg.result.Chunks)
		if msg.result.Skipped {
			text = fmt.Sprintf("%s was already uploaded", msg.path)
		}
		m.addEntry(roleInfo, text)
		return m, nil

	case documentsMsg:
		m.waiting = false
		m.status = "Ready"
		m.addEntry(roleInfo, formatDocuments(msg.documents))
		return m, nil

	case deletedMsg:
		m.waiting = false
		m.conversationID = uuid.Nil
		m.entries = nil
		m.status = "Conversation deleted"
		m.refresh()
		return m, nil

	case errMsg:
		m.waiting = false
		m.status = "Error"
		m.addEntry(roleError, msg.err.Error())
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// submit runs the command or message in the input line
func (m Model) submit() (tea.Model, tea.Cmd) {
	if m.waiting {
		return m, nil
	}
	c := parseCommand(m.input.Value())
	if c.kind == cmdMessage && c.arg == "" {
		return m, nil
	}
	m.input.Reset()

	if m.player != nil {
		m.player.Finish()
		m.setLast(m.player.Text())
		m.player = nil
	}

	switch c.kind {
	case cmdNew:
		m.conversationID = uuid.Nil
		m.entries = nil
		m.status = "Started a new conversation"
		m.refresh()
		return m, nil
	case cmdHelp:
		m.addEntry(roleInfo, helpText)
		return m, nil
	case cmdUnknown:
		m.addEntry(roleError, fmt.Sprintf("Unknown command %s, try /help", c.arg))
		return m, nil
	case cmdUpload:
		if c.arg == "" {
			m.addEntry(roleError, "Usage: /upload <path>")
			return m, nil
		}
		return m.wait("Uploading "+c.arg, m.upload(c.arg))
	case cmdDocs:
		return m.wait("Loading documents", m.listDocuments())
	case cmdDelete:
		if m.conversationID == uuid.Nil {
			m.addEntry(roleError, "No conversation to delete")
			return m, nil
		}
		return m.wait("Deleting conversation", m.deleteConversation())
	}

	m.addEntry(roleUser, c.arg)
	return m.wait("Thinking", m.send(c.arg))
}

func (m Model) wait(status string, cmd tea.Cmd) (tea.Model, tea.Cmd) {
	m.waiting = true
	m.status = status
	return m, tea.Batch(m.spinner.Tick, cmd)
}

func (m *Model) addEntry(r role, content string) {
	m.entries = append(m.entries, entry{role: r, content: content})
	m.refresh()
}

func (m *Model) setLast(content string) {
	if n := len(m.entries); n > 0 {
		m.entries[n-1].content = content
	}
}

func (m *Model) refresh() {
	m.viewport.SetContent(m.renderEntries())
	m.viewport.GotoBottom()
}
