package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"

	"github.com/docchat/docchat/internal/chat"
	"github.com/docchat/docchat/internal/client"
)

const helpText = `Commands:
  /new            start a new conversation
  /upload <path>  upload a PDF, DOCX, EPUB, text or markdown file
  /docs           list uploaded documents
  /delete         delete the current conversation
  /help           show this help`

type commandKind int

const (
	cmdMessage commandKind = iota
	cmdNew
	cmdUpload
	cmdDocs
	cmdDelete
	cmdHelp
	cmdUnknown
)

type command struct {
	kind commandKind
	arg  string
}

// parseCommand classifies a line of input. Anything not starting with a
// slash is a chat message.
func parseCommand(line string) command {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "/") {
		return command{kind: cmdMessage, arg: line}
	}

	name, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)
	switch name {
	case "/new":
		return command{kind: cmdNew}
	case "/upload":
		return command{kind: cmdUpload, arg: arg}
	case "/docs":
		return command{kind: cmdDocs}
	case "/delete":
		return command{kind: cmdDelete}
	case "/help":
		return command{kind: cmdHelp}
	}
	return command{kind: cmdUnknown, arg: name}
}

type completionMsg struct{ completion *chat.Completion }

type uploadMsg struct {
	path   string
	result *client.UploadResult
}

type documentsMsg struct{ documents []client.Document }

type deletedMsg struct{ id uuid.UUID }

type errMsg struct{ err error }

type tickMsg struct{ generation int }

func (m Model) send(message string) tea.Cmd {
	c, id := m.client, m.conversationID
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		completion, err := c.Complete(ctx, message, id)
		if err != nil {
			return errMsg{err}
		}
		return completionMsg{completion}
	}
}

func (m Model) upload(path string) tea.Cmd {
	c := m.client
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		res, err := c.Upload(ctx, path)
		if err != nil {
			return errMsg{fmt.Errorf("upload %s: %w", path, err)}
		}
		return uploadMsg{path: path, result: res}
	}
}

func (m Model) listDocuments() tea.Cmd {
	c := m.client
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		docs, err := c.Documents(ctx)
		if err != nil {
			return errMsg{err}
		}
		return documentsMsg{docs}
	}
}

func (m Model) deleteConversation() tea.Cmd {
	c, id := m.client, m.conversationID
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := c.DeleteConversation(ctx, id); err != nil {
			return errMsg{err}
		}
		return deletedMsg{id}
	}
}

func (m Model) tick() tea.Cmd {
	gen := m.generation
	return tea.Tick(m.interval, func(time.Time) tea.Msg { return tickMsg{generation: gen} })
}

func formatDocuments(docs []client.Document) string {
	if len(docs) == 0 {
		return "No documents uploaded yet."
	}
	lines := make([]string, 0, len(docs)+1)
	lines = append(lines, fmt.Sprintf("%d document(s):", len(docs)))
	for _, d := range docs {
		lines = append(lines, fmt.Sprintf("  %s  (%d chunks)", d.Title, d.ChunkCount))
	}
	return strings.Join(lines, "\n")
}
