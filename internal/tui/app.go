// Package tui is the terminal chat client.
package tui

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"

	"github.com/docchat/docchat/internal/chat"
	"github.com/docchat/docchat/internal/client"
	"github.com/docchat/docchat/internal/playback"
)

// ChatClient is the server API the TUI drives
type ChatClient interface {
	Complete(ctx context.Context, message string, conversationID uuid.UUID) (*chat.Completion, error)
	Upload(ctx context.Context, path string) (*client.UploadResult, error)
	DeleteConversation(ctx context.Context, conversationID uuid.UUID) error
	Documents(ctx context.Context) ([]client.Document, error)
}

const requestTimeout = 5 * time.Minute

type role int

const (
	roleUser role = iota
	roleAssistant
	roleInfo
	roleError
)

// entry is one block of the transcript
type entry struct {
	role    role
	content string
}

// Model is the Bubble Tea model for the chat client
type Model struct {
	client   ChatClient
	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model
	keys     keyMap

	entries        []entry
	player         *playback.Player
	generation     int
	interval       time.Duration
	conversationID uuid.UUID
	waiting        bool
	status         string
	ready          bool
}

// New creates a chat model. interval <= 0 uses playback.DefaultInterval.
func New(c ChatClient, interval time.Duration) Model {
	if interval <= 0 {
		interval = playback.DefaultInterval
	}

	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask about your documents, or /help"
	ti.Focus()
	ti.CharLimit = 0

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = spinnerStyle

	return Model{
		client:   c,
		input:    ti,
		viewport: viewport.New(0, 0),
		spinner:  sp,
		keys:     defaultKeyMap(),
		interval: interval,
		status:   "Ready",
	}
}

// Run starts the program in the alternate screen and blocks until it exits
func Run(c ChatClient, interval time.Duration) error {
	p := tea.NewProgram(New(c, interval), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("failed to run terminal UI: %w", err)
	}
	return nil
}

// Init starts the cursor blinking
func (m Model) Init() tea.Cmd { return textinput.Blink }

// ConversationID is the active conversation, uuid.Nil before the first reply
func (m Model) ConversationID() uuid.UUID { return m.conversationID }
