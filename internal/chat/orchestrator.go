// Package chat answers a user message with retrieved document context and
// at most one tool call, then persists the exchange.
package chat

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/docchat/docchat/internal/db"
	"github.com/docchat/docchat/internal/errs"
	"github.com/docchat/docchat/internal/llm"
	"github.com/docchat/docchat/internal/rag"
	"github.com/docchat/docchat/internal/tools"
)

// ConversationStore persists conversations and their messages
type ConversationStore interface {
	CreateConversation(ctx context.Context) (*db.Conversation, error)
	GetConversation(ctx context.Context, id uuid.UUID) (*db.Conversation, error)
	ListMessages(ctx context.Context, conversationID uuid.UUID) ([]db.Message, error)
	InsertMessagePair(ctx context.Context, conversationID uuid.UUID, userContent, assistantContent string) ([2]db.Message, error)
	UpdateConversationTitle(ctx context.Context, id uuid.UUID, title string) error
}

// DocumentQuerier returns document context for a query
type DocumentQuerier interface {
	QueryDocuments(ctx context.Context, query string) (string, error)
}

// ContextDetector decides whether a message needs document context
type ContextDetector interface {
	WantsDocumentContext(message string) bool
}

// ToolExecutor runs a parsed tool call
type ToolExecutor interface {
	Execute(ctx context.Context, call tools.Call) (string, error)
}

// Request is one user turn. A nil ConversationID starts a new conversation.
type Request struct {
	Message        string
	ConversationID uuid.UUID
}

// Completion is the answer to a Request
type Completion struct {
	Message        string    `json:"message"`
	Response       string    `json:"response"`
	Words          []string  `json:"words"`
	ConversationID uuid.UUID `json:"conversationId"`
}

// Orchestrator runs the completion state machine
type Orchestrator struct {
	store       ConversationStore
	model       llm.ChatModel
	documents   DocumentQuerier
	detector    ContextDetector
	executor    ToolExecutor
	temperature float64
	logger      *log.Logger
	locks       *keyedMutex
}

// Options wires an Orchestrator
type Options struct {
	Store       ConversationStore
	Model       llm.ChatModel
	Documents   DocumentQuerier
	Detector    ContextDetector
	Executor    ToolExecutor
	Temperature float64
	Logger      *log.Logger
}

// NewOrchestrator creates an orchestrator
func NewOrchestrator(opts Options) *Orchestrator {
	return &Orchestrator{
		store:       opts.Store,
		model:       opts.Model,
		documents:   opts.Documents,
		detector:    opts.Detector,
		executor:    opts.Executor,
		temperature: opts.Temperature,
		logger:      opts.Logger,
		locks:       newKeyedMutex(),
	}
}

// Complete answers req. Completions for the same conversation run one at a time.
func (o *Orchestrator) Complete(ctx context.Context, req Request) (*Completion, error) {
	if req.Message == "" {
		return nil, fmt.Errorf("%w: message is required", errs.ErrInvalidInput)
	}

	convID := req.ConversationID
	if convID == uuid.Nil {
		conv, err := o.store.CreateConversation(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to create conversation: %w", err)
		}
		convID = conv.ID
	}

	unlock := o.locks.Lock(convID)
	defer unlock()

	if _, err := o.store.GetConversation(ctx, convID); err != nil {
		return nil, err
	}
	history, err := o.store.ListMessages(ctx, convID)
	if err != nil {
		return nil, fmt.Errorf("failed to load messages: %w", err)
	}

	messages := o.buildMessages(ctx, history, req.Message)

	answer, err := o.answer(ctx, messages)
	if err != nil {
		return nil, err
	}

	if _, err := o.store.InsertMessagePair(ctx, convID, req.Message, answer); err != nil {
		return nil, fmt.Errorf("failed to save messages: %w", err)
	}

	if len(history) == 0 {
		if err := o.store.UpdateConversationTitle(ctx, convID, Title(req.Message)); err != nil {
			o.logger.Error("failed to update conversation title", "conversation_id", convID, "err", err)
		}
	}

	return &Completion{
		Message:        req.Message,
		Response:       answer,
		Words:          Words(answer),
		ConversationID: convID,
	}, nil
}

// buildMessages orders the prompt: system prompt, history, the new user
// message, then document context when the message asks for it.
func (o *Orchestrator) buildMessages(ctx context.Context, history []db.Message, message string) []llm.Message {
	messages := make([]llm.Message, 0, len(history)+3)
	messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: SystemPrompt()})
	for _, m := range history {
		role := llm.RoleAssistant
		if m.Role == db.RoleUser {
			role = llm.RoleUser
		}
		messages = append(messages, llm.Message{Role: role, Content: m.Content})
	}
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: message})

	if docContext := o.documentContext(ctx, message); docContext != "" {
		messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: rag.ContextMessage(docContext)})
	}
	return messages
}

func (o *Orchestrator) documentContext(ctx context.Context, message string) string {
	if o.documents == nil || o.detector == nil || !o.detector.WantsDocumentContext(message) {
		return ""
	}
	docContext, err := o.documents.QueryDocuments(ctx, message)
	if err != nil {
		o.logger.Warn("continuing without document context", "err", err)
		return ""
	}
	return docContext
}

// answer runs ModelCall and, when a tool is requested, ToolExec and FinalCall
func (o *Orchestrator) answer(ctx context.Context, messages []llm.Message) (string, error) {
	resp, err := o.chat(ctx, llm.ChatRequest{
		Messages:    messages,
		Tools:       tools.Catalog(),
		ToolChoice:  llm.ToolChoiceAuto,
		Temperature: &o.temperature,
	})
	if err != nil {
		return "", err
	}

	if len(resp.ToolCalls) == 0 {
		if resp.Content == "" {
			return FallbackResponse, nil
		}
		return resp.Content, nil
	}

	if len(resp.ToolCalls) > 1 {
		o.logger.Debug("ignoring extra tool calls", "count", len(resp.ToolCalls)-1)
	}
	tc := resp.ToolCalls[0]

	result, err := o.runTool(ctx, tc)
	if err != nil {
		if errs.Disposition(err) == errs.Degrade && errors.Is(err, errs.ErrUnknownTool) {
			o.logger.Warn("model requested an unknown tool", "tool", tc.Name)
			return ToolErrorResponse, nil
		}
		o.logger.Error("tool failed", "tool", tc.Name, "err", err)
		result = ""
	}

	final, err := o.chat(ctx, llm.ChatRequest{
		Messages:    append(messages, llm.Message{Role: llm.RoleAssistant, Content: ToolNote(tc.Name, result)}),
		ToolChoice:  llm.ToolChoiceNone,
		Temperature: &o.temperature,
	})
	if err != nil {
		return "", err
	}
	if final.Content == "" {
		return FallbackResponse, nil
	}
	return final.Content, nil
}

func (o *Orchestrator) runTool(ctx context.Context, tc llm.ToolCall) (string, error) {
	call, err := tools.Parse(tc.Name, tc.Arguments)
	if err != nil {
		return "", err
	}
	o.logger.Info("calling tool", "tool", call.Name())
	return o.executor.Execute(ctx, call)
}

func (o *Orchestrator) chat(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	resp, err := o.model.Chat(ctx, req)
	if err != nil {
		if !errors.Is(err, errs.ErrModelUnavailable) {
			err = fmt.Errorf("%w: %w", errs.ErrModelUnavailable, err)
		}
		return nil, err
	}
	return resp, nil
}
