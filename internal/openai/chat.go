package openai

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/docchat/docchat/internal/errs"
	"github.com/docchat/docchat/internal/llm"
)

// Ensure ChatModel implements the interface.
var _ llm.ChatModel = (*ChatModel)(nil)

// ChatModel calls /chat/completions.
type ChatModel struct {
	client *Client
	model  string
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatTool struct {
	Type     string       `json:"type"`
	Function chatFunction `json:"function"`
}

type chatFunction struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Tools       []chatTool    `json:"tools,omitempty"`
	ToolChoice  string        `json:"tool_choice,omitempty"`
	Temperature *float64      `json:"temperature,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content   *string `json:"content"`
			ToolCalls []struct {
				ID       string `json:"id"`
				Type     string `json:"type"`
				Function struct {
					Name      string          `json:"name"`
					Arguments json.RawMessage `json:"arguments"`
				} `json:"function"`
			} `json:"tool_calls"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

// NewChatModel creates a chat model bound to client.
func NewChatModel(client *Client, model string) *ChatModel {
	if model == "" {
		model = DefaultChatModel
	}
	return &ChatModel{client: client, model: model}
}

// Name returns the model name.
func (m *ChatModel) Name() string {
	return m.model
}

// Chat sends one completion request.
func (m *ChatModel) Chat(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	body := chatRequest{
		Model:    m.model,
		Messages: make([]chatMessage, 0, len(req.Messages)),
	}
	for _, msg := range req.Messages {
		body.Messages = append(body.Messages, chatMessage{Role: string(msg.Role), Content: msg.Content})
	}
	if req.Temperature != nil {
		t := *req.Temperature
		body.Temperature = &t
	}
	if llm.OfferTools(req) {
		for _, t := range req.Tools {
			body.Tools = append(body.Tools, chatTool{
				Type:     "function",
				Function: chatFunction{Name: t.Name, Description: t.Description, Parameters: t.Parameters},
			})
		}
		body.ToolChoice = string(llm.ToolChoiceAuto)
	}

	var resp chatResponse
	if err := m.client.post(ctx, "/chat/completions", body, &resp); err != nil {
		return nil, fmt.Errorf("%w: %w", errs.ErrModelUnavailable, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: openai returned no choices", errs.ErrModelUnavailable)
	}

	msg := resp.Choices[0].Message
	out := &llm.ChatResponse{}
	if msg.Content != nil {
		out.Content = *msg.Content
	}
	for _, tc := range msg.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, llm.ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: llm.NormaliseArguments(tc.Function.Arguments),
		})
	}
	return out, nil
}
