// Package llm is the provider-neutral contract for chat models with tool calling.
package llm

import (
	"context"
	"encoding/json"
)

// Role tags a chat message
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry of the prompt
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Tool describes a callable function offered to the model. Parameters is a
// JSON schema object.
type Tool struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// ToolChoice controls whether the model may call tools
type ToolChoice string

const (
	ToolChoiceAuto ToolChoice = "auto"
	ToolChoiceNone ToolChoice = "none"
)

// ChatRequest is a single model invocation. With ToolChoiceNone providers
// send no tools at all. A nil Temperature leaves the provider default.
type ChatRequest struct {
	Messages    []Message
	Tools       []Tool
	ToolChoice  ToolChoice
	Temperature *float64
}

// ToolCall is a tool invocation requested by the model. Arguments is always
// a JSON object, normalised from whatever encoding the provider used.
type ToolCall struct {
	ID        string
	Name      string
	Arguments json.RawMessage
}

// ChatResponse is what the model returned: text, tool calls, both or neither
type ChatResponse struct {
	Content   string
	ToolCalls []ToolCall
}

// ChatModel is implemented by every chat provider. Failures wrap
// errs.ErrModelUnavailable.
type ChatModel interface {
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)
	Name() string
}

// OfferTools reports whether tools should be sent with req
func OfferTools(req ChatRequest) bool {
	return req.ToolChoice != ToolChoiceNone && len(req.Tools) > 0
}

// NormaliseArguments turns provider tool arguments into a JSON object. Some
// providers send a JSON-encoded string, others an object; empty becomes {}.
func NormaliseArguments(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 || string(raw) == "null" {
		return json.RawMessage("{}")
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if s == "" {
			return json.RawMessage("{}")
		}
		return json.RawMessage(s)
	}
	return raw
}
