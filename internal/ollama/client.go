package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/docchat/docchat/internal/errs"
	"github.com/docchat/docchat/internal/llm"
)

// DefaultBaseURL is where a local Ollama listens
const DefaultBaseURL = "http://localhost:11434"

// Client wraps Ollama API interactions
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new Ollama client. A nil httpClient gets a 5 minute timeout.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 5 * time.Minute}
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
	}
}

// BaseURL returns the server address
func (c *Client) BaseURL() string {
	return c.baseURL
}

// HTTPClient returns the underlying http client
func (c *Client) HTTPClient() *http.Client {
	return c.httpClient
}

// ChatMessage is a message in /api/chat format
type ChatMessage struct {
	Role      string     `json:"role"`
	Content   string     `json:"content"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
}

// ToolCall is a tool invocation; Ollama sends arguments as an object
type ToolCall struct {
	Function struct {
		Name      string          `json:"name"`
		Arguments json.RawMessage `json:"arguments"`
	} `json:"function"`
}

// Tool is a function definition in /api/chat format
type Tool struct {
	Type     string `json:"type"`
	Function struct {
		Name        string         `json:"name"`
		Description string         `json:"description"`
		Parameters  map[string]any `json:"parameters"`
	} `json:"function"`
}

// ChatRequest represents a chat request
type ChatRequest struct {
	Model    string         `json:"model"`
	Messages []ChatMessage  `json:"messages"`
	Tools    []Tool         `json:"tools,omitempty"`
	Stream   bool           `json:"stream"`
	Options  map[string]any `json:"options,omitempty"`
}

// ChatResponse represents a non-streamed chat response
type ChatResponse struct {
	Model     string      `json:"model"`
	CreatedAt string      `json:"created_at"`
	Message   ChatMessage `json:"message"`
	Done      bool        `json:"done"`
}

// Chat sends a non-streaming chat request
func (c *Client) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	req.Stream = false
	var resp ChatResponse
	if err := c.postJSON(ctx, "/api/chat", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) postJSON(ctx context.Context, path string, body, out any) error {
	url := fmt.Sprintf("%s%s", c.baseURL, path)

	jsonData, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("ollama API error: %d - %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// Ensure ChatModel implements the interface.
var _ llm.ChatModel = (*ChatModel)(nil)

// ChatModel adapts the Ollama chat endpoint to llm.ChatModel
type ChatModel struct {
	client *Client
	model  string
}

// NewChatModel creates a chat model. Use ModelSelector to pick model when unset.
func NewChatModel(client *Client, model string) *ChatModel {
	return &ChatModel{client: client, model: model}
}

// Name returns the model name
func (m *ChatModel) Name() string {
	return m.model
}

// Chat implements llm.ChatModel
func (m *ChatModel) Chat(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	body := &ChatRequest{Model: m.model}
	for _, msg := range req.Messages {
		body.Messages = append(body.Messages, ChatMessage{Role: string(msg.Role), Content: msg.Content})
	}
	if req.Temperature != nil {
		body.Options = map[string]any{"temperature": *req.Temperature}
	}
	if llm.OfferTools(req) {
		for _, t := range req.Tools {
			var tool Tool
			tool.Type = "function"
			tool.Function.Name = t.Name
			tool.Function.Description = t.Description
			tool.Function.Parameters = t.Parameters
			body.Tools = append(body.Tools, tool)
		}
	}

	resp, err := m.client.Chat(ctx, body)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errs.ErrModelUnavailable, err)
	}

	out := &llm.ChatResponse{Content: resp.Message.Content}
	for i, tc := range resp.Message.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, llm.ToolCall{
			ID:        fmt.Sprintf("call_%d", i),
			Name:      tc.Function.Name,
			Arguments: llm.NormaliseArguments(tc.Function.Arguments),
		})
	}
	return out, nil
}
