package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
)

// ModelInfo represents information about an Ollama model
type ModelInfo struct {
	Name       string `json:"name"`
	Size       int64  `json:"size"`
	ModifiedAt string `json:"modified_at"`
}

// ListModelsResponse represents the response from listing models
type ListModelsResponse struct {
	Models []ModelInfo `json:"models"`
}

// toolModels are families that support tool calling, best first
var toolModels = []string{
	"llama3.2",
	"llama3.1",
	"qwen2.5",
	"mistral-nemo",
	"mistral",
	"command-r",
}

// ModelSelector handles model selection logic
type ModelSelector struct {
	client *Client
}

// NewModelSelector creates a new model selector
func NewModelSelector(client *Client) *ModelSelector {
	return &ModelSelector{client: client}
}

// ListModels lists all locally available models
func (ms *ModelSelector) ListModels(ctx context.Context) ([]ModelInfo, error) {
	url := fmt.Sprintf("%s/api/tags", ms.client.baseURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := ms.client.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("ollama API error: %d - %s", resp.StatusCode, string(body))
	}

	var result ListModelsResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return result.Models, nil
}

// SelectChatModel picks a tool-capable chat model, skipping embedding models.
// Without a known family it falls back to the largest model.
func (ms *ModelSelector) SelectChatModel(ctx context.Context) (string, error) {
	models, err := ms.ListModels(ctx)
	if err != nil {
		return "", err
	}

	var chat []ModelInfo
	for _, m := range models {
		if !strings.Contains(strings.ToLower(m.Name), "embed") {
			chat = append(chat, m)
		}
	}
	if len(chat) == 0 {
		return "", fmt.Errorf("no chat models available")
	}

	for _, family := range toolModels {
		for _, m := range chat {
			if strings.Contains(strings.ToLower(m.Name), family) {
				return m.Name, nil
			}
		}
	}

	sort.Slice(chat, func(i, j int) bool {
		return chat[i].Size > chat[j].Size
	})
	return chat[0].Name, nil
}

// Resolve returns preferred if it is installed, otherwise SelectChatModel's pick
func (ms *ModelSelector) Resolve(ctx context.Context, preferred string) (string, error) {
	if preferred != "" {
		models, err := ms.ListModels(ctx)
		if err != nil {
			return "", err
		}
		for _, m := range models {
			if m.Name == preferred || strings.TrimSuffix(m.Name, ":latest") == preferred {
				return m.Name, nil
			}
		}
	}

	return ms.SelectChatModel(ctx)
}
