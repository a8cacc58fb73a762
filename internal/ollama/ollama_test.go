package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docchat/docchat/internal/errs"
	"github.com/docchat/docchat/internal/llm"
)

func TestChatModel_ToolCall(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)

		var req ChatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.False(t, req.Stream)
		assert.Equal(t, "llama3.1", req.Model)
		require.Len(t, req.Tools, 1)
		assert.Equal(t, "get_time_in_timezone", req.Tools[0].Function.Name)

		_, _ = w.Write([]byte(`{"model":"llama3.1","message":{"role":"assistant","content":"",
			"tool_calls":[{"function":{"name":"get_time_in_timezone","arguments":{"timezone":"Asia/Tokyo"}}}]},"done":true}`))
	}))
	defer srv.Close()

	m := NewChatModel(NewClient(srv.URL, srv.Client()), "llama3.1")
	resp, err := m.Chat(context.Background(), llm.ChatRequest{
		Messages:   []llm.Message{{Role: llm.RoleUser, Content: "time in tokyo?"}},
		Tools:      []llm.Tool{{Name: "get_time_in_timezone"}},
		ToolChoice: llm.ToolChoiceAuto,
	})
	require.NoError(t, err)
	require.Len(t, resp.ToolCalls, 1)
	assert.Equal(t, "get_time_in_timezone", resp.ToolCalls[0].Name)
	assert.JSONEq(t, `{"timezone":"Asia/Tokyo"}`, string(resp.ToolCalls[0].Arguments))
}

func TestChatModel_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	m := NewChatModel(NewClient(srv.URL, srv.Client()), "missing")
	_, err := m.Chat(context.Background(), llm.ChatRequest{})
	assert.ErrorIs(t, err, errs.ErrModelUnavailable)
}

func TestChatModel_ZeroTemperatureIsSent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		opts, ok := body["options"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, 0.0, opts["temperature"])
		_, _ = w.Write([]byte(`{"model":"llama3.1","message":{"role":"assistant","content":"ok"},"done":true}`))
	}))
	defer srv.Close()

	temp := 0.0
	m := NewChatModel(NewClient(srv.URL, srv.Client()), "llama3.1")
	resp, err := m.Chat(context.Background(), llm.ChatRequest{Temperature: &temp})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Content)
}

func tagsServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/tags", r.URL.Path)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestModelSelector_PrefersToolFamilies(t *testing.T) {
	srv := tagsServer(t, `{"models":[
		{"name":"nomic-embed-text:latest","size":999999999},
		{"name":"phi3:latest","size":2000},
		{"name":"qwen2.5:7b","size":1000}
	]}`)

	ms := NewModelSelector(NewClient(srv.URL, srv.Client()))
	name, err := ms.SelectChatModel(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "qwen2.5:7b", name)
}

func TestModelSelector_FallsBackToLargest(t *testing.T) {
	srv := tagsServer(t, `{"models":[{"name":"phi3:latest","size":2000},{"name":"gemma:2b","size":5000}]}`)

	ms := NewModelSelector(NewClient(srv.URL, srv.Client()))
	name, err := ms.Resolve(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "gemma:2b", name)
}

func TestModelSelector_ResolvePreferred(t *testing.T) {
	srv := tagsServer(t, `{"models":[{"name":"llama3.1:latest","size":1},{"name":"mistral:latest","size":2}]}`)

	ms := NewModelSelector(NewClient(srv.URL, srv.Client()))
	name, err := ms.Resolve(context.Background(), "mistral")
	require.NoError(t, err)
	assert.Equal(t, "mistral:latest", name)
}

func TestModelSelector_OnlyEmbeddingModels(t *testing.T) {
	srv := tagsServer(t, `{"models":[{"name":"nomic-embed-text:latest","size":1}]}`)

	_, err := NewModelSelector(NewClient(srv.URL, srv.Client())).SelectChatModel(context.Background())
	assert.Error(t, err)
}
