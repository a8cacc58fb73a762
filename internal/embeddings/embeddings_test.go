package embeddings

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/pgvector/pgvector-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docchat/docchat/internal/errs"
	"github.com/docchat/docchat/internal/openai"
)

// MockProvider records inputs and returns EmbedFunc's result.
type MockProvider struct {
	EmbedFunc func(ctx context.Context, text string) (pgvector.Vector, error)
	Inputs    []string
}

func (m *MockProvider) Embed(ctx context.Context, text string) (pgvector.Vector, error) {
	m.Inputs = append(m.Inputs, text)
	return m.EmbedFunc(ctx, text)
}

func fixed(v ...float32) func(context.Context, string) (pgvector.Vector, error) {
	return func(context.Context, string) (pgvector.Vector, error) { return pgvector.NewVector(v), nil }
}

func TestService_EmbedDocumentUsesPrefix(t *testing.T) {
	p := &MockProvider{EmbedFunc: fixed(1, 2, 3)}
	s := NewService(p, 3, 10)

	_, err := s.EmbedDocument(context.Background(), strings.Repeat("é", 25))
	require.NoError(t, err)
	require.Len(t, p.Inputs, 1)
	assert.Equal(t, strings.Repeat("é", 10), p.Inputs[0])
}

func TestService_EmbedChunkIsNotTruncated(t *testing.T) {
	p := &MockProvider{EmbedFunc: fixed(1, 2, 3)}
	s := NewService(p, 3, 10)

	text := strings.Repeat("x", 50)
	_, err := s.EmbedChunk(context.Background(), text)
	require.NoError(t, err)
	assert.Equal(t, text, p.Inputs[0])
}

func TestService_DimensionMismatch(t *testing.T) {
	s := NewService(&MockProvider{EmbedFunc: fixed(1, 2)}, 3, 0)

	_, err := s.EmbedQuery(context.Background(), "q")
	assert.ErrorIs(t, err, errs.ErrEmbeddingService)
	assert.Contains(t, err.Error(), "got 2 dimensions, want 3")
}

func TestService_ProviderFailureWrapped(t *testing.T) {
	boom := errors.New("connection refused")
	s := NewService(&MockProvider{EmbedFunc: func(context.Context, string) (pgvector.Vector, error) {
		return pgvector.Vector{}, boom
	}}, 3, 0)

	_, err := s.EmbedChunk(context.Background(), "c")
	assert.ErrorIs(t, err, errs.ErrEmbeddingService)
	assert.ErrorIs(t, err, boom)
}

func TestPrefix(t *testing.T) {
	assert.Equal(t, "abc", Prefix("abcdef", 3))
	assert.Equal(t, "ab", Prefix("ab", 3))
	assert.Equal(t, "日本", Prefix("日本語", 2))
	assert.Equal(t, "all", Prefix("all", 0))
}

func TestTextEmbedder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/embeddings", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "nomic-embed-text", body["model"])
		assert.Equal(t, "hello", body["prompt"])
		_, _ = w.Write([]byte(`{"embedding":[0.5,0.25]}`))
	}))
	defer srv.Close()

	vec, err := NewTextEmbedder(srv.URL, "", srv.Client()).Embed(context.Background(), "  hello ")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5, 0.25}, vec.Slice())
}

func TestTextEmbedder_EmptyText(t *testing.T) {
	_, err := NewTextEmbedder("http://127.0.0.1:1", "", nil).Embed(context.Background(), "   ")
	assert.Error(t, err)
}

func TestOpenAIEmbedder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)
		_, _ = w.Write([]byte(`{"data":[{"index":0,"embedding":[1,0,0]}]}`))
	}))
	defer srv.Close()

	client := openai.NewClient(openai.Config{APIKey: "sk", BaseURL: srv.URL})
	s := NewService(NewOpenAIEmbedder(client, "", 3), 3, 0)

	vec, err := s.EmbedQuery(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 0, 0}, vec.Slice())
}
