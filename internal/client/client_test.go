package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docchat/docchat/internal/chat"
	"github.com/docchat/docchat/internal/chunker"
	"github.com/docchat/docchat/internal/db/memstore"
	"github.com/docchat/docchat/internal/documents"
	"github.com/docchat/docchat/internal/llm"
	"github.com/docchat/docchat/internal/logger"
	"github.com/docchat/docchat/internal/rag"
	"github.com/docchat/docchat/internal/server"
)

type echoModel struct{}

func (echoModel) Name() string { return "echo" }

func (echoModel) Chat(_ context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	last := req.Messages[len(req.Messages)-1]
	return &llm.ChatResponse{Content: "You said: " + last.Content}, nil
}

type flatEmbedder struct{}

func (flatEmbedder) EmbedDocument(context.Context, string) (pgvector.Vector, error) {
	return pgvector.NewVector([]float32{1}), nil
}

func (flatEmbedder) EmbedChunk(context.Context, string) (pgvector.Vector, error) {
	return pgvector.NewVector([]float32{1}), nil
}

func newClient(t *testing.T) *Client {
	t.Helper()
	store := memstore.New()
	orch := chat.NewOrchestrator(chat.Options{
		Store:    store,
		Model:    echoModel{},
		Detector: rag.NewKeywordDetector(nil),
		Logger:   logger.Discard(),
	})
	proc := documents.NewProcessor(store, flatEmbedder{}, chunker.New(), documents.Options{}, logger.Discard())
	srv := httptest.NewServer(server.New(orch, proc, store, server.Config{}, logger.Discard()).Handler())
	t.Cleanup(srv.Close)
	return New(srv.URL, srv.Client())
}

func TestClient_Conversation(t *testing.T) {
	c := newClient(t)
	ctx := context.Background()

	first, err := c.Complete(ctx, "hello", uuid.Nil)
	require.NoError(t, err)
	assert.Equal(t, "You said: hello", first.Response)
	assert.Equal(t, []string{"You", "said:", "hello"}, first.Words)

	_, err = c.Complete(ctx, "again", first.ConversationID)
	require.NoError(t, err)

	msgs, err := c.Messages(ctx, first.ConversationID)
	require.NoError(t, err)
	require.Len(t, msgs, 4)
	assert.Equal(t, "user", msgs[0].Role)
	assert.Equal(t, "You said: again", msgs[3].Content)

	require.NoError(t, c.DeleteConversation(ctx, first.ConversationID))
	err = c.DeleteConversation(ctx, first.ConversationID)
	assert.ErrorContains(t, err, "404: Conversation not found")
}

func TestClient_Upload(t *testing.T) {
	c := newClient(t)
	path := filepath.Join(t.TempDir(), "notes.md")
	require.NoError(t, os.WriteFile(path, []byte("# Notes\n\nSome content."), 0o644))

	res, err := c.Upload(context.Background(), path)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, 1, res.Chunks)

	docs, err := c.Documents(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "notes.md", docs[0].Title)
	assert.Equal(t, 1, docs[0].ChunkCount)

	bad := filepath.Join(t.TempDir(), "image.png")
	require.NoError(t, os.WriteFile(bad, []byte{1, 2}, 0o644))
	_, err = c.Upload(context.Background(), bad)
	assert.ErrorContains(t, err, "500: Unsupported file type")
}

func TestClient_ServerDown(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	_, err := New(srv.URL, nil).Complete(context.Background(), "hi", uuid.Nil)
	assert.ErrorContains(t, err, "failed to send request")
}
