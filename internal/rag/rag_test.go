package rag

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docchat/docchat/internal/db"
	"github.com/docchat/docchat/internal/db/memstore"
	"github.com/docchat/docchat/internal/logger"
)

type vectorMap map[string][]float32

func (m vectorMap) EmbedQuery(_ context.Context, text string) (pgvector.Vector, error) {
	v, ok := m[text]
	if !ok {
		return pgvector.Vector{}, errors.New("embedding service down")
	}
	return pgvector.NewVector(v), nil
}

func seed(t *testing.T, store *memstore.Store, contents map[string][]float32, order []string) {
	t.Helper()
	ctx := context.Background()
	docID, err := store.InsertDocument(ctx, "doc", pgvector.NewVector([]float32{0, 0, 0}), nil)
	require.NoError(t, err)
	for i, c := range order {
		_, err := store.InsertChunk(ctx, &db.Chunk{
			DocumentID: docID,
			Content:    c,
			Embedding:  pgvector.NewVector(contents[c]),
			OrderInDoc: i,
		})
		require.NoError(t, err)
	}
}

func TestRetriever_QueryDocumentsOrdersByDistance(t *testing.T) {
	store := memstore.New()
	seed(t, store, map[string][]float32{
		"far":     {10, 0, 0},
		"nearest": {1, 0, 0},
		"middle":  {3, 0, 0},
		"near":    {2, 0, 0},
	}, []string{"far", "nearest", "middle", "near"})

	r := NewRetriever(store, vectorMap{"q": {0, 0, 0}}, 0, logger.Discard())
	text, err := r.QueryDocuments(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, "nearest\n\nnear\n\nmiddle", text)
}

func TestRetriever_EmptyStore(t *testing.T) {
	r := NewRetriever(memstore.New(), vectorMap{"q": {1, 1, 1}}, 3, logger.Discard())

	text, err := r.QueryDocuments(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, NoRelevantContent, text)
}

func TestRetriever_EmbeddingFailure(t *testing.T) {
	r := NewRetriever(memstore.New(), vectorMap{}, 3, logger.Discard())

	_, err := r.QueryDocuments(context.Background(), "unknown")
	assert.ErrorContains(t, err, "failed to generate query embedding")
}

func TestKeywordDetector(t *testing.T) {
	d := NewKeywordDetector(nil)

	assert.True(t, d.WantsDocumentContext("Summarise the DOCUMENT please"))
	assert.True(t, d.WantsDocumentContext("what does the text say"))
	assert.True(t, d.WantsDocumentContext("contents?"))
	assert.False(t, d.WantsDocumentContext("what time is it in Tokyo"))

	custom := NewKeywordDetector([]string{" Manual ", ""})
	assert.True(t, custom.WantsDocumentContext("check the manual"))
	assert.False(t, custom.WantsDocumentContext("check the document"))
}

func TestBuildContextAndIDs(t *testing.T) {
	id := uuid.New()
	matches := []db.ChunkMatch{{ID: id, Content: "a"}, {Content: "b"}}

	assert.Equal(t, "a\n\nb", BuildContext(matches))
	assert.Equal(t, "Relevant document content: a", ContextMessage("a"))
	assert.Equal(t, id.String(), ChunkIDs(matches)[0])
}
