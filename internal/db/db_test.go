package db

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docchat/docchat/internal/errs"
)

const testDimensions = 3

func TestMigrations_RenderDimension(t *testing.T) {
	migrations, err := Migrations(768)
	require.NoError(t, err)
	require.NotEmpty(t, migrations)

	assert.Equal(t, "001_init", migrations[0].Version)
	assert.Contains(t, migrations[0].SQL, "vector(768)")
	assert.NotContains(t, migrations[0].SQL, "{{")
	assert.Contains(t, migrations[0].SQL, "vector_l2_ops")
	assert.Contains(t, migrations[0].SQL, "ON DELETE CASCADE")
}

func TestMigrations_RejectsBadDimension(t *testing.T) {
	_, err := Migrations(0)
	assert.Error(t, err)
}

// openTestDB connects to DOCCHAT_TEST_DATABASE_URL. The database must be
// disposable and migrated with testDimensions: tables are truncated.
func openTestDB(t *testing.T) *DB {
	t.Helper()
	url := os.Getenv("DOCCHAT_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("DOCCHAT_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()

	_, err := Migrate(ctx, url, testDimensions)
	require.NoError(t, err)

	d, err := New(ctx, url, 4)
	require.NoError(t, err)
	t.Cleanup(d.Close)

	_, err = d.Pool().Exec(ctx, `TRUNCATE "Message", "Conversation", "DocumentChunk", "Document"`)
	require.NoError(t, err)
	return d
}

func TestPostgres_ChunkRoundTrip(t *testing.T) {
	d := openTestDB(t)
	ctx := context.Background()

	docID, err := d.InsertDocument(ctx, "notes.txt", pgvector.NewVector([]float32{1, 0, 0}), map[string]any{"sha256": "feed"})
	require.NoError(t, err)

	require.NoError(t, d.InsertChunksBatch(ctx, []*Chunk{
		{DocumentID: docID, Content: "alpha", Embedding: pgvector.NewVector([]float32{1, 0, 0}), OrderInDoc: 0},
		{DocumentID: docID, Content: "beta", Embedding: pgvector.NewVector([]float32{0, 1, 0}), Section: "Intro", Page: 2, OrderInDoc: 1},
	}))

	matches, err := d.NearestChunks(ctx, pgvector.NewVector([]float32{0, 1, 0}), 1)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "beta", matches[0].Content)
	assert.Equal(t, "Intro", matches[0].Section)
	assert.Equal(t, 2, matches[0].Page)
	assert.InDelta(t, 0, matches[0].Distance, 1e-9)

	found, err := d.FindDocumentByHash(ctx, "feed")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, docID, found.ID)

	docs, err := d.ListDocuments(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, 2, docs[0].ChunkCount)

	require.NoError(t, d.DeleteDocument(ctx, docID))
	chunks, err := d.ListChunks(ctx, docID)
	require.NoError(t, err)
	assert.Empty(t, chunks)
	assert.ErrorIs(t, d.DeleteDocument(ctx, docID), errs.ErrDocumentNotFound)
}

func TestPostgres_ConversationLifecycle(t *testing.T) {
	d := openTestDB(t)
	ctx := context.Background()

	conv, err := d.CreateConversation(ctx)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		_, err := d.InsertMessagePair(ctx, conv.ID, "q", "a")
		require.NoError(t, err)
	}
	pair, err := d.InsertMessagePair(ctx, conv.ID, "last q", "last a")
	require.NoError(t, err)
	assert.True(t, pair[1].CreatedAt.After(pair[0].CreatedAt))

	msgs, err := d.ListMessages(ctx, conv.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 6)
	assert.Equal(t, "last a", msgs[5].Content)

	require.NoError(t, d.DeleteConversation(ctx, conv.ID))
	_, err = d.GetConversation(ctx, conv.ID)
	assert.ErrorIs(t, err, errs.ErrConversationNotFound)

	_, err = d.InsertMessagePair(ctx, uuid.New(), "q", "a")
	assert.ErrorIs(t, err, errs.ErrConversationNotFound)
}
