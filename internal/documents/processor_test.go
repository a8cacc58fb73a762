package documents

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/pgvector/pgvector-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docchat/docchat/internal/chunker"
	"github.com/docchat/docchat/internal/db/memstore"
	"github.com/docchat/docchat/internal/errs"
	"github.com/docchat/docchat/internal/logger"
)

type fakeEmbedder struct {
	calls   atomic.Int32
	failOn  string
	lastDoc string
}

func (f *fakeEmbedder) EmbedDocument(_ context.Context, text string) (pgvector.Vector, error) {
	f.lastDoc = text
	return pgvector.NewVector([]float32{1, 0, 0}), nil
}

func (f *fakeEmbedder) EmbedChunk(_ context.Context, text string) (pgvector.Vector, error) {
	f.calls.Add(1)
	if f.failOn != "" && strings.Contains(text, f.failOn) {
		return pgvector.Vector{}, errors.Join(errs.ErrEmbeddingService, errors.New("timeout"))
	}
	return pgvector.NewVector([]float32{float32(len(text)), 0, 1}), nil
}

func newProcessor(store *memstore.Store, emb Embedder, dedupe bool) *Processor {
	return NewProcessor(store, emb, chunker.New(chunker.WithChunkSize(100), chunker.WithOverlap(20)),
		Options{Concurrency: 2, Deduplicate: dedupe}, logger.Discard())
}

func TestProcessor_Ingest(t *testing.T) {
	store := memstore.New()
	emb := &fakeEmbedder{}
	p := newProcessor(store, emb, true)

	text := strings.Repeat("The quick brown fox jumps over the lazy dog. ", 20)
	res, err := p.Ingest(context.Background(), Input{Title: "fox", Text: text})
	require.NoError(t, err)
	assert.False(t, res.Skipped)
	assert.Greater(t, res.Chunks, 1)
	assert.EqualValues(t, res.Chunks, emb.calls.Load())

	chunks, err := store.ListChunks(context.Background(), res.DocumentID)
	require.NoError(t, err)
	require.Len(t, chunks, res.Chunks)
	for i, c := range chunks {
		assert.Equal(t, i, c.OrderInDoc)
		assert.LessOrEqual(t, len([]rune(c.Content)), 100)
		assert.Contains(t, c.Metadata, "start")
	}

	docs, err := store.ListDocuments(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "fox", docs[0].Title)
}

func TestProcessor_IngestEmptyText(t *testing.T) {
	p := newProcessor(memstore.New(), &fakeEmbedder{}, true)

	_, err := p.Ingest(context.Background(), Input{Title: "blank", Text: " \n\t "})
	assert.ErrorIs(t, err, errs.ErrInvalidInput)
}

func TestProcessor_EmbeddingFailureStoresNothing(t *testing.T) {
	store := memstore.New()
	p := newProcessor(store, &fakeEmbedder{failOn: "poison"}, true)

	text := strings.Repeat("a good sentence here. ", 10) + "poison pill. " + strings.Repeat("more text. ", 10)
	_, err := p.Ingest(context.Background(), Input{Title: "bad", Text: text})
	require.ErrorIs(t, err, errs.ErrEmbeddingService)

	docs, err := store.ListDocuments(context.Background())
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestProcessor_IngestUploadDeduplicates(t *testing.T) {
	store := memstore.New()
	p := newProcessor(store, &fakeEmbedder{}, true)
	data := []byte("Some notes about vectors.")

	first, err := p.IngestUpload(context.Background(), data, "notes.txt", "text/plain")
	require.NoError(t, err)
	second, err := p.IngestUpload(context.Background(), data, "copy.txt", "text/plain")
	require.NoError(t, err)

	assert.True(t, second.Skipped)
	assert.Equal(t, first.DocumentID, second.DocumentID)

	docs, err := store.ListDocuments(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "notes.txt", docs[0].Metadata["filename"])
	assert.Equal(t, hashBytes(data), docs[0].Metadata["sha256"])
}

func TestProcessor_DeduplicationDisabled(t *testing.T) {
	store := memstore.New()
	p := newProcessor(store, &fakeEmbedder{}, false)
	data := []byte("Same bytes twice.")

	_, err := p.IngestUpload(context.Background(), data, "a.txt", "")
	require.NoError(t, err)
	_, err = p.IngestUpload(context.Background(), data, "b.txt", "")
	require.NoError(t, err)

	docs, err := store.ListDocuments(context.Background())
	require.NoError(t, err)
	assert.Len(t, docs, 2)
}

func TestProcessor_DocumentEmbeddingSeesWholeText(t *testing.T) {
	emb := &fakeEmbedder{}
	p := newProcessor(memstore.New(), emb, false)

	_, err := p.Ingest(context.Background(), Input{Title: "t", Text: "  body  "})
	require.NoError(t, err)
	assert.Equal(t, "body", emb.lastDoc)
}

func TestProcessor_IngestFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "guide.md")
	require.NoError(t, os.WriteFile(path, []byte("# Guide\n\nInstall the tool."), 0o644))

	store := memstore.New()
	res, err := newProcessor(store, &fakeEmbedder{}, true).IngestFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Chunks)

	docs, err := store.ListDocuments(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "guide.md", docs[0].Title)
	assert.Equal(t, "text/markdown", docs[0].Metadata["mime_type"])
}

func TestProcessor_IngestFileUnsupported(t *testing.T) {
	path := filepath.Join(t.TempDir(), "photo.png")
	require.NoError(t, os.WriteFile(path, []byte{1, 2, 3}, 0o644))

	_, err := newProcessor(memstore.New(), &fakeEmbedder{}, true).IngestFile(context.Background(), path)
	assert.ErrorIs(t, err, errs.ErrUnsupportedFileType)
}
