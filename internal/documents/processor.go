package documents

import (
	"context"
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"golang.org/x/sync/errgroup"

	"github.com/docchat/docchat/internal/chunker"
	"github.com/docchat/docchat/internal/db"
	"github.com/docchat/docchat/internal/errs"
)

// Store is the part of the document store ingestion writes to
type Store interface {
	FindDocumentByHash(ctx context.Context, hash string) (*db.Document, error)
	InsertDocument(ctx context.Context, title string, embedding pgvector.Vector, metadata map[string]any) (uuid.UUID, error)
	InsertChunksBatch(ctx context.Context, chunks []*db.Chunk) error
}

// Embedder produces document and chunk vectors
type Embedder interface {
	EmbedDocument(ctx context.Context, text string) (pgvector.Vector, error)
	EmbedChunk(ctx context.Context, text string) (pgvector.Vector, error)
}

// Input is a document ready for ingestion
type Input struct {
	Title    string
	Text     string
	Metadata map[string]any
}

// Result reports what ingestion stored
type Result struct {
	DocumentID uuid.UUID `json:"documentId"`
	Chunks     int       `json:"chunks"`
	Skipped    bool      `json:"skipped"`
}

// Options tunes a Processor
type Options struct {
	Concurrency int
	Deduplicate bool
}

// Processor turns text into a stored document with embedded chunks
type Processor struct {
	store       Store
	embedder    Embedder
	splitter    *chunker.Splitter
	concurrency int
	dedupe      bool
	logger      *log.Logger
}

// NewProcessor creates a new document processor
func NewProcessor(store Store, embedder Embedder, splitter *chunker.Splitter, opts Options, logger *log.Logger) *Processor {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	return &Processor{
		store:       store,
		embedder:    embedder,
		splitter:    splitter,
		concurrency: opts.Concurrency,
		dedupe:      opts.Deduplicate,
		logger:      logger,
	}
}

// Ingest splits, embeds and stores a document. Every chunk is embedded
// before anything is written, so an embedding failure leaves no rows behind.
// Chunks are stored with orderInDoc 0..n-1 in splitter order.
func (p *Processor) Ingest(ctx context.Context, in Input) (*Result, error) {
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return nil, fmt.Errorf("%w: document has no text", errs.ErrInvalidInput)
	}

	if hash, ok := in.Metadata["sha256"].(string); ok && p.dedupe {
		existing, err := p.store.FindDocumentByHash(ctx, hash)
		if err != nil {
			return nil, fmt.Errorf("failed to check existing document: %w", err)
		}
		if existing != nil {
			p.logger.Info("document already ingested", "title", in.Title, "document_id", existing.ID)
			return &Result{DocumentID: existing.ID, Skipped: true}, nil
		}
	}

	chunks := p.splitter.Split(text)

	docVec, err := p.embedder.EmbedDocument(ctx, text)
	if err != nil {
		return nil, err
	}

	rows, err := p.embedChunks(ctx, chunks)
	if err != nil {
		return nil, err
	}

	docID, err := p.store.InsertDocument(ctx, in.Title, docVec, in.Metadata)
	if err != nil {
		return nil, fmt.Errorf("failed to create document record: %w", err)
	}
	for _, r := range rows {
		r.DocumentID = docID
	}

	if err := p.store.InsertChunksBatch(ctx, rows); err != nil {
		return nil, fmt.Errorf("failed to store chunks: %w", err)
	}

	p.logger.Info("document ingested", "title", in.Title, "document_id", docID, "chunks", len(rows))
	return &Result{DocumentID: docID, Chunks: len(rows)}, nil
}

// embedChunks embeds chunks with bounded concurrency. The first failure
// cancels the rest.
func (p *Processor) embedChunks(ctx context.Context, chunks []chunker.Chunk) ([]*db.Chunk, error) {
	rows := make([]*db.Chunk, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)
	for i, c := range chunks {
		g.Go(func() error {
			vec, err := p.embedder.EmbedChunk(gctx, c.Content)
			if err != nil {
				return fmt.Errorf("chunk %d: %w", i, err)
			}
			rows[i] = &db.Chunk{
				ID:         uuid.New(),
				Content:    c.Content,
				Embedding:  vec,
				Section:    c.Heading,
				Page:       c.Page,
				OrderInDoc: c.Index,
				Metadata:   map[string]any{"start": c.Start, "end": c.End},
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return rows, nil
}

// IngestUpload extracts text from an uploaded file and ingests it
func (p *Processor) IngestUpload(ctx context.Context, data []byte, filename, mimeType string) (*Result, error) {
	text, err := Extract(data, filename, mimeType)
	if err != nil {
		return nil, err
	}

	title := filepath.Base(filename)
	return p.Ingest(ctx, Input{
		Title: title,
		Text:  text,
		Metadata: map[string]any{
			"filename":  title,
			"mime_type": mimeType,
			"size":      len(data),
			"sha256":    hashBytes(data),
			"title":     title,
		},
	})
}

// IngestFile ingests a file from disk, deriving the MIME type from its extension
func (p *Processor) IngestFile(ctx context.Context, path string) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return p.IngestUpload(ctx, data, path, MIMEType(path))
}

func hashBytes(data []byte) string {
	return fmt.Sprintf("%x", sha256.Sum256(data))
}
