package rag

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/pgvector/pgvector-go"

	"github.com/docchat/docchat/internal/db"
)

// DefaultTopK is how many chunks a query retrieves
const DefaultTopK = 3

// Store finds the chunks nearest to a vector
type Store interface {
	NearestChunks(ctx context.Context, embedding pgvector.Vector, limit int) ([]db.ChunkMatch, error)
}

// QueryEmbedder embeds search queries
type QueryEmbedder interface {
	EmbedQuery(ctx context.Context, text string) (pgvector.Vector, error)
}

// Retriever handles RAG retrieval using vector similarity search
type Retriever struct {
	store    Store
	embedder QueryEmbedder
	topK     int
	logger   *log.Logger
}

// NewRetriever creates a new RAG retriever
func NewRetriever(store Store, embedder QueryEmbedder, topK int, logger *log.Logger) *Retriever {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &Retriever{
		store:    store,
		embedder: embedder,
		topK:     topK,
		logger:   logger,
	}
}

// Retrieve finds the chunks closest to query, nearest first
func (r *Retriever) Retrieve(ctx context.Context, query string) ([]db.ChunkMatch, error) {
	vec, err := r.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to generate query embedding: %w", err)
	}

	matches, err := r.store.NearestChunks(ctx, vec, r.topK)
	if err != nil {
		return nil, fmt.Errorf("failed to search chunks: %w", err)
	}

	r.logger.Debug("retrieved chunks", "count", len(matches), "ids", ChunkIDs(matches))
	return matches, nil
}

// QueryDocuments returns the retrieved chunk contents joined by blank lines.
// An empty store yields NoRelevantContent rather than an error.
func (r *Retriever) QueryDocuments(ctx context.Context, query string) (string, error) {
	matches, err := r.Retrieve(ctx, query)
	if err != nil {
		return "", err
	}
	return BuildContext(matches), nil
}
