// Package embeddings maps text to fixed-dimension vectors through a remote
// embedding model.
package embeddings

import (
	"context"
	"fmt"

	"github.com/pgvector/pgvector-go"

	"github.com/docchat/docchat/internal/errs"
)

// DefaultDocumentPrefix is how many characters of a document are embedded
// for its document-level vector.
const DefaultDocumentPrefix = 2000

// Provider is a remote embedding model
type Provider interface {
	Embed(ctx context.Context, text string) (pgvector.Vector, error)
}

// Service validates provider output and applies the document prefix rule.
// Every failure it returns wraps errs.ErrEmbeddingService.
type Service struct {
	provider   Provider
	dimensions int
	prefix     int
}

// NewService wraps provider. dimensions <= 0 disables the length check.
func NewService(provider Provider, dimensions, prefixChars int) *Service {
	if prefixChars <= 0 {
		prefixChars = DefaultDocumentPrefix
	}
	return &Service{provider: provider, dimensions: dimensions, prefix: prefixChars}
}

// Dimensions is the expected vector length
func (s *Service) Dimensions() int {
	return s.dimensions
}

// EmbedQuery embeds a search query
func (s *Service) EmbedQuery(ctx context.Context, text string) (pgvector.Vector, error) {
	return s.embed(ctx, "query", text)
}

// EmbedDocument embeds at most the first prefix characters of a document.
// The vector represents that prefix, not the whole text.
func (s *Service) EmbedDocument(ctx context.Context, text string) (pgvector.Vector, error) {
	return s.embed(ctx, "document", Prefix(text, s.prefix))
}

// EmbedChunk embeds a chunk in full
func (s *Service) EmbedChunk(ctx context.Context, text string) (pgvector.Vector, error) {
	return s.embed(ctx, "chunk", text)
}

func (s *Service) embed(ctx context.Context, what, text string) (pgvector.Vector, error) {
	vec, err := s.provider.Embed(ctx, text)
	if err != nil {
		return pgvector.Vector{}, fmt.Errorf("%w: embed %s: %w", errs.ErrEmbeddingService, what, err)
	}
	if n := len(vec.Slice()); s.dimensions > 0 && n != s.dimensions {
		return pgvector.Vector{}, fmt.Errorf("%w: embed %s: got %d dimensions, want %d",
			errs.ErrEmbeddingService, what, n, s.dimensions)
	}
	return vec, nil
}

// Prefix returns the first n runes of text
func Prefix(text string, n int) string {
	if n <= 0 {
		return text
	}
	count := 0
	for i := range text {
		if count == n {
			return text[:i]
		}
		count++
	}
	return text
}
