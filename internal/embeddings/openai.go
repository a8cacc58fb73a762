package embeddings

import (
	"context"

	"github.com/pgvector/pgvector-go"

	"github.com/docchat/docchat/internal/openai"
)

// Ensure OpenAIEmbedder implements the interface.
var _ Provider = (*OpenAIEmbedder)(nil)

// OpenAIEmbedder generates embeddings with the OpenAI embeddings endpoint
type OpenAIEmbedder struct {
	client     *openai.Client
	model      string
	dimensions int
}

// NewOpenAIEmbedder creates an embedder; dimensions is requested from models that accept it
func NewOpenAIEmbedder(client *openai.Client, model string, dimensions int) *OpenAIEmbedder {
	if model == "" {
		model = openai.DefaultEmbeddingModel
	}
	return &OpenAIEmbedder{client: client, model: model, dimensions: dimensions}
}

// Embed generates an embedding for the given text
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) (pgvector.Vector, error) {
	vecs, err := e.client.Embed(ctx, e.model, []string{text}, e.dimensions)
	if err != nil {
		return pgvector.Vector{}, err
	}
	return pgvector.NewVector(vecs[0]), nil
}
