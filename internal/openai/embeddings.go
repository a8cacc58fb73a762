package openai

import (
	"context"
	"fmt"
)

type embeddingRequest struct {
	Model      string   `json:"model"`
	Input      []string `json:"input"`
	Dimensions int      `json:"dimensions,omitempty"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
}

// Embed returns one embedding per input, in input order. dimensions is
// forwarded only for the text-embedding-3 family.
func (c *Client) Embed(ctx context.Context, model string, input []string, dimensions int) ([][]float32, error) {
	if len(input) == 0 {
		return nil, nil
	}
	if model == "" {
		model = DefaultEmbeddingModel
	}

	body := embeddingRequest{Model: model, Input: input}
	if model == "text-embedding-3-small" || model == "text-embedding-3-large" {
		body.Dimensions = dimensions
	}

	var resp embeddingResponse
	if err := c.post(ctx, "/embeddings", body, &resp); err != nil {
		return nil, err
	}

	out := make([][]float32, len(input))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(out) {
			return nil, fmt.Errorf("openai: embedding index %d out of range", d.Index)
		}
		v := make([]float32, len(d.Embedding))
		for i, f := range d.Embedding {
			v[i] = float32(f)
		}
		out[d.Index] = v
	}
	for i, v := range out {
		if len(v) == 0 {
			return nil, fmt.Errorf("openai: no embedding returned for input %d", i)
		}
	}
	return out, nil
}
