package inference

import (
	"context"
	"fmt"
)

// EmbeddingClient talks to the CLIP embedding service.
type EmbeddingClient struct {
	httpClient
	modelPath string
}

// NewEmbeddingClient creates an embedding service client. modelPath points
// the service at the CLIP weights to load.
func NewEmbeddingClient(baseURL, modelPath string) *EmbeddingClient {
	return &EmbeddingClient{
		httpClient: newHTTPClient(baseURL, DefaultEmbeddingURL),
		modelPath:  modelPath,
	}
}

type imageEmbeddingsRequest struct {
	Imgs  []string `json:"imgs"`
	Model string   `json:"model"`
}

type imageEmbeddingsResponse struct {
	ImgsEmb    [][]float32 `json:"imgs_emb"`
	Magnitudes []float64   `json:"magnitudes"`
}

// ImageEmbeddings computes a 512-float vector and its L2 magnitude for
// every image path in order.
func (c *EmbeddingClient) ImageEmbeddings(ctx context.Context, paths []string) ([][]float32, []float64, error) {
	var resp imageEmbeddingsResponse
	err := c.postJSON(ctx, "/clip-embeddings", imageEmbeddingsRequest{Imgs: paths, Model: c.modelPath}, &resp)
	if err != nil {
		return nil, nil, fmt.Errorf("clip embeddings: %w", err)
	}
	if len(resp.ImgsEmb) != len(paths) || len(resp.Magnitudes) != len(paths) {
		return nil, nil, fmt.Errorf("clip embeddings: got %d vectors and %d magnitudes for %d paths",
			len(resp.ImgsEmb), len(resp.Magnitudes), len(paths))
	}
	return resp.ImgsEmb, resp.Magnitudes, nil
}

type queryEmbeddingRequest struct {
	Query string `json:"query"`
	Model string `json:"model"`
}

type queryEmbeddingResponse struct {
	Emb       []float32 `json:"emb"`
	Magnitude float64   `json:"magnitude"`
}

// QueryEmbedding computes the embedding of a free-text search query.
func (c *EmbeddingClient) QueryEmbedding(ctx context.Context, query string) ([]float32, float64, error) {
	var resp queryEmbeddingResponse
	err := c.postJSON(ctx, "/query-embeddings", queryEmbeddingRequest{Query: query, Model: c.modelPath}, &resp)
	if err != nil {
		return nil, 0, fmt.Errorf("query embedding: %w", err)
	}
	return resp.Emb, resp.Magnitude, nil
}
