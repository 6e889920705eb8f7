// Package llm provides the OpenAI-compatible embeddings client used to
// vectorize free-text search queries.
package llm

import "context"

// EmbeddingClient defines the embedding surface consumed by search.
// Use this interface for dependency injection to enable mocking in tests.
type EmbeddingClient interface {
	// CreateEmbedding generates an embedding vector for the input text.
	CreateEmbedding(ctx context.Context, input string) ([]float32, error)
}

// Ensure Client implements EmbeddingClient at compile time.
var _ EmbeddingClient = (*Client)(nil)
