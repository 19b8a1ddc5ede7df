package domain

import "context"

// Embedder is the shared text vectorization contract between layers.
// Implementations must be deterministic for identical input text; the
// pipeline's regression testing depends on a stable text-to-vector mapping.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// EmbeddingResult carries the vector and token usage through the decorator chain.
// Local embedders report zero token usage.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}
