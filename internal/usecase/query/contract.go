package query

import (
	"context"

	"github.com/kailas-cloud/ragdex/internal/domain"
	"github.com/kailas-cloud/ragdex/internal/domain/search/request"
	"github.com/kailas-cloud/ragdex/internal/domain/search/result"
)

// Searcher ranks vector records against a query embedding.
type Searcher interface {
	Search(vector []float32, req *request.Request) ([]result.Result, error)
	Dimensions() int
}

// Embedder vectorizes text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// SliceReader resolves slice identifiers back to their stored content.
type SliceReader interface {
	Get(id string) (domain.Slice, bool)
}

// Normalizer canonicalizes query text and estimates token counts.
type Normalizer interface {
	Normalize(text string) string
	EstimateTokens(text string) int
	TokenDivisor() int
}
