package embed

import (
	"context"

	"github.com/kailas-cloud/ragdex/internal/domain"
	"github.com/kailas-cloud/ragdex/internal/repository/stream"
)

// Store defines the artifact storage contract for the embedding stage.
type Store interface {
	LoadSlices(t domain.SourceType) ([]domain.Slice, stream.Stats, error)
	SaveVectors(t domain.SourceType, vectors []domain.VectorRecord) error
}

// Embedder vectorizes text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}
