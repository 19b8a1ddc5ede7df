package embedding

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ragdex/internal/domain"
)

// InstrumentedEmbedder wraps an Embedder with debug logging. Transport
// metrics are recorded by the provider itself; this layer only observes.
type InstrumentedEmbedder struct {
	inner    domain.Embedder
	provider string
	logger   *zap.Logger
}

// NewInstrumented wraps an embedder with observability.
func NewInstrumented(inner domain.Embedder, provider string, logger *zap.Logger) *InstrumentedEmbedder {
	return &InstrumentedEmbedder{inner: inner, provider: provider, logger: logger}
}

// Embed delegates to the inner embedder and logs the outcome.
func (p *InstrumentedEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	start := time.Now()
	result, err := p.inner.Embed(ctx, text)
	duration := time.Since(start)

	if err != nil {
		p.logger.Error("Embedding request failed",
			zap.String("provider", p.provider),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return domain.EmbeddingResult{}, fmt.Errorf("embed: %w", err)
	}

	p.logger.Debug("Embedding request completed",
		zap.String("provider", p.provider),
		zap.Duration("duration", duration),
		zap.Int("dimensions", len(result.Embedding)),
		zap.Int("total_tokens", result.TotalTokens),
	)

	return result, nil
}
