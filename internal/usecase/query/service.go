// Package query answers retrieval requests: it normalizes the question,
// embeds it with the same embedder as the corpus, ranks the index and
// optionally assembles a token-bounded context from the hits.
package query

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ragdex/internal/domain"
	"github.com/kailas-cloud/ragdex/internal/domain/search/request"
	"github.com/kailas-cloud/ragdex/internal/domain/search/result"
	"github.com/kailas-cloud/ragdex/internal/logger"
)

// Service handles retrieval and context assembly.
type Service struct {
	norm     Normalizer
	embedder Embedder
	searcher Searcher
	slices   SliceReader

	minPartTokens int
}

// New creates a query service. minPartTokens is the smallest truncated slice
// fragment worth including in an assembled context.
func New(norm Normalizer, embedder Embedder, searcher Searcher, slices SliceReader, minPartTokens int) *Service {
	return &Service{
		norm:          norm,
		embedder:      embedder,
		searcher:      searcher,
		slices:        slices,
		minPartTokens: minPartTokens,
	}
}

// Retrieve embeds the query and returns the ranked, filtered hits.
// The query text runs through the same normalization as the corpus, so
// punctuation and whitespace quirks never skew the embedding.
func (s *Service) Retrieve(ctx context.Context, req *request.Request) ([]result.Result, error) {
	normalized := s.norm.Normalize(req.Query())
	if normalized == "" {
		return nil, fmt.Errorf("%w: query is empty after normalization", domain.ErrInvalidQuery)
	}

	emb, err := s.embedder.Embed(ctx, normalized)
	if err != nil {
		return nil, fmt.Errorf("vectorize query: %w", err)
	}
	if len(emb.Embedding) != s.searcher.Dimensions() {
		return nil, fmt.Errorf("%w: query embedder produced %d dims, index holds %d",
			domain.ErrVectorDimMismatch, len(emb.Embedding), s.searcher.Dimensions())
	}

	hits, err := s.searcher.Search(emb.Embedding, req)
	if err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}

	logger.FromContext(ctx).Debug("Retrieved",
		zap.String("query", req.Query()),
		zap.Int("k", req.K()),
		zap.Int("hits", len(hits)))

	return hits, nil
}

// Context is a token-bounded context assembled from ranked hits.
type Context struct {
	Parts       []ContextPart `json:"parts"`
	TotalTokens int           `json:"total_tokens"`
}

// ContextPart is one slice's contribution to an assembled context.
type ContextPart struct {
	SliceID    string            `json:"slice_id"`
	SourceKey  string            `json:"source_key"`
	SourceType domain.SourceType `json:"source_type"`
	Title      string            `json:"title,omitempty"`
	Score      float64           `json:"score"`
	Text       string            `json:"text"`
	Tokens     int               `json:"tokens"`
	Truncated  bool              `json:"truncated,omitempty"`
}

// RetrieveContext runs retrieval and assembles the hits into a context that
// fits maxTokens.
func (s *Service) RetrieveContext(ctx context.Context, req *request.Request, maxTokens int) (Context, error) {
	if maxTokens <= 0 {
		return Context{}, fmt.Errorf("%w: max_tokens must be positive, got %d", domain.ErrInvalidQuery, maxTokens)
	}

	hits, err := s.Retrieve(ctx, req)
	if err != nil {
		return Context{}, err
	}
	return s.assemble(hits, maxTokens)
}
