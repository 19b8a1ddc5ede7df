// Package embed runs the vectorization stage: it reads persisted slices,
// embeds each slice text and persists the resulting vector records.
package embed

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ragdex/internal/domain"
	"github.com/kailas-cloud/ragdex/internal/logger"
	"github.com/kailas-cloud/ragdex/internal/metrics"
)

const stage = "embedding"

// Service handles the vectorization stage across source collections.
type Service struct {
	store    Store
	embedder Embedder
	dims     int
	workers  int
}

// New creates an embedding service. workers <= 0 falls back to GOMAXPROCS.
func New(store Store, embedder Embedder, dims, workers int) *Service {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Service{store: store, embedder: embedder, dims: dims, workers: workers}
}

// TypeSummary reports one collection's embedding outcome.
type TypeSummary struct {
	SourceType     domain.SourceType `json:"source_type"`
	SlicesRead     int               `json:"slices_read"`
	SlicesSkipped  int               `json:"slices_skipped"`
	VectorsWritten int               `json:"vectors_written"`
	TokensUsed     int               `json:"tokens_used"`
}

// Summary reports a full embedding run.
type Summary struct {
	Types []TypeSummary `json:"types"`
}

// Run embeds the given collections (all known ones when types is empty).
// Slices are embedded concurrently but vector output preserves slice order.
// Any embedding failure aborts the run: a partially embedded index would
// silently degrade every downstream retrieval.
func (s *Service) Run(ctx context.Context, types []domain.SourceType) (Summary, error) {
	if len(types) == 0 {
		types = domain.AllSourceTypes()
	}

	var summary Summary
	for _, t := range types {
		ts, err := s.runType(ctx, t)
		if err != nil {
			return Summary{}, fmt.Errorf("embed %s: %w", t, err)
		}
		summary.Types = append(summary.Types, ts)
	}
	return summary, nil
}

func (s *Service) runType(ctx context.Context, t domain.SourceType) (TypeSummary, error) {
	log := logger.FromContext(ctx)

	slices, stats, err := s.store.LoadSlices(t)
	if err != nil {
		return TypeSummary{}, err
	}

	vectors := make([]domain.VectorRecord, len(slices))
	tokens := make([]int, len(slices))

	var (
		wg      sync.WaitGroup
		jobs    = make(chan int)
		errOnce sync.Once
		runErr  error
	)
	workCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	fail := func(err error) {
		errOnce.Do(func() {
			runErr = err
			cancel()
		})
	}

	for i := 0; i < s.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				if workCtx.Err() != nil {
					continue
				}
				res, err := s.embedder.Embed(workCtx, slices[i].Text)
				if err != nil {
					fail(fmt.Errorf("embed slice %s: %w", slices[i].ID, err))
					continue
				}
				if len(res.Embedding) != s.dims {
					fail(fmt.Errorf("%w: slice %s got %d, index expects %d",
						domain.ErrVectorDimMismatch, slices[i].ID, len(res.Embedding), s.dims))
					continue
				}
				vectors[i] = domain.VectorRecord{
					ID:         slices[i].ID,
					SourceID:   slices[i].SourceID,
					SourceType: slices[i].SourceType,
					Vector:     res.Embedding,
					Meta:       slices[i].Meta,
				}
				tokens[i] = res.TotalTokens
			}
		}()
	}

	for i := range slices {
		select {
		case jobs <- i:
		case <-workCtx.Done():
		}
		if workCtx.Err() != nil {
			break
		}
	}
	close(jobs)
	wg.Wait()

	if runErr != nil {
		return TypeSummary{}, runErr
	}
	if err := ctx.Err(); err != nil {
		return TypeSummary{}, err
	}

	totalTokens := 0
	for _, n := range tokens {
		totalTokens += n
	}

	if err := s.store.SaveVectors(t, vectors); err != nil {
		return TypeSummary{}, err
	}

	metrics.RecordsProcessedTotal.WithLabelValues(stage, string(t)).Add(float64(len(vectors)))
	metrics.RecordsSkippedTotal.WithLabelValues(stage, string(t)).Add(float64(stats.Skipped))

	log.Info("Embedded collection",
		zap.String("source_type", string(t)),
		zap.Int("slices", stats.Read),
		zap.Int("skipped", stats.Skipped),
		zap.Int("tokens", totalTokens))

	return TypeSummary{
		SourceType:     t,
		SlicesRead:     stats.Read,
		SlicesSkipped:  stats.Skipped,
		VectorsWritten: len(vectors),
		TokensUsed:     totalTokens,
	}, nil
}
