// Package slicing runs the corpus slicing stage: it reads exported source
// records, cuts each into token-bounded slices and persists the slices plus
// the source-to-slice resolution map.
package slicing

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ragdex/internal/domain"
	"github.com/kailas-cloud/ragdex/internal/logger"
	"github.com/kailas-cloud/ragdex/internal/metrics"
)

const stage = "slicing"

// Service handles the slicing stage across source collections.
type Service struct {
	store   Store
	slicer  Slicer
	workers int
}

// New creates a slicing service. workers <= 0 falls back to GOMAXPROCS.
func New(store Store, slicer Slicer, workers int) *Service {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Service{store: store, slicer: slicer, workers: workers}
}

// TypeSummary reports one collection's slicing outcome.
type TypeSummary struct {
	SourceType     domain.SourceType `json:"source_type"`
	RecordsRead    int               `json:"records_read"`
	RecordsSkipped int               `json:"records_skipped"`
	SlicesWritten  int               `json:"slices_written"`
}

// Summary reports a full slicing run.
type Summary struct {
	Types []TypeSummary `json:"types"`
}

// Run slices the given collections (all known ones when types is empty).
// A missing records artifact is fatal; malformed records are skipped and
// counted. Slice output within a collection preserves record order, so IDs
// and artifacts are byte-stable across reruns.
func (s *Service) Run(ctx context.Context, types []domain.SourceType) (Summary, error) {
	if len(types) == 0 {
		types = domain.AllSourceTypes()
	}

	var summary Summary
	update := domain.SliceMap{}

	for _, t := range types {
		ts, slices, err := s.runType(ctx, t)
		if err != nil {
			return Summary{}, fmt.Errorf("slice %s: %w", t, err)
		}

		bySource := map[string][]string{}
		for i := range slices {
			bySource[slices[i].SourceID] = append(bySource[slices[i].SourceID], slices[i].ID)
		}
		update[t] = bySource

		if err := s.store.SaveSlices(t, slices); err != nil {
			return Summary{}, err
		}
		summary.Types = append(summary.Types, ts)
	}

	if err := s.store.SaveSliceMap(update); err != nil {
		return Summary{}, err
	}
	return summary, nil
}

func (s *Service) runType(ctx context.Context, t domain.SourceType) (TypeSummary, []domain.Slice, error) {
	log := logger.FromContext(ctx)

	records, stats, err := s.store.LoadRecords(t)
	if err != nil {
		return TypeSummary{}, nil, err
	}

	perRecord := make([][]domain.Slice, len(records))
	skipped := stats.Skipped

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		jobs    = make(chan int)
		skipCnt int
	)

	for i := 0; i < s.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				slices, err := s.slicer.Slice(&records[i])
				if err != nil {
					mu.Lock()
					skipCnt++
					mu.Unlock()
					log.Warn("Skipping record",
						zap.String("source_type", string(t)),
						zap.String("source_id", records[i].SourceID),
						zap.Error(err))
					if !errors.Is(err, domain.ErrInvalidRecord) {
						log.Error("Unexpected slicing failure",
							zap.String("source_id", records[i].SourceID), zap.Error(err))
					}
					continue
				}
				perRecord[i] = slices
			}
		}()
	}

	for i := range records {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	skipped += skipCnt

	// Workers fill perRecord by index, so the flattened output keeps the
	// input record order regardless of scheduling.
	var out []domain.Slice
	for i := range perRecord {
		out = append(out, perRecord[i]...)
	}

	metrics.RecordsProcessedTotal.WithLabelValues(stage, string(t)).Add(float64(stats.Read - skipCnt))
	metrics.RecordsSkippedTotal.WithLabelValues(stage, string(t)).Add(float64(skipped))
	metrics.SlicesProducedTotal.WithLabelValues(string(t)).Add(float64(len(out)))

	log.Info("Sliced collection",
		zap.String("source_type", string(t)),
		zap.Int("records", stats.Read),
		zap.Int("skipped", skipped),
		zap.Int("slices", len(out)))

	return TypeSummary{
		SourceType:     t,
		RecordsRead:    stats.Read,
		RecordsSkipped: skipped,
		SlicesWritten:  len(out),
	}, out, nil
}
