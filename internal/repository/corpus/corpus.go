// Package corpus maps the on-disk artifact layout of a data directory and
// offers typed load/save operations for every pipeline artifact.
package corpus

import (
	"errors"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ragdex/internal/domain"
	"github.com/kailas-cloud/ragdex/internal/repository/stream"
)

// Layout resolves artifact paths under one data directory:
//
//	<data>/records/<type>.jsonl    exported source records (read-only input)
//	<data>/slices/<type>.jsonl     slicing output
//	<data>/vectors/<type>.jsonl    embedding output
//	<data>/slice_map.json          source -> slice id resolution map
//	<data>/golden_questions.jsonl  labeled evaluation set
//	<data>/eval_report.json        evaluation output (plus .md sibling)
type Layout struct {
	DataDir string
}

// NewLayout builds a layout rooted at dataDir.
func NewLayout(dataDir string) Layout {
	return Layout{DataDir: dataDir}
}

// RecordsPath is the exported records artifact for one collection.
func (l Layout) RecordsPath(t domain.SourceType) string {
	return filepath.Join(l.DataDir, "records", string(t)+".jsonl")
}

// SlicesPath is the slicing output for one collection.
func (l Layout) SlicesPath(t domain.SourceType) string {
	return filepath.Join(l.DataDir, "slices", string(t)+".jsonl")
}

// VectorsPath is the embedding output for one collection.
func (l Layout) VectorsPath(t domain.SourceType) string {
	return filepath.Join(l.DataDir, "vectors", string(t)+".jsonl")
}

// SliceMapPath is the source-to-slices resolution map.
func (l Layout) SliceMapPath() string {
	return filepath.Join(l.DataDir, "slice_map.json")
}

// GoldenPath is the labeled evaluation question set.
func (l Layout) GoldenPath() string {
	return filepath.Join(l.DataDir, "golden_questions.jsonl")
}

// EvalReportPath is the machine-readable evaluation report.
func (l Layout) EvalReportPath() string {
	return filepath.Join(l.DataDir, "eval_report.json")
}

// EvalReportMarkdownPath is the human-readable evaluation report.
func (l Layout) EvalReportMarkdownPath() string {
	return filepath.Join(l.DataDir, "eval_report.md")
}

// EvalReportHTMLPath is the browsable evaluation report.
func (l Layout) EvalReportHTMLPath() string {
	return filepath.Join(l.DataDir, "eval_report.html")
}

// Store reads and writes pipeline artifacts in a data directory.
type Store struct {
	layout Layout
	logger *zap.Logger
}

// NewStore builds a store over dataDir.
func NewStore(dataDir string, logger *zap.Logger) *Store {
	return &Store{layout: NewLayout(dataDir), logger: logger}
}

// Layout exposes the store's path layout.
func (s *Store) Layout() Layout {
	return s.layout
}

// LoadRecords reads the exported records of one collection, skipping and
// counting malformed lines.
func (s *Store) LoadRecords(t domain.SourceType) ([]domain.SourceRecord, stream.Stats, error) {
	return stream.Read(s.layout.RecordsPath(t), (*domain.SourceRecord).Validate, s.logger)
}

// LoadSlices reads the slicing output of one collection.
func (s *Store) LoadSlices(t domain.SourceType) ([]domain.Slice, stream.Stats, error) {
	return stream.Read(s.layout.SlicesPath(t), (*domain.Slice).Validate, s.logger)
}

// SaveSlices replaces the slicing output of one collection.
func (s *Store) SaveSlices(t domain.SourceType, slices []domain.Slice) error {
	if err := stream.Write(s.layout.SlicesPath(t), slices); err != nil {
		return fmt.Errorf("save slices %s: %w", t, err)
	}
	return nil
}

// LoadVectors reads the embedding output of one collection.
func (s *Store) LoadVectors(t domain.SourceType) ([]domain.VectorRecord, stream.Stats, error) {
	return stream.Read(s.layout.VectorsPath(t), (*domain.VectorRecord).Validate, s.logger)
}

// LoadAllVectors reads the embedding output of the requested collections in
// canonical order and returns the combined set. Any missing artifact is fatal.
func (s *Store) LoadAllVectors(types []domain.SourceType) ([]domain.VectorRecord, error) {
	if len(types) == 0 {
		types = domain.AllSourceTypes()
	}
	var all []domain.VectorRecord
	for _, t := range types {
		vectors, _, err := s.LoadVectors(t)
		if err != nil {
			return nil, err
		}
		all = append(all, vectors...)
	}
	return all, nil
}

// SaveVectors replaces the embedding output of one collection.
func (s *Store) SaveVectors(t domain.SourceType, vectors []domain.VectorRecord) error {
	if err := stream.Write(s.layout.VectorsPath(t), vectors); err != nil {
		return fmt.Errorf("save vectors %s: %w", t, err)
	}
	return nil
}

// LoadSliceMap reads the source-to-slices resolution map.
func (s *Store) LoadSliceMap() (domain.SliceMap, error) {
	var m domain.SliceMap
	if err := s.mergeSliceMap(&m); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *Store) mergeSliceMap(m *domain.SliceMap) error {
	return stream.ReadJSON(s.layout.SliceMapPath(), m)
}

// SaveSliceMap merges entries for the given collections into the persisted
// map, leaving other collections' entries intact so per-type reruns do not
// erase each other's resolution data.
func (s *Store) SaveSliceMap(update domain.SliceMap) error {
	existing := domain.SliceMap{}
	if err := s.mergeSliceMap(&existing); err != nil && !isMissing(err) {
		return err
	}
	for t, bySource := range update {
		existing[t] = bySource
	}
	if err := stream.WriteJSON(s.layout.SliceMapPath(), existing); err != nil {
		return fmt.Errorf("save slice map: %w", err)
	}
	return nil
}

// LoadGolden reads the labeled evaluation question set.
func (s *Store) LoadGolden() ([]domain.GoldenQuestion, stream.Stats, error) {
	return stream.Read(s.layout.GoldenPath(), (*domain.GoldenQuestion).Validate, s.logger)
}

// SaveEvalReport writes the machine-readable evaluation report.
func (s *Store) SaveEvalReport(v any) error {
	if err := stream.WriteJSON(s.layout.EvalReportPath(), v); err != nil {
		return fmt.Errorf("save eval report: %w", err)
	}
	return nil
}

// SaveEvalReportMarkdown writes the human-readable evaluation report.
func (s *Store) SaveEvalReportMarkdown(data []byte) error {
	if err := stream.WriteFileAtomic(s.layout.EvalReportMarkdownPath(), data); err != nil {
		return fmt.Errorf("save eval report markdown: %w", err)
	}
	return nil
}

// SaveEvalReportHTML writes the browsable evaluation report.
func (s *Store) SaveEvalReportHTML(data []byte) error {
	if err := stream.WriteFileAtomic(s.layout.EvalReportHTMLPath(), data); err != nil {
		return fmt.Errorf("save eval report html: %w", err)
	}
	return nil
}

func isMissing(err error) bool {
	return errors.Is(err, domain.ErrMissingArtifact)
}
