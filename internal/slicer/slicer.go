// Package slicer cuts normalized source records into token-bounded slices.
package slicer

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/kailas-cloud/ragdex/internal/domain"
	"github.com/kailas-cloud/ragdex/internal/normalize"
)

// sentenceEndRe matches a sentence boundary: terminal punctuation followed
// by whitespace. A terminator inside a token (3.14, v1.2) is not a boundary.
var sentenceEndRe = regexp.MustCompile(`[.!?]+\s+`)

// Slicer greedily packs paragraphs of one record into slices within a token
// budget. Paragraphs that alone exceed the budget are re-packed on sentence
// boundaries; a lone sentence over the budget becomes its own oversized slice
// rather than being truncated or dropped.
type Slicer struct {
	norm      *normalize.Normalizer
	maxTokens int
}

// New creates a Slicer with the given token budget per slice.
func New(norm *normalize.Normalizer, maxTokens int) (*Slicer, error) {
	if maxTokens <= 0 {
		return nil, fmt.Errorf("max tokens must be positive, got %d", maxTokens)
	}
	return &Slicer{norm: norm, maxTokens: maxTokens}, nil
}

// MaxTokens returns the per-slice token budget.
func (s *Slicer) MaxTokens() int { return s.maxTokens }

// Slice normalizes the record text and emits its ordered slices. An empty
// record yields zero slices. Invalid UTF-8 is a malformed record: the caller
// skips it and counts the skip, the run continues.
func (s *Slicer) Slice(rec *domain.SourceRecord) ([]domain.Slice, error) {
	if !utf8.ValidString(rec.Text) {
		return nil, fmt.Errorf("%w: %s: text is not valid UTF-8", domain.ErrInvalidRecord, rec.Key())
	}

	text := s.norm.Normalize(rec.Text)
	if text == "" {
		return nil, nil
	}

	paragraphs := strings.Split(text, "\n\n")

	b := builder{
		slicer: s,
		record: rec,
		meta: domain.SliceMeta{
			Title:    rec.Metadata.Title,
			Tags:     rec.Metadata.Tags,
			SeriesID: rec.Metadata.SeriesID,
		},
	}

	for idx, para := range paragraphs {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}

		tokens := s.norm.EstimateTokens(para)
		if tokens > s.maxTokens {
			b.flush()
			b.addOversized(para, idx)
			continue
		}

		if b.tokens > 0 && b.tokens+tokens > s.maxTokens {
			b.flush()
		}
		b.add(para, tokens, idx)
	}
	b.flush()

	return b.slices, nil
}

// builder accumulates paragraphs into the current slice.
type builder struct {
	slicer  *Slicer
	record  *domain.SourceRecord
	meta    domain.SliceMeta
	parts   []string
	indices []int
	tokens  int
	slices  []domain.Slice
}

func (b *builder) add(text string, tokens, paraIdx int) {
	b.parts = append(b.parts, text)
	b.tokens += tokens
	if len(b.indices) == 0 || b.indices[len(b.indices)-1] != paraIdx {
		b.indices = append(b.indices, paraIdx)
	}
}

// flush closes the current slice, if non-empty. The token count is the sum of
// the packed parts' estimates, matching the greedy budget accounting (joining
// separators could otherwise round the count past the budget).
func (b *builder) flush() {
	if len(b.parts) == 0 {
		return
	}
	b.emit(strings.Join(b.parts, "\n\n"), b.tokens, b.indices)
	b.parts = nil
	b.indices = nil
	b.tokens = 0
}

func (b *builder) emit(text string, tokens int, indices []int) {
	ordinal := len(b.slices)
	b.slices = append(b.slices, domain.Slice{
		ID:               domain.SliceID(b.record.SourceType, b.record.SourceID, ordinal),
		SourceID:         b.record.SourceID,
		SourceType:       b.record.SourceType,
		Text:             text,
		TokenCount:       tokens,
		ParagraphIndices: append([]int(nil), indices...),
		Meta:             b.meta,
	})
}

// addOversized re-packs a single over-budget paragraph on sentence
// boundaries. Every emitted slice references the paragraph's index.
func (b *builder) addOversized(para string, paraIdx int) {
	sentences := splitSentences(para)

	var parts []string
	var tokens int
	emit := func() {
		if len(parts) == 0 {
			return
		}
		b.emit(strings.Join(parts, " "), tokens, []int{paraIdx})
		parts = nil
		tokens = 0
	}

	for _, sent := range sentences {
		st := b.slicer.norm.EstimateTokens(sent)
		if st > b.slicer.maxTokens {
			// Indivisible unit over budget: accepted oversized slice.
			emit()
			b.emit(sent, st, []int{paraIdx})
			continue
		}
		if tokens > 0 && tokens+st > b.slicer.maxTokens {
			emit()
		}
		parts = append(parts, sent)
		tokens += st
	}
	emit()
}

// splitSentences cuts on ., ! and ? followed by whitespace, keeping the
// terminator with the sentence before it.
func splitSentences(text string) []string {
	var sentences []string
	start := 0
	for _, loc := range sentenceEndRe.FindAllStringIndex(text, -1) {
		if sent := strings.TrimSpace(text[start:loc[1]]); sent != "" {
			sentences = append(sentences, sent)
		}
		start = loc[1]
	}
	if tail := strings.TrimSpace(text[start:]); tail != "" {
		sentences = append(sentences, tail)
	}
	return sentences
}
