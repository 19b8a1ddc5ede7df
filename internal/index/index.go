// Package index holds the in-memory vector index and the similarity scan.
package index

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/kailas-cloud/ragdex/internal/domain"
	"github.com/kailas-cloud/ragdex/internal/domain/search/request"
	"github.com/kailas-cloud/ragdex/internal/domain/search/result"
	"github.com/kailas-cloud/ragdex/internal/metrics"
)

// Index is the immutable in-memory set of vector records for one run.
// Records keep their load order; ties in similarity rank by that order.
type Index struct {
	dims    int
	records []domain.VectorRecord
}

// New builds an index from loaded vector records, validating that every
// vector has the configured dimensionality. A mismatch is a configuration
// error: the persisted vectors and the embedder disagree on D.
func New(dims int, records []domain.VectorRecord) (*Index, error) {
	if dims <= 0 {
		return nil, fmt.Errorf("dimensions must be positive, got %d", dims)
	}
	for i := range records {
		if len(records[i].Vector) != dims {
			return nil, fmt.Errorf("%w: record %s has %d dimensions, index expects %d",
				domain.ErrVectorDimMismatch, records[i].ID, len(records[i].Vector), dims)
		}
	}
	return &Index{dims: dims, records: records}, nil
}

// Len returns the number of indexed records.
func (ix *Index) Len() int { return len(ix.records) }

// Dimensions returns the index vector dimensionality.
func (ix *Index) Dimensions() int { return ix.dims }

// Search ranks candidates by cosine similarity against the query vector.
// Filters apply before scoring; the sort is stable so equal scores keep
// index order; the list truncates to k, then the min score floor drops
// what remains below it.
func (ix *Index) Search(vector []float32, req *request.Request) ([]result.Result, error) {
	if len(vector) != ix.dims {
		return nil, fmt.Errorf("%w: query has %d dimensions, index expects %d",
			domain.ErrVectorDimMismatch, len(vector), ix.dims)
	}

	start := time.Now()
	defer func() {
		metrics.RetrievalDuration.Observe(time.Since(start).Seconds())
	}()

	filters := req.Filters()
	matches := make([]result.Result, 0, req.K())
	for i := range ix.records {
		rec := &ix.records[i]
		if !filters.Matches(rec) {
			continue
		}
		matches = append(matches, result.New(
			rec.ID, rec.SourceID, rec.SourceType,
			Cosine(vector, rec.Vector), rec.Meta,
		))
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score() > matches[j].Score()
	})

	if len(matches) > req.K() {
		matches = matches[:req.K()]
	}

	// Post-filter: min score floor (default 0).
	kept := matches[:0]
	for _, m := range matches {
		if m.Score() >= req.MinScore() {
			kept = append(kept, m)
		}
	}
	return kept, nil
}

// Cosine computes cosine similarity as dot(a,b) / (|a| * |b|). Either vector
// having zero norm defines the similarity as 0.
func Cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		av, bv := float64(a[i]), float64(b[i])
		dot += av * bv
		na += av * av
		nb += bv * bv
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
