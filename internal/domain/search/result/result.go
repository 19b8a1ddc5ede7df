package result

import (
	"fmt"

	"github.com/kailas-cloud/ragdex/internal/domain"
)

// Result is a single ranked retrieval hit.
type Result struct {
	id         string
	sourceID   string
	sourceType domain.SourceType
	score      float64
	meta       domain.SliceMeta
}

// New creates a retrieval result.
func New(id, sourceID string, sourceType domain.SourceType, score float64, meta domain.SliceMeta) Result {
	return Result{id: id, sourceID: sourceID, sourceType: sourceType, score: score, meta: meta}
}

// ID returns the slice identifier.
func (r *Result) ID() string { return r.id }

// SourceID returns the originating record identifier.
func (r *Result) SourceID() string { return r.sourceID }

// SourceType returns the originating collection.
func (r *Result) SourceType() domain.SourceType { return r.sourceType }

// SourceKey returns the collection-qualified record key, e.g. "kb:alpha".
func (r *Result) SourceKey() string {
	return fmt.Sprintf("%s:%s", r.sourceType, r.sourceID)
}

// Score returns the cosine similarity score.
func (r *Result) Score() float64 { return r.score }

// Meta returns the filterable slice metadata.
func (r *Result) Meta() domain.SliceMeta { return r.meta }
