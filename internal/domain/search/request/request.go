package request

import (
	"fmt"

	"github.com/kailas-cloud/ragdex/internal/domain"
	"github.com/kailas-cloud/ragdex/internal/domain/search/filter"
)

// Search parameter limits.
const (
	// MaxQueryLength is the maximum allowed query text length.
	MaxQueryLength = 4096
	MaxTopK        = 500
)

// Request is a validated retrieval query.
type Request struct {
	query    string
	filters  filter.Filter
	k        int
	minScore float64
}

// New validates retrieval parameters. k <= 0 is rejected at this boundary
// rather than silently returning nothing; callers supply their configured
// default before constructing the request.
func New(query string, filters filter.Filter, k int, minScore float64) (Request, error) {
	if query == "" {
		return Request{}, fmt.Errorf("%w: query is required", domain.ErrInvalidQuery)
	}
	if len(query) > MaxQueryLength {
		return Request{}, fmt.Errorf("%w: query too long (max %d chars)", domain.ErrInvalidQuery, MaxQueryLength)
	}
	if k <= 0 {
		return Request{}, fmt.Errorf("%w: k must be positive, got %d", domain.ErrInvalidQuery, k)
	}
	if k > MaxTopK {
		k = MaxTopK
	}
	if minScore < 0 || minScore > 1 {
		return Request{}, fmt.Errorf("%w: min_score must be between 0 and 1", domain.ErrInvalidQuery)
	}

	return Request{query: query, filters: filters, k: k, minScore: minScore}, nil
}

// Query returns the raw query text.
func (r *Request) Query() string { return r.query }

// Filters returns the pre-ranking filter.
func (r *Request) Filters() filter.Filter { return r.filters }

// K returns the result count limit.
func (r *Request) K() int { return r.k }

// MinScore returns the similarity floor.
func (r *Request) MinScore() float64 { return r.minScore }
