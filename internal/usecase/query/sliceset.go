package query

import "github.com/kailas-cloud/ragdex/internal/domain"

// SliceSet is an in-memory slice lookup keyed by slice identifier.
type SliceSet struct {
	byID map[string]domain.Slice
}

// NewSliceSet indexes slices by ID. Later duplicates win, matching the
// artifact rewrite semantics of a rerun.
func NewSliceSet(slices []domain.Slice) *SliceSet {
	byID := make(map[string]domain.Slice, len(slices))
	for i := range slices {
		byID[slices[i].ID] = slices[i]
	}
	return &SliceSet{byID: byID}
}

// Get resolves a slice by identifier.
func (s *SliceSet) Get(id string) (domain.Slice, bool) {
	slice, ok := s.byID[id]
	return slice, ok
}

// Len reports the number of indexed slices.
func (s *SliceSet) Len() int { return len(s.byID) }
