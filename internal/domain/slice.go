package domain

import "fmt"

// SliceMeta is the filterable metadata mirrored from the source record.
type SliceMeta struct {
	Title    string   `json:"title,omitempty"`
	Tags     []string `json:"tags,omitempty"`
	SeriesID string   `json:"series_id,omitempty"`
}

// Slice is a token-bounded fragment of one source record's text, the unit of
// indexing and retrieval. Slices are created fresh on every slicing run and
// never mutated; a rerun supersedes the previous output wholesale.
type Slice struct {
	ID               string     `json:"id"`
	SourceID         string     `json:"source_id"`
	SourceType       SourceType `json:"source_type"`
	Text             string     `json:"text"`
	TokenCount       int        `json:"token_count"`
	ParagraphIndices []int      `json:"paragraph_indices"`
	Meta             SliceMeta  `json:"meta"`
}

// SliceID derives the deterministic slice identifier from its origin triple.
// Stable across reruns as long as source text and slicing parameters hold.
func SliceID(t SourceType, sourceID string, ordinal int) string {
	return fmt.Sprintf("%s:%s:%d", t, sourceID, ordinal)
}

// SourceKey returns the collection-qualified identifier of the originating
// record, e.g. "kb:alpha".
func (s *Slice) SourceKey() string {
	return fmt.Sprintf("%s:%s", s.SourceType, s.SourceID)
}

// Validate checks the required fields of a decoded slice.
func (s *Slice) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("id is required")
	}
	if s.SourceID == "" {
		return fmt.Errorf("source_id is required")
	}
	if !s.SourceType.IsValid() {
		return fmt.Errorf("%w: %q", ErrUnknownSourceType, s.SourceType)
	}
	if s.Text == "" {
		return fmt.Errorf("text is required")
	}
	return nil
}

// SliceMap resolves a source record back to the slices cut from it:
// source_type -> source_id -> ordered slice ids.
type SliceMap map[SourceType]map[string][]string
