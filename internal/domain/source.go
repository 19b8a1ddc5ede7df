package domain

import "fmt"

// SourceType identifies one input collection of the corpus.
type SourceType string

const (
	// SourceKB is the knowledge-base term collection.
	SourceKB SourceType = "kb"
	// SourceStories is the episodic narrative collection.
	SourceStories SourceType = "stories"
)

// AllSourceTypes lists every known collection, in canonical order.
func AllSourceTypes() []SourceType {
	return []SourceType{SourceKB, SourceStories}
}

// IsValid checks if the source type is one of the known collections.
func (t SourceType) IsValid() bool {
	return t == SourceKB || t == SourceStories
}

// ParseSourceType validates a raw collection name.
func ParseSourceType(raw string) (SourceType, error) {
	t := SourceType(raw)
	if !t.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownSourceType, raw)
	}
	return t, nil
}

// RecordMeta is the metadata bag carried on a source record. Title, Tags and
// SeriesID are the filterable subset mirrored onto slices and vector records.
type RecordMeta struct {
	Title     string   `json:"title,omitempty"`
	Tags      []string `json:"tags,omitempty"`
	SeriesID  string   `json:"series_id,omitempty"`
	Links     []string `json:"links,omitempty"`
	UpdatedAt string   `json:"updated_at,omitempty"`
}

// SourceRecord is one indexable unit from an external collection.
// Records are produced by the export process and are read-only here.
type SourceRecord struct {
	SourceID   string     `json:"source_id"`
	SourceType SourceType `json:"source_type"`
	Text       string     `json:"text"`
	Metadata   RecordMeta `json:"metadata"`
}

// Key returns the collection-qualified record identifier, e.g. "kb:alpha".
// Golden question expected_ids use this identifier space.
func (r *SourceRecord) Key() string {
	return fmt.Sprintf("%s:%s", r.SourceType, r.SourceID)
}

// Validate checks the required fields of a decoded record.
func (r *SourceRecord) Validate() error {
	if r.SourceID == "" {
		return fmt.Errorf("source_id is required")
	}
	if !r.SourceType.IsValid() {
		return fmt.Errorf("%w: %q", ErrUnknownSourceType, r.SourceType)
	}
	if r.Text == "" {
		return fmt.Errorf("text is required")
	}
	return nil
}
