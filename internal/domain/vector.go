package domain

import "fmt"

// VectorRecord is a slice's coordinate in vector space, persisted between the
// embedding stage and the query/eval stages. The vector is L2-normalized and
// its length is constant across all records of one index.
type VectorRecord struct {
	ID         string     `json:"id"`
	SourceID   string     `json:"source_id"`
	SourceType SourceType `json:"source_type"`
	Vector     []float32  `json:"vector"`
	Meta       SliceMeta  `json:"meta"`
}

// SourceKey returns the collection-qualified identifier of the originating
// record, e.g. "stories:first-contact".
func (v *VectorRecord) SourceKey() string {
	return fmt.Sprintf("%s:%s", v.SourceType, v.SourceID)
}

// Validate checks the required fields of a decoded vector record.
func (v *VectorRecord) Validate() error {
	if v.ID == "" {
		return fmt.Errorf("id is required")
	}
	if v.SourceID == "" {
		return fmt.Errorf("source_id is required")
	}
	if !v.SourceType.IsValid() {
		return fmt.Errorf("%w: %q", ErrUnknownSourceType, v.SourceType)
	}
	if len(v.Vector) == 0 {
		return fmt.Errorf("vector is required")
	}
	return nil
}
