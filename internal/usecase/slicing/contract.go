package slicing

import (
	"github.com/kailas-cloud/ragdex/internal/domain"
	"github.com/kailas-cloud/ragdex/internal/repository/stream"
)

// Store defines the artifact storage contract for the slicing stage.
type Store interface {
	LoadRecords(t domain.SourceType) ([]domain.SourceRecord, stream.Stats, error)
	SaveSlices(t domain.SourceType, slices []domain.Slice) error
	SaveSliceMap(update domain.SliceMap) error
}

// Slicer cuts one source record into token-bounded slices.
type Slicer interface {
	Slice(rec *domain.SourceRecord) ([]domain.Slice, error)
}
